package services

import (
	"context"
	"testing"
	"time"

	"crm-backend/application/ports"
	domaincfg "crm-backend/domain/config"
	"crm-backend/domain/core/entities"
	"crm-backend/domain/core/valueobjects"
	"crm-backend/domain/events"
	"crm-backend/infrastructure/messaging/local"
	"crm-backend/infrastructure/persistence/memory"
	"crm-backend/infrastructure/persistence/schema"
	"crm-backend/pkg/auth"
	pkgerrors "crm-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

type reconcilerEnv struct {
	reminders *memory.ReminderRepository
	comments  *memory.CommentRepository
	leads     *memory.LeadRepository
	publisher *local.Publisher
	clock     *fixedClock
	rec       *Reconciler
}

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newReconcilerEnv(t *testing.T, caps ports.SchemaCapabilities) *reconcilerEnv {
	t.Helper()

	store := memory.NewStore(caps)
	reminders := memory.NewReminderRepository(store)
	comments := memory.NewCommentRepository(store)
	leads := memory.NewLeadRepository(store)
	publisher := local.NewPublisher(zap.NewNop())
	clock := &fixedClock{now: baseTime}
	dc := domaincfg.DefaultDomainConfig()

	rec := NewReconciler(
		reminders,
		comments,
		leads,
		NewLeadPermissionChecker(leads, dc),
		publisher,
		clock,
		dc,
		zap.NewNop(),
	)

	return &reconcilerEnv{
		reminders: reminders,
		comments:  comments,
		leads:     leads,
		publisher: publisher,
		clock:     clock,
		rec:       rec,
	}
}

func (e *reconcilerEnv) createLead(t *testing.T, owner string) *entities.Lead {
	t.Helper()
	lead, err := entities.NewLead("Acme Corp", owner, baseTime.Add(-24*time.Hour))
	require.NoError(t, err)
	require.NoError(t, e.leads.Save(context.Background(), lead))
	return lead
}

func (e *reconcilerEnv) addReminder(t *testing.T, ref valueobjects.DocRef, user string, remindAt, createdAt time.Time) *entities.Reminder {
	t.Helper()
	reminder, err := entities.NewReminder("", ref, user, remindAt, "follow up", "", createdAt)
	require.NoError(t, err)
	require.NoError(t, e.reminders.Save(context.Background(), reminder))
	return reminder
}

func (e *reconcilerEnv) addComment(t *testing.T, ref valueobjects.DocRef, owner string, createdAt time.Time) *entities.Comment {
	t.Helper()
	comment, err := entities.NewComment("", ref, owner, "<p>status update</p>", createdAt)
	require.NoError(t, err)
	require.NoError(t, e.comments.Save(context.Background(), comment))
	return comment
}

func leadRef(t *testing.T, lead *entities.Lead) valueobjects.DocRef {
	t.Helper()
	ref, err := valueobjects.NewDocRef(domaincfg.RefTypeLead, lead.ID())
	require.NoError(t, err)
	return ref
}

func TestReconcile_FlagsNewestCommentWhenOlderThanOverdueReminder(t *testing.T) {
	env := newReconcilerEnv(t, schema.NewDefaultCapabilities())
	lead := env.createLead(t, "alice")
	ref := leadRef(t, lead)

	// Comment at -3h, reminder due at -1h, now at 0: the comment
	// predates the due time, so the lead is waiting on a reply.
	env.addComment(t, ref, "bob", baseTime.Add(-3*time.Hour))
	env.addReminder(t, ref, "alice", baseTime.Add(-time.Hour), baseTime.Add(-4*time.Hour))

	result, err := env.rec.Reconcile(context.Background(), ref, ReconcileOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Delayed)
	assert.Equal(t, 1, result.Updated)
	assert.NotEmpty(t, result.CommentID)
	require.NotNil(t, result.OverdueAt)
	assert.True(t, result.OverdueAt.Equal(baseTime.Add(-time.Hour)))
	assert.Empty(t, result.Reason)

	flagged, err := env.comments.GetByID(context.Background(), result.CommentID)
	require.NoError(t, err)
	assert.True(t, flagged.Delayed())

	updated, err := env.leads.GetByID(context.Background(), lead.ID())
	require.NoError(t, err)
	assert.True(t, updated.Delayed())
}

func TestReconcile_CommentNewerThanReminderClears(t *testing.T) {
	env := newReconcilerEnv(t, schema.NewDefaultCapabilities())
	lead := env.createLead(t, "alice")
	ref := leadRef(t, lead)

	env.addReminder(t, ref, "alice", baseTime.Add(-2*time.Hour), baseTime.Add(-4*time.Hour))
	env.addComment(t, ref, "bob", baseTime.Add(-time.Hour))

	result, err := env.rec.Reconcile(context.Background(), ref, ReconcileOptions{})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Delayed)
	assert.Equal(t, ReasonCommentIsNewer, result.Reason)
	require.NotNil(t, result.OverdueAt)

	updated, err := env.leads.GetByID(context.Background(), lead.ID())
	require.NoError(t, err)
	assert.False(t, updated.Delayed())
}

func TestReconcile_CommentAtExactRemindAtIsNotDelayed(t *testing.T) {
	env := newReconcilerEnv(t, schema.NewDefaultCapabilities())
	lead := env.createLead(t, "alice")
	ref := leadRef(t, lead)

	due := baseTime.Add(-time.Hour)
	env.addReminder(t, ref, "alice", due, baseTime.Add(-4*time.Hour))
	env.addComment(t, ref, "bob", due)

	result, err := env.rec.Reconcile(context.Background(), ref, ReconcileOptions{})
	require.NoError(t, err)

	// The comparison is strict: equal timestamps count as answered.
	assert.Equal(t, 0, result.Delayed)
	assert.Equal(t, ReasonCommentIsNewer, result.Reason)
}

func TestReconcile_NoOverdueReminder(t *testing.T) {
	env := newReconcilerEnv(t, schema.NewDefaultCapabilities())
	lead := env.createLead(t, "alice")
	ref := leadRef(t, lead)

	// Due in the future only.
	env.addReminder(t, ref, "alice", baseTime.Add(time.Hour), baseTime.Add(-time.Hour))
	env.addComment(t, ref, "bob", baseTime.Add(-2*time.Hour))

	result, err := env.rec.Reconcile(context.Background(), ref, ReconcileOptions{})
	require.NoError(t, err)

	assert.Equal(t, ReasonNoOverdueReminder, result.Reason)
	assert.Equal(t, 0, result.Delayed)
	assert.Nil(t, result.OverdueAt)
}

func TestReconcile_NoCommentsReportsOverdueAt(t *testing.T) {
	env := newReconcilerEnv(t, schema.NewDefaultCapabilities())
	lead := env.createLead(t, "alice")
	ref := leadRef(t, lead)

	env.addReminder(t, ref, "alice", baseTime.Add(-time.Hour), baseTime.Add(-4*time.Hour))

	result, err := env.rec.Reconcile(context.Background(), ref, ReconcileOptions{})
	require.NoError(t, err)

	assert.Equal(t, ReasonNoUserComments, result.Reason)
	assert.Equal(t, 0, result.Delayed)
	require.NotNil(t, result.OverdueAt)
	assert.True(t, result.OverdueAt.Equal(baseTime.Add(-time.Hour)))
}

func TestReconcile_AtMostOneCommentFlagged(t *testing.T) {
	env := newReconcilerEnv(t, schema.NewDefaultCapabilities())
	lead := env.createLead(t, "alice")
	ref := leadRef(t, lead)

	env.addComment(t, ref, "bob", baseTime.Add(-5*time.Hour))
	env.addComment(t, ref, "carol", baseTime.Add(-4*time.Hour))
	newest := env.addComment(t, ref, "bob", baseTime.Add(-3*time.Hour))
	env.addReminder(t, ref, "alice", baseTime.Add(-time.Hour), baseTime.Add(-6*time.Hour))

	_, err := env.rec.Reconcile(context.Background(), ref, ReconcileOptions{})
	require.NoError(t, err)

	all, err := env.comments.ListForDoc(context.Background(), ref)
	require.NoError(t, err)

	flaggedCount := 0
	for _, comment := range all {
		if comment.Delayed() {
			flaggedCount++
			assert.Equal(t, newest.ID(), comment.ID())
		}
	}
	assert.Equal(t, 1, flaggedCount)
}

func TestReconcile_Idempotent(t *testing.T) {
	env := newReconcilerEnv(t, schema.NewDefaultCapabilities())
	lead := env.createLead(t, "alice")
	ref := leadRef(t, lead)

	env.addComment(t, ref, "bob", baseTime.Add(-3*time.Hour))
	env.addReminder(t, ref, "alice", baseTime.Add(-time.Hour), baseTime.Add(-4*time.Hour))

	first, err := env.rec.Reconcile(context.Background(), ref, ReconcileOptions{})
	require.NoError(t, err)
	second, err := env.rec.Reconcile(context.Background(), ref, ReconcileOptions{})
	require.NoError(t, err)

	assert.Equal(t, first.Delayed, second.Delayed)
	assert.Equal(t, first.CommentID, second.CommentID)

	// The mirror flips once, so only the first pass publishes a change.
	flips := 0
	for _, evt := range env.publisher.Published() {
		if evt.GetEventType() == "lead.delayed_status_changed" {
			flips++
		}
	}
	assert.Equal(t, 1, flips)
}

func TestReconcile_NewerCommentClearsPreviousFlag(t *testing.T) {
	env := newReconcilerEnv(t, schema.NewDefaultCapabilities())
	lead := env.createLead(t, "alice")
	ref := leadRef(t, lead)

	old := env.addComment(t, ref, "bob", baseTime.Add(-3*time.Hour))
	env.addReminder(t, ref, "alice", baseTime.Add(-time.Hour), baseTime.Add(-4*time.Hour))

	_, err := env.rec.Reconcile(context.Background(), ref, ReconcileOptions{})
	require.NoError(t, err)

	// A reply lands after the due time.
	env.addComment(t, ref, "carol", baseTime.Add(-30*time.Minute))

	result, err := env.rec.Reconcile(context.Background(), ref, ReconcileOptions{})
	require.NoError(t, err)
	assert.Equal(t, ReasonCommentIsNewer, result.Reason)

	previous, err := env.comments.GetByID(context.Background(), old.ID())
	require.NoError(t, err)
	assert.False(t, previous.Delayed())

	updated, err := env.leads.GetByID(context.Background(), lead.ID())
	require.NoError(t, err)
	assert.False(t, updated.Delayed())
}

func TestReconcile_UserScopingIgnoresOtherUsersReminders(t *testing.T) {
	env := newReconcilerEnv(t, schema.NewDefaultCapabilities())
	lead := env.createLead(t, "alice")
	ref := leadRef(t, lead)

	env.addComment(t, ref, "bob", baseTime.Add(-3*time.Hour))
	env.addReminder(t, ref, "alice", baseTime.Add(-time.Hour), baseTime.Add(-4*time.Hour))

	result, err := env.rec.Reconcile(context.Background(), ref, ReconcileOptions{User: "dave"})
	require.NoError(t, err)

	assert.Equal(t, ReasonNoOverdueReminder, result.Reason)
}

func TestReconcile_ActorWithoutReadAccessIsForbidden(t *testing.T) {
	env := newReconcilerEnv(t, schema.NewDefaultCapabilities())
	lead := env.createLead(t, "alice")
	ref := leadRef(t, lead)

	outsider := &auth.UserContext{UserID: "mallory"}
	_, err := env.rec.Reconcile(context.Background(), ref, ReconcileOptions{Actor: outsider})

	require.Error(t, err)
	assert.True(t, pkgerrors.IsForbidden(err))
}

func TestReconcile_TeamMemberAndManagerMayRead(t *testing.T) {
	env := newReconcilerEnv(t, schema.NewDefaultCapabilities())
	lead := env.createLead(t, "alice")
	lead.AddTeamMember("bob")
	require.NoError(t, env.leads.Save(context.Background(), lead))
	ref := leadRef(t, lead)

	_, err := env.rec.Reconcile(context.Background(), ref, ReconcileOptions{
		Actor: &auth.UserContext{UserID: "bob"},
	})
	assert.NoError(t, err)

	_, err = env.rec.Reconcile(context.Background(), ref, ReconcileOptions{
		Actor: &auth.UserContext{UserID: "eve", Roles: []string{"sales_manager"}},
	})
	assert.NoError(t, err)
}

func TestReconcile_MissingLeadStillReconcilesComments(t *testing.T) {
	env := newReconcilerEnv(t, schema.NewDefaultCapabilities())
	ref, err := valueobjects.NewDocRef(domaincfg.RefTypeLead, "gone")
	require.NoError(t, err)

	env.addComment(t, ref, "bob", baseTime.Add(-3*time.Hour))
	env.addReminder(t, ref, "alice", baseTime.Add(-time.Hour), baseTime.Add(-4*time.Hour))

	result, err := env.rec.Reconcile(context.Background(), ref, ReconcileOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Delayed)
}

func TestReconcile_StoreWithoutDelayedCapability(t *testing.T) {
	caps := &schema.StaticCapabilities{
		Reminder:       schema.DefaultReminderSchema(),
		CommentDelayed: false,
		LeadDelayed:    false,
	}
	env := newReconcilerEnv(t, caps)
	lead := env.createLead(t, "alice")
	ref := leadRef(t, lead)

	env.addComment(t, ref, "bob", baseTime.Add(-3*time.Hour))
	env.addReminder(t, ref, "alice", baseTime.Add(-time.Hour), baseTime.Add(-4*time.Hour))

	result, err := env.rec.Reconcile(context.Background(), ref, ReconcileOptions{})
	require.NoError(t, err)

	// The outcome is still derived; only the flag writes are no-ops.
	assert.Equal(t, 1, result.Delayed)
	assert.Equal(t, 0, result.Cleared)

	stored, err := env.leads.GetByID(context.Background(), lead.ID())
	require.NoError(t, err)
	assert.False(t, stored.Delayed())
}

func TestReconcile_EventCarriesFlipDirection(t *testing.T) {
	env := newReconcilerEnv(t, schema.NewDefaultCapabilities())
	lead := env.createLead(t, "alice")
	ref := leadRef(t, lead)

	env.addComment(t, ref, "bob", baseTime.Add(-3*time.Hour))
	reminder := env.addReminder(t, ref, "alice", baseTime.Add(-time.Hour), baseTime.Add(-4*time.Hour))

	_, err := env.rec.Reconcile(context.Background(), ref, ReconcileOptions{})
	require.NoError(t, err)

	// Resolve the reminder and reconcile again: the mirror flips back.
	reminder.MarkSent()
	require.NoError(t, env.reminders.Save(context.Background(), reminder))
	_, err = env.rec.Reconcile(context.Background(), ref, ReconcileOptions{})
	require.NoError(t, err)

	var changes []events.DelayedStatusChanged
	for _, evt := range env.publisher.Published() {
		if change, ok := evt.(events.DelayedStatusChanged); ok {
			changes = append(changes, change)
		}
	}
	require.Len(t, changes, 2)
	assert.True(t, changes[0].Delayed)
	assert.False(t, changes[1].Delayed)
}

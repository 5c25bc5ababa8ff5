package memory

import (
	"context"
	"testing"
	"time"

	domaincfg "crm-backend/domain/config"
	"crm-backend/domain/core/entities"
	"crm-backend/domain/core/valueobjects"
	"crm-backend/infrastructure/persistence/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var storeBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func leadRef(t *testing.T, id string) valueobjects.DocRef {
	t.Helper()
	ref, err := valueobjects.NewDocRef(domaincfg.RefTypeLead, id)
	require.NoError(t, err)
	return ref
}

func seedReminder(t *testing.T, repo *ReminderRepository, id, refID string, remindAt, createdAt time.Time) *entities.Reminder {
	t.Helper()
	rem, err := entities.NewReminder(id, leadRef(t, refID), "alice", remindAt, "follow up", "", createdAt)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), rem))
	return rem
}

func seedComment(t *testing.T, repo *CommentRepository, id, refID, owner string, createdAt time.Time) *entities.Comment {
	t.Helper()
	cm, err := entities.NewComment(id, leadRef(t, refID), owner, "<p>note</p>", createdAt)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), cm))
	return cm
}

func TestLatestOverdue_PicksGreatestRemindAt(t *testing.T) {
	store := NewStore(schema.NewDefaultCapabilities())
	repo := NewReminderRepository(store)
	ctx := context.Background()

	seedReminder(t, repo, "rem-old", "lead-1", storeBase.Add(-3*time.Hour), storeBase.Add(-5*time.Hour))
	seedReminder(t, repo, "rem-new", "lead-1", storeBase.Add(-time.Hour), storeBase.Add(-5*time.Hour))
	seedReminder(t, repo, "rem-future", "lead-1", storeBase.Add(time.Hour), storeBase.Add(-5*time.Hour))

	latest, err := repo.LatestOverdue(ctx, leadRef(t, "lead-1"), storeBase, "")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "rem-new", latest.ID())
}

func TestLatestOverdue_TieBrokenByCreation(t *testing.T) {
	store := NewStore(schema.NewDefaultCapabilities())
	repo := NewReminderRepository(store)
	due := storeBase.Add(-time.Hour)

	seedReminder(t, repo, "rem-early", "lead-1", due, storeBase.Add(-5*time.Hour))
	seedReminder(t, repo, "rem-late", "lead-1", due, storeBase.Add(-2*time.Hour))

	latest, err := repo.LatestOverdue(context.Background(), leadRef(t, "lead-1"), storeBase, "")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "rem-late", latest.ID())
}

func TestLatestOverdue_SkipsSentAndScopesByUser(t *testing.T) {
	store := NewStore(schema.NewDefaultCapabilities())
	repo := NewReminderRepository(store)
	ctx := context.Background()

	sent := seedReminder(t, repo, "rem-sent", "lead-1", storeBase.Add(-time.Hour), storeBase.Add(-5*time.Hour))
	sent.MarkSent()
	require.NoError(t, repo.Save(ctx, sent))
	seedReminder(t, repo, "rem-alice", "lead-1", storeBase.Add(-2*time.Hour), storeBase.Add(-5*time.Hour))

	latest, err := repo.LatestOverdue(ctx, leadRef(t, "lead-1"), storeBase, "")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "rem-alice", latest.ID())

	latest, err = repo.LatestOverdue(ctx, leadRef(t, "lead-1"), storeBase, "bob")
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestListOverdueRefIDs_DeduplicatesAndCaps(t *testing.T) {
	store := NewStore(schema.NewDefaultCapabilities())
	repo := NewReminderRepository(store)
	ctx := context.Background()

	seedReminder(t, repo, "rem-1", "lead-b", storeBase.Add(-time.Hour), storeBase.Add(-5*time.Hour))
	seedReminder(t, repo, "rem-2", "lead-b", storeBase.Add(-2*time.Hour), storeBase.Add(-5*time.Hour))
	seedReminder(t, repo, "rem-3", "lead-a", storeBase.Add(-time.Hour), storeBase.Add(-5*time.Hour))
	seedReminder(t, repo, "rem-4", "lead-c", storeBase.Add(-time.Hour), storeBase.Add(-5*time.Hour))

	ids, err := repo.ListOverdueRefIDs(ctx, domaincfg.RefTypeLead, storeBase, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"lead-a", "lead-b", "lead-c"}, ids)

	ids, err = repo.ListOverdueRefIDs(ctx, domaincfg.RefTypeLead, storeBase, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"lead-a", "lead-b"}, ids)
}

func TestListForDoc_OrdersByRemindAtThenCreation(t *testing.T) {
	store := NewStore(schema.NewDefaultCapabilities())
	repo := NewReminderRepository(store)

	seedReminder(t, repo, "rem-c", "lead-1", storeBase.Add(2*time.Hour), storeBase)
	seedReminder(t, repo, "rem-a", "lead-1", storeBase.Add(time.Hour), storeBase)
	seedReminder(t, repo, "rem-b", "lead-1", storeBase.Add(time.Hour), storeBase.Add(time.Minute))

	list, err := repo.ListForDoc(context.Background(), leadRef(t, "lead-1"))
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "rem-a", list[0].ID())
	assert.Equal(t, "rem-b", list[1].ID())
	assert.Equal(t, "rem-c", list[2].ID())
}

func TestSetDelayedFlags_TouchesOnlyChangedComments(t *testing.T) {
	store := NewStore(schema.NewDefaultCapabilities())
	repo := NewCommentRepository(store)
	ctx := context.Background()

	already := seedComment(t, repo, "com-1", "lead-1", "alice", storeBase.Add(-2*time.Hour))
	already.SetDelayed(true)
	seedComment(t, repo, "com-2", "lead-1", "alice", storeBase.Add(-time.Hour))
	seedComment(t, repo, "com-3", "lead-1", "bob", storeBase.Add(-time.Hour))

	touched, err := repo.SetDelayedFlags(ctx, leadRef(t, "lead-1"), true, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, touched)

	touched, err = repo.SetDelayedFlags(ctx, leadRef(t, "lead-1"), false, "")
	require.NoError(t, err)
	assert.Equal(t, 2, touched)
}

func TestDelayedOperations_NoopWithoutCapability(t *testing.T) {
	caps := &schema.StaticCapabilities{
		Reminder:       schema.DefaultReminderSchema(),
		CommentDelayed: false,
		LeadDelayed:    false,
	}
	store := NewStore(caps)
	comments := NewCommentRepository(store)
	leads := NewLeadRepository(store)
	ctx := context.Background()

	seedComment(t, comments, "com-1", "lead-1", "alice", storeBase.Add(-time.Hour))

	touched, err := comments.SetDelayedFlags(ctx, leadRef(t, "lead-1"), true, "")
	require.NoError(t, err)
	assert.Zero(t, touched)

	// Absent flag column means the fast path has nothing to read.
	flags, err := comments.AnyDelayedByDoc(ctx, domaincfg.RefTypeLead, []string{"lead-1"})
	require.NoError(t, err)
	assert.Nil(t, flags)

	lead, err := entities.NewLead("Acme Corp", "alice", storeBase.Add(-24*time.Hour))
	require.NoError(t, err)
	require.NoError(t, leads.Save(ctx, lead))
	require.NoError(t, leads.SetDelayed(ctx, lead.ID(), true))
	stored, err := leads.GetByID(ctx, lead.ID())
	require.NoError(t, err)
	assert.False(t, stored.Delayed())
}

func TestAnyDelayedByDoc_ReportsOnlyRequestedIDs(t *testing.T) {
	store := NewStore(schema.NewDefaultCapabilities())
	repo := NewCommentRepository(store)
	ctx := context.Background()

	flagged := seedComment(t, repo, "com-1", "lead-1", "alice", storeBase.Add(-time.Hour))
	flagged.SetDelayed(true)
	other := seedComment(t, repo, "com-2", "lead-other", "alice", storeBase.Add(-time.Hour))
	other.SetDelayed(true)
	seedComment(t, repo, "com-3", "lead-2", "alice", storeBase.Add(-time.Hour))

	flags, err := repo.AnyDelayedByDoc(ctx, domaincfg.RefTypeLead, []string{"lead-1", "lead-2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"lead-1": true, "lead-2": false}, flags)
}

func TestNotifications_ListForUserNewestFirst(t *testing.T) {
	store := NewStore(schema.NewDefaultCapabilities())
	repo := NewNotificationRepository(store)
	ctx := context.Background()

	for i, id := range []string{"n-1", "n-2", "n-3"} {
		notif, err := entities.NewNotification("alice", "bob", "subject "+id, "body", entities.NotificationTypeMention, leadRef(t, "lead-1"), storeBase.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, notif))
	}

	list, err := repo.ListForUser(ctx, "alice", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].CreatedAt().After(list[1].CreatedAt()))
}
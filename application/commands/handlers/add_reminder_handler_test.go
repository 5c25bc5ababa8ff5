package handlers

import (
	"context"
	"testing"
	"time"

	"crm-backend/application/commands"
	"crm-backend/application/services"
	domaincfg "crm-backend/domain/config"
	"crm-backend/domain/core/entities"
	"crm-backend/domain/core/valueobjects"
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

var handlerBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type handlerEnv struct {
	reminders *memory.ReminderRepository
	comments  *memory.CommentRepository
	leads     *memory.LeadRepository
	publisher *local.Publisher
	clock     *fixedClock

	addReminder    *AddReminderHandler
	deleteReminder *DeleteReminderHandler
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()

	store := memory.NewStore(schema.NewDefaultCapabilities())
	reminders := memory.NewReminderRepository(store)
	comments := memory.NewCommentRepository(store)
	leads := memory.NewLeadRepository(store)
	publisher := local.NewPublisher(zap.NewNop())
	clock := &fixedClock{now: handlerBase}
	dc := domaincfg.DefaultDomainConfig()
	perms := services.NewLeadPermissionChecker(leads, dc)
	logger := zap.NewNop()

	reconciler := services.NewReconciler(reminders, comments, leads, perms, publisher, clock, dc, logger)

	return &handlerEnv{
		reminders:      reminders,
		comments:       comments,
		leads:          leads,
		publisher:      publisher,
		clock:          clock,
		addReminder:    NewAddReminderHandler(reminders, perms, reconciler, publisher, clock, logger),
		deleteReminder: NewDeleteReminderHandler(reminders, perms, reconciler, publisher, clock, logger),
	}
}

func (e *handlerEnv) createLead(t *testing.T, owner string) *entities.Lead {
	t.Helper()
	lead, err := entities.NewLead("Acme Corp", owner, handlerBase.Add(-24*time.Hour))
	require.NoError(t, err)
	require.NoError(t, e.leads.Save(context.Background(), lead))
	return lead
}

func TestAddReminder_CreatesAndPublishes(t *testing.T) {
	env := newHandlerEnv(t)
	lead := env.createLead(t, "alice")

	cmd := commands.AddReminderCommand{
		ReminderID:  "rem-1",
		RefType:     domaincfg.RefTypeLead,
		RefID:       lead.ID(),
		RemindAt:    handlerBase.Add(time.Hour),
		Description: "call back about pricing",
		Actor:       &auth.UserContext{UserID: "alice"},
	}
	require.NoError(t, env.addReminder.Handle(context.Background(), cmd))

	stored, err := env.reminders.GetByID(context.Background(), "rem-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", stored.User())
	assert.True(t, stored.IsActive())

	published := env.publisher.Published()
	require.NotEmpty(t, published)
	assert.Equal(t, "reminder.created", published[0].GetEventType())
}

func TestAddReminder_RejectsPastRemindAt(t *testing.T) {
	env := newHandlerEnv(t)
	lead := env.createLead(t, "alice")

	cmd := commands.AddReminderCommand{
		ReminderID:  "rem-1",
		RefType:     domaincfg.RefTypeLead,
		RefID:       lead.ID(),
		RemindAt:    handlerBase.Add(-time.Minute),
		Description: "call back",
		Actor:       &auth.UserContext{UserID: "alice"},
	}
	err := env.addReminder.Handle(context.Background(), cmd)

	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestAddReminder_RejectsBlankDescription(t *testing.T) {
	env := newHandlerEnv(t)
	lead := env.createLead(t, "alice")

	cmd := commands.AddReminderCommand{
		ReminderID:  "rem-1",
		RefType:     domaincfg.RefTypeLead,
		RefID:       lead.ID(),
		RemindAt:    handlerBase.Add(time.Hour),
		Description: "   ",
		Actor:       &auth.UserContext{UserID: "alice"},
	}
	err := env.addReminder.Handle(context.Background(), cmd)

	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestAddReminder_ForbiddenOnUnreadableLead(t *testing.T) {
	env := newHandlerEnv(t)
	lead := env.createLead(t, "alice")

	cmd := commands.AddReminderCommand{
		ReminderID:  "rem-1",
		RefType:     domaincfg.RefTypeLead,
		RefID:       lead.ID(),
		RemindAt:    handlerBase.Add(time.Hour),
		Description: "call back",
		Actor:       &auth.UserContext{UserID: "mallory"},
	}
	err := env.addReminder.Handle(context.Background(), cmd)

	require.Error(t, err)
	assert.True(t, pkgerrors.IsForbidden(err))
}

func TestDeleteReminder_OwnerDeletesAndLeadClears(t *testing.T) {
	env := newHandlerEnv(t)
	lead := env.createLead(t, "alice")
	ref, err := valueobjects.NewDocRef(domaincfg.RefTypeLead, lead.ID())
	require.NoError(t, err)
	ctx := context.Background()

	// An unanswered overdue reminder marks the lead delayed.
	comment, err := entities.NewComment("", ref, "bob", "<p>ping</p>", handlerBase.Add(-3*time.Hour))
	require.NoError(t, err)
	require.NoError(t, env.comments.Save(ctx, comment))
	reminder, err := entities.NewReminder("rem-1", ref, "alice", handlerBase.Add(-time.Hour), "follow up", "", handlerBase.Add(-4*time.Hour))
	require.NoError(t, err)
	require.NoError(t, env.reminders.Save(ctx, reminder))

	_, err = services.NewReconciler(
		env.reminders, env.comments, env.leads,
		services.NewLeadPermissionChecker(env.leads, domaincfg.DefaultDomainConfig()),
		env.publisher, env.clock, domaincfg.DefaultDomainConfig(), zap.NewNop(),
	).Reconcile(ctx, ref, services.ReconcileOptions{})
	require.NoError(t, err)

	cmd := commands.DeleteReminderCommand{
		ReminderID: "rem-1",
		Actor:      &auth.UserContext{UserID: "alice"},
	}
	require.NoError(t, env.deleteReminder.Handle(ctx, cmd))

	_, err = env.reminders.GetByID(ctx, "rem-1")
	assert.True(t, pkgerrors.IsNotFound(err))

	stored, err := env.leads.GetByID(ctx, lead.ID())
	require.NoError(t, err)
	assert.False(t, stored.Delayed())
}

func TestDeleteReminder_StrangerForbidden(t *testing.T) {
	env := newHandlerEnv(t)
	lead := env.createLead(t, "alice")
	ref, err := valueobjects.NewDocRef(domaincfg.RefTypeLead, lead.ID())
	require.NoError(t, err)

	reminder, err := entities.NewReminder("rem-1", ref, "alice", handlerBase.Add(time.Hour), "follow up", "", handlerBase)
	require.NoError(t, err)
	require.NoError(t, env.reminders.Save(context.Background(), reminder))

	cmd := commands.DeleteReminderCommand{
		ReminderID: "rem-1",
		Actor:      &auth.UserContext{UserID: "mallory"},
	}
	err = env.deleteReminder.Handle(context.Background(), cmd)

	require.Error(t, err)
	assert.True(t, pkgerrors.IsForbidden(err))
}

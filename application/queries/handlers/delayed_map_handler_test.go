package handlers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"crm-backend/application/queries"
	"crm-backend/application/services"
	domaincfg "crm-backend/domain/config"
	"crm-backend/domain/core/entities"
	"crm-backend/domain/core/valueobjects"
	"crm-backend/infrastructure/persistence/memory"
	"crm-backend/infrastructure/persistence/schema"
	"crm-backend/pkg/auth"
	pkgerrors "crm-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

var mapBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type delayedMapEnv struct {
	store     *memory.Store
	reminders *memory.ReminderRepository
	comments  *memory.CommentRepository
	leads     *memory.LeadRepository
	handler   *DelayedMapHandler
}

func newDelayedMapEnv(t *testing.T, commentDelayed bool) *delayedMapEnv {
	t.Helper()

	caps := &schema.StaticCapabilities{
		Reminder:       schema.DefaultReminderSchema(),
		CommentDelayed: commentDelayed,
		LeadDelayed:    commentDelayed,
	}
	store := memory.NewStore(caps)
	reminders := memory.NewReminderRepository(store)
	comments := memory.NewCommentRepository(store)
	leads := memory.NewLeadRepository(store)
	dc := domaincfg.DefaultDomainConfig()

	handler := NewDelayedMapHandler(
		reminders,
		comments,
		services.NewLeadPermissionChecker(leads, dc),
		&fixedClock{now: mapBase},
		dc,
	)
	return &delayedMapEnv{
		store:     store,
		reminders: reminders,
		comments:  comments,
		leads:     leads,
		handler:   handler,
	}
}

// seedLead creates a lead owned by owner; delayed controls whether an
// unanswered overdue reminder is attached.
func (e *delayedMapEnv) seedLead(t *testing.T, owner string, delayed bool) *entities.Lead {
	t.Helper()
	ctx := context.Background()

	lead, err := entities.NewLead("Lead Co", owner, mapBase.Add(-24*time.Hour))
	require.NoError(t, err)
	require.NoError(t, e.leads.Save(ctx, lead))

	ref, err := valueobjects.NewDocRef(domaincfg.RefTypeLead, lead.ID())
	require.NoError(t, err)

	commentAt := mapBase.Add(-30 * time.Minute)
	if delayed {
		commentAt = mapBase.Add(-3 * time.Hour)
	}
	comment, err := entities.NewComment("", ref, "bob", "<p>ping</p>", commentAt)
	require.NoError(t, err)
	require.NoError(t, e.comments.Save(ctx, comment))

	reminder, err := entities.NewReminder("", ref, owner, mapBase.Add(-time.Hour), "follow up", "", mapBase.Add(-4*time.Hour))
	require.NoError(t, err)
	require.NoError(t, e.reminders.Save(ctx, reminder))

	if delayed {
		require.NoError(t, e.comments.SetDelayed(ctx, comment.ID(), true))
	}
	return lead
}

func TestDelayedMap_FastPathReadsStoredFlags(t *testing.T) {
	env := newDelayedMapEnv(t, true)
	delayed := env.seedLead(t, "alice", true)
	answered := env.seedLead(t, "alice", false)

	result, err := env.handler.Handle(context.Background(), queries.DelayedMapQuery{
		RefType: domaincfg.RefTypeLead,
		RefIDs:  []string{delayed.ID(), answered.ID()},
		Actor:   &auth.UserContext{UserID: "alice"},
	})
	require.NoError(t, err)

	m, ok := result.(map[string]bool)
	require.True(t, ok)
	assert.True(t, m[delayed.ID()])
	assert.False(t, m[answered.ID()])
}

func TestDelayedMap_SlowPathDerivesFromTimestamps(t *testing.T) {
	// No delayed capability: the handler must re-derive from reminder
	// and comment timestamps.
	env := newDelayedMapEnv(t, false)
	delayed := env.seedLead(t, "alice", true)
	answered := env.seedLead(t, "alice", false)

	result, err := env.handler.Handle(context.Background(), queries.DelayedMapQuery{
		RefType: domaincfg.RefTypeLead,
		RefIDs:  []string{delayed.ID(), answered.ID()},
		Actor:   &auth.UserContext{UserID: "alice"},
	})
	require.NoError(t, err)

	m, ok := result.(map[string]bool)
	require.True(t, ok)
	assert.True(t, m[delayed.ID()])
	assert.False(t, m[answered.ID()])
}

func TestDelayedMap_DuplicatesCollapse(t *testing.T) {
	env := newDelayedMapEnv(t, true)
	lead := env.seedLead(t, "alice", true)

	result, err := env.handler.Handle(context.Background(), queries.DelayedMapQuery{
		RefType: domaincfg.RefTypeLead,
		RefIDs:  []string{lead.ID(), lead.ID(), lead.ID()},
		Actor:   &auth.UserContext{UserID: "alice"},
	})
	require.NoError(t, err)

	m, ok := result.(map[string]bool)
	require.True(t, ok)
	assert.Len(t, m, 1)
	assert.True(t, m[lead.ID()])
}

func TestDelayedMap_UnreadableLeadsAreAbsent(t *testing.T) {
	env := newDelayedMapEnv(t, true)
	mine := env.seedLead(t, "alice", true)
	other := env.seedLead(t, "carol", true)

	result, err := env.handler.Handle(context.Background(), queries.DelayedMapQuery{
		RefType: domaincfg.RefTypeLead,
		RefIDs:  []string{mine.ID(), other.ID(), "no-such-lead"},
		Actor:   &auth.UserContext{UserID: "alice"},
	})
	require.NoError(t, err)

	m, ok := result.(map[string]bool)
	require.True(t, ok)
	assert.Len(t, m, 1)
	_, present := m[other.ID()]
	assert.False(t, present)
}

func TestDelayedMap_ManagerSeesEverything(t *testing.T) {
	env := newDelayedMapEnv(t, true)
	a := env.seedLead(t, "alice", true)
	b := env.seedLead(t, "carol", false)

	result, err := env.handler.Handle(context.Background(), queries.DelayedMapQuery{
		RefType: domaincfg.RefTypeLead,
		RefIDs:  []string{a.ID(), b.ID()},
		Actor:   &auth.UserContext{UserID: "eve", Roles: []string{"sales_manager"}},
	})
	require.NoError(t, err)

	m, ok := result.(map[string]bool)
	require.True(t, ok)
	assert.Len(t, m, 2)
}

func TestDelayedMap_RejectsOversizedBatch(t *testing.T) {
	env := newDelayedMapEnv(t, true)

	ids := make([]string, domaincfg.DefaultDomainConfig().DelayedMapBatchLimit+1)
	for i := range ids {
		ids[i] = fmt.Sprintf("lead-%d", i)
	}

	_, err := env.handler.Handle(context.Background(), queries.DelayedMapQuery{
		RefType: domaincfg.RefTypeLead,
		RefIDs:  ids,
		Actor:   &auth.UserContext{UserID: "alice"},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestDelayedMap_UnsupportedRefTypeRejected(t *testing.T) {
	env := newDelayedMapEnv(t, true)

	_, err := env.handler.Handle(context.Background(), queries.DelayedMapQuery{
		RefType: "Invoice",
		RefIDs:  []string{"inv-1"},
		Actor:   &auth.UserContext{UserID: "alice"},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

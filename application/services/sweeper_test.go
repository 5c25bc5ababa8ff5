package services

import (
	"context"
	"testing"
	"time"

	domaincfg "crm-backend/domain/config"
	"crm-backend/domain/core/entities"
	"crm-backend/domain/core/valueobjects"
	"crm-backend/infrastructure/persistence/memory"
	"crm-backend/infrastructure/persistence/schema"
	pkgerrors "crm-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSweeperEnv(t *testing.T) (*reconcilerEnv, *Sweeper) {
	t.Helper()
	env := newReconcilerEnv(t, schema.NewDefaultCapabilities())
	sweeper := NewSweeper(
		env.reminders,
		env.rec,
		env.clock,
		nil,
		domaincfg.DefaultDomainConfig(),
		domaincfg.RefTypeLead,
		zap.NewNop(),
	)
	return env, sweeper
}

func TestSweeper_RunOnceReconcilesEveryOverdueLead(t *testing.T) {
	env, sweeper := newSweeperEnv(t)

	var leads []*entities.Lead
	for i := 0; i < 3; i++ {
		lead := env.createLead(t, "alice")
		ref := leadRef(t, lead)
		env.addComment(t, ref, "bob", baseTime.Add(-3*time.Hour))
		env.addReminder(t, ref, "alice", baseTime.Add(-time.Hour), baseTime.Add(-4*time.Hour))
		leads = append(leads, lead)
	}

	result, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 0, result.Skipped)
	assert.Len(t, result.RefIDs, 3)

	for _, lead := range leads {
		stored, err := env.leads.GetByID(context.Background(), lead.ID())
		require.NoError(t, err)
		assert.True(t, stored.Delayed())
	}
}

func TestSweeper_MultipleRemindersOneLeadProcessedOnce(t *testing.T) {
	env, sweeper := newSweeperEnv(t)

	lead := env.createLead(t, "alice")
	ref := leadRef(t, lead)
	env.addReminder(t, ref, "alice", baseTime.Add(-time.Hour), baseTime.Add(-5*time.Hour))
	env.addReminder(t, ref, "bob", baseTime.Add(-2*time.Hour), baseTime.Add(-5*time.Hour))

	result, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Processed)
	assert.Len(t, result.RefIDs, 1)
}

func TestSweeper_NoOverdueRemindersIsQuiet(t *testing.T) {
	env, sweeper := newSweeperEnv(t)

	lead := env.createLead(t, "alice")
	ref := leadRef(t, lead)
	env.addReminder(t, ref, "alice", baseTime.Add(time.Hour), baseTime.Add(-time.Hour))

	result, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, result.Processed)
	assert.Empty(t, result.RefIDs)
}

func TestSweeper_SentRemindersDoNotTrigger(t *testing.T) {
	env, sweeper := newSweeperEnv(t)

	lead := env.createLead(t, "alice")
	ref := leadRef(t, lead)
	reminder := env.addReminder(t, ref, "alice", baseTime.Add(-time.Hour), baseTime.Add(-4*time.Hour))
	reminder.MarkSent()
	require.NoError(t, env.reminders.Save(context.Background(), reminder))

	result, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, result.Processed)
}

func TestSweeper_StartStop(t *testing.T) {
	_, sweeper := newSweeperEnv(t)

	sweeper.Start(context.Background())
	sweeper.Stop()
}

// stopWithin fails the test when Stop does not return promptly.
func stopWithin(t *testing.T, sweeper *Sweeper, timeout time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		sweeper.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("Sweeper.Stop did not return")
	}
}

func TestSweeper_StopWithoutStartReturns(t *testing.T) {
	env, sweeper := newSweeperEnv(t)

	// One-shot callers run RunOnce without ever starting the loop and
	// still stop the sweeper on shutdown.
	lead := env.createLead(t, "alice")
	ref := leadRef(t, lead)
	env.addReminder(t, ref, "alice", baseTime.Add(-time.Hour), baseTime.Add(-4*time.Hour))

	result, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)

	stopWithin(t, sweeper, 2*time.Second)
}

func TestSweeper_StopTwiceReturns(t *testing.T) {
	_, sweeper := newSweeperEnv(t)

	sweeper.Start(context.Background())
	stopWithin(t, sweeper, 2*time.Second)
	stopWithin(t, sweeper, 2*time.Second)
}

// flakyComments breaks LatestForDoc for one reference id so a single
// bad document can be planted in an otherwise healthy batch.
type flakyComments struct {
	*memory.CommentRepository
	failRefID string
}

func (f *flakyComments) LatestForDoc(ctx context.Context, ref valueobjects.DocRef) (*entities.Comment, error) {
	if ref.ID() == f.failRefID {
		return nil, pkgerrors.NewDatabaseError("query comments", nil)
	}
	return f.CommentRepository.LatestForDoc(ctx, ref)
}

func TestSweeper_OneFailureDoesNotAbortTheBatch(t *testing.T) {
	env := newReconcilerEnv(t, schema.NewDefaultCapabilities())

	good := env.createLead(t, "alice")
	bad := env.createLead(t, "alice")
	for _, lead := range []*entities.Lead{good, bad} {
		ref := leadRef(t, lead)
		env.addComment(t, ref, "bob", baseTime.Add(-3*time.Hour))
		env.addReminder(t, ref, "alice", baseTime.Add(-time.Hour), baseTime.Add(-4*time.Hour))
	}

	comments := &flakyComments{CommentRepository: env.comments, failRefID: bad.ID()}
	dc := domaincfg.DefaultDomainConfig()
	rec := NewReconciler(
		env.reminders,
		comments,
		env.leads,
		NewLeadPermissionChecker(env.leads, dc),
		env.publisher,
		env.clock,
		dc,
		zap.NewNop(),
	)
	sweeper := NewSweeper(env.reminders, rec, env.clock, nil, dc, domaincfg.RefTypeLead, zap.NewNop())

	result, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Failed)

	stored, err := env.leads.GetByID(context.Background(), good.ID())
	require.NoError(t, err)
	assert.True(t, stored.Delayed())
}

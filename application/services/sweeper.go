package services

import (
	"context"
	"sync"
	"time"

	"crm-backend/application/ports"
	domaincfg "crm-backend/domain/config"
	"crm-backend/domain/core/valueobjects"
	pkgerrors "crm-backend/pkg/errors"
	"crm-backend/pkg/observability"

	"go.uber.org/zap"
)

// SweepResult reports the outcome of one sweep tick
type SweepResult struct {
	Processed int      `json:"processed"`
	Failed    int      `json:"failed"`
	Skipped   int      `json:"skipped"`
	RefIDs    []string `json:"ref_ids"`
}

// Sweeper periodically reconciles every document of a reference type
// that has an open overdue reminder. Each document is processed and
// persisted independently: a failure on one never aborts the batch, and
// a crash mid-sweep leaves only unprocessed documents behind.
type Sweeper struct {
	reminders  ports.ReminderRepository
	reconciler *Reconciler
	clock      ports.Clock
	metrics    *observability.Metrics
	logger     *zap.Logger

	refType  string
	batchCap int
	interval time.Duration

	mu          sync.Mutex
	started     bool
	stopped     bool
	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// NewSweeper creates a sweeper for the given reference type
func NewSweeper(
	reminders ports.ReminderRepository,
	reconciler *Reconciler,
	clock ports.Clock,
	metrics *observability.Metrics,
	domainCfg *domaincfg.DomainConfig,
	refType string,
	logger *zap.Logger,
) *Sweeper {
	return &Sweeper{
		reminders:   reminders,
		reconciler:  reconciler,
		clock:       clock,
		metrics:     metrics,
		logger:      logger,
		refType:     refType,
		batchCap:    domainCfg.SweepBatchLimit,
		interval:    domainCfg.SweepInterval,
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
}

// Start begins the periodic sweep loop
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	s.logger.Info("Starting reconciliation sweeper",
		zap.String("refType", s.refType),
		zap.Int("batchCap", s.batchCap),
		zap.Duration("interval", s.interval),
	)

	go s.sweepLoop(ctx)
}

// Stop gracefully stops the sweeper. Safe to call when the loop was
// never started, and safe to call more than once; one-shot callers use
// RunOnce without Start and still shut the container down.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.logger.Info("Stopping reconciliation sweeper")
	close(s.stopChan)
	<-s.stoppedChan
	s.logger.Info("Reconciliation sweeper stopped")
}

// sweepLoop is the main processing loop
func (s *Sweeper) sweepLoop(ctx context.Context) {
	defer close(s.stoppedChan)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Context cancelled, stopping sweeper")
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.Error("Sweep tick failed", zap.Error(err))
			}
		}
	}
}

// RunOnce executes a single sweep tick: collect the distinct reference
// ids with open overdue reminders (capped), then reconcile each one.
func (s *Sweeper) RunOnce(ctx context.Context) (*SweepResult, error) {
	start := s.clock.Now()

	refIDs, err := s.reminders.ListOverdueRefIDs(ctx, s.refType, start, s.batchCap)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "listing overdue references failed")
	}

	result := &SweepResult{RefIDs: refIDs}
	if len(refIDs) == 0 {
		return result, nil
	}

	s.logger.Debug("Sweeping overdue references",
		zap.String("refType", s.refType),
		zap.Int("count", len(refIDs)),
	)

	for _, refID := range refIDs {
		ref, err := valueobjects.NewDocRef(s.refType, refID)
		if err != nil {
			result.Skipped++
			continue
		}

		// Sweep runs as the system actor: no user scoping, permission
		// gate disabled. Each reconcile persists its own writes before
		// the next reference is considered.
		if _, err := s.reconciler.Reconcile(ctx, ref, ReconcileOptions{}); err != nil {
			if pkgerrors.IsForbidden(err) {
				result.Skipped++
				s.logger.Debug("Skipping unreadable reference",
					zap.String("ref", ref.String()),
				)
				continue
			}
			result.Failed++
			s.logger.Error("Reconcile failed during sweep",
				zap.String("ref", ref.String()),
				zap.Error(err),
			)
			continue
		}
		result.Processed++
	}

	if s.metrics != nil {
		s.metrics.RecordSweep(ctx, result.Processed, result.Failed, result.Skipped, time.Since(start))
	}

	s.logger.Info("Sweep tick complete",
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
	)

	return result, nil
}

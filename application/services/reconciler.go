package services

import (
	"context"
	"time"

	"crm-backend/application/ports"
	domaincfg "crm-backend/domain/config"
	"crm-backend/domain/core/valueobjects"
	"crm-backend/domain/events"
	"crm-backend/pkg/auth"
	pkgerrors "crm-backend/pkg/errors"

	"go.uber.org/zap"
)

// ReconcileReason explains why a reconciliation pass flagged nothing
type ReconcileReason string

const (
	ReasonNoOverdueReminder ReconcileReason = "no_overdue_reminder"
	ReasonNoUserComments    ReconcileReason = "no_user_comments"
	ReasonCommentIsNewer    ReconcileReason = "comment_is_newer_than_reminder"
)

// ReconcileResult reports the outcome of one reconciliation pass
type ReconcileResult struct {
	Updated   int             `json:"updated"`
	Delayed   int             `json:"delayed"`
	Cleared   int             `json:"cleared"`
	CommentID string          `json:"comment,omitempty"`
	OverdueAt *time.Time      `json:"overdue_at,omitempty"`
	Reason    ReconcileReason `json:"reason,omitempty"`
}

// ReconcileOptions scope a reconciliation pass.
//
// Actor is the user whose read permission gates the pass; nil means an
// internal trigger (event binding or sweep), which is always permitted.
// User, when non-empty, scopes the overdue-reminder lookup to that
// user's reminders; the comment side of the rule is always document
// level, regardless of author.
type ReconcileOptions struct {
	Actor *auth.UserContext
	User  string
}

// Reconciler derives the delayed flag for a reference document from its
// newest overdue reminder and newest comment. It is a pure recompute:
// every pass clears the previous flags and rebuilds them from current
// data, so re-running with unchanged inputs yields identical state.
type Reconciler struct {
	reminders ports.ReminderRepository
	comments  ports.CommentRepository
	leads     ports.LeadRepository
	perms     ports.PermissionChecker
	eventBus  ports.EventBus
	clock     ports.Clock
	domainCfg *domaincfg.DomainConfig
	logger    *zap.Logger
}

// NewReconciler creates a reconciler
func NewReconciler(
	reminders ports.ReminderRepository,
	comments ports.CommentRepository,
	leads ports.LeadRepository,
	perms ports.PermissionChecker,
	eventBus ports.EventBus,
	clock ports.Clock,
	domainCfg *domaincfg.DomainConfig,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		reminders: reminders,
		comments:  comments,
		leads:     leads,
		perms:     perms,
		eventBus:  eventBus,
		clock:     clock,
		domainCfg: domainCfg,
		logger:    logger,
	}
}

// Reconcile recomputes the delayed state for one reference document.
//
// The rule: the document is delayed when its newest comment was created
// strictly before the remind-at of its newest active overdue reminder.
// When delayed, exactly the newest comment carries the flag; in every
// other case all flags are cleared. The document's own delayed mirror
// tracks the same boolean.
func (r *Reconciler) Reconcile(ctx context.Context, ref valueobjects.DocRef, opts ReconcileOptions) (*ReconcileResult, error) {
	if opts.Actor != nil {
		canRead, err := r.perms.CanRead(ctx, ref, opts.Actor)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "permission check failed")
		}
		if !canRead {
			return nil, pkgerrors.NewForbiddenError("not permitted to access " + ref.String())
		}
	}

	now := r.clock.Now()

	overdue, err := r.reminders.LatestOverdue(ctx, ref, now, opts.User)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "overdue reminder lookup failed")
	}

	if overdue == nil {
		cleared, err := r.clearFlags(ctx, ref)
		if err != nil {
			return nil, err
		}
		return &ReconcileResult{
			Cleared: cleared,
			Reason:  ReasonNoOverdueReminder,
		}, nil
	}

	overdueAt := overdue.RemindAt()

	latest, err := r.comments.LatestForDoc(ctx, ref)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "latest comment lookup failed")
	}

	if latest == nil {
		cleared, err := r.clearFlags(ctx, ref)
		if err != nil {
			return nil, err
		}
		return &ReconcileResult{
			Cleared:   cleared,
			OverdueAt: &overdueAt,
			Reason:    ReasonNoUserComments,
		}, nil
	}

	// Clear before set: the single-flagged-comment invariant must hold
	// even when comments arrived out of order or reminders were edited
	// after the fact.
	cleared, err := r.comments.SetDelayedFlags(ctx, ref, false, "")
	if err != nil {
		return nil, pkgerrors.Wrap(err, "clearing delay flags failed")
	}

	delayed := latest.CreatedAt().Before(overdueAt)

	if delayed {
		if err := r.comments.SetDelayed(ctx, latest.ID(), true); err != nil {
			return nil, pkgerrors.Wrap(err, "setting delay flag failed")
		}
	}

	if err := r.mirrorToDocument(ctx, ref, delayed, latest.ID(), overdueAt); err != nil {
		return nil, err
	}

	if delayed {
		return &ReconcileResult{
			Updated:   1,
			Delayed:   1,
			Cleared:   cleared,
			CommentID: latest.ID(),
			OverdueAt: &overdueAt,
		}, nil
	}

	return &ReconcileResult{
		Cleared:   cleared,
		OverdueAt: &overdueAt,
		Reason:    ReasonCommentIsNewer,
	}, nil
}

// clearFlags removes every delay flag for the reference and resets the
// document mirror.
func (r *Reconciler) clearFlags(ctx context.Context, ref valueobjects.DocRef) (int, error) {
	cleared, err := r.comments.SetDelayedFlags(ctx, ref, false, "")
	if err != nil {
		return 0, pkgerrors.Wrap(err, "clearing delay flags failed")
	}
	if err := r.mirrorToDocument(ctx, ref, false, "", time.Time{}); err != nil {
		return 0, err
	}
	return cleared, nil
}

// mirrorToDocument writes the derived boolean onto the reference
// document itself, for reference types that declare mirror support.
// Publishes a status-change event when the value actually flips.
func (r *Reconciler) mirrorToDocument(ctx context.Context, ref valueobjects.DocRef, delayed bool, commentID string, overdueAt time.Time) error {
	if !r.domainCfg.SupportsDelayedMirror(ref.Type()) {
		return nil
	}

	lead, err := r.leads.GetByID(ctx, ref.ID())
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			// Reminders may outlive their document; nothing to mirror.
			return nil
		}
		return pkgerrors.Wrap(err, "loading document for mirror failed")
	}

	changed := lead.Delayed() != delayed

	if err := r.leads.SetDelayed(ctx, ref.ID(), delayed); err != nil {
		return pkgerrors.Wrap(err, "writing delayed mirror failed")
	}

	if changed && r.eventBus != nil {
		evt := events.NewDelayedStatusChanged(ref, delayed, commentID, overdueAt, r.clock.Now())
		if err := r.eventBus.Publish(ctx, evt); err != nil {
			// Event delivery is best-effort; the flags are already
			// consistent and the next pass re-derives them anyway.
			r.logger.Warn("failed to publish delayed status change",
				zap.String("ref", ref.String()),
				zap.Error(err),
			)
		}
	}

	return nil
}

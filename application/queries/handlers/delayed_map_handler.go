package handlers

import (
	"context"
	"fmt"

	"crm-backend/application/ports"
	"crm-backend/application/queries"
	"crm-backend/application/queries/bus"
	domaincfg "crm-backend/domain/config"
	"crm-backend/domain/core/valueobjects"
	pkgerrors "crm-backend/pkg/errors"
)

// DelayedMapHandler resolves the delayed status of a batch of reference
// documents in one pass. List views call this once per page instead of
// reconciling row by row.
type DelayedMapHandler struct {
	reminders ports.ReminderRepository
	comments  ports.CommentRepository
	perms     ports.PermissionChecker
	clock     ports.Clock
	domainCfg *domaincfg.DomainConfig
}

// NewDelayedMapHandler creates the handler with its dependencies
func NewDelayedMapHandler(
	reminders ports.ReminderRepository,
	comments ports.CommentRepository,
	perms ports.PermissionChecker,
	clock ports.Clock,
	domainCfg *domaincfg.DomainConfig,
) *DelayedMapHandler {
	return &DelayedMapHandler{
		reminders: reminders,
		comments:  comments,
		perms:     perms,
		clock:     clock,
		domainCfg: domainCfg,
	}
}

// Handle implements bus.QueryHandler. Returns map[string]bool keyed by
// reference id. Ids the actor cannot read are absent, not false.
func (h *DelayedMapHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.DelayedMapQuery)
	if !ok {
		return nil, pkgerrors.NewInternalError("invalid query type for DelayedMapHandler")
	}

	if !h.domainCfg.SupportsReconciliation(q.RefType) {
		return nil, pkgerrors.NewValidationError("doctype " + q.RefType + " does not track delayed status")
	}

	limit := h.domainCfg.DelayedMapBatchLimit
	if len(q.RefIDs) > limit {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("at most %d reference names per request", limit))
	}

	refIDs := dedupe(q.RefIDs)

	readable := make([]string, 0, len(refIDs))
	for _, id := range refIDs {
		ref, err := valueobjects.NewDocRef(q.RefType, id)
		if err != nil {
			return nil, err
		}
		canRead, err := h.perms.CanRead(ctx, ref, q.Actor)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "permission check failed")
		}
		if canRead {
			readable = append(readable, id)
		}
	}

	if len(readable) == 0 {
		return map[string]bool{}, nil
	}

	// Fast path: stores that carry the delayed flag already hold the
	// derived answer.
	flagged, err := h.comments.AnyDelayedByDoc(ctx, q.RefType, readable)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "delayed flag lookup failed")
	}
	if flagged != nil {
		result := make(map[string]bool, len(readable))
		for _, id := range readable {
			result[id] = flagged[id]
		}
		return result, nil
	}

	// Slow path: re-derive from reminders and comment timestamps.
	now := h.clock.Now()
	overdueByDoc, err := h.reminders.LatestOverdueByDoc(ctx, q.RefType, readable, now, "")
	if err != nil {
		return nil, pkgerrors.Wrap(err, "overdue reminder lookup failed")
	}
	latestByDoc, err := h.comments.LatestCreatedByDoc(ctx, q.RefType, readable)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "latest comment lookup failed")
	}

	result := make(map[string]bool, len(readable))
	for _, id := range readable {
		overdueAt, hasOverdue := overdueByDoc[id]
		latestAt, hasComment := latestByDoc[id]
		result[id] = hasOverdue && hasComment && latestAt.Before(overdueAt)
	}
	return result, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

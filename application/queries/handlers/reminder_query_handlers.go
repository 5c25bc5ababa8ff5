package handlers

import (
	"context"

	"crm-backend/application/ports"
	"crm-backend/application/queries"
	"crm-backend/application/queries/bus"
	"crm-backend/domain/core/entities"
	"crm-backend/domain/core/valueobjects"
	pkgerrors "crm-backend/pkg/errors"
)

// toReminderView builds the read model, deriving status for rows that
// predate the status attribute.
func toReminderView(r *entities.Reminder) *queries.ReminderView {
	status := string(r.Status())
	if status == "" {
		if r.Done() {
			status = string(entities.ReminderStatusSent)
		} else {
			status = string(entities.ReminderStatusOpen)
		}
	}
	return &queries.ReminderView{
		ID:          r.ID(),
		RefType:     r.Ref().Type(),
		RefID:       r.Ref().ID(),
		User:        r.User(),
		RemindAt:    r.RemindAt(),
		Status:      status,
		Description: r.Description(),
		Comment:     r.Comment(),
		CreatedAt:   r.CreatedAt(),
	}
}

func toReminderViews(reminders []*entities.Reminder) []*queries.ReminderView {
	views := make([]*queries.ReminderView, 0, len(reminders))
	for _, r := range reminders {
		views = append(views, toReminderView(r))
	}
	return views
}

// ListRemindersHandler lists the actor's active reminders on a
// reference document.
type ListRemindersHandler struct {
	reminders ports.ReminderRepository
	perms     ports.PermissionChecker
}

// NewListRemindersHandler creates the handler with its dependencies
func NewListRemindersHandler(reminders ports.ReminderRepository, perms ports.PermissionChecker) *ListRemindersHandler {
	return &ListRemindersHandler{reminders: reminders, perms: perms}
}

// Handle implements bus.QueryHandler
func (h *ListRemindersHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.ListRemindersQuery)
	if !ok {
		return nil, pkgerrors.NewInternalError("invalid query type for ListRemindersHandler")
	}

	ref, err := valueobjects.NewDocRef(q.RefType, q.RefID)
	if err != nil {
		return nil, err
	}

	canRead, err := h.perms.CanRead(ctx, ref, q.Actor)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "permission check failed")
	}
	if !canRead {
		return nil, pkgerrors.NewForbiddenError("not permitted to access " + ref.String())
	}

	reminders, err := h.reminders.ListActiveForUser(ctx, ref, q.Actor.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list reminders")
	}
	return toReminderViews(reminders), nil
}

// ListForDocHandler lists every reminder on a reference document. An
// unreadable document yields an empty list rather than an error, so
// list views degrade quietly.
type ListForDocHandler struct {
	reminders ports.ReminderRepository
	perms     ports.PermissionChecker
}

// NewListForDocHandler creates the handler with its dependencies
func NewListForDocHandler(reminders ports.ReminderRepository, perms ports.PermissionChecker) *ListForDocHandler {
	return &ListForDocHandler{reminders: reminders, perms: perms}
}

// Handle implements bus.QueryHandler
func (h *ListForDocHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.ListForDocQuery)
	if !ok {
		return nil, pkgerrors.NewInternalError("invalid query type for ListForDocHandler")
	}

	ref, err := valueobjects.NewDocRef(q.RefType, q.RefID)
	if err != nil {
		return nil, err
	}

	canRead, err := h.perms.CanRead(ctx, ref, q.Actor)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "permission check failed")
	}
	if !canRead {
		return []*queries.ReminderView{}, nil
	}

	reminders, err := h.reminders.ListForDoc(ctx, ref)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list reminders")
	}
	return toReminderViews(reminders), nil
}

// LatestOverdueHandler returns the newest active overdue reminder on a
// reference document, or nil when there is none.
type LatestOverdueHandler struct {
	reminders ports.ReminderRepository
	perms     ports.PermissionChecker
	clock     ports.Clock
}

// NewLatestOverdueHandler creates the handler with its dependencies
func NewLatestOverdueHandler(reminders ports.ReminderRepository, perms ports.PermissionChecker, clock ports.Clock) *LatestOverdueHandler {
	return &LatestOverdueHandler{reminders: reminders, perms: perms, clock: clock}
}

// Handle implements bus.QueryHandler
func (h *LatestOverdueHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.LatestOverdueQuery)
	if !ok {
		return nil, pkgerrors.NewInternalError("invalid query type for LatestOverdueHandler")
	}

	ref, err := valueobjects.NewDocRef(q.RefType, q.RefID)
	if err != nil {
		return nil, err
	}

	canRead, err := h.perms.CanRead(ctx, ref, q.Actor)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "permission check failed")
	}
	if !canRead {
		return nil, pkgerrors.NewForbiddenError("not permitted to access " + ref.String())
	}

	reminder, err := h.reminders.LatestOverdue(ctx, ref, h.clock.Now(), q.User)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "overdue reminder lookup failed")
	}
	if reminder == nil {
		return (*queries.ReminderView)(nil), nil
	}
	return toReminderView(reminder), nil
}

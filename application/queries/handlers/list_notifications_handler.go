package handlers

import (
	"context"
	"time"

	"crm-backend/application/ports"
	"crm-backend/application/queries"
	"crm-backend/application/queries/bus"
	"crm-backend/domain/core/entities"
	pkgerrors "crm-backend/pkg/errors"
)

const defaultNotificationLimit = 50

// NotificationView is the read model for a notification log entry
type NotificationView struct {
	ID        string    `json:"name"`
	FromUser  string    `json:"from_user"`
	Subject   string    `json:"subject"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	RefType   string    `json:"reference_doctype,omitempty"`
	RefID     string    `json:"reference_name,omitempty"`
	CreatedAt time.Time `json:"creation"`
}

// ListNotificationsHandler lists the actor's notifications, newest
// first.
type ListNotificationsHandler struct {
	notifications ports.NotificationRepository
}

// NewListNotificationsHandler creates the handler with its dependencies
func NewListNotificationsHandler(notifications ports.NotificationRepository) *ListNotificationsHandler {
	return &ListNotificationsHandler{notifications: notifications}
}

// Handle implements bus.QueryHandler
func (h *ListNotificationsHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.ListNotificationsQuery)
	if !ok {
		return nil, pkgerrors.NewInternalError("invalid query type for ListNotificationsHandler")
	}

	limit := q.Limit
	if limit == 0 {
		limit = defaultNotificationLimit
	}

	notifications, err := h.notifications.ListForUser(ctx, q.Actor.UserID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list notifications")
	}

	views := make([]*NotificationView, 0, len(notifications))
	for _, n := range notifications {
		views = append(views, toNotificationView(n))
	}
	return views, nil
}

func toNotificationView(n *entities.Notification) *NotificationView {
	view := &NotificationView{
		ID:        n.ID(),
		FromUser:  n.FromUser(),
		Subject:   n.Subject(),
		Content:   n.Content(),
		Type:      string(n.Type()),
		CreatedAt: n.CreatedAt(),
	}
	if !n.Ref().IsZero() {
		view.RefType = n.Ref().Type()
		view.RefID = n.Ref().ID()
	}
	return view
}

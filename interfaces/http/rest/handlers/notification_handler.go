package handlers

import (
	"net/http"
	"strconv"

	"crm-backend/application/ports"
	"crm-backend/application/queries"
	querybus "crm-backend/application/queries/bus"
	"crm-backend/application/services"
	"crm-backend/pkg/auth"
	"crm-backend/pkg/common"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// NotificationHandler exposes the notification log over REST
type NotificationHandler struct {
	notifications ports.NotificationRepository
	notifier      *services.Notifier
	queryBus      *querybus.QueryBus
	logger        *zap.Logger
}

// NewNotificationHandler creates the notification handler
func NewNotificationHandler(
	notifications ports.NotificationRepository,
	notifier *services.Notifier,
	queryBus *querybus.QueryBus,
	logger *zap.Logger,
) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		notifier:      notifier,
		queryBus:      queryBus,
		logger:        logger,
	}
}

// ListNotifications handles GET /notifications
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			common.RespondError(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	result, err := h.queryBus.Ask(r.Context(), queries.ListNotificationsQuery{
		Limit: limit,
		Actor: user,
	})
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// Republish handles POST /notifications/{notificationID}/republish.
// Re-announces a stored notification on the event bus for clients that
// missed the original delivery.
func (h *NotificationHandler) Republish(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	notification, err := h.notifications.GetByID(r.Context(), chi.URLParam(r, "notificationID"))
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	if notification.ForUser() != user.UserID && !user.IsManager() {
		common.RespondError(w, http.StatusForbidden, "FORBIDDEN", "not permitted to republish this notification")
		return
	}

	if err := h.notifier.Republish(r.Context(), notification, user.UserID); err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "republished"})
}

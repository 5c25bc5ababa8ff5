package handlers

import (
	"encoding/json"
	"net/http"

	"crm-backend/application/commands"
	commandbus "crm-backend/application/commands/bus"
	"crm-backend/application/queries"
	querybus "crm-backend/application/queries/bus"
	"crm-backend/pkg/auth"
	"crm-backend/pkg/common"
	"crm-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReminderHandler exposes reminder operations over REST
type ReminderHandler struct {
	commandBus *commandbus.CommandBus
	queryBus   *querybus.QueryBus
	logger     *zap.Logger
}

// NewReminderHandler creates the reminder handler
func NewReminderHandler(commandBus *commandbus.CommandBus, queryBus *querybus.QueryBus, logger *zap.Logger) *ReminderHandler {
	return &ReminderHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		logger:     logger,
	}
}

// CreateReminderRequest is the POST /reminders body
type CreateReminderRequest struct {
	RefType     string `json:"reference_doctype" validate:"required"`
	RefID       string `json:"reference_name" validate:"required"`
	RemindAt    string `json:"remind_at" validate:"required"`
	Description string `json:"description" validate:"required"`
	Comment     string `json:"comment"`
}

// CreateReminder handles POST /reminders
func (h *ReminderHandler) CreateReminder(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	var req CreateReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	remindAt, err := utils.ParseTimestamp(req.RemindAt)
	if err != nil {
		common.RespondError(w, http.StatusBadRequest, "INVALID_REQUEST", "remind_at is not a valid timestamp")
		return
	}

	reminderID := uuid.New().String()
	cmd := commands.AddReminderCommand{
		ReminderID:  reminderID,
		RefType:     req.RefType,
		RefID:       req.RefID,
		RemindAt:    remindAt,
		Description: req.Description,
		Comment:     req.Comment,
		Actor:       user,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, map[string]string{"name": reminderID})
}

// DeleteReminder handles DELETE /reminders/{reminderID}
func (h *ReminderHandler) DeleteReminder(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	cmd := commands.DeleteReminderCommand{
		ReminderID: chi.URLParam(r, "reminderID"),
		Actor:      user,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// NotifyReminder handles POST /reminders/{reminderID}/notify
func (h *ReminderHandler) NotifyReminder(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	cmd := commands.NotifyReminderCommand{
		ReminderID: chi.URLParam(r, "reminderID"),
		Actor:      user,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "notified"})
}

// ListReminders handles GET /reminders. By default it lists the
// caller's active reminders on the document; all=true lists every
// reminder and degrades to an empty list on unreadable documents.
func (h *ReminderHandler) ListReminders(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	refType := r.URL.Query().Get("reference_doctype")
	refID := r.URL.Query().Get("reference_name")

	var query querybus.Query
	if r.URL.Query().Get("all") == "true" {
		query = queries.ListForDocQuery{RefType: refType, RefID: refID, Actor: user}
	} else {
		query = queries.ListRemindersQuery{RefType: refType, RefID: refID, Actor: user}
	}

	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// LatestOverdue handles GET /reminders/latest-overdue. Responds null
// when the document has no overdue reminder.
func (h *ReminderHandler) LatestOverdue(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	query := queries.LatestOverdueQuery{
		RefType: r.URL.Query().Get("reference_doctype"),
		RefID:   r.URL.Query().Get("reference_name"),
		User:    r.URL.Query().Get("user"),
		Actor:   user,
	}
	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

package handlers

import (
	"context"

	"crm-backend/application/commands"
	"crm-backend/application/commands/bus"
	"crm-backend/application/ports"
	"crm-backend/application/services"
	pkgerrors "crm-backend/pkg/errors"

	"go.uber.org/zap"
)

// NotifyReminderHandler delivers a reminder's notification immediately,
// marks the reminder sent, and reconciles the reference document since
// the reminder just left the active set.
type NotifyReminderHandler struct {
	reminders  ports.ReminderRepository
	notifier   *services.Notifier
	reconciler *services.Reconciler
	logger     *zap.Logger
}

// NewNotifyReminderHandler creates the handler with its dependencies
func NewNotifyReminderHandler(
	reminders ports.ReminderRepository,
	notifier *services.Notifier,
	reconciler *services.Reconciler,
	logger *zap.Logger,
) *NotifyReminderHandler {
	return &NotifyReminderHandler{
		reminders:  reminders,
		notifier:   notifier,
		reconciler: reconciler,
		logger:     logger,
	}
}

// Handle implements bus.CommandHandler
func (h *NotifyReminderHandler) Handle(ctx context.Context, cmd bus.Command) error {
	notifyCmd, ok := cmd.(commands.NotifyReminderCommand)
	if !ok {
		return pkgerrors.NewInternalError("invalid command type for NotifyReminderHandler")
	}

	reminder, err := h.reminders.GetByID(ctx, notifyCmd.ReminderID)
	if err != nil {
		return err
	}

	if !reminder.OwnedBy(notifyCmd.Actor.UserID) && !notifyCmd.Actor.IsManager() {
		return pkgerrors.NewForbiddenError("not permitted to notify reminder " + reminder.ID())
	}

	if !reminder.IsActive() {
		return pkgerrors.NewConflictError("reminder " + reminder.ID() + " has already been sent")
	}

	if err := h.notifier.NotifyReminder(ctx, reminder, notifyCmd.Actor.UserID); err != nil {
		return pkgerrors.Wrap(err, "failed to notify reminder")
	}

	reminder.MarkSent()
	if err := h.reminders.Save(ctx, reminder); err != nil {
		return pkgerrors.Wrap(err, "failed to save reminder")
	}

	h.logger.Info("reminder notified",
		zap.String("reminder", reminder.ID()),
		zap.String("user", reminder.User()),
	)

	if _, err := h.reconciler.Reconcile(ctx, reminder.Ref(), services.ReconcileOptions{}); err != nil {
		h.logger.Warn("post-notify reconcile failed",
			zap.String("ref", reminder.Ref().String()),
			zap.Error(err),
		)
	}

	return nil
}

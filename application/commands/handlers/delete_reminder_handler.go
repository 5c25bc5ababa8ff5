package handlers

import (
	"context"

	"crm-backend/application/commands"
	"crm-backend/application/commands/bus"
	"crm-backend/application/ports"
	"crm-backend/application/services"
	"crm-backend/domain/events"
	pkgerrors "crm-backend/pkg/errors"

	"go.uber.org/zap"
)

// DeleteReminderHandler removes a reminder and reconciles the reference
// document it was attached to.
type DeleteReminderHandler struct {
	reminders  ports.ReminderRepository
	perms      ports.PermissionChecker
	reconciler *services.Reconciler
	eventBus   ports.EventBus
	clock      ports.Clock
	logger     *zap.Logger
}

// NewDeleteReminderHandler creates the handler with its dependencies
func NewDeleteReminderHandler(
	reminders ports.ReminderRepository,
	perms ports.PermissionChecker,
	reconciler *services.Reconciler,
	eventBus ports.EventBus,
	clock ports.Clock,
	logger *zap.Logger,
) *DeleteReminderHandler {
	return &DeleteReminderHandler{
		reminders:  reminders,
		perms:      perms,
		reconciler: reconciler,
		eventBus:   eventBus,
		clock:      clock,
		logger:     logger,
	}
}

// Handle implements bus.CommandHandler
func (h *DeleteReminderHandler) Handle(ctx context.Context, cmd bus.Command) error {
	delCmd, ok := cmd.(commands.DeleteReminderCommand)
	if !ok {
		return pkgerrors.NewInternalError("invalid command type for DeleteReminderHandler")
	}

	reminder, err := h.reminders.GetByID(ctx, delCmd.ReminderID)
	if err != nil {
		return err
	}

	canDelete, err := h.perms.CanDeleteReminder(ctx, reminder, delCmd.Actor)
	if err != nil {
		return pkgerrors.Wrap(err, "permission check failed")
	}
	if !canDelete {
		return pkgerrors.NewForbiddenError("not permitted to delete reminder " + reminder.ID())
	}

	ref := reminder.Ref()

	if err := h.reminders.Delete(ctx, delCmd.ReminderID); err != nil {
		return pkgerrors.Wrap(err, "failed to delete reminder")
	}

	h.logger.Info("reminder deleted",
		zap.String("reminder", delCmd.ReminderID),
		zap.String("ref", ref.String()),
	)

	evt := events.NewReminderDeleted(delCmd.ReminderID, ref, reminder.User(), h.clock.Now())
	if err := h.eventBus.Publish(ctx, evt); err != nil {
		h.logger.Warn("failed to publish reminder deleted event",
			zap.String("reminder", delCmd.ReminderID),
			zap.Error(err),
		)
	}

	// Deleting the only overdue reminder must clear the document's
	// delayed state.
	if _, err := h.reconciler.Reconcile(ctx, ref, services.ReconcileOptions{}); err != nil {
		h.logger.Warn("post-delete reconcile failed",
			zap.String("ref", ref.String()),
			zap.Error(err),
		)
	}

	return nil
}

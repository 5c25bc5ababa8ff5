package handlers

import (
	"context"

	"crm-backend/application/commands"
	"crm-backend/application/commands/bus"
	"crm-backend/application/ports"
	"crm-backend/application/services"
	"crm-backend/domain/core/entities"
	"crm-backend/domain/core/valueobjects"
	"crm-backend/domain/events"
	pkgerrors "crm-backend/pkg/errors"

	"go.uber.org/zap"
)

// AddReminderHandler creates a reminder on a reference document and
// reconciles the document's delayed state.
type AddReminderHandler struct {
	reminders  ports.ReminderRepository
	perms      ports.PermissionChecker
	reconciler *services.Reconciler
	eventBus   ports.EventBus
	clock      ports.Clock
	logger     *zap.Logger
}

// NewAddReminderHandler creates the handler with its dependencies
func NewAddReminderHandler(
	reminders ports.ReminderRepository,
	perms ports.PermissionChecker,
	reconciler *services.Reconciler,
	eventBus ports.EventBus,
	clock ports.Clock,
	logger *zap.Logger,
) *AddReminderHandler {
	return &AddReminderHandler{
		reminders:  reminders,
		perms:      perms,
		reconciler: reconciler,
		eventBus:   eventBus,
		clock:      clock,
		logger:     logger,
	}
}

// Handle implements bus.CommandHandler
func (h *AddReminderHandler) Handle(ctx context.Context, cmd bus.Command) error {
	addCmd, ok := cmd.(commands.AddReminderCommand)
	if !ok {
		return pkgerrors.NewInternalError("invalid command type for AddReminderHandler")
	}

	ref, err := valueobjects.NewDocRef(addCmd.RefType, addCmd.RefID)
	if err != nil {
		return err
	}

	canRead, err := h.perms.CanRead(ctx, ref, addCmd.Actor)
	if err != nil {
		return pkgerrors.Wrap(err, "permission check failed")
	}
	if !canRead {
		return pkgerrors.NewForbiddenError("not permitted to access " + ref.String())
	}

	reminder, err := entities.NewReminder(
		addCmd.ReminderID,
		ref,
		addCmd.Actor.UserID,
		addCmd.RemindAt,
		addCmd.Description,
		addCmd.Comment,
		h.clock.Now(),
	)
	if err != nil {
		return err
	}

	if err := h.reminders.Save(ctx, reminder); err != nil {
		return pkgerrors.Wrap(err, "failed to save reminder")
	}

	h.logger.Info("reminder created",
		zap.String("reminder", reminder.ID()),
		zap.String("ref", ref.String()),
		zap.String("user", reminder.User()),
	)

	evt := events.NewReminderCreated(reminder.ID(), ref, reminder.User(), reminder.RemindAt(), h.clock.Now())
	if err := h.eventBus.Publish(ctx, evt); err != nil {
		h.logger.Warn("failed to publish reminder created event",
			zap.String("reminder", reminder.ID()),
			zap.Error(err),
		)
	}

	// A new reminder may already be overdue; re-derive immediately
	// rather than waiting for the sweep.
	if _, err := h.reconciler.Reconcile(ctx, ref, services.ReconcileOptions{}); err != nil {
		h.logger.Warn("post-create reconcile failed",
			zap.String("ref", ref.String()),
			zap.Error(err),
		)
	}

	return nil
}

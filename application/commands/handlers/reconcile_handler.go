package handlers

import (
	"context"

	"crm-backend/application/commands"
	"crm-backend/application/commands/bus"
	"crm-backend/application/services"
	"crm-backend/domain/core/valueobjects"
	pkgerrors "crm-backend/pkg/errors"
)

// ReconcileHandler recomputes the delayed state of one reference
// document on demand. The caller's read permission gates the pass.
type ReconcileHandler struct {
	reconciler *services.Reconciler
}

// NewReconcileHandler creates the handler with its dependencies
func NewReconcileHandler(reconciler *services.Reconciler) *ReconcileHandler {
	return &ReconcileHandler{reconciler: reconciler}
}

// Handle implements bus.CommandHandler. The reconcile result is not
// surfaced through the command bus; callers that need it use the
// reconciler directly.
func (h *ReconcileHandler) Handle(ctx context.Context, cmd bus.Command) error {
	recCmd, ok := cmd.(commands.ReconcileCommand)
	if !ok {
		return pkgerrors.NewInternalError("invalid command type for ReconcileHandler")
	}

	ref, err := valueobjects.NewDocRef(recCmd.RefType, recCmd.RefID)
	if err != nil {
		return err
	}

	_, err = h.reconciler.Reconcile(ctx, ref, services.ReconcileOptions{
		Actor: recCmd.Actor,
		User:  recCmd.User,
	})
	return err
}

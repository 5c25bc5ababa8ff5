package handlers

import (
	"context"

	"crm-backend/application/commands"
	"crm-backend/application/commands/bus"
	"crm-backend/application/ports"
	"crm-backend/application/services"
	domaincfg "crm-backend/domain/config"
	"crm-backend/domain/core/entities"
	"crm-backend/domain/core/valueobjects"
	"crm-backend/domain/events"
	pkgerrors "crm-backend/pkg/errors"
	"crm-backend/pkg/htmltext"

	"go.uber.org/zap"
)

// AddCommentHandler posts a comment on a reference document, notifies
// mentioned users, refreshes the document's newest-comment snippet, and
// reconciles its delayed state.
type AddCommentHandler struct {
	comments   ports.CommentRepository
	leads      ports.LeadRepository
	perms      ports.PermissionChecker
	notifier   *services.Notifier
	reconciler *services.Reconciler
	eventBus   ports.EventBus
	clock      ports.Clock
	domainCfg  *domaincfg.DomainConfig
	logger     *zap.Logger
}

// NewAddCommentHandler creates the handler with its dependencies
func NewAddCommentHandler(
	comments ports.CommentRepository,
	leads ports.LeadRepository,
	perms ports.PermissionChecker,
	notifier *services.Notifier,
	reconciler *services.Reconciler,
	eventBus ports.EventBus,
	clock ports.Clock,
	domainCfg *domaincfg.DomainConfig,
	logger *zap.Logger,
) *AddCommentHandler {
	return &AddCommentHandler{
		comments:   comments,
		leads:      leads,
		perms:      perms,
		notifier:   notifier,
		reconciler: reconciler,
		eventBus:   eventBus,
		clock:      clock,
		domainCfg:  domainCfg,
		logger:     logger,
	}
}

// Handle implements bus.CommandHandler
func (h *AddCommentHandler) Handle(ctx context.Context, cmd bus.Command) error {
	addCmd, ok := cmd.(commands.AddCommentCommand)
	if !ok {
		return pkgerrors.NewInternalError("invalid command type for AddCommentHandler")
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

	comment, err := entities.NewComment(addCmd.CommentID, ref, addCmd.Actor.UserID, addCmd.Content, h.clock.Now())
	if err != nil {
		return err
	}

	if err := h.comments.Save(ctx, comment); err != nil {
		return pkgerrors.Wrap(err, "failed to save comment")
	}

	h.logger.Info("comment added",
		zap.String("comment", comment.ID()),
		zap.String("ref", ref.String()),
		zap.String("owner", comment.Owner()),
	)

	evt := events.NewCommentAdded(comment.ID(), ref, comment.Owner(), h.clock.Now())
	if err := h.eventBus.Publish(ctx, evt); err != nil {
		h.logger.Warn("failed to publish comment added event",
			zap.String("comment", comment.ID()),
			zap.Error(err),
		)
	}

	h.afterInsert(ctx, comment)

	return nil
}

// afterInsert runs the side effects a new comment fans out to. None of
// them may fail the comment itself; each logs its own failure.
func (h *AddCommentHandler) afterInsert(ctx context.Context, comment *entities.Comment) {
	ref := comment.Ref()

	var lead *entities.Lead
	if h.domainCfg.SupportsReconciliation(ref.Type()) {
		var err error
		lead, err = h.leads.GetByID(ctx, ref.ID())
		if err != nil && !pkgerrors.IsNotFound(err) {
			h.logger.Warn("failed to load lead for comment side effects",
				zap.String("ref", ref.String()),
				zap.Error(err),
			)
		}
	}

	h.notifier.NotifyMentions(ctx, comment, lead)

	if lead != nil {
		snippet := htmltext.Snippet(comment.Content(), h.domainCfg.LastCommentMaxLength)
		if err := h.leads.SetLastComment(ctx, ref.ID(), snippet); err != nil {
			h.logger.Warn("failed to update last comment snippet",
				zap.String("ref", ref.String()),
				zap.Error(err),
			)
		}
	}

	// A newer comment can only clear the delayed flag, never set it,
	// but the recompute is the same either way.
	if _, err := h.reconciler.Reconcile(ctx, ref, services.ReconcileOptions{}); err != nil && !pkgerrors.IsForbidden(err) {
		h.logger.Warn("post-comment reconcile failed",
			zap.String("ref", ref.String()),
			zap.Error(err),
		)
	}
}

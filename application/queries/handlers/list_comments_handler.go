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

// ListCommentsHandler lists the user comments on a reference document
type ListCommentsHandler struct {
	comments ports.CommentRepository
	perms    ports.PermissionChecker
}

// NewListCommentsHandler creates the handler with its dependencies
func NewListCommentsHandler(comments ports.CommentRepository, perms ports.PermissionChecker) *ListCommentsHandler {
	return &ListCommentsHandler{comments: comments, perms: perms}
}

// Handle implements bus.QueryHandler
func (h *ListCommentsHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.ListCommentsQuery)
	if !ok {
		return nil, pkgerrors.NewInternalError("invalid query type for ListCommentsHandler")
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

	comments, err := h.comments.ListForDoc(ctx, ref)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list comments")
	}

	views := make([]*queries.CommentView, 0, len(comments))
	for _, c := range comments {
		views = append(views, toCommentView(c))
	}
	return views, nil
}

func toCommentView(c *entities.Comment) *queries.CommentView {
	return &queries.CommentView{
		ID:        c.ID(),
		RefType:   c.Ref().Type(),
		RefID:     c.Ref().ID(),
		Owner:     c.Owner(),
		Content:   c.Content(),
		Delayed:   c.Delayed(),
		CreatedAt: c.CreatedAt(),
	}
}

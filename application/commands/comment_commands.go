package commands

import (
	"crm-backend/pkg/auth"
	pkgerrors "crm-backend/pkg/errors"
)

// AddCommentCommand posts a comment on a reference document
type AddCommentCommand struct {
	CommentID string
	RefType   string
	RefID     string
	Content   string
	Actor     *auth.UserContext
}

// Validate implements bus.Command
func (c AddCommentCommand) Validate() error {
	if c.RefType == "" || c.RefID == "" {
		return pkgerrors.NewValidationError("reference document is required")
	}
	if c.Content == "" {
		return pkgerrors.NewValidationError("content is required")
	}
	if c.Actor == nil {
		return pkgerrors.NewValidationError("actor is required")
	}
	return nil
}

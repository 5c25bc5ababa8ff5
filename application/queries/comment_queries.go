package queries

import (
	"time"

	"crm-backend/pkg/auth"
	pkgerrors "crm-backend/pkg/errors"
)

// CommentView is the read model for a comment
type CommentView struct {
	ID        string    `json:"name"`
	RefType   string    `json:"reference_doctype"`
	RefID     string    `json:"reference_name"`
	Owner     string    `json:"owner"`
	Content   string    `json:"content"`
	Delayed   bool      `json:"delayed"`
	CreatedAt time.Time `json:"creation"`
}

// ListCommentsQuery lists the user comments on a reference document,
// oldest first.
type ListCommentsQuery struct {
	RefType string
	RefID   string
	Actor   *auth.UserContext
}

// Validate implements bus.Query
func (q ListCommentsQuery) Validate() error {
	if q.RefType == "" || q.RefID == "" {
		return pkgerrors.NewValidationError("reference document is required")
	}
	return nil
}

package entities

import (
	"time"

	"crm-backend/domain/core/valueobjects"
	pkgerrors "crm-backend/pkg/errors"

	"github.com/google/uuid"
)

// CommentType distinguishes user-authored notes from system entries
type CommentType string

const (
	// CommentTypeComment is a user-authored note. Only these participate
	// in delayed-flag reconciliation.
	CommentTypeComment CommentType = "Comment"
	// CommentTypeInfo is a system-generated audit entry
	CommentTypeInfo CommentType = "Info"
)

// Comment is a threaded note on a reference document. The delayed flag
// is derived state owned by the reconciler: at most the single newest
// comment of a document carries it.
type Comment struct {
	id          string
	ref         valueobjects.DocRef
	owner       string
	content     string
	commentType CommentType
	delayed     bool
	createdAt   time.Time
}

// NewComment creates a user comment on a reference document. An empty
// id generates one.
func NewComment(id string, ref valueobjects.DocRef, owner, content string, now time.Time) (*Comment, error) {
	if ref.IsZero() {
		return nil, pkgerrors.NewValidationError("reference document is required")
	}
	if owner == "" {
		return nil, pkgerrors.NewValidationError("owner cannot be empty")
	}
	if content == "" {
		return nil, pkgerrors.NewValidationError("content cannot be empty")
	}

	if id == "" {
		id = uuid.New().String()
	}

	return &Comment{
		id:          id,
		ref:         ref,
		owner:       owner,
		content:     content,
		commentType: CommentTypeComment,
		delayed:     false,
		createdAt:   now,
	}, nil
}

// ReconstructComment rebuilds a comment from repository data
func ReconstructComment(
	id string,
	ref valueobjects.DocRef,
	owner string,
	content string,
	commentType CommentType,
	delayed bool,
	createdAt time.Time,
) *Comment {
	return &Comment{
		id:          id,
		ref:         ref,
		owner:       owner,
		content:     content,
		commentType: commentType,
		delayed:     delayed,
		createdAt:   createdAt,
	}
}

func (c *Comment) ID() string               { return c.id }
func (c *Comment) Ref() valueobjects.DocRef { return c.ref }
func (c *Comment) Owner() string            { return c.owner }
func (c *Comment) Content() string          { return c.content }
func (c *Comment) Type() CommentType        { return c.commentType }
func (c *Comment) Delayed() bool            { return c.delayed }
func (c *Comment) CreatedAt() time.Time     { return c.createdAt }

// SetDelayed overrides the derived delayed flag. Only the reconciler and
// repositories call this.
func (c *Comment) SetDelayed(delayed bool) {
	c.delayed = delayed
}

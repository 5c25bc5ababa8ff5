package queries

import (
	"crm-backend/pkg/auth"
	pkgerrors "crm-backend/pkg/errors"
)

// DelayedMapQuery resolves the delayed status of a batch of reference
// documents of one type. Duplicates in RefIDs are collapsed; documents
// the actor cannot read are silently absent from the result.
type DelayedMapQuery struct {
	RefType string
	RefIDs  []string
	Actor   *auth.UserContext
}

// Validate implements bus.Query
func (q DelayedMapQuery) Validate() error {
	if q.RefType == "" {
		return pkgerrors.NewValidationError("reference doctype is required")
	}
	if len(q.RefIDs) == 0 {
		return pkgerrors.NewValidationError("at least one reference name is required")
	}
	return nil
}

// ListNotificationsQuery lists the actor's notifications, newest first.
type ListNotificationsQuery struct {
	Limit int
	Actor *auth.UserContext
}

// Validate implements bus.Query
func (q ListNotificationsQuery) Validate() error {
	if q.Actor == nil {
		return pkgerrors.NewValidationError("actor is required")
	}
	if q.Limit < 0 {
		return pkgerrors.NewValidationError("limit must not be negative")
	}
	return nil
}

package commands

import (
	"time"

	"crm-backend/pkg/auth"
	pkgerrors "crm-backend/pkg/errors"
)

// AddReminderCommand creates a reminder on a reference document
type AddReminderCommand struct {
	ReminderID  string
	RefType     string
	RefID       string
	RemindAt    time.Time
	Description string
	Comment     string
	Actor       *auth.UserContext
}

// Validate implements bus.Command
func (c AddReminderCommand) Validate() error {
	if c.RefType == "" || c.RefID == "" {
		return pkgerrors.NewValidationError("reference document is required")
	}
	if c.RemindAt.IsZero() {
		return pkgerrors.NewValidationError("remind_at is required")
	}
	if c.Actor == nil {
		return pkgerrors.NewValidationError("actor is required")
	}
	return nil
}

// DeleteReminderCommand removes a reminder
type DeleteReminderCommand struct {
	ReminderID string
	Actor      *auth.UserContext
}

// Validate implements bus.Command
func (c DeleteReminderCommand) Validate() error {
	if c.ReminderID == "" {
		return pkgerrors.NewValidationError("reminder id is required")
	}
	if c.Actor == nil {
		return pkgerrors.NewValidationError("actor is required")
	}
	return nil
}

// NotifyReminderCommand delivers a reminder's notification immediately
// and marks the reminder sent
type NotifyReminderCommand struct {
	ReminderID string
	Actor      *auth.UserContext
}

// Validate implements bus.Command
func (c NotifyReminderCommand) Validate() error {
	if c.ReminderID == "" {
		return pkgerrors.NewValidationError("reminder id is required")
	}
	if c.Actor == nil {
		return pkgerrors.NewValidationError("actor is required")
	}
	return nil
}

// ReconcileCommand recomputes the delayed state of one reference
// document on demand
type ReconcileCommand struct {
	RefType string
	RefID   string
	// User optionally scopes the overdue-reminder lookup
	User  string
	Actor *auth.UserContext
}

// Validate implements bus.Command
func (c ReconcileCommand) Validate() error {
	if c.RefType == "" || c.RefID == "" {
		return pkgerrors.NewValidationError("reference document is required")
	}
	return nil
}

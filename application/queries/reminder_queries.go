package queries

import (
	"time"

	"crm-backend/pkg/auth"
	pkgerrors "crm-backend/pkg/errors"
)

// ReminderView is the read model for a reminder. Status is derived:
// stores that never carried a status attribute report Open or Sent from
// the done flag instead.
type ReminderView struct {
	ID          string    `json:"name"`
	RefType     string    `json:"reference_doctype"`
	RefID       string    `json:"reference_name"`
	User        string    `json:"user"`
	RemindAt    time.Time `json:"remind_at"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
	Comment     string    `json:"comment,omitempty"`
	CreatedAt   time.Time `json:"creation"`
}

// ListRemindersQuery lists the actor's active reminders on a reference
// document, soonest first.
type ListRemindersQuery struct {
	RefType string
	RefID   string
	Actor   *auth.UserContext
}

// Validate implements bus.Query
func (q ListRemindersQuery) Validate() error {
	if q.RefType == "" || q.RefID == "" {
		return pkgerrors.NewValidationError("reference document is required")
	}
	if q.Actor == nil {
		return pkgerrors.NewValidationError("actor is required")
	}
	return nil
}

// ListForDocQuery lists every reminder on a reference document,
// regardless of owner. Unreadable documents yield an empty list, not
// an error, so list views can render without per-row permission
// round-trips.
type ListForDocQuery struct {
	RefType string
	RefID   string
	Actor   *auth.UserContext
}

// Validate implements bus.Query
func (q ListForDocQuery) Validate() error {
	if q.RefType == "" || q.RefID == "" {
		return pkgerrors.NewValidationError("reference document is required")
	}
	return nil
}

// LatestOverdueQuery returns the newest active overdue reminder on a
// reference document, or nil when none exists. A non-empty User scopes
// the lookup to that user's reminders.
type LatestOverdueQuery struct {
	RefType string
	RefID   string
	User    string
	Actor   *auth.UserContext
}

// Validate implements bus.Query
func (q LatestOverdueQuery) Validate() error {
	if q.RefType == "" || q.RefID == "" {
		return pkgerrors.NewValidationError("reference document is required")
	}
	return nil
}

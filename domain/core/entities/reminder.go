package entities

import (
	"strings"
	"time"

	"crm-backend/domain/core/valueobjects"
	pkgerrors "crm-backend/pkg/errors"

	"github.com/google/uuid"
)

// ReminderStatus represents the lifecycle state of a reminder
type ReminderStatus string

const (
	ReminderStatusOpen      ReminderStatus = "Open"
	ReminderStatusScheduled ReminderStatus = "Scheduled"
	ReminderStatusSent      ReminderStatus = "Sent"
)

// Reminder is a user's request to be nudged about a reference document
// at a future time. An overdue reminder (remind-at in the past, still
// active) is what drives the delayed flag on the document's comments.
type Reminder struct {
	id          string
	ref         valueobjects.DocRef
	user        string
	remindAt    time.Time
	status      ReminderStatus
	done        bool // fallback when the store predates the status attribute
	description string
	comment     string
	createdAt   time.Time
}

// NewReminder creates a reminder with full business rule validation.
// remindAt must be strictly in the future relative to now. An empty id
// generates one; callers that already allocated an id pass it through.
func NewReminder(id string, ref valueobjects.DocRef, user string, remindAt time.Time, description, comment string, now time.Time) (*Reminder, error) {
	if ref.IsZero() {
		return nil, pkgerrors.NewValidationError("reference document is required")
	}
	if user == "" {
		return nil, pkgerrors.NewValidationError("user cannot be empty")
	}
	if remindAt.IsZero() {
		return nil, pkgerrors.NewValidationError("remind_at is required")
	}
	if !remindAt.After(now) {
		return nil, pkgerrors.NewValidationError("remind_at must be in the future")
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, pkgerrors.NewValidationError("description is required")
	}

	if id == "" {
		id = uuid.New().String()
	}

	return &Reminder{
		id:          id,
		ref:         ref,
		user:        user,
		remindAt:    remindAt,
		status:      ReminderStatusOpen,
		done:        false,
		description: description,
		comment:     comment,
		createdAt:   now,
	}, nil
}

// ReconstructReminder rebuilds a reminder from repository data with
// preserved timestamps. No validation: stored data is trusted.
func ReconstructReminder(
	id string,
	ref valueobjects.DocRef,
	user string,
	remindAt time.Time,
	status ReminderStatus,
	done bool,
	description string,
	comment string,
	createdAt time.Time,
) *Reminder {
	return &Reminder{
		id:          id,
		ref:         ref,
		user:        user,
		remindAt:    remindAt,
		status:      status,
		done:        done,
		description: description,
		comment:     comment,
		createdAt:   createdAt,
	}
}

func (r *Reminder) ID() string                  { return r.id }
func (r *Reminder) Ref() valueobjects.DocRef    { return r.ref }
func (r *Reminder) User() string                { return r.user }
func (r *Reminder) RemindAt() time.Time         { return r.remindAt }
func (r *Reminder) Status() ReminderStatus      { return r.status }
func (r *Reminder) Done() bool                  { return r.done }
func (r *Reminder) Description() string         { return r.description }
func (r *Reminder) Comment() string             { return r.comment }
func (r *Reminder) CreatedAt() time.Time        { return r.createdAt }

// IsActive reports whether the reminder still counts for overdue checks.
// Stores without the status attribute distinguish sent reminders through
// the done flag instead.
func (r *Reminder) IsActive() bool {
	if r.status != "" {
		return r.status == ReminderStatusOpen || r.status == ReminderStatusScheduled
	}
	return !r.done
}

// IsOverdue reports whether the reminder is active with remind-at
// strictly before now.
func (r *Reminder) IsOverdue(now time.Time) bool {
	return r.IsActive() && r.remindAt.Before(now)
}

// MarkSent transitions the reminder out of the active set after its
// notification has been delivered.
func (r *Reminder) MarkSent() {
	r.status = ReminderStatusSent
	r.done = true
}

// OwnedBy reports whether the given user created this reminder
func (r *Reminder) OwnedBy(user string) bool {
	return r.user == user
}

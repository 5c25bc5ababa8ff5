package ports

import (
	"context"
	"time"

	"crm-backend/domain/core/entities"
	"crm-backend/domain/core/valueobjects"
	"crm-backend/domain/events"
	"crm-backend/pkg/auth"
)

// PermissionChecker answers access questions for reference documents.
// A nil user means an internal (system) caller, which is always permitted.
type PermissionChecker interface {
	// CanRead reports whether the user may read the reference document.
	// Unknown documents are unreadable, not an error.
	CanRead(ctx context.Context, ref valueobjects.DocRef, user *auth.UserContext) (bool, error)

	// CanDeleteReminder reports whether the user may delete the reminder:
	// its owner, or a holder of an elevated role.
	CanDeleteReminder(ctx context.Context, reminder *entities.Reminder, user *auth.UserContext) (bool, error)
}

// EventBus publishes domain events to external consumers
type EventBus interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// Clock is the current-time source. Injected so reconciliation tests can
// pin "now".
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// NewRealClock returns a Clock backed by time.Now
func NewRealClock() Clock { return realClock{} }

// ReminderSchema reports which attributes the reminder store carries.
// The store's schema evolved over revisions; the reconciler must run
// against any of them without migration.
type ReminderSchema struct {
	// RefTypeAttr and RefIDAttr name the attributes identifying the
	// reference document: reference_doctype/reference_name on current
	// stores, reminder_doctype/reminder_docname on legacy ones.
	RefTypeAttr string
	RefIDAttr   string

	HasStatus      bool
	HasDone        bool
	HasNotified    bool
	HasDescription bool
	HasUser        bool
	HasComment     bool
	HasCreation    bool
}

// SchemaCapabilities is the schema probe port. Implementations are
// cheap to call repeatedly (cached per process) and never fail: unknown
// schemas degrade to "attribute absent".
type SchemaCapabilities interface {
	// ReminderSchema reports the reminder store's attribute layout
	ReminderSchema(ctx context.Context) ReminderSchema

	// CommentHasDelayed reports whether comments carry the delayed flag
	CommentHasDelayed(ctx context.Context) bool

	// LeadHasDelayed reports whether leads carry the delayed mirror
	LeadHasDelayed(ctx context.Context) bool
}

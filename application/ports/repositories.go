package ports

import (
	"context"
	"time"

	"crm-backend/domain/core/entities"
	"crm-backend/domain/core/valueobjects"
)

// ReminderRepository defines the interface for reminder persistence.
// This is a port in hexagonal architecture - the domain doesn't know
// about the implementation.
type ReminderRepository interface {
	// Save persists a reminder (create or update)
	Save(ctx context.Context, reminder *entities.Reminder) error

	// GetByID retrieves a reminder by its ID
	GetByID(ctx context.Context, id string) (*entities.Reminder, error)

	// Delete removes a reminder
	Delete(ctx context.Context, id string) error

	// ListForDoc retrieves all reminders attached to a reference
	// document, ordered by remind-at ascending then creation ascending.
	ListForDoc(ctx context.Context, ref valueobjects.DocRef) ([]*entities.Reminder, error)

	// ListActiveForUser retrieves the user's active reminders on a
	// reference document, same ordering as ListForDoc.
	ListActiveForUser(ctx context.Context, ref valueobjects.DocRef, user string) ([]*entities.Reminder, error)

	// LatestOverdue returns the single active reminder with the greatest
	// remind-at strictly before now, or nil when none qualifies.
	// A non-empty user scopes the lookup to that user's reminders.
	// Ties on remind-at break to the most recently created.
	LatestOverdue(ctx context.Context, ref valueobjects.DocRef, now time.Time, user string) (*entities.Reminder, error)

	// ListOverdueRefIDs returns the distinct reference document ids of
	// the given type that have at least one active overdue reminder,
	// capped at limit. Feeds the periodic sweep.
	ListOverdueRefIDs(ctx context.Context, refType string, now time.Time, limit int) ([]string, error)

	// LatestOverdueByDoc returns, per reference id, the greatest
	// remind-at among active overdue reminders. Ids without one are
	// absent from the map. A non-empty user scopes the lookup.
	LatestOverdueByDoc(ctx context.Context, refType string, refIDs []string, now time.Time, user string) (map[string]time.Time, error)
}

// CommentRepository defines the interface for comment persistence
type CommentRepository interface {
	// Save persists a comment (create or update)
	Save(ctx context.Context, comment *entities.Comment) error

	// GetByID retrieves a comment by its ID
	GetByID(ctx context.Context, id string) (*entities.Comment, error)

	// ListForDoc retrieves all comments on a reference document,
	// ordered by creation ascending.
	ListForDoc(ctx context.Context, ref valueobjects.DocRef) ([]*entities.Comment, error)

	// LatestForDoc returns the most recently created user comment on a
	// reference document regardless of author, or nil when none exists.
	LatestForDoc(ctx context.Context, ref valueobjects.DocRef) (*entities.Comment, error)

	// SetDelayedFlags sets the delayed flag on all user comments of a
	// reference document and returns the number of rows touched. A
	// non-empty user restricts the update to that user's comments.
	// Stores without the delayed capability return (0, nil).
	SetDelayedFlags(ctx context.Context, ref valueobjects.DocRef, delayed bool, user string) (int, error)

	// SetDelayed sets the delayed flag on a single comment.
	// A no-op on stores without the delayed capability.
	SetDelayed(ctx context.Context, id string, delayed bool) error

	// AnyDelayedByDoc reports, per reference id, whether any user
	// comment carries the delayed flag. The fast path for batch
	// delayed-status queries; returns nil when the capability is absent.
	AnyDelayedByDoc(ctx context.Context, refType string, refIDs []string) (map[string]bool, error)

	// LatestCreatedByDoc returns, per reference id, the creation time of
	// the newest user comment. Ids without comments are absent.
	LatestCreatedByDoc(ctx context.Context, refType string, refIDs []string) (map[string]time.Time, error)
}

// LeadRepository defines the interface for lead persistence
type LeadRepository interface {
	// Save persists a lead (create or update)
	Save(ctx context.Context, lead *entities.Lead) error

	// GetByID retrieves a lead by its ID
	GetByID(ctx context.Context, id string) (*entities.Lead, error)

	// SetDelayed writes the derived delayed mirror on a lead
	SetDelayed(ctx context.Context, id string, delayed bool) error

	// SetLastComment writes the denormalized newest-comment snippet
	SetLastComment(ctx context.Context, id string, snippet string) error
}

// NotificationRepository defines the interface for notification persistence
type NotificationRepository interface {
	// Save persists a notification
	Save(ctx context.Context, notification *entities.Notification) error

	// GetByID retrieves a notification by its ID
	GetByID(ctx context.Context, id string) (*entities.Notification, error)

	// ListForUser retrieves a user's notifications, newest first,
	// capped at limit.
	ListForUser(ctx context.Context, user string, limit int) ([]*entities.Notification, error)
}

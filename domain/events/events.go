package events

import (
	"time"

	"crm-backend/domain/core/valueobjects"
)

// SourceCRM identifies this service as the event source on the bus
const SourceCRM = "crm.backend"

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// Reminder events

// ReminderCreated is raised when a user sets a new reminder
type ReminderCreated struct {
	BaseEvent
	ReminderID string `json:"reminder_id"`
	RefType    string `json:"ref_type"`
	RefID      string `json:"ref_id"`
	UserID     string `json:"user_id"`
	RemindAt   string `json:"remind_at"`
}

// NewReminderCreated creates a ReminderCreated event
func NewReminderCreated(reminderID string, ref valueobjects.DocRef, userID string, remindAt, timestamp time.Time) ReminderCreated {
	return ReminderCreated{
		BaseEvent: BaseEvent{
			AggregateID: reminderID,
			EventType:   "reminder.created",
			Timestamp:   timestamp,
			Version:     1,
		},
		ReminderID: reminderID,
		RefType:    ref.Type(),
		RefID:      ref.ID(),
		UserID:     userID,
		RemindAt:   remindAt.Format(time.RFC3339),
	}
}

// ReminderDeleted is raised when a reminder is removed
type ReminderDeleted struct {
	BaseEvent
	ReminderID string `json:"reminder_id"`
	RefType    string `json:"ref_type"`
	RefID      string `json:"ref_id"`
	UserID     string `json:"user_id"`
}

// NewReminderDeleted creates a ReminderDeleted event
func NewReminderDeleted(reminderID string, ref valueobjects.DocRef, userID string, timestamp time.Time) ReminderDeleted {
	return ReminderDeleted{
		BaseEvent: BaseEvent{
			AggregateID: reminderID,
			EventType:   "reminder.deleted",
			Timestamp:   timestamp,
			Version:     1,
		},
		ReminderID: reminderID,
		RefType:    ref.Type(),
		RefID:      ref.ID(),
		UserID:     userID,
	}
}

// Comment events

// CommentAdded is raised when a user comments on a reference document
type CommentAdded struct {
	BaseEvent
	CommentID string `json:"comment_id"`
	RefType   string `json:"ref_type"`
	RefID     string `json:"ref_id"`
	Owner     string `json:"owner"`
}

// NewCommentAdded creates a CommentAdded event
func NewCommentAdded(commentID string, ref valueobjects.DocRef, owner string, timestamp time.Time) CommentAdded {
	return CommentAdded{
		BaseEvent: BaseEvent{
			AggregateID: commentID,
			EventType:   "comment.added",
			Timestamp:   timestamp,
			Version:     1,
		},
		CommentID: commentID,
		RefType:   ref.Type(),
		RefID:     ref.ID(),
		Owner:     owner,
	}
}

// Reconciliation events

// DelayedStatusChanged is raised when reconciliation flips a document's
// delayed status. It is not raised on idempotent re-runs.
type DelayedStatusChanged struct {
	BaseEvent
	RefType   string `json:"ref_type"`
	RefID     string `json:"ref_id"`
	Delayed   bool   `json:"delayed"`
	CommentID string `json:"comment_id,omitempty"`
	OverdueAt string `json:"overdue_at,omitempty"`
}

// NewDelayedStatusChanged creates a DelayedStatusChanged event
func NewDelayedStatusChanged(ref valueobjects.DocRef, delayed bool, commentID string, overdueAt time.Time, timestamp time.Time) DelayedStatusChanged {
	evt := DelayedStatusChanged{
		BaseEvent: BaseEvent{
			AggregateID: ref.ID(),
			EventType:   "lead.delayed_status_changed",
			Timestamp:   timestamp,
			Version:     1,
		},
		RefType:   ref.Type(),
		RefID:     ref.ID(),
		Delayed:   delayed,
		CommentID: commentID,
	}
	if !overdueAt.IsZero() {
		evt.OverdueAt = overdueAt.Format(time.RFC3339)
	}
	return evt
}

// Notification events

// NotificationPublished is raised when an in-app notification is written,
// so downstream consumers (e.g. push delivery) can pick it up.
type NotificationPublished struct {
	BaseEvent
	NotificationID string `json:"notification_id"`
	ForUser        string `json:"for_user"`
	NotifType      string `json:"notif_type"`
}

// NewNotificationPublished creates a NotificationPublished event
func NewNotificationPublished(notificationID, forUser, notifType string, timestamp time.Time) NotificationPublished {
	return NotificationPublished{
		BaseEvent: BaseEvent{
			AggregateID: notificationID,
			EventType:   "notification.published",
			Timestamp:   timestamp,
			Version:     1,
		},
		NotificationID: notificationID,
		ForUser:        forUser,
		NotifType:      notifType,
	}
}

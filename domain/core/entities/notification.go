package entities

import (
	"time"

	"crm-backend/domain/core/valueobjects"
	pkgerrors "crm-backend/pkg/errors"

	"github.com/google/uuid"
)

// NotificationType classifies in-app notifications
type NotificationType string

const (
	NotificationTypeAlert   NotificationType = "Alert"
	NotificationTypeMention NotificationType = "Mention"
)

// Notification is an in-app notification log entry, written when a user
// is mentioned in a comment or a reminder is delivered.
type Notification struct {
	id        string
	forUser   string
	fromUser  string
	subject   string
	content   string
	notifType NotificationType
	ref       valueobjects.DocRef
	createdAt time.Time
}

// NewNotification creates a notification for a user
func NewNotification(forUser, fromUser, subject, content string, notifType NotificationType, ref valueobjects.DocRef, now time.Time) (*Notification, error) {
	if forUser == "" {
		return nil, pkgerrors.NewValidationError("notification target user is required")
	}
	if subject == "" {
		return nil, pkgerrors.NewValidationError("notification subject is required")
	}
	if content == "" {
		content = subject
	}

	return &Notification{
		id:        uuid.New().String(),
		forUser:   forUser,
		fromUser:  fromUser,
		subject:   subject,
		content:   content,
		notifType: notifType,
		ref:       ref,
		createdAt: now,
	}, nil
}

// ReconstructNotification rebuilds a notification from repository data
func ReconstructNotification(
	id string,
	forUser string,
	fromUser string,
	subject string,
	content string,
	notifType NotificationType,
	ref valueobjects.DocRef,
	createdAt time.Time,
) *Notification {
	return &Notification{
		id:        id,
		forUser:   forUser,
		fromUser:  fromUser,
		subject:   subject,
		content:   content,
		notifType: notifType,
		ref:       ref,
		createdAt: createdAt,
	}
}

func (n *Notification) ID() string                 { return n.id }
func (n *Notification) ForUser() string            { return n.forUser }
func (n *Notification) FromUser() string           { return n.fromUser }
func (n *Notification) Subject() string            { return n.subject }
func (n *Notification) Content() string            { return n.content }
func (n *Notification) Type() NotificationType     { return n.notifType }
func (n *Notification) Ref() valueobjects.DocRef   { return n.ref }
func (n *Notification) CreatedAt() time.Time       { return n.createdAt }

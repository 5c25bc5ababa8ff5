package services

import (
	"context"
	"fmt"

	"crm-backend/application/ports"
	"crm-backend/domain/core/entities"
	"crm-backend/domain/core/valueobjects"
	"crm-backend/domain/events"
	"crm-backend/pkg/htmltext"

	"go.uber.org/zap"
)

// subjectMaxLength bounds reminder subjects built from free-text
// descriptions.
const subjectMaxLength = 60

// Notifier writes in-app notification log entries and announces them on
// the event bus for downstream delivery.
type Notifier struct {
	notifications ports.NotificationRepository
	eventBus      ports.EventBus
	clock         ports.Clock
	logger        *zap.Logger
}

// NewNotifier creates a notifier
func NewNotifier(
	notifications ports.NotificationRepository,
	eventBus ports.EventBus,
	clock ports.Clock,
	logger *zap.Logger,
) *Notifier {
	return &Notifier{
		notifications: notifications,
		eventBus:      eventBus,
		clock:         clock,
		logger:        logger,
	}
}

// NotifyMentions extracts mentions from a comment's HTML content and
// notifies each mentioned user. Failures are logged per mention; a bad
// mention never blocks the comment itself.
func (n *Notifier) NotifyMentions(ctx context.Context, comment *entities.Comment, lead *entities.Lead) {
	mentions := htmltext.ExtractMentions(comment.Content())
	if len(mentions) == 0 {
		return
	}

	leadName := comment.Ref().ID()
	if lead != nil {
		leadName = lead.Name()
	}

	for _, mention := range mentions {
		subject := fmt.Sprintf("%s mentioned you in lead %s", comment.Owner(), leadName)
		if err := n.notify(ctx, mention.Email, comment.Owner(), subject, htmltext.StripTags(comment.Content()), entities.NotificationTypeMention, comment.Ref()); err != nil {
			n.logger.Error("failed to notify mention",
				zap.String("comment", comment.ID()),
				zap.String("mentioned", mention.Email),
				zap.Error(err),
			)
		}
	}
}

// NotifyReminder writes the follow-up notification for a reminder's
// owner, used by the notify-now path.
func (n *Notifier) NotifyReminder(ctx context.Context, reminder *entities.Reminder, fromUser string) error {
	desc := reminder.Description()
	if len([]rune(desc)) > subjectMaxLength {
		desc = string([]rune(desc)[:subjectMaxLength]) + "…"
	}
	subject := fmt.Sprintf("Follow-up: %q", desc)

	return n.notify(ctx, reminder.User(), fromUser, subject, reminder.Description(), entities.NotificationTypeAlert, reminder.Ref())
}

// Republish re-announces an existing notification on the event bus,
// for clients that missed the original delivery.
func (n *Notifier) Republish(ctx context.Context, notification *entities.Notification, forUser string) error {
	if forUser == "" {
		forUser = notification.ForUser()
	}
	evt := events.NewNotificationPublished(notification.ID(), forUser, string(notification.Type()), n.clock.Now())
	return n.eventBus.Publish(ctx, evt)
}

func (n *Notifier) notify(ctx context.Context, forUser, fromUser, subject, content string, notifType entities.NotificationType, ref valueobjects.DocRef) error {
	notification, err := entities.NewNotification(forUser, fromUser, subject, content, notifType, ref, n.clock.Now())
	if err != nil {
		return err
	}

	if err := n.notifications.Save(ctx, notification); err != nil {
		return err
	}

	evt := events.NewNotificationPublished(notification.ID(), forUser, string(notifType), n.clock.Now())
	if err := n.eventBus.Publish(ctx, evt); err != nil {
		// The log entry is persisted; bus delivery is best-effort.
		n.logger.Warn("failed to publish notification event",
			zap.String("notification", notification.ID()),
			zap.Error(err),
		)
	}
	return nil
}

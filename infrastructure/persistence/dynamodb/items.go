// Package dynamodb persists the CRM aggregates in a single DynamoDB
// table. Items share the table through prefixed composite keys:
//
//	Reminder      PK DOC#<type>#<id>   SK REMINDER#<remind_at>#<creation>#<id>
//	Comment       PK DOC#<type>#<id>   SK COMMENT#<creation>#<id>
//	Lead          PK LEAD#<id>         SK METADATA#<id>
//	Notification  PK USER#<user>       SK NOTIF#<creation>#<id>
//
// The EntityIndex GSI (GSI1PK/GSI1SK) resolves direct id lookups; the
// TypeIndex GSI (GSI2PK/GSI2SK) scans reminders of one reference type
// by remind-at for the sweep.
package dynamodb

import (
	"fmt"
	"time"

	"crm-backend/domain/core/valueobjects"
)

const (
	docPrefix          = "DOC#"
	reminderPrefix     = "REMINDER#"
	commentPrefix      = "COMMENT#"
	leadPrefix         = "LEAD#"
	metadataPrefix     = "METADATA#"
	userPrefix         = "USER#"
	notificationPrefix = "NOTIF#"
	reminderTypePrefix = "REMTYPE#"

	entityIndexName = "EntityIndex"
	typeIndexName   = "TypeIndex"

	entityTypeReminder     = "REMINDER"
	entityTypeComment      = "COMMENT"
	entityTypeLead         = "LEAD"
	entityTypeNotification = "NOTIFICATION"
)

// sortableTimeLayout keeps lexicographic order equal to chronological
// order inside sort keys. Fixed width, always UTC.
const sortableTimeLayout = "2006-01-02T15:04:05.000Z"

func timeKey(t time.Time) string {
	return t.UTC().Format(sortableTimeLayout)
}

func docPK(ref valueobjects.DocRef) string {
	return fmt.Sprintf("%s%s#%s", docPrefix, ref.Type(), ref.ID())
}

func reminderSK(remindAt, createdAt time.Time, id string) string {
	return fmt.Sprintf("%s%s#%s#%s", reminderPrefix, timeKey(remindAt), timeKey(createdAt), id)
}

func commentSK(createdAt time.Time, id string) string {
	return fmt.Sprintf("%s%s#%s", commentPrefix, timeKey(createdAt), id)
}

func notificationSK(createdAt time.Time, id string) string {
	return fmt.Sprintf("%s%s#%s", notificationPrefix, timeKey(createdAt), id)
}

// reminderItem is the stored shape of a reminder. Both the current and
// the legacy reference attribute pairs are declared so items written by
// either schema revision unmarshal cleanly; the repository consults the
// schema probe to decide which pair to trust.
type reminderItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
	GSI2PK     string `dynamodbav:"GSI2PK"`
	GSI2SK     string `dynamodbav:"GSI2SK"`
	EntityType string `dynamodbav:"EntityType"`

	ID            string    `dynamodbav:"name"`
	RefType       string    `dynamodbav:"reference_doctype,omitempty"`
	RefID         string    `dynamodbav:"reference_name,omitempty"`
	LegacyRefType string    `dynamodbav:"reminder_doctype,omitempty"`
	LegacyRefID   string    `dynamodbav:"reminder_docname,omitempty"`
	User          string    `dynamodbav:"user,omitempty"`
	RemindAt      time.Time `dynamodbav:"remind_at"`
	Status        string    `dynamodbav:"status,omitempty"`
	Done          bool      `dynamodbav:"done"`
	Description   string    `dynamodbav:"description,omitempty"`
	Comment       string    `dynamodbav:"comment,omitempty"`
	CreatedAt     time.Time `dynamodbav:"creation"`
}

type commentItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
	EntityType string `dynamodbav:"EntityType"`

	ID          string    `dynamodbav:"name"`
	RefType     string    `dynamodbav:"reference_doctype"`
	RefID       string    `dynamodbav:"reference_name"`
	Owner       string    `dynamodbav:"owner"`
	Content     string    `dynamodbav:"content"`
	CommentType string    `dynamodbav:"comment_type"`
	Delayed     bool      `dynamodbav:"delayed"`
	CreatedAt   time.Time `dynamodbav:"creation"`
}

type leadItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`

	ID          string    `dynamodbav:"name"`
	LeadName    string    `dynamodbav:"lead_name"`
	Owner       string    `dynamodbav:"owner"`
	Team        []string  `dynamodbav:"team,omitempty"`
	Delayed     bool      `dynamodbav:"delayed"`
	LastComment string    `dynamodbav:"last_comment,omitempty"`
	CreatedAt   time.Time `dynamodbav:"creation"`
	UpdatedAt   time.Time `dynamodbav:"modified"`
}

type notificationItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
	EntityType string `dynamodbav:"EntityType"`

	ID        string    `dynamodbav:"name"`
	ForUser   string    `dynamodbav:"for_user"`
	FromUser  string    `dynamodbav:"from_user,omitempty"`
	Subject   string    `dynamodbav:"subject"`
	Content   string    `dynamodbav:"content,omitempty"`
	NotifType string    `dynamodbav:"type"`
	RefType   string    `dynamodbav:"reference_doctype,omitempty"`
	RefID     string    `dynamodbav:"reference_name,omitempty"`
	CreatedAt time.Time `dynamodbav:"creation"`
}

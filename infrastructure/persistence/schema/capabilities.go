package schema

import (
	"context"
	"sync"

	"crm-backend/application/ports"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// Attribute names the reminder store has carried across schema
// revisions. Current stores use the reference_* pair; stores created
// before the rename still use reminder_*.
const (
	AttrRefType       = "reference_doctype"
	AttrRefID         = "reference_name"
	AttrLegacyRefType = "reminder_doctype"
	AttrLegacyRefID   = "reminder_docname"

	AttrStatus      = "status"
	AttrDone        = "done"
	AttrNotified    = "notified"
	AttrDescription = "description"
	AttrUser        = "user"
	AttrComment     = "comment"
	AttrCreation    = "creation"

	AttrDelayed = "delayed"
)

// DefaultReminderSchema is the layout of a current store, with every
// attribute present.
func DefaultReminderSchema() ports.ReminderSchema {
	return ports.ReminderSchema{
		RefTypeAttr:    AttrRefType,
		RefIDAttr:      AttrRefID,
		HasStatus:      true,
		HasDone:        true,
		HasNotified:    true,
		HasDescription: true,
		HasUser:        true,
		HasComment:     true,
		HasCreation:    true,
	}
}

// StaticCapabilities reports a fixed layout. Used by the in-memory
// store and by tests that pin a particular schema revision.
type StaticCapabilities struct {
	Reminder       ports.ReminderSchema
	CommentDelayed bool
	LeadDelayed    bool
}

// NewDefaultCapabilities returns capabilities describing a fully
// current store.
func NewDefaultCapabilities() *StaticCapabilities {
	return &StaticCapabilities{
		Reminder:       DefaultReminderSchema(),
		CommentDelayed: true,
		LeadDelayed:    true,
	}
}

// ReminderSchema implements ports.SchemaCapabilities
func (c *StaticCapabilities) ReminderSchema(ctx context.Context) ports.ReminderSchema {
	return c.Reminder
}

// CommentHasDelayed implements ports.SchemaCapabilities
func (c *StaticCapabilities) CommentHasDelayed(ctx context.Context) bool { return c.CommentDelayed }

// LeadHasDelayed implements ports.SchemaCapabilities
func (c *StaticCapabilities) LeadHasDelayed(ctx context.Context) bool { return c.LeadDelayed }

// probeSampleLimit bounds the one-time table sample.
const probeSampleLimit = 50

// DynamoDBCapabilities probes the table once per process and infers the
// attribute layout from a sample of stored items. An unreachable or
// empty table degrades to the current layout rather than failing: the
// repositories then tolerate missing attributes item by item.
type DynamoDBCapabilities struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger

	once           sync.Once
	reminder       ports.ReminderSchema
	commentDelayed bool
	leadDelayed    bool
}

// NewDynamoDBCapabilities creates a lazy table probe
func NewDynamoDBCapabilities(client *dynamodb.Client, tableName string, logger *zap.Logger) *DynamoDBCapabilities {
	return &DynamoDBCapabilities{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// ReminderSchema implements ports.SchemaCapabilities
func (c *DynamoDBCapabilities) ReminderSchema(ctx context.Context) ports.ReminderSchema {
	c.probe(ctx)
	return c.reminder
}

// CommentHasDelayed implements ports.SchemaCapabilities
func (c *DynamoDBCapabilities) CommentHasDelayed(ctx context.Context) bool {
	c.probe(ctx)
	return c.commentDelayed
}

// LeadHasDelayed implements ports.SchemaCapabilities
func (c *DynamoDBCapabilities) LeadHasDelayed(ctx context.Context) bool {
	c.probe(ctx)
	return c.leadDelayed
}

func (c *DynamoDBCapabilities) probe(ctx context.Context) {
	c.once.Do(func() {
		// Optimistic defaults; the sample only ever narrows them.
		c.reminder = DefaultReminderSchema()
		c.commentDelayed = true
		c.leadDelayed = true

		result, err := c.client.Scan(ctx, &dynamodb.ScanInput{
			TableName: aws.String(c.tableName),
			Limit:     aws.Int32(probeSampleLimit),
		})
		if err != nil {
			c.logger.Warn("schema probe failed, assuming current layout",
				zap.String("table", c.tableName),
				zap.Error(err),
			)
			return
		}

		var sawReminder, sawComment, sawLead bool
		for _, item := range result.Items {
			switch entityType(item) {
			case "REMINDER":
				if !sawReminder {
					sawReminder = true
					c.reminder = inferReminderSchema(item)
				}
			case "COMMENT":
				if !sawComment {
					sawComment = true
					_, c.commentDelayed = item[AttrDelayed]
				}
			case "LEAD":
				if !sawLead {
					sawLead = true
					_, c.leadDelayed = item[AttrDelayed]
				}
			}
		}

		c.logger.Info("schema probe complete",
			zap.String("table", c.tableName),
			zap.String("ref_type_attr", c.reminder.RefTypeAttr),
			zap.Bool("comment_delayed", c.commentDelayed),
			zap.Bool("lead_delayed", c.leadDelayed),
		)
	})
}

func entityType(item map[string]types.AttributeValue) string {
	av, ok := item["EntityType"].(*types.AttributeValueMemberS)
	if !ok {
		return ""
	}
	return av.Value
}

func inferReminderSchema(item map[string]types.AttributeValue) ports.ReminderSchema {
	has := func(attr string) bool {
		_, ok := item[attr]
		return ok
	}

	s := ports.ReminderSchema{
		RefTypeAttr:    AttrRefType,
		RefIDAttr:      AttrRefID,
		HasStatus:      has(AttrStatus),
		HasDone:        has(AttrDone),
		HasNotified:    has(AttrNotified),
		HasDescription: has(AttrDescription),
		HasUser:        has(AttrUser),
		HasComment:     has(AttrComment),
		HasCreation:    has(AttrCreation),
	}
	if !has(AttrRefType) && has(AttrLegacyRefType) {
		s.RefTypeAttr = AttrLegacyRefType
		s.RefIDAttr = AttrLegacyRefID
	}
	return s
}

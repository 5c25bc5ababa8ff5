package dynamodb

import (
	"context"
	"fmt"
	"time"

	"crm-backend/application/ports"
	"crm-backend/domain/core/entities"
	"crm-backend/domain/core/valueobjects"
	pkgerrors "crm-backend/pkg/errors"
	"crm-backend/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// ReminderRepository implements ports.ReminderRepository on DynamoDB
type ReminderRepository struct {
	client    *awsdynamodb.Client
	tableName string
	caps      ports.SchemaCapabilities
	tracer    *observability.Tracer
	logger    *zap.Logger
}

// NewReminderRepository creates a DynamoDB-backed reminder repository
func NewReminderRepository(
	client *awsdynamodb.Client,
	tableName string,
	caps ports.SchemaCapabilities,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *ReminderRepository {
	return &ReminderRepository{
		client:    client,
		tableName: tableName,
		caps:      caps,
		tracer:    tracer,
		logger:    logger,
	}
}

// Save implements ports.ReminderRepository
func (r *ReminderRepository) Save(ctx context.Context, reminder *entities.Reminder) error {
	return r.tracer.TraceFunction(ctx, "reminder.save", func(ctx context.Context) error {
		item := r.toItem(reminder)
		av, err := attributevalue.MarshalMap(item)
		if err != nil {
			return pkgerrors.Wrap(err, "failed to marshal reminder")
		}

		// A remind-at edit changes the sort key, so the stale item has
		// to go before the new one lands.
		existing, err := r.findItem(ctx, reminder.ID())
		if err != nil && !pkgerrors.IsNotFound(err) {
			return err
		}
		if existing != nil && existing.SK != item.SK {
			if err := r.deleteItem(ctx, existing.PK, existing.SK); err != nil {
				return err
			}
		}

		_, err = r.client.PutItem(ctx, &awsdynamodb.PutItemInput{
			TableName: aws.String(r.tableName),
			Item:      av,
		})
		if err != nil {
			return pkgerrors.NewDatabaseError("put reminder", err)
		}
		return nil
	})
}

// GetByID implements ports.ReminderRepository
func (r *ReminderRepository) GetByID(ctx context.Context, id string) (*entities.Reminder, error) {
	item, err := r.findItem(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.toEntity(ctx, item)
}

// Delete implements ports.ReminderRepository
func (r *ReminderRepository) Delete(ctx context.Context, id string) error {
	item, err := r.findItem(ctx, id)
	if err != nil {
		return err
	}
	return r.deleteItem(ctx, item.PK, item.SK)
}

// ListForDoc implements ports.ReminderRepository
func (r *ReminderRepository) ListForDoc(ctx context.Context, ref valueobjects.DocRef) ([]*entities.Reminder, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(docPK(ref))).
		And(expression.Key("SK").BeginsWith(reminderPrefix))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to build query")
	}
	return r.queryReminders(ctx, &awsdynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}, 0)
}

// ListActiveForUser implements ports.ReminderRepository
func (r *ReminderRepository) ListActiveForUser(ctx context.Context, ref valueobjects.DocRef, user string) ([]*entities.Reminder, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(docPK(ref))).
		And(expression.Key("SK").BeginsWith(reminderPrefix))
	filter := r.activeFilter(ctx).And(expression.Name("user").Equal(expression.Value(user)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).WithFilter(filter).Build()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to build query")
	}
	return r.queryReminders(ctx, &awsdynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}, 0)
}

// LatestOverdue implements ports.ReminderRepository
func (r *ReminderRepository) LatestOverdue(ctx context.Context, ref valueobjects.DocRef, now time.Time, user string) (*entities.Reminder, error) {
	var result *entities.Reminder
	err := r.tracer.TraceFunction(ctx, "reminder.latest_overdue", func(ctx context.Context) error {
		// Sort keys order by remind-at then creation, so the first item
		// of a descending scan below "now" is the newest overdue
		// reminder with the tie already broken.
		keyCond := expression.Key("PK").Equal(expression.Value(docPK(ref))).
			And(expression.Key("SK").Between(
				expression.Value(reminderPrefix),
				expression.Value(reminderPrefix+timeKey(now)),
			))
		filter := r.activeFilter(ctx)
		if user != "" {
			filter = filter.And(expression.Name("user").Equal(expression.Value(user)))
		}
		expr, err := expression.NewBuilder().WithKeyCondition(keyCond).WithFilter(filter).Build()
		if err != nil {
			return pkgerrors.Wrap(err, "failed to build query")
		}

		reminders, err := r.queryReminders(ctx, &awsdynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ScanIndexForward:          aws.Bool(false),
		}, 1)
		if err != nil {
			return err
		}
		if len(reminders) > 0 {
			result = reminders[0]
		}
		return nil
	})
	return result, err
}

// ListOverdueRefIDs implements ports.ReminderRepository
func (r *ReminderRepository) ListOverdueRefIDs(ctx context.Context, refType string, now time.Time, limit int) ([]string, error) {
	var ids []string
	err := r.tracer.TraceFunction(ctx, "reminder.list_overdue_refs", func(ctx context.Context) error {
		keyCond := expression.Key("GSI2PK").Equal(expression.Value(reminderTypePrefix+refType)).
			And(expression.Key("GSI2SK").LessThan(expression.Value(timeKey(now))))
		expr, err := expression.NewBuilder().WithKeyCondition(keyCond).WithFilter(r.activeFilter(ctx)).Build()
		if err != nil {
			return pkgerrors.Wrap(err, "failed to build query")
		}

		input := &awsdynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			IndexName:                 aws.String(typeIndexName),
			KeyConditionExpression:    expr.KeyCondition(),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		}

		seen := make(map[string]struct{})
		paginator := awsdynamodb.NewQueryPaginator(r.client, input)
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return pkgerrors.NewDatabaseError("query overdue reminders", err)
			}
			var items []reminderItem
			if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
				return pkgerrors.Wrap(err, "failed to unmarshal reminders")
			}
			for _, item := range items {
				refID := r.refIDOf(ctx, item)
				if _, dup := seen[refID]; dup {
					continue
				}
				seen[refID] = struct{}{}
				ids = append(ids, refID)
				if limit > 0 && len(ids) >= limit {
					return nil
				}
			}
		}
		return nil
	})
	return ids, err
}

// LatestOverdueByDoc implements ports.ReminderRepository
func (r *ReminderRepository) LatestOverdueByDoc(ctx context.Context, refType string, refIDs []string, now time.Time, user string) (map[string]time.Time, error) {
	result := make(map[string]time.Time, len(refIDs))
	for _, id := range refIDs {
		ref, err := valueobjects.NewDocRef(refType, id)
		if err != nil {
			return nil, err
		}
		latest, err := r.LatestOverdue(ctx, ref, now, user)
		if err != nil {
			return nil, err
		}
		if latest != nil {
			result[id] = latest.RemindAt()
		}
	}
	return result, nil
}

// activeFilter builds the not-yet-sent condition the stored schema can
// express. Stores without either attribute treat every reminder as
// active.
func (r *ReminderRepository) activeFilter(ctx context.Context) expression.ConditionBuilder {
	schema := r.caps.ReminderSchema(ctx)
	switch {
	case schema.HasStatus:
		return expression.Name("status").NotEqual(expression.Value(string(entities.ReminderStatusSent)))
	case schema.HasDone:
		return expression.Name("done").Equal(expression.Value(false))
	default:
		return expression.Name("EntityType").Equal(expression.Value(entityTypeReminder))
	}
}

func (r *ReminderRepository) queryReminders(ctx context.Context, input *awsdynamodb.QueryInput, max int) ([]*entities.Reminder, error) {
	var reminders []*entities.Reminder
	paginator := awsdynamodb.NewQueryPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("query reminders", err)
		}
		var items []reminderItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, pkgerrors.Wrap(err, "failed to unmarshal reminders")
		}
		for _, item := range items {
			reminder, err := r.toEntity(ctx, &item)
			if err != nil {
				return nil, err
			}
			reminders = append(reminders, reminder)
			if max > 0 && len(reminders) >= max {
				return reminders, nil
			}
		}
	}
	return reminders, nil
}

func (r *ReminderRepository) findItem(ctx context.Context, id string) (*reminderItem, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(reminderPrefix + id))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to build query")
	}

	result, err := r.client.Query(ctx, &awsdynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(entityIndexName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("query reminder", err)
	}
	if len(result.Items) == 0 {
		return nil, pkgerrors.NewNotFoundError("reminder " + id)
	}

	var item reminderItem
	if err := attributevalue.UnmarshalMap(result.Items[0], &item); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to unmarshal reminder")
	}
	return &item, nil
}

func (r *ReminderRepository) deleteItem(ctx context.Context, pk, sk string) error {
	_, err := r.client.DeleteItem(ctx, &awsdynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("delete reminder", err)
	}
	return nil
}

func (r *ReminderRepository) toItem(reminder *entities.Reminder) reminderItem {
	ref := reminder.Ref()
	return reminderItem{
		PK:          docPK(ref),
		SK:          reminderSK(reminder.RemindAt(), reminder.CreatedAt(), reminder.ID()),
		GSI1PK:      reminderPrefix + reminder.ID(),
		GSI1SK:      reminderPrefix + reminder.ID(),
		GSI2PK:      reminderTypePrefix + ref.Type(),
		GSI2SK:      fmt.Sprintf("%s#%s", timeKey(reminder.RemindAt()), ref.ID()),
		EntityType:  entityTypeReminder,
		ID:          reminder.ID(),
		RefType:     ref.Type(),
		RefID:       ref.ID(),
		User:        reminder.User(),
		RemindAt:    reminder.RemindAt(),
		Status:      string(reminder.Status()),
		Done:        reminder.Done(),
		Description: reminder.Description(),
		Comment:     reminder.Comment(),
		CreatedAt:   reminder.CreatedAt(),
	}
}

// refIDOf resolves the reference id through whichever attribute pair
// the probed schema trusts.
func (r *ReminderRepository) refIDOf(ctx context.Context, item reminderItem) string {
	schema := r.caps.ReminderSchema(ctx)
	if schema.RefIDAttr == "reminder_docname" && item.LegacyRefID != "" {
		return item.LegacyRefID
	}
	return item.RefID
}

func (r *ReminderRepository) toEntity(ctx context.Context, item *reminderItem) (*entities.Reminder, error) {
	schema := r.caps.ReminderSchema(ctx)

	refType, refID := item.RefType, item.RefID
	if schema.RefTypeAttr == "reminder_doctype" && item.LegacyRefType != "" {
		refType, refID = item.LegacyRefType, item.LegacyRefID
	}
	ref, err := valueobjects.NewDocRef(refType, refID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "stored reminder has invalid reference")
	}

	return entities.ReconstructReminder(
		item.ID,
		ref,
		item.User,
		item.RemindAt,
		entities.ReminderStatus(item.Status),
		item.Done,
		item.Description,
		item.Comment,
		item.CreatedAt,
	), nil
}

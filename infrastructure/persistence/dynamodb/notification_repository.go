package dynamodb

import (
	"context"

	"crm-backend/domain/core/entities"
	"crm-backend/domain/core/valueobjects"
	pkgerrors "crm-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

// NotificationRepository implements ports.NotificationRepository on
// DynamoDB
type NotificationRepository struct {
	client    *awsdynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewNotificationRepository creates a DynamoDB-backed notification
// repository
func NewNotificationRepository(client *awsdynamodb.Client, tableName string, logger *zap.Logger) *NotificationRepository {
	return &NotificationRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Save implements ports.NotificationRepository
func (n *NotificationRepository) Save(ctx context.Context, notification *entities.Notification) error {
	item := notificationItem{
		PK:         userPrefix + notification.ForUser(),
		SK:         notificationSK(notification.CreatedAt(), notification.ID()),
		GSI1PK:     notificationPrefix + notification.ID(),
		GSI1SK:     notificationPrefix + notification.ID(),
		EntityType: entityTypeNotification,
		ID:         notification.ID(),
		ForUser:    notification.ForUser(),
		FromUser:   notification.FromUser(),
		Subject:    notification.Subject(),
		Content:    notification.Content(),
		NotifType:  string(notification.Type()),
		CreatedAt:  notification.CreatedAt(),
	}
	if !notification.Ref().IsZero() {
		item.RefType = notification.Ref().Type()
		item.RefID = notification.Ref().ID()
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to marshal notification")
	}

	_, err = n.client.PutItem(ctx, &awsdynamodb.PutItemInput{
		TableName: aws.String(n.tableName),
		Item:      av,
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("put notification", err)
	}
	return nil
}

// GetByID implements ports.NotificationRepository
func (n *NotificationRepository) GetByID(ctx context.Context, id string) (*entities.Notification, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(notificationPrefix + id))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to build query")
	}

	result, err := n.client.Query(ctx, &awsdynamodb.QueryInput{
		TableName:                 aws.String(n.tableName),
		IndexName:                 aws.String(entityIndexName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("query notification", err)
	}
	if len(result.Items) == 0 {
		return nil, pkgerrors.NewNotFoundError("notification " + id)
	}

	var item notificationItem
	if err := attributevalue.UnmarshalMap(result.Items[0], &item); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to unmarshal notification")
	}
	return toNotificationEntity(&item)
}

// ListForUser implements ports.NotificationRepository
func (n *NotificationRepository) ListForUser(ctx context.Context, user string, limit int) ([]*entities.Notification, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(userPrefix + user)).
		And(expression.Key("SK").BeginsWith(notificationPrefix))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to build query")
	}

	input := &awsdynamodb.QueryInput{
		TableName:                 aws.String(n.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	result, err := n.client.Query(ctx, input)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("query notifications", err)
	}

	var items []notificationItem
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &items); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to unmarshal notifications")
	}

	notifications := make([]*entities.Notification, 0, len(items))
	for _, item := range items {
		notification, err := toNotificationEntity(&item)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, notification)
	}
	return notifications, nil
}

func toNotificationEntity(item *notificationItem) (*entities.Notification, error) {
	var ref valueobjects.DocRef
	if item.RefType != "" && item.RefID != "" {
		var err error
		ref, err = valueobjects.NewDocRef(item.RefType, item.RefID)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "stored notification has invalid reference")
		}
	}
	return entities.ReconstructNotification(
		item.ID,
		item.ForUser,
		item.FromUser,
		item.Subject,
		item.Content,
		entities.NotificationType(item.NotifType),
		ref,
		item.CreatedAt,
	), nil
}

package dynamodb

import (
	"context"
	"errors"

	"crm-backend/application/ports"
	"crm-backend/domain/core/entities"
	pkgerrors "crm-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// LeadRepository implements ports.LeadRepository on DynamoDB
type LeadRepository struct {
	client    *awsdynamodb.Client
	tableName string
	caps      ports.SchemaCapabilities
	logger    *zap.Logger
}

// NewLeadRepository creates a DynamoDB-backed lead repository
func NewLeadRepository(
	client *awsdynamodb.Client,
	tableName string,
	caps ports.SchemaCapabilities,
	logger *zap.Logger,
) *LeadRepository {
	return &LeadRepository{
		client:    client,
		tableName: tableName,
		caps:      caps,
		logger:    logger,
	}
}

// Save implements ports.LeadRepository
func (l *LeadRepository) Save(ctx context.Context, lead *entities.Lead) error {
	item := leadItem{
		PK:          leadPrefix + lead.ID(),
		SK:          metadataPrefix + lead.ID(),
		EntityType:  entityTypeLead,
		ID:          lead.ID(),
		LeadName:    lead.Name(),
		Owner:       lead.Owner(),
		Team:        lead.Team(),
		Delayed:     lead.Delayed(),
		LastComment: lead.LastComment(),
		CreatedAt:   lead.CreatedAt(),
		UpdatedAt:   lead.UpdatedAt(),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to marshal lead")
	}

	_, err = l.client.PutItem(ctx, &awsdynamodb.PutItemInput{
		TableName: aws.String(l.tableName),
		Item:      av,
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("put lead", err)
	}
	return nil
}

// GetByID implements ports.LeadRepository
func (l *LeadRepository) GetByID(ctx context.Context, id string) (*entities.Lead, error) {
	result, err := l.client.GetItem(ctx, &awsdynamodb.GetItemInput{
		TableName: aws.String(l.tableName),
		Key:       leadKey(id),
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get lead", err)
	}
	if result.Item == nil {
		return nil, pkgerrors.NewNotFoundError("lead " + id)
	}

	var item leadItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to unmarshal lead")
	}
	return entities.ReconstructLead(
		item.ID,
		item.LeadName,
		item.Owner,
		item.Team,
		item.Delayed,
		item.LastComment,
		item.CreatedAt,
		item.UpdatedAt,
	), nil
}

// SetDelayed implements ports.LeadRepository
func (l *LeadRepository) SetDelayed(ctx context.Context, id string, delayed bool) error {
	if !l.caps.LeadHasDelayed(ctx) {
		return nil
	}
	return l.update(ctx, id, expression.Set(expression.Name("delayed"), expression.Value(delayed)))
}

// SetLastComment implements ports.LeadRepository
func (l *LeadRepository) SetLastComment(ctx context.Context, id string, snippet string) error {
	return l.update(ctx, id, expression.Set(expression.Name("last_comment"), expression.Value(snippet)))
}

func (l *LeadRepository) update(ctx context.Context, id string, update expression.UpdateBuilder) error {
	cond := expression.AttributeExists(expression.Name("PK"))
	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return pkgerrors.Wrap(err, "failed to build update")
	}

	_, err = l.client.UpdateItem(ctx, &awsdynamodb.UpdateItemInput{
		TableName:                 aws.String(l.tableName),
		Key:                       leadKey(id),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return pkgerrors.NewNotFoundError("lead " + id)
		}
		return pkgerrors.NewDatabaseError("update lead", err)
	}
	return nil
}

func leadKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: leadPrefix + id},
		"SK": &types.AttributeValueMemberS{Value: metadataPrefix + id},
	}
}

package dynamodb

import (
	"context"
	"time"

	"crm-backend/application/ports"
	"crm-backend/domain/core/entities"
	"crm-backend/domain/core/valueobjects"
	pkgerrors "crm-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// CommentRepository implements ports.CommentRepository on DynamoDB
type CommentRepository struct {
	client    *awsdynamodb.Client
	tableName string
	caps      ports.SchemaCapabilities
	logger    *zap.Logger
}

// NewCommentRepository creates a DynamoDB-backed comment repository
func NewCommentRepository(
	client *awsdynamodb.Client,
	tableName string,
	caps ports.SchemaCapabilities,
	logger *zap.Logger,
) *CommentRepository {
	return &CommentRepository{
		client:    client,
		tableName: tableName,
		caps:      caps,
		logger:    logger,
	}
}

// Save implements ports.CommentRepository
func (c *CommentRepository) Save(ctx context.Context, comment *entities.Comment) error {
	item := commentItem{
		PK:          docPK(comment.Ref()),
		SK:          commentSK(comment.CreatedAt(), comment.ID()),
		GSI1PK:      commentPrefix + comment.ID(),
		GSI1SK:      commentPrefix + comment.ID(),
		EntityType:  entityTypeComment,
		ID:          comment.ID(),
		RefType:     comment.Ref().Type(),
		RefID:       comment.Ref().ID(),
		Owner:       comment.Owner(),
		Content:     comment.Content(),
		CommentType: string(comment.Type()),
		Delayed:     comment.Delayed(),
		CreatedAt:   comment.CreatedAt(),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to marshal comment")
	}

	_, err = c.client.PutItem(ctx, &awsdynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      av,
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("put comment", err)
	}
	return nil
}

// GetByID implements ports.CommentRepository
func (c *CommentRepository) GetByID(ctx context.Context, id string) (*entities.Comment, error) {
	item, err := c.findItem(ctx, id)
	if err != nil {
		return nil, err
	}
	return toCommentEntity(item)
}

// ListForDoc implements ports.CommentRepository
func (c *CommentRepository) ListForDoc(ctx context.Context, ref valueobjects.DocRef) ([]*entities.Comment, error) {
	return c.queryForDoc(ctx, ref, true, 0)
}

// LatestForDoc implements ports.CommentRepository
func (c *CommentRepository) LatestForDoc(ctx context.Context, ref valueobjects.DocRef) (*entities.Comment, error) {
	comments, err := c.queryForDoc(ctx, ref, false, 1)
	if err != nil {
		return nil, err
	}
	if len(comments) == 0 {
		return nil, nil
	}
	return comments[0], nil
}

// SetDelayedFlags implements ports.CommentRepository
func (c *CommentRepository) SetDelayedFlags(ctx context.Context, ref valueobjects.DocRef, delayed bool, user string) (int, error) {
	if !c.caps.CommentHasDelayed(ctx) {
		return 0, nil
	}

	items, err := c.queryItems(ctx, ref, true, 0)
	if err != nil {
		return 0, err
	}

	touched := 0
	for _, item := range items {
		if item.Delayed == delayed {
			continue
		}
		if user != "" && item.Owner != user {
			continue
		}
		if err := c.updateDelayed(ctx, item.PK, item.SK, delayed); err != nil {
			return touched, err
		}
		touched++
	}
	return touched, nil
}

// SetDelayed implements ports.CommentRepository
func (c *CommentRepository) SetDelayed(ctx context.Context, id string, delayed bool) error {
	if !c.caps.CommentHasDelayed(ctx) {
		return nil
	}

	item, err := c.findItem(ctx, id)
	if err != nil {
		return err
	}
	return c.updateDelayed(ctx, item.PK, item.SK, delayed)
}

// AnyDelayedByDoc implements ports.CommentRepository
func (c *CommentRepository) AnyDelayedByDoc(ctx context.Context, refType string, refIDs []string) (map[string]bool, error) {
	if !c.caps.CommentHasDelayed(ctx) {
		return nil, nil
	}

	result := make(map[string]bool, len(refIDs))
	for _, id := range refIDs {
		ref, err := valueobjects.NewDocRef(refType, id)
		if err != nil {
			return nil, err
		}
		items, err := c.queryItems(ctx, ref, true, 0)
		if err != nil {
			return nil, err
		}
		result[id] = false
		for _, item := range items {
			if item.Delayed {
				result[id] = true
				break
			}
		}
	}
	return result, nil
}

// LatestCreatedByDoc implements ports.CommentRepository
func (c *CommentRepository) LatestCreatedByDoc(ctx context.Context, refType string, refIDs []string) (map[string]time.Time, error) {
	result := make(map[string]time.Time, len(refIDs))
	for _, id := range refIDs {
		ref, err := valueobjects.NewDocRef(refType, id)
		if err != nil {
			return nil, err
		}
		latest, err := c.LatestForDoc(ctx, ref)
		if err != nil {
			return nil, err
		}
		if latest != nil {
			result[id] = latest.CreatedAt()
		}
	}
	return result, nil
}

func (c *CommentRepository) queryForDoc(ctx context.Context, ref valueobjects.DocRef, ascending bool, max int) ([]*entities.Comment, error) {
	items, err := c.queryItemsOrdered(ctx, ref, ascending, max)
	if err != nil {
		return nil, err
	}
	comments := make([]*entities.Comment, 0, len(items))
	for _, item := range items {
		comment, err := toCommentEntity(&item)
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	return comments, nil
}

func (c *CommentRepository) queryItems(ctx context.Context, ref valueobjects.DocRef, ascending bool, max int) ([]commentItem, error) {
	return c.queryItemsOrdered(ctx, ref, ascending, max)
}

// queryItemsOrdered lists a document's user comments in creation order.
// Info rows share the key space but are filtered out; only user
// comments participate in the delayed rule.
func (c *CommentRepository) queryItemsOrdered(ctx context.Context, ref valueobjects.DocRef, ascending bool, max int) ([]commentItem, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(docPK(ref))).
		And(expression.Key("SK").BeginsWith(commentPrefix))
	filter := expression.Name("comment_type").Equal(expression.Value(string(entities.CommentTypeComment)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).WithFilter(filter).Build()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to build query")
	}

	input := &awsdynamodb.QueryInput{
		TableName:                 aws.String(c.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(ascending),
	}

	var items []commentItem
	paginator := awsdynamodb.NewQueryPaginator(c.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("query comments", err)
		}
		var pageItems []commentItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &pageItems); err != nil {
			return nil, pkgerrors.Wrap(err, "failed to unmarshal comments")
		}
		items = append(items, pageItems...)
		if max > 0 && len(items) >= max {
			return items[:max], nil
		}
	}
	return items, nil
}

func (c *CommentRepository) findItem(ctx context.Context, id string) (*commentItem, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(commentPrefix + id))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to build query")
	}

	result, err := c.client.Query(ctx, &awsdynamodb.QueryInput{
		TableName:                 aws.String(c.tableName),
		IndexName:                 aws.String(entityIndexName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("query comment", err)
	}
	if len(result.Items) == 0 {
		return nil, pkgerrors.NewNotFoundError("comment " + id)
	}

	var item commentItem
	if err := attributevalue.UnmarshalMap(result.Items[0], &item); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to unmarshal comment")
	}
	return &item, nil
}

func (c *CommentRepository) updateDelayed(ctx context.Context, pk, sk string, delayed bool) error {
	update := expression.Set(expression.Name("delayed"), expression.Value(delayed))
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return pkgerrors.Wrap(err, "failed to build update")
	}

	_, err = c.client.UpdateItem(ctx, &awsdynamodb.UpdateItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("update comment", err)
	}
	return nil
}

func toCommentEntity(item *commentItem) (*entities.Comment, error) {
	ref, err := valueobjects.NewDocRef(item.RefType, item.RefID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "stored comment has invalid reference")
	}
	return entities.ReconstructComment(
		item.ID,
		ref,
		item.Owner,
		item.Content,
		entities.CommentType(item.CommentType),
		item.Delayed,
		item.CreatedAt,
	), nil
}

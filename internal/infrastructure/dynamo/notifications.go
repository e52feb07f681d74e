package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-identity-api/internal/domain"
)

// NotificationRepo is the outbox store for outgoing email. Rows are written
// as "pending" in the same request that triggers them and flipped to "sent"
// by the dispatcher worker, giving at-least-once delivery across restarts.
type NotificationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewNotificationRepo(client *dynamodb.Client, tableName string) *NotificationRepo {
	return &NotificationRepo{client: client, tableName: tableName}
}

func (r *NotificationRepo) Put(ctx context.Context, n *domain.Notification) error {
	item, err := attributevalue.MarshalMap(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// ListPending queries the status GSI for undelivered rows, oldest first.
// Called on startup to requeue mail that was in flight when the process died.
func (r *NotificationRepo) ListPending(ctx context.Context) ([]domain.Notification, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("status-created_at-index"),
		KeyConditionExpression:    aws.String("#s = :pending"),
		ExpressionAttributeNames:  map[string]string{"#s": fieldStatus},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pending": &types.AttributeValueMemberS{Value: domain.NotificationPending},
		},
		ScanIndexForward: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	var pending []domain.Notification
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &pending); err != nil {
		return nil, err
	}
	return pending, nil
}

func (r *NotificationRepo) MarkSent(ctx context.Context, notificationID string, attempts int) error {
	return r.update(ctx, notificationID, map[string]interface{}{
		fieldStatus:   domain.NotificationSent,
		fieldAttempts: attempts,
	})
}

func (r *NotificationRepo) RecordAttempts(ctx context.Context, notificationID string, attempts int) error {
	return r.update(ctx, notificationID, map[string]interface{}{fieldAttempts: attempts})
}

func (r *NotificationRepo) update(ctx context.Context, notificationID string, updates map[string]interface{}) error {
	updates[fieldUpdatedAt] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("notification_id", notificationID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-identity-api/internal/domain"
)

// UserRepo provides typed DynamoDB operations for the users table.
//
// Email uniqueness is enforced by the store, not by a read-before-write:
// every user row is paired with a claim row keyed "EMAIL#<email>" in the same
// table, and both are written in one transaction with attribute_not_exists
// conditions. Two concurrent registrations of the same address collide on the
// claim row and exactly one transaction commits.
type UserRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewUserRepo(client *dynamodb.Client, tableName string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName}
}

func emailClaimKey(email string) string {
	return "EMAIL#" + domain.NormalizeEmail(email)
}

// emailClaim is the uniqueness marker row. It deliberately has no "email"
// attribute so it never shows up in the email-index GSI.
type emailClaim struct {
	UserID    string `dynamodbav:"user_id"`
	ClaimedBy string `dynamodbav:"claimed_by"`
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	userItem, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	claimItem, err := attributevalue.MarshalMap(emailClaim{
		UserID:    emailClaimKey(u.Email),
		ClaimedBy: u.UserID,
	})
	if err != nil {
		return fmt.Errorf("marshal email claim: %w", err)
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                claimItem,
				ConditionExpression: aws.String("attribute_not_exists(user_id)"),
			}},
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                userItem,
				ConditionExpression: aws.String("attribute_not_exists(user_id)"),
			}},
		},
	})
	if isConditionalCancel(err) {
		return fmt.Errorf("create user: %w", domain.ErrDuplicateEmail)
	}
	return err
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("user_id", userID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("email-index"),
		KeyConditionExpression:    aws.String("#e = :v"),
		ExpressionAttributeNames:  map[string]string{"#e": fieldEmail},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: domain.NormalizeEmail(email)}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("user by email: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Items[0], &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	updates[fieldUpdatedAt] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("user_id", userID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ConditionExpression:       aws.String("attribute_exists(user_id)"),
	})
	if isConditionalCheckFailed(err) {
		return fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	return err
}

// ChangeEmail swaps the uniqueness claim and rewrites the user's email in one
// transaction. The confirmed flag drops back to false: the new address has
// never been verified, and outstanding confirmation tokens die with the old
// fingerprint.
func (r *UserRepo) ChangeEmail(ctx context.Context, userID, oldEmail, newEmail string) error {
	newClaim, err := attributevalue.MarshalMap(emailClaim{
		UserID:    emailClaimKey(newEmail),
		ClaimedBy: userID,
	})
	if err != nil {
		return fmt.Errorf("marshal email claim: %w", err)
	}
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldEmail:          domain.NormalizeEmail(newEmail),
		fieldEmailConfirmed: false,
		fieldUpdatedAt:      time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: &types.Delete{
				TableName: aws.String(r.tableName),
				Key:       strKey("user_id", emailClaimKey(oldEmail)),
			}},
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                newClaim,
				ConditionExpression: aws.String("attribute_not_exists(user_id)"),
			}},
			{Update: &types.Update{
				TableName:                 aws.String(r.tableName),
				Key:                       strKey("user_id", userID),
				UpdateExpression:          aws.String(ue.Expr),
				ExpressionAttributeNames:  ue.Names,
				ExpressionAttributeValues: ue.Values,
				ConditionExpression:       aws.String("attribute_exists(user_id)"),
			}},
		},
	})
	if isConditionalCancel(err) {
		return fmt.Errorf("change email: %w", domain.ErrDuplicateEmail)
	}
	return err
}

// SetEmailConfirmed flips email_confirmed false->true as a compare-and-swap.
// A concurrent (or repeated) redemption loses the race and gets
// ErrAlreadyConfirmed, which callers treat as an informational no-op.
func (r *UserRepo) SetEmailConfirmed(ctx context.Context, userID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("user_id", userID),
		UpdateExpression:          aws.String("SET #c = :t, #u = :now"),
		ConditionExpression:       aws.String("attribute_exists(user_id) AND #c = :f"),
		ExpressionAttributeNames:  map[string]string{"#c": fieldEmailConfirmed, "#u": fieldUpdatedAt},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t":   &types.AttributeValueMemberBOOL{Value: true},
			":f":   &types.AttributeValueMemberBOOL{Value: false},
			":now": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
	})
	if isConditionalCheckFailed(err) {
		return fmt.Errorf("confirm email: %w", domain.ErrAlreadyConfirmed)
	}
	return err
}

func (r *UserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return r.Update(ctx, userID, map[string]interface{}{fieldPasswordHash: passwordHash})
}

func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// isConditionalCancel reports whether a transaction was cancelled because one
// of its condition expressions failed (as opposed to throttling or a
// transient conflict, which callers should see verbatim).
func isConditionalCancel(err error) bool {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return false
	}
	for _, reason := range tce.CancellationReasons {
		if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}

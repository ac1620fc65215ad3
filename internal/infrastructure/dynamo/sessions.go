package dynamo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/gatekeeper-api/internal/domain"
)

// SessionRepo provides typed DynamoDB operations for the verification sessions table.
// PK: user_id. PutItem replaces the whole item, which gives the required
// upsert-or-reset semantics when a user re-requests verification.
type SessionRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewSessionRepo(client *dynamodb.Client, tableName string) *SessionRepo {
	return &SessionRepo{client: client, tableName: tableName}
}

func (r *SessionRepo) Put(ctx context.Context, s *domain.VerificationSession) error {
	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *SessionRepo) Get(ctx context.Context, userID string) (*domain.VerificationSession, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("user_id", userID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	var s domain.VerificationSession
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateInput replaces the keypad input buffer on an existing session.
func (r *SessionRepo) UpdateInput(ctx context.Context, userID, input string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{fieldCurrentInput: input})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("user_id", userID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

// IncrementAttempts atomically bumps the attempt counter and returns the new value.
func (r *SessionRepo) IncrementAttempts(ctx context.Context, userID string) (int, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      strKey("user_id", userID),
		UpdateExpression:         aws.String("ADD #a :one"),
		ExpressionAttributeNames: map[string]string{"#a": fieldAttempts},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, err
	}
	nAttr, ok := out.Attributes[fieldAttempts].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("attempts attribute missing from update response")
	}
	n, err := strconv.Atoi(nAttr.Value)
	if err != nil {
		return 0, fmt.Errorf("parse attempts: %w", err)
	}
	return n, nil
}

func (r *SessionRepo) Delete(ctx context.Context, userID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("user_id", userID),
	})
	return err
}

// PurgeOlderThan deletes every session created before the given Unix timestamp
// and returns the number of rows removed. This bounds storage growth from
// abandoned sessions; the user-facing TTL is enforced separately at submit time.
func (r *SessionRepo) PurgeOlderThan(ctx context.Context, cutoff int64) (int, error) {
	purged := 0
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(r.tableName),
			FilterExpression: aws.String("created_at < :cutoff"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":cutoff": &types.AttributeValueMemberN{Value: strconv.FormatInt(cutoff, 10)},
			},
			ProjectionExpression: aws.String("user_id"),
			ExclusiveStartKey:    startKey,
		})
		if err != nil {
			return purged, err
		}
		for _, item := range out.Items {
			uidAttr, ok := item["user_id"].(*types.AttributeValueMemberS)
			if !ok {
				continue
			}
			if err := r.Delete(ctx, uidAttr.Value); err != nil {
				return purged, err
			}
			purged++
		}
		if out.LastEvaluatedKey == nil {
			return purged, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

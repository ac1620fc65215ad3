package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gatekeeper-api/internal/domain"
)

// SettingsRepo provides typed DynamoDB operations for the community settings table.
// PK: community_id.
type SettingsRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewSettingsRepo(client *dynamodb.Client, tableName string) *SettingsRepo {
	return &SettingsRepo{client: client, tableName: tableName}
}

// Put writes the full settings row. Reconfiguring a community replaces the
// whole item, which also resets the lockdown flag to its zero value.
func (r *SettingsRepo) Put(ctx context.Context, s *domain.CommunitySettings) error {
	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *SettingsRepo) Get(ctx context.Context, communityID string) (*domain.CommunitySettings, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("community_id", communityID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("settings not found: %w", domain.ErrNotFound)
	}
	var s domain.CommunitySettings
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SetLockdown flips the lockdown flag without touching the rest of the row.
func (r *SettingsRepo) SetLockdown(ctx context.Context, communityID string, enabled bool) error {
	ue, err := buildUpdateExpr(map[string]interface{}{fieldLockdownEnabled: enabled})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("community_id", communityID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

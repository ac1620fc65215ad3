package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gatekeeper-api/internal/domain"
)

// VerifiedMemberRepo records completed verifications.
// PK: user_id, SK: community_id.
type VerifiedMemberRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewVerifiedMemberRepo(client *dynamodb.Client, tableName string) *VerifiedMemberRepo {
	return &VerifiedMemberRepo{client: client, tableName: tableName}
}

func (r *VerifiedMemberRepo) Put(ctx context.Context, m *domain.VerifiedMember) error {
	item, err := attributevalue.MarshalMap(m)
	if err != nil {
		return fmt.Errorf("marshal verified member: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *VerifiedMemberRepo) Get(ctx context.Context, userID, communityID string) (*domain.VerifiedMember, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("user_id", userID, "community_id", communityID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("verified member not found: %w", domain.ErrNotFound)
	}
	var m domain.VerifiedMember
	if err := attributevalue.UnmarshalMap(out.Item, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *VerifiedMemberRepo) Delete(ctx context.Context, userID, communityID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("user_id", userID, "community_id", communityID),
	})
	return err
}

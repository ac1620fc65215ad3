package dynamo

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// BlockedDomainRepo holds the global set of blocked e-mail domains.
// PK: domain (already case-normalized by the blocklist service).
type BlockedDomainRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewBlockedDomainRepo(client *dynamodb.Client, tableName string) *BlockedDomainRepo {
	return &BlockedDomainRepo{client: client, tableName: tableName}
}

func (r *BlockedDomainRepo) Put(ctx context.Context, domainName string) error {
	_, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      strKey("domain", domainName),
	})
	return err
}

// Delete removes a domain and reports how many rows were actually removed (0 or 1).
func (r *BlockedDomainRepo) Delete(ctx context.Context, domainName string) (int, error) {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(r.tableName),
		Key:          strKey("domain", domainName),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return 0, err
	}
	if out.Attributes == nil {
		return 0, nil
	}
	return 1, nil
}

func (r *BlockedDomainRepo) Exists(ctx context.Context, domainName string) (bool, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("domain", domainName),
	})
	if err != nil {
		return false, err
	}
	return out.Item != nil, nil
}

// List returns all blocked domains in lexicographic order.
func (r *BlockedDomainRepo) List(ctx context.Context) ([]string, error) {
	var domains []string
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}
		for _, item := range out.Items {
			if d, ok := item["domain"].(*types.AttributeValueMemberS); ok {
				domains = append(domains, d.Value)
			}
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	sort.Strings(domains)
	return domains, nil
}

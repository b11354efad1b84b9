package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBAPI is the subset of the DynamoDB client used by DynamoDBStore
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// snapshotItem is the table row layout; session_key is the partition key.
type snapshotItem struct {
	SessionKey string    `dynamodbav:"session_key"`
	Payload    string    `dynamodbav:"payload"`
	UpdatedAt  time.Time `dynamodbav:"updated_at"`
}

// DynamoDBStore keeps snapshots in a DynamoDB table
type DynamoDBStore struct {
	client DynamoDBAPI
	table  string
}

func NewDynamoDBStore(client DynamoDBAPI, table string) *DynamoDBStore {
	return &DynamoDBStore{client: client, table: table}
}

func (s *DynamoDBStore) Load(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"session_key": &types.AttributeValueMemberS{Value: key},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	var item snapshotItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot item: %w", err)
	}
	return []byte(item.Payload), nil
}

func (s *DynamoDBStore) Save(ctx context.Context, key string, data []byte) error {
	av, err := attributevalue.MarshalMap(snapshotItem{
		SessionKey: key,
		Payload:    string(data),
		UpdatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to put snapshot item: %w", err)
	}
	return nil
}

func (s *DynamoDBStore) Close() error {
	return nil
}

package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	awsclients "github.com/boogy/aws-cognito-warden/pkg/aws"
)

// DynamoDBStore keeps the latest snapshot in a single item keyed by the JWKS URL.
// The table needs a string partition key named "Key".
type DynamoDBStore struct {
	client    awsclients.DynamoDBAPI
	tableName string
	key       string
}

func NewDynamoDBStore(client awsclients.DynamoDBAPI, tableName, key string) *DynamoDBStore {
	return &DynamoDBStore{
		client:    client,
		tableName: tableName,
		key:       key,
	}
}

func (s *DynamoDBStore) Save(ctx context.Context, snapshot *Snapshot) error {
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	// DynamoDB has a limit of 400KB for item size
	if int64(len(data)) > Defaults.DynamoDBMaxItemSize {
		return fmt.Errorf("snapshot of %d bytes too large to store in DynamoDB (max %d)", len(data), Defaults.DynamoDBMaxItemSize)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"Key":       &types.AttributeValueMemberS{Value: s.key},
			"Value":     &types.AttributeValueMemberS{Value: string(data)},
			"FetchedAt": &types.AttributeValueMemberS{Value: snapshot.FetchedAt().UTC().Format(time.RFC3339)},
			"CreatedAt": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
			"Size":      &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", len(data))},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to put snapshot in DynamoDB table %s: %w", s.tableName, err)
	}

	slog.Debug("Persisted key set snapshot in DynamoDB", "table", s.tableName, "key", s.key, "size", len(data))
	return nil
}

func (s *DynamoDBStore) Load(ctx context.Context) (*Snapshot, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"Key": &types.AttributeValueMemberS{Value: s.key},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot from DynamoDB table %s: %w", s.tableName, err)
	}

	if result.Item == nil {
		return nil, ErrSnapshotNotFound
	}

	valueAttr, ok := result.Item["Value"]
	if !ok {
		return nil, fmt.Errorf("invalid item format in DynamoDB: missing Value attribute")
	}

	value, ok := valueAttr.(*types.AttributeValueMemberS)
	if !ok {
		return nil, fmt.Errorf("invalid item format in DynamoDB: Value is not a string")
	}

	return decodeSnapshot([]byte(value.Value), Defaults.DynamoDBMaxItemSize)
}

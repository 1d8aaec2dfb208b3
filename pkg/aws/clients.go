package aws

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	// DefaultMaxRetries is the retry budget handed to the SDK for every client
	DefaultMaxRetries = 3

	// DefaultTimeout bounds single AWS calls made by consumers of these clients
	DefaultTimeout = 10 * time.Second
)

// S3API is the subset of the S3 client used by the snapshot store and the log shipper
type S3API interface {
	GetObject(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// DynamoDBAPI is the subset of the DynamoDB client used by the snapshot store
type DynamoDBAPI interface {
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Clients holds the AWS service clients shared by every component of a process.
// They are created from a single aws.Config so credentials are resolved once per cold start.
type Clients struct {
	s3       S3API
	dynamoDB DynamoDBAPI
}

// NewClients loads the default AWS configuration and builds the service clients.
// An empty region leaves the SDK resolution chain (AWS_REGION, profile) in charge.
func NewClients(ctx context.Context, region string) (*Clients, error) {
	cfg, err := loadConfig(ctx, region)
	if err != nil {
		return nil, err
	}

	return &Clients{
		s3:       s3.NewFromConfig(cfg),
		dynamoDB: dynamodb.NewFromConfig(cfg),
	}, nil
}

// NewClientsWith wires already constructed clients, mostly for tests
func NewClientsWith(s3Client S3API, dynamoClient DynamoDBAPI) *Clients {
	return &Clients{
		s3:       s3Client,
		dynamoDB: dynamoClient,
	}
}

func loadConfig(ctx context.Context, region string) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRetryMaxAttempts(DefaultMaxRetries),
	}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		slog.Error("Failed to load AWS config", slog.String("error", err.Error()))
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

// S3 returns the S3 client
func (c *Clients) S3() S3API {
	return c.s3
}

// DynamoDB returns the DynamoDB client
func (c *Clients) DynamoDB() DynamoDBAPI {
	return c.dynamoDB
}

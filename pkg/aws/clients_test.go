package aws

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct{ S3API }

type fakeDynamoDB struct{ DynamoDBAPI }

func TestNewClientsWith(t *testing.T) {
	s3Client := &fakeS3{}
	dynamoClient := &fakeDynamoDB{}

	clients := NewClientsWith(s3Client, dynamoClient)

	assert.Same(t, s3Client, clients.S3())
	assert.Same(t, dynamoClient, clients.DynamoDB())
}

func TestNewClients(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIDEXAMPLE")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("AWS_CONFIG_FILE", "/nonexistent")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/nonexistent")

	clients, err := NewClients(context.Background(), "eu-west-1")
	require.NoError(t, err)

	assert.IsType(t, &s3.Client{}, clients.S3())
	assert.IsType(t, &dynamodb.Client{}, clients.DynamoDB())
}

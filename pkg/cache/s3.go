package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	awsclients "github.com/boogy/aws-cognito-warden/pkg/aws"
)

// S3Store keeps the latest snapshot as a JSON object
type S3Store struct {
	client     awsclients.S3API
	bucketName string
	objectKey  string
}

// NewS3Store stores the snapshot of userPoolID under prefix/userPoolID/jwks.json
func NewS3Store(client awsclients.S3API, bucketName, prefix, userPoolID string) *S3Store {
	return &S3Store{
		client:     client,
		bucketName: bucketName,
		objectKey:  formatKey(prefix, userPoolID, "jwks.json"),
	}
}

// formatKey joins non-empty key segments with "/"
func formatKey(parts ...string) string {
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.Trim(part, "/"); part != "" {
			segments = append(segments, part)
		}
	}
	return strings.Join(segments, "/")
}

// ObjectKey returns the key of the persisted object
func (s *S3Store) ObjectKey() string {
	return s.objectKey
}

func (s *S3Store) Save(ctx context.Context, snapshot *Snapshot) error {
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	if int64(len(data)) > Defaults.S3MaxObjectSize {
		return fmt.Errorf("snapshot of %d bytes too large to store in S3 (max %d)", len(data), Defaults.S3MaxObjectSize)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(s.objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"FetchedAt": snapshot.FetchedAt().UTC().Format(time.RFC3339),
			"Keys":      fmt.Sprintf("%d", snapshot.Len()),
			"Size":      fmt.Sprintf("%d", len(data)),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to put snapshot in S3: %w", err)
	}

	slog.Debug("Persisted key set snapshot in S3", "bucket", s.bucketName, "key", s.objectKey, "size", len(data))
	return nil
}

func (s *S3Store) Load(ctx context.Context) (*Snapshot, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(s.objectKey),
		Range:  aws.String(fmt.Sprintf("bytes=0-%d", Defaults.S3MaxObjectSize)),
	})
	if err != nil {
		var noSuchKey *s3types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to get snapshot from S3: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("Error closing S3 response body", "error", err)
		}
	}()

	if resp.ContentLength != nil && *resp.ContentLength > Defaults.S3MaxObjectSize {
		return nil, fmt.Errorf("S3 snapshot of %d bytes exceeds %d bytes", *resp.ContentLength, Defaults.S3MaxObjectSize)
	}

	// Limit read size regardless of content length header
	body, err := io.ReadAll(io.LimitReader(resp.Body, Defaults.S3MaxObjectSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 snapshot: %w", err)
	}

	return decodeSnapshot(body, Defaults.S3MaxObjectSize)
}

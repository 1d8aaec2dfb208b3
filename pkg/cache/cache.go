package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	awsclients "github.com/boogy/aws-cognito-warden/pkg/aws"
	"github.com/boogy/aws-cognito-warden/pkg/config"
	"github.com/boogy/aws-cognito-warden/pkg/types"
	"github.com/redis/go-redis/v9"
)

// CacheDefaults holds the default values shared by the snapshot stores
type CacheDefaults struct {
	Timeout time.Duration // Timeout for a single store operation

	// Size limits, each applied to both Save and Load of its store
	MaxItemSize         int64
	DynamoDBMaxItemSize int64
	S3MaxObjectSize     int64
}

// Defaults provides the default configuration values for all snapshot stores
var Defaults = CacheDefaults{
	Timeout:             10 * time.Second, // Default timeout for store operations
	MaxItemSize:         512 * 1024,       // Maximum size of a Redis snapshot (512KB)
	DynamoDBMaxItemSize: 400 * 1024,       // Maximum item size for DynamoDB (400KB limit)
	S3MaxObjectSize:     1024 * 1024,      // Maximum object size for S3 objects (1MB)
}

// ErrSnapshotNotFound is returned by a SnapshotStore that holds nothing yet
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is one complete fetch of the provider key set, indexed by key id.
// It is never mutated after construction; a newer fetch replaces it wholesale.
type Snapshot struct {
	keys      map[string]types.JSONWebKey
	fetchedAt time.Time
}

// NewSnapshot indexes keys by their "kid". When the same id appears more than once
// the last record wins. Records without an id cannot be referenced by a token and are skipped.
func NewSnapshot(keys []types.JSONWebKey) *Snapshot {
	return NewSnapshotAt(keys, time.Now())
}

// NewSnapshotAt is NewSnapshot with an explicit fetch time
func NewSnapshotAt(keys []types.JSONWebKey, fetchedAt time.Time) *Snapshot {
	indexed := make(map[string]types.JSONWebKey, len(keys))
	for _, key := range keys {
		if key.KeyID == "" {
			slog.Debug("Skipping key without kid", "kty", key.KeyType, "use", key.Use)
			continue
		}
		if _, dup := indexed[key.KeyID]; dup {
			slog.Debug("Duplicate kid in key set, keeping the last record", "kid", key.KeyID)
		}
		indexed[key.KeyID] = key
	}

	return &Snapshot{
		keys:      indexed,
		fetchedAt: fetchedAt,
	}
}

// Lookup returns the record published under kid
func (s *Snapshot) Lookup(kid string) (types.JSONWebKey, bool) {
	if s == nil {
		return types.JSONWebKey{}, false
	}
	key, ok := s.keys[kid]
	return key, ok
}

// Len returns the number of indexed keys
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// KeyIDs returns the indexed key ids in sorted order
func (s *Snapshot) KeyIDs() []string {
	if s == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(s.keys))
}

// FetchedAt returns when the key set was retrieved from the provider
func (s *Snapshot) FetchedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.fetchedAt
}

// JWKS rebuilds a key set document, ordered by kid
func (s *Snapshot) JWKS() *types.JWKS {
	jwks := &types.JWKS{Keys: make([]types.JSONWebKey, 0, s.Len())}
	for _, kid := range s.KeyIDs() {
		jwks.Keys = append(jwks.Keys, s.keys[kid])
	}
	return jwks
}

// Cache is the single slot holding the latest snapshot
type Cache interface {
	Load() (*Snapshot, bool)
	Store(snapshot *Snapshot)
}

// SnapshotStore persists the latest snapshot outside the process so a cold start
// can begin with the keys seen by a previous instance.
type SnapshotStore interface {
	Save(ctx context.Context, snapshot *Snapshot) error
	Load(ctx context.Context) (*Snapshot, error)
}

// persistedSnapshot is the document written by every store
type persistedSnapshot struct {
	FetchedAt time.Time   `json:"fetched_at"`
	JWKS      *types.JWKS `json:"jwks"`
}

func encodeSnapshot(snapshot *Snapshot) ([]byte, error) {
	if snapshot == nil {
		return nil, errors.New("nil snapshot")
	}
	return json.Marshal(persistedSnapshot{
		FetchedAt: snapshot.FetchedAt(),
		JWKS:      snapshot.JWKS(),
	})
}

// decodeSnapshot parses a persisted snapshot no larger than limit bytes
func decodeSnapshot(data []byte, limit int64) (*Snapshot, error) {
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("persisted snapshot of %d bytes exceeds %d bytes", len(data), limit)
	}

	var item persistedSnapshot
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to decode persisted snapshot: %w", err)
	}
	if item.JWKS == nil {
		return nil, errors.New("persisted snapshot has no key set")
	}

	return NewSnapshotAt(item.JWKS.Keys, item.FetchedAt), nil
}

// NewStore builds the snapshot store selected by the configuration.
// The memory backend has no store and returns nil.
func NewStore(cfg *config.Config, clients *awsclients.Clients) (SnapshotStore, error) {
	if cfg == nil || cfg.Cache == nil {
		return nil, nil
	}

	switch cfg.Cache.Type {
	case "", config.CacheMemory:
		return nil, nil

	case config.CacheS3:
		if cfg.Cache.S3Bucket == "" {
			return nil, errors.New("S3 bucket name is required for S3 cache")
		}
		if clients == nil {
			return nil, errors.New("AWS clients are required for S3 cache")
		}
		return NewS3Store(clients.S3(), cfg.Cache.S3Bucket, cfg.Cache.S3Prefix, cfg.UserPoolID), nil

	case config.CacheDynamoDB:
		if cfg.Cache.DynamoDBTable == "" {
			return nil, errors.New("DynamoDB table name is required for DynamoDB cache")
		}
		if clients == nil {
			return nil, errors.New("AWS clients are required for DynamoDB cache")
		}
		return NewDynamoDBStore(clients.DynamoDB(), cfg.Cache.DynamoDBTable, cfg.Provider().JWKSURL()), nil

	case config.CacheRedis:
		if cfg.Cache.RedisAddr == "" {
			return nil, errors.New("redis address is required for Redis cache")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
		})
		return NewRedisStore(client, fmt.Sprintf("%s:%s", cfg.Cache.RedisKey, cfg.UserPoolID)), nil

	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Cache.Type)
	}
}

// NewCache creates the slot cache for the configuration, with its persistence store attached
func NewCache(cfg *config.Config, clients *awsclients.Clients) (*SlotCache, error) {
	store, err := NewStore(cfg, clients)
	if err != nil {
		return nil, err
	}

	if store == nil {
		return NewSlotCache(), nil
	}
	return NewSlotCache(WithStore(store)), nil
}

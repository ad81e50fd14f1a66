package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"zapflow/app/config"
	"zapflow/app/service/flow"

	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
)

// ErrNotFound is returned by Get when no record exists for the key.
var ErrNotFound = errors.New("session record not found")

// DefaultTTL is how long a saved conversation survives without activity.
const DefaultTTL = 24 * time.Hour

// Store is the durability contract the orchestrator relies on. The record
// is the full serialized conversation state; the store is the cross-request
// lifetime holder.
type Store interface {
	Get(ctx context.Context, key string) (*flow.Record, error)
	Set(ctx context.Context, key string, record *flow.Record, ttl time.Duration) error
	Update(ctx context.Context, key string, record *flow.Record) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Key builds the conversation key for a sender on a given instance.
func Key(senderID, instance string) string {
	return fmt.Sprintf("conversation:%s:%s", senderID, instance)
}

type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

func New(di *do.Injector) (*RedisStore, error) {
	cfg := do.MustInvoke[*config.Config](di)

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Pass,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewFromClient wraps an existing client, used with miniredis in tests.
func NewFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*flow.Record, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %q: %w", key, err)
	}

	var record flow.Record
	if err = json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record %q: %w", key, err)
	}

	return &record, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, record *flow.Record, ttl time.Duration) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	if err = s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %q: %w", key, err)
	}

	return nil
}

// Update overwrites an existing record preserving its remaining TTL.
// Returns false if the key does not exist.
func (s *RedisStore) Update(ctx context.Context, key string, record *flow.Record) (bool, error) {
	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read ttl of %q: %w", key, err)
	}

	// go-redis reports -2 for a missing key and -1 for a key without expiry
	if ttl == -2 {
		return false, nil
	}

	data, err := json.Marshal(record)
	if err != nil {
		return false, fmt.Errorf("failed to marshal record: %w", err)
	}

	if ttl > 0 {
		err = s.client.Set(ctx, key, data, ttl).Err()
	} else {
		err = s.client.Set(ctx, key, data, 0).Err()
	}
	if err != nil {
		return false, fmt.Errorf("failed to update %q: %w", key, err)
	}

	return true, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}

	return nil
}

func (s *RedisStore) Shutdown() error {
	return s.client.Close()
}

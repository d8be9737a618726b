package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces checkpoint keys in a shared Redis
const KeyPrefix = "igfollowers:checkpoint:"

// ErrInvalidCheckpoint indicates the stored value could not be decoded
var ErrInvalidCheckpoint = errors.New("invalid checkpoint")

// RedisStore keeps checkpoints in Redis with an expiry, so runs that never
// finish do not leave state behind forever.
type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisStore wraps client. A ttl <= 0 stores keys without expiry.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{redis: client, ttl: ttl}
}

// Key returns the Redis key for userID
func Key(userID string) string {
	return KeyPrefix + userID
}

// Load returns (nil, nil) on a missing key
func (s *RedisStore) Load(ctx context.Context, userID string) (*Checkpoint, error) {
	data, err := s.redis.Get(ctx, Key(userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCheckpoint, err)
	}
	return &cp, nil
}

// Save stores cp and refreshes its expiry
func (s *RedisStore) Save(ctx context.Context, cp *Checkpoint) error {
	if cp == nil || cp.UserID == "" {
		return fmt.Errorf("checkpoint needs a user id")
	}
	touch(cp)

	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	if err := s.redis.Set(ctx, Key(cp.UserID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes the key
func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	if err := s.redis.Del(ctx, Key(userID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Exists reports whether a checkpoint is stored for userID
func (s *RedisStore) Exists(ctx context.Context, userID string) (bool, error) {
	n, err := s.redis.Exists(ctx, Key(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// TTL returns the remaining lifetime of a stored checkpoint
func (s *RedisStore) TTL(ctx context.Context, userID string) (time.Duration, error) {
	return s.redis.TTL(ctx, Key(userID)).Result()
}

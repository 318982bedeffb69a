// internal/identity/redis.go
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// identityTTL bounds how long a stored identity survives between visits,
// approximating a browsing-session lifetime for a shared store.
const identityTTL = 24 * time.Hour

const keyPrefix = "pokerlite:identity:"

// RedisStore keeps identity records in Redis, for deployments where the
// controller runs behind a gateway and sessions outlive a single process.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an already connected Redis client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Get(ctx context.Context, tableID string) (*Record, error) {
	data, err := s.rdb.Get(ctx, keyPrefix+tableID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read identity record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode identity record: %w", err)
	}
	return &rec, nil
}

func (s *RedisStore) Put(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode identity record: %w", err)
	}
	if err := s.rdb.Set(ctx, keyPrefix+rec.TableID, data, identityTTL).Err(); err != nil {
		return fmt.Errorf("failed to write identity record: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, tableID string) error {
	if err := s.rdb.Del(ctx, keyPrefix+tableID).Err(); err != nil {
		return fmt.Errorf("failed to delete identity record: %w", err)
	}
	return nil
}

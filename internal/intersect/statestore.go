package intersect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const stateKeyPrefix = "oauth_state:"

// StateStore keeps in-flight OAuth states. Consume must be atomic: two
// callbacks racing on the same state may redeem it at most once.
type StateStore interface {
	Put(ctx context.Context, state string, data OAuthState, ttl time.Duration) error
	Consume(ctx context.Context, state string) (*OAuthState, error)
}

type RedisStateStore struct {
	rdb *redis.Client
}

func NewRedisStateStore(rdb *redis.Client) *RedisStateStore {
	return &RedisStateStore{rdb: rdb}
}

func (s *RedisStateStore) Put(ctx context.Context, state string, data OAuthState, ttl time.Duration) error {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal oauth state: %w", err)
	}
	if err := s.rdb.Set(ctx, stateKeyPrefix+state, b, ttl).Err(); err != nil {
		return fmt.Errorf("store oauth state: %w", err)
	}
	return nil
}

// Consume deletes and returns the state in one round trip (GETDEL), so a
// duplicate concurrent callback sees ErrNotFound instead of redeeming the
// state twice.
func (s *RedisStateStore) Consume(ctx context.Context, state string) (*OAuthState, error) {
	b, err := s.rdb.GetDel(ctx, stateKeyPrefix+state).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("consume oauth state: %w", err)
	}
	var data OAuthState
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("decode oauth state: %w", err)
	}
	return &data, nil
}

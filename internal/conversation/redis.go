package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	stateKeyPrefix    = "conv:state:"
	inFlightKeyPrefix = "conv:inflight:"
	// background runs should never hold the in-flight mark forever, even
	// if the process dies mid-run
	inFlightTTL = 10 * time.Minute
)

// redisStore keeps conversation state in redis so multiple instances can
// share it. States are stored as JSON under conv:state:<context_id>.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore constructs a redis-backed Store. A zero ttl disables
// expiry.
func NewRedisStore(client *redis.Client, ttl time.Duration) Store {
	return &redisStore{client: client, ttl: ttl}
}

func (s *redisStore) Ensure(ctx context.Context, contextID string) (*State, error) {
	if contextID == "" {
		return nil, fmt.Errorf("context id is required")
	}
	st, err := s.Get(ctx, contextID)
	if err != nil {
		return nil, err
	}
	if st != nil {
		// refresh the TTL on access
		if s.ttl > 0 {
			if err := s.client.Expire(ctx, stateKeyPrefix+contextID, s.ttl).Err(); err != nil {
				return nil, fmt.Errorf("refreshing conversation ttl: %w", err)
			}
		}
		return st, nil
	}
	st = NewState()
	if err := s.Save(ctx, contextID, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *redisStore) Get(ctx context.Context, contextID string) (*State, error) {
	raw, err := s.client.Get(ctx, stateKeyPrefix+contextID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading conversation %s: %w", contextID, err)
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decoding conversation %s: %w", contextID, err)
	}
	return &st, nil
}

func (s *redisStore) Save(ctx context.Context, contextID string, state *State) error {
	if contextID == "" {
		return fmt.Errorf("context id is required")
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding conversation %s: %w", contextID, err)
	}
	if err := s.client.Set(ctx, stateKeyPrefix+contextID, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("saving conversation %s: %w", contextID, err)
	}
	return nil
}

func (s *redisStore) TryBeginProcessing(ctx context.Context, contextID string) (bool, error) {
	ok, err := s.client.SetNX(ctx, inFlightKeyPrefix+contextID, "1", inFlightTTL).Result()
	if err != nil {
		return false, fmt.Errorf("acquiring processing lock for %s: %w", contextID, err)
	}
	return ok, nil
}

func (s *redisStore) EndProcessing(ctx context.Context, contextID string) error {
	if err := s.client.Del(ctx, inFlightKeyPrefix+contextID).Err(); err != nil {
		return fmt.Errorf("releasing processing lock for %s: %w", contextID, err)
	}
	return nil
}

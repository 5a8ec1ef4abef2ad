package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
)

const (
	decisionKeyPrefix = "stagegate:decision:"
	edgeKeyPrefix     = "stagegate:decision:edge:"
)

// RedisDecisionStore is a Redis-backed decision store. TTLs are enforced by
// Redis key expiry, so the freshness window survives process restarts and
// is shared across replicas.
type RedisDecisionStore struct {
	client *redis.Client
}

// NewRedisDecisionStore creates a Redis decision store from a connection URL.
func NewRedisDecisionStore(ctx context.Context, url string) (*RedisDecisionStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisDecisionStore{client: client}, nil
}

// NewRedisDecisionStoreWithClient wraps an existing client. Used in tests.
func NewRedisDecisionStoreWithClient(client *redis.Client) *RedisDecisionStore {
	return &RedisDecisionStore{client: client}
}

// Put stores a decision by ID with the given TTL.
func (s *RedisDecisionStore) Put(ctx context.Context, decision domain.GateDecision, ttl time.Duration) error {
	payload, err := json.Marshal(decision)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, decisionKeyPrefix+decision.ID.String(), payload, ttl).Err()
}

// Get returns the decision with the given ID, if still present.
func (s *RedisDecisionStore) Get(ctx context.Context, id uuid.UUID) (domain.GateDecision, bool, error) {
	payload, err := s.client.Get(ctx, decisionKeyPrefix+id.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.GateDecision{}, false, nil
	}
	if err != nil {
		return domain.GateDecision{}, false, err
	}

	var decision domain.GateDecision
	if err := json.Unmarshal(payload, &decision); err != nil {
		return domain.GateDecision{}, false, err
	}
	return decision, true, nil
}

// PutCached stores a decision keyed by its transition edge.
func (s *RedisDecisionStore) PutCached(ctx context.Context, decision domain.GateDecision, ttl time.Duration) error {
	payload, err := json.Marshal(decision)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, edgeKeyPrefix+edgeKey(decision.Request), payload, ttl).Err()
}

// GetCached returns the cached decision for the edge, if still present.
func (s *RedisDecisionStore) GetCached(ctx context.Context, request domain.TransitionRequest) (domain.GateDecision, bool, error) {
	payload, err := s.client.Get(ctx, edgeKeyPrefix+edgeKey(request)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.GateDecision{}, false, nil
	}
	if err != nil {
		return domain.GateDecision{}, false, err
	}

	var decision domain.GateDecision
	if err := json.Unmarshal(payload, &decision); err != nil {
		return domain.GateDecision{}, false, err
	}
	return decision, true, nil
}

// Delete removes a decision, ending its committable window early. The
// cached edge entry for the same decision is dropped too, so a later
// evaluation of the edge cannot serve the consumed decision.
func (s *RedisDecisionStore) Delete(ctx context.Context, id uuid.UUID) error {
	decision, found, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if found {
		cached, cachedFound, err := s.GetCached(ctx, decision.Request)
		if err != nil {
			return err
		}
		if cachedFound && cached.ID == id {
			if err := s.client.Del(ctx, edgeKeyPrefix+edgeKey(decision.Request)).Err(); err != nil {
				return err
			}
		}
	}
	return s.client.Del(ctx, decisionKeyPrefix+id.String()).Err()
}

// Ping verifies the Redis connection. Used by health checks.
func (s *RedisDecisionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *RedisDecisionStore) Close() error {
	return s.client.Close()
}

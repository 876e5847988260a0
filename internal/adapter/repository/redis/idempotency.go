package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/merchledger/internal/usecase"
)

// OperationObserver records Redis commands issued by the store.
type OperationObserver interface {
	ObserveRedisOperation(operation string, err error)
}

// IdempotencyStore implements usecase.IdempotencyStore using Redis.
type IdempotencyStore struct {
	client   redis.UniversalClient
	prefix   string
	observer OperationObserver
}

// Option configures an IdempotencyStore.
type Option func(*IdempotencyStore)

// WithObserver reports every Redis command outcome to o.
func WithObserver(o OperationObserver) Option {
	return func(s *IdempotencyStore) {
		s.observer = o
	}
}

// NewIdempotencyStore creates a new IdempotencyStore.
func NewIdempotencyStore(client redis.UniversalClient, opts ...Option) *IdempotencyStore {
	s := &IdempotencyStore{
		client: client,
		prefix: "merchledger:idempotency:",
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *IdempotencyStore) observe(operation string, err error) {
	if s.observer == nil {
		return
	}

	if errors.Is(err, redis.Nil) {
		err = nil
	}

	s.observer.ObserveRedisOperation(operation, err)
}

// CheckAndSet claims key with response, or with a pending marker when
// response is nil. When the key is already claimed it returns true and the
// stored value.
func (s *IdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	fullKey := s.prefix + key

	var value any = usecase.IdempotencyPending
	if response != nil {
		value = response
	}

	set, err := s.client.SetNX(ctx, fullKey, value, ttl).Result()
	s.observe("setnx", err)
	if err != nil {
		return false, nil, err
	}

	if set {
		return false, nil, nil
	}

	existing, err := s.client.Get(ctx, fullKey).Bytes()
	s.observe("get", err)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Expired between SETNX and GET; treat as still claimed.
			return true, []byte(usecase.IdempotencyPending), nil
		}

		return false, nil, err
	}

	return true, existing, nil
}

// Update updates an existing idempotency key with the final response.
func (s *IdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	err := s.client.Set(ctx, s.prefix+key, response, ttl).Err()
	s.observe("set", err)

	return err
}

// Delete releases a key so the request can be retried.
func (s *IdempotencyStore) Delete(ctx context.Context, key string) error {
	err := s.client.Del(ctx, s.prefix+key).Err()
	s.observe("del", err)

	return err
}

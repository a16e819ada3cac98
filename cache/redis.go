package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"giftshop-backend/cart"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "cart:"

// RedisCartStore keeps session carts in Redis so they survive restarts.
type RedisCartStore struct {
	client *redis.Client
	ttl    time.Duration
}

// Connect parses a redis:// URL and checks the server is reachable.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// NewRedisCartStore stores carts with the given TTL, refreshed on every save.
// A zero TTL keeps them forever.
func NewRedisCartStore(client *redis.Client, ttl time.Duration) *RedisCartStore {
	return &RedisCartStore{client: client, ttl: ttl}
}

func (s *RedisCartStore) Load(ctx context.Context, key string) (cart.State, bool, error) {
	data, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return cart.Empty(), false, nil
	}
	if err != nil {
		return cart.Empty(), false, fmt.Errorf("failed to load cart %s: %w", key, err)
	}

	var state cart.State
	if err := json.Unmarshal(data, &state); err != nil {
		return cart.Empty(), false, fmt.Errorf("failed to decode cart %s: %w", key, err)
	}
	return state, true, nil
}

func (s *RedisCartStore) Save(ctx context.Context, key string, state cart.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode cart %s: %w", key, err)
	}
	if err := s.client.Set(ctx, keyPrefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save cart %s: %w", key, err)
	}
	return nil
}

func (s *RedisCartStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete cart %s: %w", key, err)
	}
	return nil
}

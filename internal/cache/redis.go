package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unclebandit/collabhub-backend/internal/model"
)

// Connect initializes a Redis client from URL or host:port input.
func Connect(_ context.Context, redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, parseErr := redis.ParseURL(redisURL)
		if parseErr != nil {
			return nil, fmt.Errorf("parse redis url: %w", parseErr)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// ProfileCache stores full profiles as JSON under profile:<account_id>.
type ProfileCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProfileCache(client *redis.Client, ttl time.Duration) *ProfileCache {
	return &ProfileCache{client: client, ttl: ttl}
}

func profileKey(accountID string) string {
	return "profile:" + accountID
}

// Get returns nil, nil on a miss.
func (c *ProfileCache) Get(ctx context.Context, accountID string) (*model.Profile, error) {
	raw, err := c.client.Get(ctx, profileKey(accountID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var p model.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode cached profile: %w", err)
	}
	return &p, nil
}

func (c *ProfileCache) Set(ctx context.Context, p *model.Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return c.client.Set(ctx, profileKey(p.AccountID), raw, c.ttl).Err()
}

func (c *ProfileCache) Invalidate(ctx context.Context, accountID string) error {
	return c.client.Del(ctx, profileKey(accountID)).Err()
}

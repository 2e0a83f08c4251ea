package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const roleKeyPrefix = "clinic:role:"

// RoleCache stores resolved account roles by email with a TTL.
type RoleCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRoleCache(c *Client, ttl time.Duration) *RoleCache {
	return &RoleCache{client: c.client, ttl: ttl}
}

func roleKey(email string) string {
	return roleKeyPrefix + email
}

// Get reports a miss as ok=false with a nil error.
func (r *RoleCache) Get(ctx context.Context, email string) (string, bool, error) {
	role, err := r.client.Get(ctx, roleKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get from cache: %w", err)
	}
	return role, true, nil
}

func (r *RoleCache) Set(ctx context.Context, email, role string) error {
	if err := r.client.Set(ctx, roleKey(email), role, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in cache: %w", err)
	}
	return nil
}

func (r *RoleCache) Delete(ctx context.Context, email string) error {
	if err := r.client.Del(ctx, roleKey(email)).Err(); err != nil {
		return fmt.Errorf("failed to delete from cache: %w", err)
	}
	return nil
}

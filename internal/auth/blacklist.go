package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const blacklistPrefix = "obser:blacklist:"

// Blacklist tracks revoked tokens until their natural expiry. Entries must
// outlive the token; after that they may be dropped.
type Blacklist interface {
	Revoke(ctx context.Context, tokenString string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenString string) (bool, error)
}

// RedisBlacklist stores revocations as expiring keys.
type RedisBlacklist struct {
	client *redis.Client
}

var _ Blacklist = (*RedisBlacklist)(nil)

// NewRedisBlacklist wraps an existing client.
func NewRedisBlacklist(client *redis.Client) *RedisBlacklist {
	return &RedisBlacklist{client: client}
}

// Revoke marks the token revoked for ttl. Non-positive ttl means the token
// is already past expiry and there is nothing to record.
func (b *RedisBlacklist) Revoke(ctx context.Context, tokenString string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := b.client.Set(ctx, blacklistPrefix+tokenString, "1", ttl).Err(); err != nil {
		return fmt.Errorf("auth: revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether the token was revoked and has not yet aged out.
func (b *RedisBlacklist) IsRevoked(ctx context.Context, tokenString string) (bool, error) {
	n, err := b.client.Exists(ctx, blacklistPrefix+tokenString).Result()
	if err != nil {
		return false, fmt.Errorf("auth: blacklist lookup: %w", err)
	}
	return n > 0, nil
}

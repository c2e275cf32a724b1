// Package revocation tracks signed-out session tokens until they expire.
package revocation

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedTokenKeyPrefix = "storefront:revoked:jti:"

// RedisList is a Redis-backed revocation list shared by every instance.
type RedisList struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed revocation list.
func NewRedis(client *redis.Client) *RedisList {
	return &RedisList{client: client}
}

// Revoke marks jti as revoked for ttl. Keys expire with the token.
func (l *RedisList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	return l.client.Set(ctx, revokedTokenKeyPrefix+jti, "1", ttl).Err()
}

// IsRevoked reports whether jti is on the list.
func (l *RedisList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	_, err := l.client.Get(ctx, revokedTokenKeyPrefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

package slot

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	id "storefront/pkg/domain"
	"storefront/pkg/platform/sentinel"
)

// Redis stores each cart as a string key. A positive TTL is refreshed on
// every save, so idle carts eventually expire.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisOption configures a Redis provider.
type RedisOption func(*Redis)

// WithTTL sets the idle expiry for cart keys. Zero keeps carts forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		r.ttl = ttl
	}
}

// NewRedis constructs a Redis-backed slot provider.
func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Slot implements Provider.
func (r *Redis) Slot(cartID id.CartID) Slot {
	return &redisSlot{provider: r, key: Key(cartID)}
}

type redisSlot struct {
	provider *Redis
	key      string
}

func (s *redisSlot) Load(ctx context.Context) ([]byte, error) {
	data, err := s.provider.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *redisSlot) Save(ctx context.Context, data []byte) error {
	return s.provider.client.Set(ctx, s.key, data, s.provider.ttl).Err()
}

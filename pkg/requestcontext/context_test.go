package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	id "storefront/pkg/domain"
)

func TestDefaults(t *testing.T) {
	ctx := context.Background()

	assert.True(t, UserID(ctx).IsNil())
	assert.True(t, CartID(ctx).IsNil())
	assert.Empty(t, RequestID(ctx))
	assert.Empty(t, ClientIP(ctx))
	assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
}

func TestRoundTrip(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cartID := id.NewCartID()
	userID := id.NewUserID()

	ctx := WithTime(context.Background(), fixed)
	ctx = WithCartID(ctx, cartID)
	ctx = WithUserID(ctx, userID)
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithClientMetadata(ctx, "203.0.113.7", "curl/8.0")

	assert.Equal(t, fixed, Now(ctx))
	assert.Equal(t, cartID, CartID(ctx))
	assert.Equal(t, userID, UserID(ctx))
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, "203.0.113.7", ClientIP(ctx))
	assert.Equal(t, "curl/8.0", UserAgent(ctx))
}

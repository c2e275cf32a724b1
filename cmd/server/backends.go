package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"storefront/internal/cart/slot"
	catalogService "storefront/internal/catalog/service"
	catalogStore "storefront/internal/catalog/store"
	identityService "storefront/internal/identity/service"
	"storefront/internal/identity/store/revocation"
	"storefront/internal/identity/store/user"
	orderService "storefront/internal/order/service"
	orderStore "storefront/internal/order/store"
	"storefront/internal/platform/config"
	"storefront/internal/platform/postgres"
	"storefront/internal/platform/redis"
	httptransport "storefront/internal/transport/http"
)

// backends are the stores selected by configuration.
type backends struct {
	db    *sql.DB
	redis *redis.Client

	products    catalogService.ProductStore
	orders      orderService.OrderStore
	users       identityService.UserStore
	revocations identityService.RevocationList
	cartSlots   slot.Provider
}

// openBackends connects Postgres and Redis when configured and falls back to
// in-memory stores otherwise.
func openBackends(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backends, error) {
	b := &backends{}

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	if db != nil {
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		b.db = db
		b.products = catalogStore.NewPostgres(db)
		b.orders = orderStore.NewPostgres(db)
		b.users = user.NewPostgres(db)
		logger.Info("using postgres stores")
	} else {
		b.products = catalogStore.New()
		b.orders = orderStore.New()
		b.users = user.New()
		logger.Warn("DATABASE_URL not set, catalog, orders and users are in memory")
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		b.close()
		return nil, err
	}
	if rc != nil {
		b.redis = rc
		b.revocations = revocation.NewRedis(rc.Client)
	} else {
		b.revocations = revocation.NewInMemory()
	}

	switch cfg.Cart.Slot {
	case "redis":
		b.cartSlots = slot.NewRedis(rc.Client, slot.WithTTL(cfg.Cart.SlotTTL))
	case "file":
		files, err := slot.NewFile(cfg.Cart.SlotDir)
		if err != nil {
			b.close()
			return nil, fmt.Errorf("cart slot dir: %w", err)
		}
		b.cartSlots = files
	default:
		b.cartSlots = slot.NewMemory()
	}
	logger.Info("cart persistence selected", "slot", cfg.Cart.Slot)
	return b, nil
}

func (b *backends) health() map[string]httptransport.HealthCheck {
	checks := map[string]httptransport.HealthCheck{}
	if b.db != nil {
		checks["postgres"] = b.db.PingContext
	}
	if b.redis != nil {
		checks["redis"] = b.redis.Health
	}
	return checks
}

func (b *backends) close() {
	if b.db != nil {
		_ = b.db.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
}

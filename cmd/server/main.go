package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	cartAdapters "storefront/internal/cart/adapters"
	cartHandler "storefront/internal/cart/handler"
	cartMetrics "storefront/internal/cart/metrics"
	cartService "storefront/internal/cart/service"
	catalogHandler "storefront/internal/catalog/handler"
	catalogService "storefront/internal/catalog/service"
	checkoutAdapters "storefront/internal/checkout/adapters"
	checkoutHandler "storefront/internal/checkout/handler"
	checkoutMetrics "storefront/internal/checkout/metrics"
	checkoutService "storefront/internal/checkout/service"
	identityHandler "storefront/internal/identity/handler"
	identityModels "storefront/internal/identity/models"
	identityService "storefront/internal/identity/service"
	"storefront/internal/identity/token"
	orderHandler "storefront/internal/order/handler"
	orderService "storefront/internal/order/service"
	"storefront/internal/platform/config"
	"storefront/internal/platform/httpserver"
	"storefront/internal/platform/kafka"
	"storefront/internal/platform/logger"
	"storefront/internal/platform/metrics"
	"storefront/internal/receipt"
	httptransport "storefront/internal/transport/http"
)

const cleanupInterval = time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "storefront: %v\n", err)
		os.Exit(1)
	}
}

// run wires dependencies, serves HTTP and shuts down on SIGINT or SIGTERM.
// Business logic lives in the internal service packages.
func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(logger.Options{
		Service:   "storefront",
		Env:       cfg.Env,
		Level:     cfg.LogLevel,
		AddSource: !cfg.IsProduction(),
	})
	if cfg.IsProduction() && cfg.Auth.JWTSigningKey == config.DevSigningKey {
		return errors.New("JWT_SIGNING_KEY must be set in production")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	platformMetrics := metrics.New(reg)

	// Catalog
	catalog := catalogService.New(b.products, catalogService.WithLogger(log))

	// Identity
	allowlist := identityModels.NewAllowlist(cfg.Auth.AdminEmails...)
	accounts := identityService.NewAccounts(
		b.users,
		b.revocations,
		token.New(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.SessionTTL),
		identityService.WithLogger(log),
		identityService.WithMetrics(platformMetrics),
	)

	// Cart
	carts := cartService.NewRegistry(b.cartSlots, log, cartMetrics.New(reg),
		cartService.WithIdleTTL(cfg.Cart.IdleTTL),
	)

	// Orders and receipts
	pdf := receipt.NewPDF()
	renderers := receipt.NewRegistry(pdf, receipt.NewText())
	orders := orderService.New(b.orders, renderers, orderService.WithLogger(log))

	// Checkout
	events, flush, err := orderEvents(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer flush()
	coordinator := checkoutService.New(carts, b.orders, pdf, events,
		checkoutService.WithLogger(log),
		checkoutService.WithMetrics(checkoutMetrics.New(reg)),
		checkoutService.WithTimeouts(cfg.Checkout.SubmitTimeout, cfg.Checkout.RenderTimeout),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:        log,
		Metrics:       platformMetrics,
		Gatherer:      reg,
		Accounts:      accounts,
		Allowlist:     allowlist,
		SecureCookies: cfg.Server.SecureCookies,
		Health:        b.health(),
	}, httptransport.Handlers{
		Catalog:  catalogHandler.New(catalog, log),
		Cart:     cartHandler.New(carts, cartAdapters.NewCatalogAdapter(catalog), log),
		Identity: identityHandler.New(accounts, cfg.Server.SecureCookies, log),
		Orders:   orderHandler.New(orders, log),
		Checkout: checkoutHandler.New(coordinator, log),
	})
	srv := httpserver.New(cfg.Server.Addr, router,
		httpserver.WithHandlerBudget(cfg.Checkout.SubmitTimeout+cfg.Checkout.RenderTimeout),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		carts.StartEviction(gctx, cleanupInterval)
		return nil
	})
	g.Go(func() error {
		coordinator.StartCleanup(gctx, cleanupInterval)
		return nil
	})
	g.Go(func() error {
		log.Info("starting storefront", "addr", cfg.Server.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("bye")
	return nil
}

// orderEvents returns the Kafka publisher when brokers are configured and a
// logging publisher otherwise. flush drains and closes the producer.
func orderEvents(ctx context.Context, cfg config.Config, log *slog.Logger) (checkoutService.EventPublisher, func(), error) {
	client, err := kafka.NewProducer(ctx, cfg.Kafka)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		log.Warn("KAFKA_BROKERS not set, order events are only logged")
		return checkoutAdapters.NewLogPublisher(log), func() {}, nil
	}
	if err := kafka.EnsureTopic(ctx, client, cfg.Kafka.OrderTopic, 3, 1); err != nil {
		client.Close()
		return nil, nil, err
	}

	pub := checkoutAdapters.NewKafkaPublisher(client, cfg.Kafka.OrderTopic, log)
	flush := func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := pub.Flush(flushCtx); err != nil {
			log.Error("failed to flush order events", "error", err)
		}
		client.Close()
	}
	return pub, flush, nil
}

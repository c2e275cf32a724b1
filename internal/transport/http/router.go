// Package httptransport assembles the storefront HTTP surface from the
// per-module handlers.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	cartHandler "storefront/internal/cart/handler"
	catalogHandler "storefront/internal/catalog/handler"
	checkoutHandler "storefront/internal/checkout/handler"
	identityHandler "storefront/internal/identity/handler"
	identityMiddleware "storefront/internal/identity/middleware"
	identityModels "storefront/internal/identity/models"
	identityService "storefront/internal/identity/service"
	orderHandler "storefront/internal/order/handler"
	"storefront/internal/platform/metrics"
	"storefront/pkg/platform/httputil"
	"storefront/pkg/platform/middleware/device"
	"storefront/pkg/platform/middleware/metadata"
	request "storefront/pkg/platform/middleware/request"
	"storefront/pkg/platform/middleware/requesttime"
)

const healthTimeout = 2 * time.Second

// Handlers are the module handlers mounted by NewRouter.
type Handlers struct {
	Catalog  *catalogHandler.Handler
	Cart     *cartHandler.Handler
	Identity *identityHandler.Handler
	Orders   *orderHandler.Handler
	Checkout *checkoutHandler.Handler
}

// HealthCheck probes one backing service.
type HealthCheck func(ctx context.Context) error

// Deps are the cross-cutting pieces the router needs.
type Deps struct {
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
	Gatherer      prometheus.Gatherer
	Accounts      *identityService.Accounts
	Allowlist     identityModels.Allowlist
	SecureCookies bool
	Health        map[string]HealthCheck
}

// NewRouter wires every public endpoint.
//
// Catalog, cart, auth and checkout are open to everyone; checkout decides for
// itself what anonymous and unresolved identities get. Order history needs a
// signed-in user and the catalog editor needs an admin.
func NewRouter(d Deps, h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(request.RequestID)
	r.Use(request.AccessLog(d.Logger))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(d.Metrics.Instrument)

	r.Get("/healthz", healthHandler(d.Health, d.Logger))
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(device.CartCookie(d.SecureCookies))
		r.Use(identityMiddleware.Attach(d.Accounts, d.Allowlist, d.Logger))

		h.Catalog.Register(r)
		h.Cart.Register(r)
		h.Identity.Register(r)
		h.Checkout.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(identityMiddleware.RequireAuthenticated(d.Logger))
			h.Orders.Register(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(identityMiddleware.RequireAdmin(d.Logger))
			h.Catalog.RegisterAdmin(r)
		})
	})
	return r
}

func healthHandler(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		status := http.StatusOK
		report := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed",
					"dependency", name,
					"error", err,
					"request_id", request.GetRequestID(ctx),
				)
				report[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			report[name] = "up"
		}
		httputil.WriteJSON(w, status, map[string]any{"status": http.StatusText(status), "dependencies": report})
	}
}

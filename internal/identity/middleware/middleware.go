// Package middleware attaches the identity gate to requests and guards
// protected routes with it.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"storefront/internal/identity/models"
	"storefront/internal/identity/service"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/httputil"
	request "storefront/pkg/platform/middleware/request"
	"storefront/pkg/requestcontext"
)

// SessionCookie carries the session token for browser clients.
const SessionCookie = "storefront_session"

type contextKeyGate struct{}

// GateFrom returns the gate attached by Attach, or nil.
func GateFrom(ctx context.Context) *service.Gate {
	g, _ := ctx.Value(contextKeyGate{}).(*service.Gate)
	return g
}

// WithGate stores g on ctx.
func WithGate(ctx context.Context, g *service.Gate) context.Context {
	return context.WithValue(ctx, contextKeyGate{}, g)
}

// StateFrom returns the identity state on ctx. Requests without a gate are
// unresolved.
func StateFrom(ctx context.Context) models.State {
	if g := GateFrom(ctx); g != nil {
		return g.State()
	}
	return models.Unresolved()
}

// Token extracts the session token from the Authorization header, falling
// back to the session cookie.
func Token(r *http.Request) string {
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// Attach bootstraps a gate for every request. Authenticated requests also get
// the user ID on the request context. The gate watches the provider for the
// lifetime of the request, so a concurrent sign-out of the same session
// downgrades it.
func Attach(accounts *service.Accounts, allowlist models.Allowlist, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			gate := service.NewGate(accounts, allowlist, logger)
			state := gate.Bootstrap(ctx, Token(r))
			stop := gate.Watch(accounts)
			defer stop()

			ctx = WithGate(ctx, gate)
			if state.IsAuthenticated() {
				ctx = requestcontext.WithUserID(ctx, state.Identity.UserID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuthenticated rejects anonymous requests with 401 and unresolved
// ones with 503, since an unresolved identity is neither allowed nor denied.
func RequireAuthenticated(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allowAuthenticated(w, r, logger) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin additionally requires the identity to be on the allowlist.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allowAuthenticated(w, r, logger) {
				return
			}
			ctx := r.Context()
			if !GateFrom(ctx).IsAdmin() {
				logger.WarnContext(ctx, "admin access denied",
					"request_id", request.GetRequestID(ctx),
					"user_id", requestcontext.UserID(ctx).String(),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func allowAuthenticated(w http.ResponseWriter, r *http.Request, logger *slog.Logger) bool {
	ctx := r.Context()
	state := StateFrom(ctx)
	switch {
	case state.IsAuthenticated():
		return true
	case state.Status == models.StatusUnresolved:
		logger.WarnContext(ctx, "identity unresolved",
			"request_id", request.GetRequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeIdentityUnresolved, "identity could not be resolved, try again"))
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "sign in required"))
	}
	return false
}

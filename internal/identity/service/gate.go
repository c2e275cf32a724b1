package service

import (
	"context"
	"log/slog"
	"sync"

	"storefront/internal/identity/models"
	dErrors "storefront/pkg/domain-errors"
)

// Resolver maps a session token to an identity.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*models.Identity, error)
}

// EventSource delivers provider session events.
type EventSource interface {
	Subscribe(fn func(models.SessionEvent)) (unsubscribe func())
}

// Gate holds the tri-state identity signal for one session. It starts
// unresolved and never holds its lock while calling the resolver.
type Gate struct {
	resolver  Resolver
	allowlist models.Allowlist
	logger    *slog.Logger

	mu           sync.RWMutex
	state        models.State
	bootstrapped bool
}

// NewGate returns an unresolved gate.
func NewGate(resolver Resolver, allowlist models.Allowlist, logger *slog.Logger) *Gate {
	return &Gate{
		resolver:  resolver,
		allowlist: allowlist,
		logger:    logger,
		state:     models.Unresolved(),
	}
}

// Bootstrap resolves the session token once. A missing or rejected token
// yields anonymous. If the provider itself fails the gate stays unresolved.
// Later calls return the current state without resolving again.
func (g *Gate) Bootstrap(ctx context.Context, token string) models.State {
	g.mu.Lock()
	if g.bootstrapped {
		defer g.mu.Unlock()
		return g.state
	}
	g.bootstrapped = true
	g.mu.Unlock()

	next := models.Anonymous()
	if token != "" {
		identity, err := g.resolver.Resolve(ctx, token)
		switch {
		case err == nil:
			next = models.Authenticated(*identity)
		case dErrors.HasCode(err, dErrors.CodeUnauthorized):
			// rejected token: anonymous
		default:
			g.logger.WarnContext(ctx, "identity resolution failed",
				"error", err.Error(),
			)
			next = models.Unresolved()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	// An event applied while resolving is newer than the token.
	if g.state.Status == models.StatusUnresolved {
		g.state = next
	}
	return g.state
}

// Apply transitions on a sign-in or sign-out event.
func (g *Gate) Apply(evt models.SessionEvent) models.State {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch evt.Kind {
	case models.SignedIn:
		g.state = models.Authenticated(evt.Identity)
	case models.SignedOut:
		g.state = models.Anonymous()
	}
	return g.state
}

// Watch follows provider events for the session this gate holds: when that
// session is signed out elsewhere the gate becomes anonymous. Events for
// other sessions are ignored.
func (g *Gate) Watch(source EventSource) (stop func()) {
	return source.Subscribe(func(evt models.SessionEvent) {
		if evt.Kind != models.SignedOut || evt.Identity.SessionID == "" {
			return
		}
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.state.IsAuthenticated() && g.state.Identity.SessionID == evt.Identity.SessionID {
			g.state = models.Anonymous()
		}
	})
}

// State returns the current signal.
func (g *Gate) State() models.State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// IsAdmin reports whether the current identity is on the admin allowlist.
func (g *Gate) IsAdmin() bool {
	s := g.State()
	return s.IsAuthenticated() && g.allowlist.Contains(s.Identity.Email)
}

package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"storefront/internal/identity/device"
	"storefront/internal/identity/models"
	"storefront/internal/identity/password"
	"storefront/internal/identity/token"
	"storefront/internal/platform/metrics"
	id "storefront/pkg/domain"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/sentinel"
	"storefront/pkg/requestcontext"
)

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// RevocationList records signed-out token IDs.
type RevocationList interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// TokenService issues and validates session tokens.
type TokenService interface {
	Issue(userID id.UserID, email string) (string, *token.Claims, error)
	Validate(tokenString string) (*token.Claims, error)
}

// Accounts is the identity provider: it registers users, opens and closes
// sessions and resolves tokens back to identities.
type Accounts struct {
	users       UserStore
	revocations RevocationList
	tokens      TokenService
	logger      *slog.Logger
	metrics     *metrics.Metrics
	now         func() time.Time

	mu          sync.RWMutex
	nextSub     int
	subscribers map[int]func(models.SessionEvent)
}

// Option configures Accounts.
type Option func(*Accounts)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Accounts) {
		a.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Accounts) {
		a.metrics = m
	}
}

// WithClock overrides the clock used for revocation TTLs and events.
func WithClock(now func() time.Time) Option {
	return func(a *Accounts) {
		a.now = now
	}
}

// NewAccounts constructs the identity provider.
func NewAccounts(users UserStore, revocations RevocationList, tokens TokenService, opts ...Option) *Accounts {
	a := &Accounts{
		users:       users,
		revocations: revocations,
		tokens:      tokens,
		logger:      slog.Default(),
		now:         time.Now,
		subscribers: make(map[int]func(models.SessionEvent)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SignUp registers a new account and signs it in.
func (a *Accounts) SignUp(ctx context.Context, email, pw string) (*models.Session, error) {
	req := models.CredentialsRequest{Email: email, Password: pw}
	req.Normalize()
	if err := req.ValidateSignUp(); err != nil {
		return nil, err
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidation) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	u, err := models.NewUser(id.NewUserID(), req.Email, hash, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid account")
	}
	if err := a.users.Create(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "email is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create account")
	}
	a.metrics.IncrementUsersCreated()
	a.logger.InfoContext(ctx, "user signed up",
		"user_id", u.ID.String(),
	)

	return a.startSession(ctx, u)
}

// SignIn verifies credentials and opens a session.
func (a *Accounts) SignIn(ctx context.Context, email, pw string) (*models.Session, error) {
	req := models.CredentialsRequest{Email: email, Password: pw}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	u, err := a.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	if err := password.Verify(req.Password, u.PasswordHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			a.logger.InfoContext(ctx, "sign in rejected",
				"user_id", u.ID.String(),
			)
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify password")
	}
	return a.startSession(ctx, u)
}

func (a *Accounts) startSession(ctx context.Context, u *models.User) (*models.Session, error) {
	signed, claims, err := a.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue session")
	}
	session := &models.Session{
		Token:     signed,
		ExpiresAt: claims.ExpiresAt.Time,
		Identity:  models.Identity{UserID: u.ID, Email: u.Email, SessionID: claims.ID},
		Device:    device.ParseUserAgent(requestcontext.UserAgent(ctx)),
	}
	a.logger.InfoContext(ctx, "session started",
		"user_id", u.ID.String(),
		"device", session.Device,
		"client_ip", requestcontext.ClientIP(ctx),
	)
	a.publish(models.SessionEvent{Kind: models.SignedIn, Identity: session.Identity, At: a.now()})
	return session, nil
}

// SignOut revokes the token until it would have expired anyway.
func (a *Accounts) SignOut(ctx context.Context, tokenString string) error {
	claims, err := a.tokens.Validate(tokenString)
	if err != nil {
		return err
	}
	if ttl := claims.Remaining(a.now()); ttl > 0 {
		if err := a.revocations.Revoke(ctx, claims.ID, ttl); err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to end session")
		}
	}
	identity := models.Identity{UserID: claims.TypedUserID(), Email: claims.Email, SessionID: claims.ID}
	a.logger.InfoContext(ctx, "session ended",
		"user_id", identity.UserID.String(),
	)
	a.publish(models.SessionEvent{Kind: models.SignedOut, Identity: identity, At: a.now()})
	return nil
}

// Resolve maps a token to its identity. Invalid, expired and revoked tokens
// are unauthorized; failures of the backing stores are unavailable, which
// callers must treat as unresolved rather than anonymous.
func (a *Accounts) Resolve(ctx context.Context, tokenString string) (*models.Identity, error) {
	claims, err := a.tokens.Validate(tokenString)
	if err != nil {
		return nil, err
	}

	revoked, err := a.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "session store unavailable")
	}
	if revoked {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "session has been revoked")
	}

	u, err := a.users.FindByID(ctx, claims.TypedUserID())
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "account no longer exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "account store unavailable")
	}
	return &models.Identity{UserID: u.ID, Email: u.Email, SessionID: claims.ID}, nil
}

// Subscribe registers fn for session events. Events are delivered on their
// own goroutine, so fn must be safe for concurrent use.
func (a *Accounts) Subscribe(fn func(models.SessionEvent)) (unsubscribe func()) {
	a.mu.Lock()
	key := a.nextSub
	a.nextSub++
	a.subscribers[key] = fn
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.subscribers, key)
			a.mu.Unlock()
		})
	}
}

func (a *Accounts) publish(evt models.SessionEvent) {
	a.mu.RLock()
	fns := make([]func(models.SessionEvent), 0, len(a.subscribers))
	for _, fn := range a.subscribers {
		fns = append(fns, fn)
	}
	a.mu.RUnlock()

	for _, fn := range fns {
		go fn(evt)
	}
}

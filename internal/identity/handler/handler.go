package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"storefront/internal/identity/middleware"
	"storefront/internal/identity/models"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/httputil"
	request "storefront/pkg/platform/middleware/request"
	"storefront/pkg/requestcontext"
)

// Service defines the identity provider operations used over HTTP.
type Service interface {
	SignUp(ctx context.Context, email, password string) (*models.Session, error)
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	SignOut(ctx context.Context, token string) error
}

// Handler serves sign-up, sign-in, sign-out and the session probe.
type Handler struct {
	logger        *slog.Logger
	service       Service
	secureCookies bool
}

// New creates a new identity Handler.
func New(service Service, secureCookies bool, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service, secureCookies: secureCookies}
}

// Register registers the auth routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.handleSignUp)
		r.Post("/signin", h.handleSignIn)
		r.Post("/signout", h.handleSignOut)
		r.Get("/session", h.handleSession)
	})
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	h.startSession(w, r, http.StatusCreated, h.service.SignUp)
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	h.startSession(w, r, http.StatusOK, h.service.SignIn)
}

func (h *Handler) startSession(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	open func(ctx context.Context, email, password string) (*models.Session, error),
) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	var req models.CredentialsRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid credentials request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	session, err := open(ctx, req.Email, req.Password)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "failed to open session",
				"request_id", requestID,
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	state := models.Authenticated(session.Identity)
	isAdmin := false
	if gate := middleware.GateFrom(ctx); gate != nil {
		state = gate.Apply(models.SessionEvent{Kind: models.SignedIn, Identity: session.Identity, At: requestcontext.Now(ctx)})
		isAdmin = gate.IsAdmin()
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	httputil.WriteJSON(w, status, models.SessionResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		Device:    session.Device,
		Session:   models.NewStateResponse(state, isAdmin),
	})
}

func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tok := middleware.Token(r)
	if tok == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "no active session"))
		return
	}
	if err := h.service.SignOut(ctx, tok); err != nil {
		h.logger.WarnContext(ctx, "sign out failed",
			"request_id", request.GetRequestID(ctx),
			"code", string(dErrors.CodeOf(err)),
		)
		httputil.WriteError(w, err)
		return
	}
	if gate := middleware.GateFrom(ctx); gate != nil {
		gate.Apply(models.SessionEvent{Kind: models.SignedOut, At: requestcontext.Now(ctx)})
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	gate := middleware.GateFrom(r.Context())
	if gate == nil {
		httputil.WriteJSON(w, http.StatusOK, models.NewStateResponse(models.Unresolved(), false))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewStateResponse(gate.State(), gate.IsAdmin()))
}

package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"storefront/internal/checkout/models"
	identityModels "storefront/internal/identity/models"
	"storefront/internal/identity/middleware"
	id "storefront/pkg/domain"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/httputil"
	request "storefront/pkg/platform/middleware/request"
	"storefront/pkg/requestcontext"
)

// Service defines the interface for checkout operations.
type Service interface {
	Checkout(ctx context.Context, cartID id.CartID, identity identityModels.State) (*models.Result, error)
	RetryReceipt(ctx context.Context, cartID id.CartID, identity identityModels.State) (*models.Result, error)
	Status(cartID id.CartID) models.Status
}

// Handler serves checkout for the device cart.
type Handler struct {
	logger  *slog.Logger
	service Service
}

// New creates a new checkout Handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register registers the checkout routes. They are not behind the
// authentication guard: the coordinator decides what an anonymous or
// unresolved identity gets.
func (h *Handler) Register(r chi.Router) {
	r.Route("/checkout", func(r chi.Router) {
		r.Get("/", h.handleStatus)
		r.Post("/", h.handleCheckout)
		r.Post("/receipt/retry", h.handleRetryReceipt)
	})
}

func (h *Handler) cartID(w http.ResponseWriter, r *http.Request) (id.CartID, bool) {
	ctx := r.Context()
	cartID := requestcontext.CartID(ctx)
	if cartID.IsNil() {
		h.logger.ErrorContext(ctx, "cart ID missing from context despite device middleware",
			"request_id", request.GetRequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "cart context error"))
		return id.CartID{}, false
	}
	return cartID, true
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.service.Status(cartID).ToResponse())
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	result, err := h.service.Checkout(ctx, cartID, middleware.StateFrom(ctx))
	if err != nil {
		h.logFailure(ctx, "checkout failed", cartID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, result.ToResponse())
}

func (h *Handler) handleRetryReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	result, err := h.service.RetryReceipt(ctx, cartID, middleware.StateFrom(ctx))
	if err != nil {
		h.logFailure(ctx, "receipt retry failed", cartID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result.ToResponse())
}

// logFailure keeps precondition rejections at info; the coordinator already
// logged write and render failures with their cause.
func (h *Handler) logFailure(ctx context.Context, msg string, cartID id.CartID, err error) {
	level := slog.LevelInfo
	switch dErrors.CodeOf(err) {
	case dErrors.CodeOrderPersistence, dErrors.CodeReceiptRender, dErrors.CodeInternal:
		level = slog.LevelWarn
	}
	h.logger.Log(ctx, level, msg,
		"request_id", request.GetRequestID(ctx),
		"cart_id", cartID.String(),
		"code", string(dErrors.CodeOf(err)),
	)
}

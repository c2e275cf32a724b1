package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"storefront/internal/cart/models"
	"storefront/internal/cart/service"
	id "storefront/pkg/domain"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/httputil"
	request "storefront/pkg/platform/middleware/request"
	"storefront/pkg/requestcontext"
)

// ProductLookup resolves the name and current price of a product.
type ProductLookup interface {
	CartProduct(ctx context.Context, productID id.ProductID) (models.Product, error)
}

// Carts returns the live cart for a device.
type Carts interface {
	Cart(ctx context.Context, cartID id.CartID) *service.Store
}

// Handler serves the device cart.
type Handler struct {
	logger   *slog.Logger
	carts    Carts
	products ProductLookup
}

// New creates a new cart Handler.
func New(carts Carts, products ProductLookup, logger *slog.Logger) *Handler {
	return &Handler{
		logger:   logger,
		carts:    carts,
		products: products,
	}
}

// Register registers the cart routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.handleGetCart)
		r.Delete("/", h.handleClear)
		r.Post("/items", h.handleAddItem)
		r.Put("/items/{productID}", h.handleSetQuantity)
		r.Delete("/items/{productID}", h.handleRemoveItem)
		r.Post("/items/{productID}/decrement", h.handleDecrement)
	})
}

func (h *Handler) cart(w http.ResponseWriter, r *http.Request) (*service.Store, bool) {
	ctx := r.Context()
	cartID := requestcontext.CartID(ctx)
	if cartID.IsNil() {
		h.logger.ErrorContext(ctx, "cart ID missing from context despite device middleware",
			"request_id", request.GetRequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "cart context error"))
		return nil, false
	}
	return h.carts.Cart(ctx, cartID), true
}

func (h *Handler) productIDParam(w http.ResponseWriter, r *http.Request) (id.ProductID, bool) {
	productID, err := id.ParseProductID(chi.URLParam(r, "productID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.ProductID{}, false
	}
	return productID, true
}

func (h *Handler) writeCart(w http.ResponseWriter, store *service.Store) {
	httputil.WriteJSON(w, http.StatusOK, models.NewCartResponse(store.ID(), store.Snapshot()))
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	store, ok := h.cart(w, r)
	if !ok {
		return
	}
	h.writeCart(w, store)
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	var req models.AddItemRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid add item request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	productID, err := req.Validate()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	store, ok := h.cart(w, r)
	if !ok {
		return
	}

	product, err := h.products.CartProduct(ctx, productID)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "failed to look up product for cart",
				"request_id", requestID,
				"product_id", productID.String(),
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	store.AddItem(ctx, product)
	h.writeCart(w, store)
}

func (h *Handler) handleSetQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, ok := h.productIDParam(w, r)
	if !ok {
		return
	}
	var req models.SetQuantityRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	raw, err := req.RawQuantity()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	store, ok := h.cart(w, r)
	if !ok {
		return
	}
	if err := store.SetQuantity(ctx, productID, raw); err != nil {
		h.logger.InfoContext(ctx, "rejected cart quantity",
			"request_id", request.GetRequestID(ctx),
			"product_id", productID.String(),
		)
		httputil.WriteError(w, err)
		return
	}
	h.writeCart(w, store)
}

func (h *Handler) handleDecrement(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.productIDParam(w, r)
	if !ok {
		return
	}
	store, ok := h.cart(w, r)
	if !ok {
		return
	}
	store.DecrementQuantity(r.Context(), productID)
	h.writeCart(w, store)
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.productIDParam(w, r)
	if !ok {
		return
	}
	store, ok := h.cart(w, r)
	if !ok {
		return
	}
	store.RemoveItem(r.Context(), productID)
	h.writeCart(w, store)
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	store, ok := h.cart(w, r)
	if !ok {
		return
	}
	store.Clear(r.Context())
	h.writeCart(w, store)
}

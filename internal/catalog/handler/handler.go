package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"storefront/internal/catalog/models"
	id "storefront/pkg/domain"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/httputil"
	request "storefront/pkg/platform/middleware/request"
)

// Service defines the interface for catalog operations.
type Service interface {
	ListProducts(ctx context.Context) ([]*models.Product, error)
	GetProduct(ctx context.Context, productID id.ProductID) (*models.Product, error)
	CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, productID id.ProductID, in models.ProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, productID id.ProductID) error
}

// Handler serves product listings and the admin catalog editor.
type Handler struct {
	logger  *slog.Logger
	service Service
}

// New creates a new catalog Handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register registers the public product routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/products", h.handleList)
	r.Get("/products/{productID}", h.handleGet)
}

// RegisterAdmin registers the catalog editing routes. Callers are expected
// to mount them behind the admin middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/products", h.handleList)
	r.Post("/admin/products", h.handleCreate)
	r.Put("/admin/products/{productID}", h.handleUpdate)
	r.Delete("/admin/products/{productID}", h.handleDelete)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	products, err := h.service.ListProducts(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list products",
			"request_id", request.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	resp := models.ProductListResponse{Products: make([]models.ProductResponse, 0, len(products))}
	for _, p := range products {
		resp.Products = append(resp.Products, p.ToResponse())
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	productID, err := id.ParseProductID(chi.URLParam(r, "productID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.service.GetProduct(r.Context(), productID)
	if err != nil {
		h.logFailure(r.Context(), "failed to get product", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p.ToResponse())
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var in models.ProductInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.service.CreateProduct(ctx, in)
	if err != nil {
		h.logFailure(ctx, "failed to create product", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p.ToResponse())
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	productID, err := id.ParseProductID(chi.URLParam(r, "productID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var in models.ProductInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.service.UpdateProduct(ctx, productID, in)
	if err != nil {
		h.logFailure(ctx, "failed to update product", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p.ToResponse())
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	productID, err := id.ParseProductID(chi.URLParam(r, "productID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.DeleteProduct(ctx, productID); err != nil {
		h.logFailure(ctx, "failed to delete product", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// logFailure logs server-side failures only; client errors are expected.
func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg,
			"request_id", request.GetRequestID(ctx),
			"error", err.Error(),
		)
		return
	}
	h.logger.InfoContext(ctx, msg,
		"request_id", request.GetRequestID(ctx),
		"code", string(dErrors.CodeOf(err)),
	)
}

package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"storefront/internal/order/models"
	"storefront/internal/receipt"
	id "storefront/pkg/domain"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/httputil"
	request "storefront/pkg/platform/middleware/request"
	"storefront/pkg/requestcontext"
)

// Service defines the interface for account order operations.
type Service interface {
	History(ctx context.Context, owner id.UserID) ([]*models.Order, error)
	Receipt(ctx context.Context, owner id.UserID, orderID id.OrderID, format string) (*receipt.Document, error)
}

// Handler serves the account order pages.
type Handler struct {
	logger  *slog.Logger
	service Service
}

// New creates a new order Handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register registers the account routes. They expect an authenticated user
// on the request context.
func (h *Handler) Register(r chi.Router) {
	r.Get("/account/orders", h.handleHistory)
	r.Get("/account/orders/{orderID}/receipt", h.handleReceipt)
}

func (h *Handler) owner(w http.ResponseWriter, r *http.Request) (id.UserID, bool) {
	owner := requestcontext.UserID(r.Context())
	if owner.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "sign in required"))
		return id.UserID{}, false
	}
	return owner, true
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	orders, err := h.service.History(ctx, owner)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load order history",
			"request_id", request.GetRequestID(ctx),
			"user_id", owner.String(),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	resp := models.HistoryResponse{Orders: make([]models.OrderResponse, 0, len(orders))}
	for _, o := range orders {
		resp.Orders = append(resp.Orders, o.ToResponse())
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	orderID, err := id.ParseOrderID(chi.URLParam(r, "orderID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	doc, err := h.service.Receipt(ctx, owner, orderID, r.URL.Query().Get("format"))
	if err != nil {
		h.logger.WarnContext(ctx, "failed to render receipt",
			"request_id", request.GetRequestID(ctx),
			"order_id", orderID.String(),
			"code", string(dErrors.CodeOf(err)),
		)
		httputil.WriteError(w, err)
		return
	}
	WriteDocument(w, doc)
}

// WriteDocument serves doc as a download.
func WriteDocument(w http.ResponseWriter, doc *receipt.Document) {
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)
}

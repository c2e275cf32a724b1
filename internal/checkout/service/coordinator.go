package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	cartModels "storefront/internal/cart/models"
	cartService "storefront/internal/cart/service"
	"storefront/internal/checkout/metrics"
	"storefront/internal/checkout/models"
	identityModels "storefront/internal/identity/models"
	"storefront/internal/money"
	orderModels "storefront/internal/order/models"
	"storefront/internal/receipt"
	id "storefront/pkg/domain"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/requestcontext"
)

const (
	defaultSubmitTimeout  = 10 * time.Second
	defaultRenderTimeout  = 10 * time.Second
	defaultPublishTimeout = 2 * time.Second

	// SessionRetention is how long a completed or write-failed session stays
	// visible to Status before RemoveSettledAt drops it.
	SessionRetention = 15 * time.Minute
)

// Carts returns the live cart for a device.
type Carts interface {
	Cart(ctx context.Context, cartID id.CartID) *cartService.Store
}

// OrderWriter persists a new order and returns its assigned id.
type OrderWriter interface {
	Insert(ctx context.Context, o *orderModels.Order) (id.OrderID, error)
}

// Renderer produces the receipt document for a placed order.
type Renderer interface {
	Render(ctx context.Context, v receipt.View) (*receipt.Document, error)
}

// EventPublisher announces placed orders. Failures never affect checkout.
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, evt models.OrderPlaced) error
}

// session is the checkout of one cart. order and snapshot are kept while a
// receipt is still owed so the retry can render without writing again.
type session struct {
	status   models.Status
	order    *orderModels.Order
	snapshot cartModels.Snapshot
	// settledAt is set once nothing more can happen to the session:
	// Completed, or Failed without a placed order.
	settledAt time.Time
}

// Coordinator runs the checkout transaction for every cart.
//
// The session map is the only state guarded by mu. mu is never held across
// the order write, the render or cart persistence.
type Coordinator struct {
	mu       sync.Mutex
	sessions map[id.CartID]*session

	carts    Carts
	orders   OrderWriter
	renderer Renderer
	events   EventPublisher

	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        trace.Tracer
	submitTimeout  time.Duration
	renderTimeout  time.Duration
	publishTimeout time.Duration
}

// Option configures the Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithMetrics sets the checkout metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(c *Coordinator) {
		c.tracer = t
	}
}

// WithTimeouts bounds the order write and the receipt render. Zero keeps the
// default.
func WithTimeouts(submit, render time.Duration) Option {
	return func(c *Coordinator) {
		if submit > 0 {
			c.submitTimeout = submit
		}
		if render > 0 {
			c.renderTimeout = render
		}
	}
}

// WithPublishTimeout bounds the OrderPlaced publish. Zero keeps the default.
func WithPublishTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.publishTimeout = d
		}
	}
}

// New constructs a Coordinator. events may be nil.
func New(carts Carts, orders OrderWriter, renderer Renderer, events EventPublisher, opts ...Option) *Coordinator {
	c := &Coordinator{
		sessions:      make(map[id.CartID]*session),
		carts:         carts,
		orders:        orders,
		renderer:      renderer,
		events:        events,
		logger:        slog.Default(),
		tracer:        otel.Tracer("storefront/checkout"),
		submitTimeout:  defaultSubmitTimeout,
		renderTimeout:  defaultRenderTimeout,
		publishTimeout: defaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Checkout turns the cart into an order and renders its receipt.
//
// A checkout already submitting or rendering is not restarted. Rejections
// before the write leave the cart and the session untouched. A failed write
// keeps the cart. A failed render keeps the cart too, and the session then
// only accepts RetryReceipt, so the order is never written twice.
func (c *Coordinator) Checkout(ctx context.Context, cartID id.CartID, identity identityModels.State) (*models.Result, error) {
	store := c.carts.Cart(ctx, cartID)

	c.mu.Lock()
	sess := c.sessions[cartID]
	if sess != nil {
		if sess.status.State.IsBusy() {
			c.mu.Unlock()
			return nil, dErrors.New(dErrors.CodeCheckoutInProgress, "checkout already in progress")
		}
		if sess.status.AwaitingReceipt() {
			c.mu.Unlock()
			return nil, dErrors.New(dErrors.CodeCheckoutNotAllowed, "order already placed, retry the receipt instead")
		}
	}
	if err := checkIdentity(identity); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	snapshot := store.Snapshot()
	if snapshot.IsEmpty() {
		c.mu.Unlock()
		return nil, dErrors.New(dErrors.CodeCheckoutNotAllowed, "cart is empty")
	}
	order, err := orderModels.NewOrder(identity.Identity.UserID, orderLines(snapshot))
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	sess = &session{
		status:   models.Status{State: models.StateSubmitting},
		snapshot: snapshot,
	}
	c.sessions[cartID] = sess
	c.mu.Unlock()

	if err := c.submit(ctx, cartID, sess, order); err != nil {
		return nil, err
	}
	return c.render(ctx, cartID, store, sess)
}

// RetryReceipt renders the receipt of an order whose render failed. The
// order is not written again. Only the account that placed the order may
// retry; anyone else sees no pending receipt.
func (c *Coordinator) RetryReceipt(ctx context.Context, cartID id.CartID, identity identityModels.State) (*models.Result, error) {
	if err := checkIdentity(identity); err != nil {
		return nil, err
	}
	store := c.carts.Cart(ctx, cartID)

	c.mu.Lock()
	sess := c.sessions[cartID]
	if sess != nil && sess.status.State.IsBusy() {
		c.mu.Unlock()
		return nil, dErrors.New(dErrors.CodeCheckoutInProgress, "checkout already in progress")
	}
	if sess == nil || !sess.status.AwaitingReceipt() || sess.order.OwnerID != identity.Identity.UserID {
		c.mu.Unlock()
		return nil, dErrors.New(dErrors.CodeCheckoutNotAllowed, "no receipt is waiting to be generated")
	}
	sess.status = models.Status{State: models.StateRendering, OrderID: sess.status.OrderID}
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "retrying receipt",
		"cart_id", cartID.String(),
		"order_id", sess.order.ID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return c.render(ctx, cartID, store, sess)
}

// StartCleanup drops settled sessions every interval until ctx is cancelled.
func (c *Coordinator) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := c.RemoveSettledAt(time.Now()); n > 0 {
				c.logger.DebugContext(ctx, "dropped settled checkout sessions", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// RemoveSettledAt drops sessions settled more than SessionRetention before
// now and returns how many went. Sessions in flight or still owing a receipt
// are kept.
func (c *Coordinator) RemoveSettledAt(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for cartID, sess := range c.sessions {
		if sess.settledAt.IsZero() || now.Sub(sess.settledAt) <= SessionRetention {
			continue
		}
		delete(c.sessions, cartID)
		removed++
	}
	return removed
}

// Status reports the checkout session of a cart.
func (c *Coordinator) Status(cartID id.CartID) models.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sess, ok := c.sessions[cartID]; ok {
		return sess.status
	}
	return models.Idle()
}

func (c *Coordinator) submit(ctx context.Context, cartID id.CartID, sess *session, order *orderModels.Order) error {
	// The write is detached so a client disconnect cannot leave it half done.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.submitTimeout)
	defer cancel()
	writeCtx, span := c.tracer.Start(writeCtx, "checkout.submit", trace.WithAttributes(
		attribute.String("cart.id", cartID.String()),
		attribute.Int("order.lines", len(order.Lines)),
	))
	defer span.End()

	start := time.Now()
	orderID, err := c.orders.Insert(writeCtx, order)
	c.metrics.ObserveSubmit(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order write failed")
		c.fail(sess, dErrors.CodeOrderPersistence)
		c.logger.ErrorContext(ctx, "failed to place order",
			"cart_id", cartID.String(),
			"user_id", order.OwnerID.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return dErrors.Wrap(err, dErrors.CodeOrderPersistence, "failed to place order")
	}

	order.ID = orderID
	if order.CreatedAt.IsZero() {
		order.CreatedAt = requestcontext.Now(ctx)
	}
	span.SetAttributes(attribute.String("order.id", orderID.String()))

	c.mu.Lock()
	sess.order = order
	sess.status = models.Status{State: models.StateRendering, OrderID: orderID}
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "order placed",
		"cart_id", cartID.String(),
		"order_id", orderID.String(),
		"user_id", order.OwnerID.String(),
		"total", money.Format(order.Total),
		"request_id", requestcontext.RequestID(ctx),
	)
	c.publish(ctx, order)
	return nil
}

func (c *Coordinator) render(ctx context.Context, cartID id.CartID, store *cartService.Store, sess *session) (*models.Result, error) {
	order := sess.order

	renderCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.renderTimeout)
	defer cancel()
	renderCtx, span := c.tracer.Start(renderCtx, "checkout.render", trace.WithAttributes(
		attribute.String("cart.id", cartID.String()),
		attribute.String("order.id", order.ID.String()),
	))
	defer span.End()

	start := time.Now()
	doc, err := c.renderer.Render(renderCtx, receipt.FromOrder(order))
	c.metrics.ObserveRender(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "receipt render failed")
		c.fail(sess, dErrors.CodeReceiptRender)
		c.logger.ErrorContext(ctx, "failed to render receipt",
			"cart_id", cartID.String(),
			"order_id", order.ID.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, dErrors.Wrap(err, dErrors.CodeReceiptRender,
			fmt.Sprintf("order %s was placed but its receipt could not be generated", order.ID))
	}

	// Settling happens while the session is still Rendering so no second
	// checkout can observe the half-cleared cart.
	store.Settle(ctx, sess.snapshot)

	c.mu.Lock()
	sess.status = models.Status{State: models.StateCompleted, OrderID: order.ID}
	sess.order = nil
	sess.snapshot = cartModels.Snapshot{}
	sess.settledAt = time.Now()
	c.mu.Unlock()
	c.metrics.IncrementOutcome(string(models.StateCompleted), "")

	return &models.Result{
		OrderID: order.ID,
		Total:   order.Total,
		Receipt: doc,
	}, nil
}

func (c *Coordinator) fail(sess *session, code dErrors.Code) {
	c.mu.Lock()
	sess.status = models.Status{State: models.StateFailed, OrderID: sess.status.OrderID, ErrorCode: code}
	if sess.order == nil {
		sess.settledAt = time.Now()
	}
	c.mu.Unlock()
	c.metrics.IncrementOutcome(string(models.StateFailed), string(code))
}

func (c *Coordinator) publish(ctx context.Context, order *orderModels.Order) {
	if c.events == nil {
		return
	}
	evt := models.OrderPlaced{
		OrderID:   order.ID.String(),
		OwnerID:   order.OwnerID.String(),
		Total:     money.Format(order.Total),
		LineCount: len(order.Lines),
		PlacedAt:  order.CreatedAt,
	}
	// The session is still Rendering here, so a stuck broker must not hold it.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.publishTimeout)
	defer cancel()
	if err := c.events.PublishOrderPlaced(pubCtx, evt); err != nil {
		c.logger.WarnContext(ctx, "failed to publish order event",
			"order_id", evt.OrderID,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

// checkIdentity admits only a resolved, signed-in identity.
func checkIdentity(identity identityModels.State) error {
	if !identity.IsResolved() {
		return dErrors.New(dErrors.CodeIdentityUnresolved, "identity could not be resolved, try again")
	}
	if !identity.IsAuthenticated() {
		return dErrors.New(dErrors.CodeCheckoutNotAllowed, "sign in to check out")
	}
	return nil
}

func orderLines(snap cartModels.Snapshot) []orderModels.Line {
	lines := make([]orderModels.Line, 0, len(snap.Lines))
	for _, l := range snap.Lines {
		lines = append(lines, orderModels.Line{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
		})
	}
	return lines
}

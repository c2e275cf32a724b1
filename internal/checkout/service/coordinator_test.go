package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	cartModels "storefront/internal/cart/models"
	cartService "storefront/internal/cart/service"
	"storefront/internal/cart/slot"
	"storefront/internal/checkout/models"
	"storefront/internal/checkout/service/mocks"
	identityModels "storefront/internal/identity/models"
	"storefront/internal/money"
	orderModels "storefront/internal/order/models"
	"storefront/internal/receipt"
	id "storefront/pkg/domain"
	dErrors "storefront/pkg/domain-errors"
)

//go:generate mockgen -source=coordinator.go -destination=mocks/mocks.go -package=mocks OrderWriter,Renderer,EventPublisher
type CoordinatorSuite struct {
	suite.Suite
	ctx      context.Context
	slots    *slot.Memory
	carts    *cartService.Registry
	orders   *mocks.MockOrderWriter
	renderer *mocks.MockRenderer
	events   *mocks.MockEventPublisher
	coord    *Coordinator

	cartID   id.CartID
	store    *cartService.Store
	identity identityModels.State
	lamp     cartModels.Product
	mug      cartModels.Product
	order42  id.OrderID
	doc      *receipt.Document
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}

func (s *CoordinatorSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.ctx = context.Background()
	s.slots = slot.NewMemory()
	s.carts = cartService.NewRegistry(s.slots, logger, nil)
	s.orders = mocks.NewMockOrderWriter(ctrl)
	s.renderer = mocks.NewMockRenderer(ctrl)
	s.events = mocks.NewMockEventPublisher(ctrl)
	s.coord = New(s.carts, s.orders, s.renderer, s.events, WithLogger(logger))

	s.cartID = id.NewCartID()
	s.store = s.carts.Cart(s.ctx, s.cartID)
	s.identity = identityModels.Authenticated(identityModels.Identity{
		UserID: id.NewUserID(),
		Email:  "ada@example.com",
	})
	s.lamp = cartModels.Product{ID: id.NewProductID(), Name: "Lamp", Price: decimal.RequireFromString("10.00")}
	s.mug = cartModels.Product{ID: id.NewProductID(), Name: "Mug", Price: decimal.RequireFromString("5.50")}

	var err error
	s.order42, err = id.ParseOrderID("00000000-0000-0000-0000-000000000042")
	s.Require().NoError(err)
	s.doc = &receipt.Document{Filename: "receipt.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}
}

// fillCart stages two lamps and a mug: 25.50 in total.
func (s *CoordinatorSuite) fillCart() {
	s.store.AddItem(s.ctx, s.lamp)
	s.store.AddItem(s.ctx, s.lamp)
	s.store.AddItem(s.ctx, s.mug)
}

func (s *CoordinatorSuite) persistedLines() []cartModels.Line {
	return cartService.Load(s.ctx, s.cartID, s.slots.Slot(s.cartID)).Lines()
}

func (s *CoordinatorSuite) TestCheckoutCompletes() {
	s.fillCart()

	s.orders.EXPECT().Insert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, o *orderModels.Order) (id.OrderID, error) {
			s.Equal(s.identity.Identity.UserID, o.OwnerID)
			s.Equal("25.50", money.Format(o.Total))
			s.Len(o.Lines, 2)
			return s.order42, nil
		})
	s.events.EXPECT().PublishOrderPlaced(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, evt models.OrderPlaced) error {
			s.Equal(s.order42.String(), evt.OrderID)
			s.Equal("25.50", evt.Total)
			s.Equal(2, evt.LineCount)
			return nil
		})
	s.renderer.EXPECT().Render(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, v receipt.View) (*receipt.Document, error) {
			s.Equal(s.order42.String(), v.OrderID)
			s.Equal("25.50", v.Total)
			return s.doc, nil
		})

	result, err := s.coord.Checkout(s.ctx, s.cartID, s.identity)
	s.Require().NoError(err)
	s.Equal(s.order42, result.OrderID)
	s.Equal("25.50", money.Format(result.Total))
	s.Same(s.doc, result.Receipt)

	s.True(s.store.Snapshot().IsEmpty())
	s.Empty(s.persistedLines())
	s.Equal(models.Status{State: models.StateCompleted, OrderID: s.order42}, s.coord.Status(s.cartID))
}

func (s *CoordinatorSuite) TestRenderFailureKeepsCartAndRetryDoesNotWriteAgain() {
	s.fillCart()

	s.orders.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(s.order42, nil).Times(1)
	s.events.EXPECT().PublishOrderPlaced(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	gomock.InOrder(
		s.renderer.EXPECT().Render(gomock.Any(), gomock.Any()).Return(nil, errors.New("font missing")),
		s.renderer.EXPECT().Render(gomock.Any(), gomock.Any()).Return(s.doc, nil),
	)

	_, err := s.coord.Checkout(s.ctx, s.cartID, s.identity)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeReceiptRender))
	s.Contains(err.Error(), s.order42.String())

	status := s.coord.Status(s.cartID)
	s.Equal(models.StateFailed, status.State)
	s.Equal(dErrors.CodeReceiptRender, status.ErrorCode)
	s.Equal(s.order42, status.OrderID)
	s.Len(s.store.Lines(), 2)
	s.Equal("25.50", money.Format(s.store.Total()))
	s.Len(s.persistedLines(), 2)

	s.Run("a second checkout is refused", func() {
		_, err := s.coord.Checkout(s.ctx, s.cartID, s.identity)
		s.True(dErrors.HasCode(err, dErrors.CodeCheckoutNotAllowed))
		s.Len(s.store.Lines(), 2)
	})

	s.Run("retry by another account is refused", func() {
		other := identityModels.Authenticated(identityModels.Identity{UserID: id.NewUserID(), Email: "bob@example.com"})
		_, err := s.coord.RetryReceipt(s.ctx, s.cartID, other)
		s.True(dErrors.HasCode(err, dErrors.CodeCheckoutNotAllowed))
		s.Equal(models.StateFailed, s.coord.Status(s.cartID).State)
		s.Len(s.store.Lines(), 2)
	})

	s.Run("retry while signed out is refused", func() {
		_, err := s.coord.RetryReceipt(s.ctx, s.cartID, identityModels.Anonymous())
		s.True(dErrors.HasCode(err, dErrors.CodeCheckoutNotAllowed))

		_, err = s.coord.RetryReceipt(s.ctx, s.cartID, identityModels.Unresolved())
		s.True(dErrors.HasCode(err, dErrors.CodeIdentityUnresolved))
		s.Equal(models.StateFailed, s.coord.Status(s.cartID).State)
	})

	s.Run("retry renders the placed order", func() {
		result, err := s.coord.RetryReceipt(s.ctx, s.cartID, s.identity)
		s.Require().NoError(err)
		s.Equal(s.order42, result.OrderID)
		s.Same(s.doc, result.Receipt)
		s.True(s.store.Snapshot().IsEmpty())
		s.Equal(models.StateCompleted, s.coord.Status(s.cartID).State)
	})

	s.Run("retry after completion is refused", func() {
		_, err := s.coord.RetryReceipt(s.ctx, s.cartID, s.identity)
		s.True(dErrors.HasCode(err, dErrors.CodeCheckoutNotAllowed))
	})
}

func (s *CoordinatorSuite) TestPersistenceFailureKeepsCart() {
	s.fillCart()
	s.orders.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(id.OrderID{}, errors.New("connection refused"))

	_, err := s.coord.Checkout(s.ctx, s.cartID, s.identity)
	s.True(dErrors.HasCode(err, dErrors.CodeOrderPersistence))
	s.Len(s.store.Lines(), 2)
	s.Equal(models.Status{State: models.StateFailed, ErrorCode: dErrors.CodeOrderPersistence}, s.coord.Status(s.cartID))

	s.Run("checkout can be attempted again", func() {
		s.orders.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(s.order42, nil)
		s.events.EXPECT().PublishOrderPlaced(gomock.Any(), gomock.Any()).Return(nil)
		s.renderer.EXPECT().Render(gomock.Any(), gomock.Any()).Return(s.doc, nil)

		result, err := s.coord.Checkout(s.ctx, s.cartID, s.identity)
		s.Require().NoError(err)
		s.Equal(s.order42, result.OrderID)
	})
}

func (s *CoordinatorSuite) TestConcurrentCheckoutWritesOnce() {
	s.fillCart()

	entered := make(chan struct{})
	release := make(chan struct{})
	s.orders.EXPECT().Insert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, *orderModels.Order) (id.OrderID, error) {
			close(entered)
			<-release
			return s.order42, nil
		}).Times(1)
	s.events.EXPECT().PublishOrderPlaced(gomock.Any(), gomock.Any()).Return(nil)
	s.renderer.EXPECT().Render(gomock.Any(), gomock.Any()).Return(s.doc, nil)

	type outcome struct {
		result *models.Result
		err    error
	}
	first := make(chan outcome, 1)
	go func() {
		r, err := s.coord.Checkout(s.ctx, s.cartID, s.identity)
		first <- outcome{r, err}
	}()
	<-entered

	s.Equal(models.StateSubmitting, s.coord.Status(s.cartID).State)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.coord.Checkout(s.ctx, s.cartID, s.identity)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		s.True(dErrors.HasCode(err, dErrors.CodeCheckoutInProgress), "got %v", err)
	}

	_, err := s.coord.RetryReceipt(s.ctx, s.cartID, s.identity)
	s.True(dErrors.HasCode(err, dErrors.CodeCheckoutInProgress))

	close(release)
	out := <-first
	s.Require().NoError(out.err)
	s.Equal(s.order42, out.result.OrderID)
}

func (s *CoordinatorSuite) TestRejectionsPerformNoWrites() {
	s.Run("unresolved identity", func() {
		s.fillCart()
		_, err := s.coord.Checkout(s.ctx, s.cartID, identityModels.Unresolved())
		s.True(dErrors.HasCode(err, dErrors.CodeIdentityUnresolved))
	})

	s.Run("anonymous", func() {
		_, err := s.coord.Checkout(s.ctx, s.cartID, identityModels.Anonymous())
		s.True(dErrors.HasCode(err, dErrors.CodeCheckoutNotAllowed))
	})

	s.Run("empty cart", func() {
		s.store.Clear(s.ctx)
		_, err := s.coord.Checkout(s.ctx, s.cartID, s.identity)
		s.True(dErrors.HasCode(err, dErrors.CodeCheckoutNotAllowed))
	})

	s.Run("retry without a failed receipt", func() {
		_, err := s.coord.RetryReceipt(s.ctx, s.cartID, s.identity)
		s.True(dErrors.HasCode(err, dErrors.CodeCheckoutNotAllowed))
	})

	s.Equal(models.Idle(), s.coord.Status(s.cartID))
}

func (s *CoordinatorSuite) TestItemsAddedDuringRenderSurvive() {
	s.fillCart()
	s.orders.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(s.order42, nil)
	s.events.EXPECT().PublishOrderPlaced(gomock.Any(), gomock.Any()).Return(nil)
	s.renderer.EXPECT().Render(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, receipt.View) (*receipt.Document, error) {
			s.store.AddItem(s.ctx, s.mug)
			return s.doc, nil
		})

	_, err := s.coord.Checkout(s.ctx, s.cartID, s.identity)
	s.Require().NoError(err)

	lines := s.store.Lines()
	s.Require().Len(lines, 1)
	s.Equal(s.mug.ID, lines[0].ProductID)
	s.Equal(1, lines[0].Quantity)
}

func (s *CoordinatorSuite) TestPublishFailureDoesNotFailCheckout() {
	s.fillCart()
	s.orders.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(s.order42, nil)
	s.events.EXPECT().PublishOrderPlaced(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))
	s.renderer.EXPECT().Render(gomock.Any(), gomock.Any()).Return(s.doc, nil)

	_, err := s.coord.Checkout(s.ctx, s.cartID, s.identity)
	s.Require().NoError(err)
}

func (s *CoordinatorSuite) TestClientDisconnectDoesNotCancelWrite() {
	s.fillCart()
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	s.orders.EXPECT().Insert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ *orderModels.Order) (id.OrderID, error) {
			s.NoError(ctx.Err())
			return s.order42, nil
		})
	s.events.EXPECT().PublishOrderPlaced(gomock.Any(), gomock.Any()).Return(nil)
	s.renderer.EXPECT().Render(gomock.Any(), gomock.Any()).Return(s.doc, nil)

	_, err := s.coord.Checkout(ctx, s.cartID, s.identity)
	s.Require().NoError(err)
}

func (s *CoordinatorSuite) TestStuckPublisherDoesNotHoldTheSession() {
	s.coord = New(s.carts, s.orders, s.renderer, s.events,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithPublishTimeout(20*time.Millisecond))
	s.fillCart()

	s.orders.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(s.order42, nil)
	s.events.EXPECT().PublishOrderPlaced(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ models.OrderPlaced) error {
			<-ctx.Done()
			return ctx.Err()
		})
	s.renderer.EXPECT().Render(gomock.Any(), gomock.Any()).Return(s.doc, nil)

	result, err := s.coord.Checkout(s.ctx, s.cartID, s.identity)
	s.Require().NoError(err)
	s.Equal(s.order42, result.OrderID)
	s.Equal(models.StateCompleted, s.coord.Status(s.cartID).State)
}

func (s *CoordinatorSuite) TestRemoveSettledAt() {
	s.fillCart()
	s.orders.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(s.order42, nil)
	s.events.EXPECT().PublishOrderPlaced(gomock.Any(), gomock.Any()).Return(nil)
	s.renderer.EXPECT().Render(gomock.Any(), gomock.Any()).Return(nil, errors.New("font missing"))

	_, err := s.coord.Checkout(s.ctx, s.cartID, s.identity)
	s.Require().Error(err)

	completedCart := id.NewCartID()
	s.carts.Cart(s.ctx, completedCart).AddItem(s.ctx, s.mug)
	s.orders.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(id.NewOrderID(), nil)
	s.events.EXPECT().PublishOrderPlaced(gomock.Any(), gomock.Any()).Return(nil)
	s.renderer.EXPECT().Render(gomock.Any(), gomock.Any()).Return(s.doc, nil)
	_, err = s.coord.Checkout(s.ctx, completedCart, s.identity)
	s.Require().NoError(err)

	s.Run("recent sessions stay visible", func() {
		s.Zero(s.coord.RemoveSettledAt(time.Now()))
		s.Equal(models.StateCompleted, s.coord.Status(completedCart).State)
	})

	s.Run("old completed sessions go, receipts still owed stay", func() {
		s.Equal(1, s.coord.RemoveSettledAt(time.Now().Add(SessionRetention+time.Minute)))
		s.Equal(models.Idle(), s.coord.Status(completedCart))
		s.True(s.coord.Status(s.cartID).AwaitingReceipt())
	})
}

func TestNilPublisherIsAllowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	carts := cartService.NewRegistry(slot.NewMemory(), nil, nil)
	cartID := id.NewCartID()
	carts.Cart(ctx, cartID).AddItem(ctx, cartModels.Product{ID: id.NewProductID(), Name: "Pen", Price: decimal.RequireFromString("1.25")})

	orders := mocks.NewMockOrderWriter(ctrl)
	renderer := mocks.NewMockRenderer(ctrl)
	orders.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(id.NewOrderID(), nil)
	renderer.EXPECT().Render(gomock.Any(), gomock.Any()).Return(&receipt.Document{}, nil)

	coord := New(carts, orders, renderer, nil, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	identity := identityModels.Authenticated(identityModels.Identity{UserID: id.NewUserID()})
	if _, err := coord.Checkout(ctx, cartID, identity); err != nil {
		t.Fatalf("checkout: %v", err)
	}
}

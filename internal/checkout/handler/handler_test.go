package handler

import (
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"storefront/internal/checkout/handler/mocks"
	"storefront/internal/checkout/models"
	identityModels "storefront/internal/identity/models"
	"storefront/internal/identity/middleware"
	identityService "storefront/internal/identity/service"
	"storefront/internal/receipt"
	id "storefront/pkg/domain"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service
type CheckoutHandlerSuite struct {
	suite.Suite
	router   chi.Router
	service  *mocks.MockService
	cartID   id.CartID
	identity identityModels.Identity
	signedIn bool
}

func TestCheckoutHandlerSuite(t *testing.T) {
	suite.Run(t, new(CheckoutHandlerSuite))
}

func (s *CheckoutHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.cartID = id.NewCartID()
	s.identity = identityModels.Identity{UserID: id.NewUserID(), Email: "ada@example.com", SessionID: "jti"}
	s.signedIn = true

	s.router = chi.NewRouter()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gate := identityService.NewGate(nil, identityModels.NewAllowlist(), logger)
			gate.Bootstrap(r.Context(), "")
			if s.signedIn {
				gate.Apply(identityModels.SessionEvent{Kind: identityModels.SignedIn, Identity: s.identity, At: time.Now()})
			}
			next.ServeHTTP(w, r.WithContext(middleware.WithGate(r.Context(), gate)))
		})
	})
	New(s.service, logger).Register(s.router)
}

func (s *CheckoutHandlerSuite) post(path string) *http.Request {
	return testutil.WithCartID(testutil.NewJSONRequest(s.T(), http.MethodPost, path, nil), s.cartID)
}

func (s *CheckoutHandlerSuite) TestCheckout() {
	orderID := id.NewOrderID()

	s.Run("completed", func() {
		s.service.EXPECT().Checkout(gomock.Any(), s.cartID, identityModels.Authenticated(s.identity)).
			Return(&models.Result{
				OrderID: orderID,
				Total:   decimal.RequireFromString("25.5"),
				Receipt: &receipt.Document{Filename: "receipt.pdf", ContentType: "application/pdf", Data: []byte("%PDF")},
			}, nil)

		rr := testutil.DoRequest(s.router, s.post("/checkout"))
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)

		resp := testutil.UnmarshalResponse[models.ResultResponse](s.T(), rr)
		s.Equal(orderID.String(), resp.OrderID)
		s.Equal("25.50", resp.Total)
		s.Require().NotNil(resp.Receipt)
		data, err := base64.StdEncoding.DecodeString(resp.Receipt.Data)
		s.Require().NoError(err)
		s.Equal("%PDF", string(data))
	})

	s.Run("in progress", func() {
		s.service.EXPECT().Checkout(gomock.Any(), s.cartID, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeCheckoutInProgress, "checkout already in progress"))
		rr := testutil.DoRequest(s.router, s.post("/checkout"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "checkout_in_progress")
	})

	s.Run("receipt failure names the placed order", func() {
		s.service.EXPECT().Checkout(gomock.Any(), s.cartID, gomock.Any()).
			Return(nil, dErrors.Wrap(errors.New("font missing"), dErrors.CodeReceiptRender,
				"order "+orderID.String()+" was placed but its receipt could not be generated"))
		rr := testutil.DoRequest(s.router, s.post("/checkout"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadGateway, "receipt_render_error")
		s.Contains(rr.Body.String(), orderID.String())
		s.NotContains(rr.Body.String(), "font missing")
	})

	s.Run("missing cart context", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/checkout", nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, "internal_error")
	})
}

func (s *CheckoutHandlerSuite) TestAnonymousIsPassedThrough() {
	s.signedIn = false
	s.service.EXPECT().Checkout(gomock.Any(), s.cartID, identityModels.Anonymous()).
		Return(nil, dErrors.New(dErrors.CodeCheckoutNotAllowed, "sign in to check out"))

	rr := testutil.DoRequest(s.router, s.post("/checkout"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "checkout_not_allowed")
}

func (s *CheckoutHandlerSuite) TestRetryReceipt() {
	orderID := id.NewOrderID()

	s.Run("signed in", func() {
		s.service.EXPECT().RetryReceipt(gomock.Any(), s.cartID, identityModels.Authenticated(s.identity)).
			Return(&models.Result{OrderID: orderID, Total: decimal.RequireFromString("1")}, nil)

		rr := testutil.DoRequest(s.router, s.post("/checkout/receipt/retry"))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		s.Equal(orderID.String(), testutil.UnmarshalResponse[models.ResultResponse](s.T(), rr).OrderID)
	})

	s.Run("anonymous identity reaches the coordinator", func() {
		s.signedIn = false
		defer func() { s.signedIn = true }()
		s.service.EXPECT().RetryReceipt(gomock.Any(), s.cartID, identityModels.Anonymous()).
			Return(nil, dErrors.New(dErrors.CodeCheckoutNotAllowed, "sign in to check out"))

		rr := testutil.DoRequest(s.router, s.post("/checkout/receipt/retry"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "checkout_not_allowed")
	})
}

func (s *CheckoutHandlerSuite) TestStatus() {
	orderID := id.NewOrderID()
	s.service.EXPECT().Status(s.cartID).
		Return(models.Status{State: models.StateFailed, OrderID: orderID, ErrorCode: dErrors.CodeReceiptRender})

	req := testutil.WithCartID(testutil.NewJSONRequest(s.T(), http.MethodGet, "/checkout", nil), s.cartID)
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	s.JSONEq(`{"state":"failed","order_id":"`+orderID.String()+`","error_code":"receipt_render_error"}`, rr.Body.String())
}

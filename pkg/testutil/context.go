package testutil

import (
	"net/http"
	"time"

	id "storefront/pkg/domain"
	"storefront/pkg/requestcontext"
)

// WithCartID attaches a cart ID the way the device middleware would.
func WithCartID(req *http.Request, cartID id.CartID) *http.Request {
	return req.WithContext(requestcontext.WithCartID(req.Context(), cartID))
}

// WithRequestTime pins the request-scoped clock.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

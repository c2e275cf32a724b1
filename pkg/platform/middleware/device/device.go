// Package device binds each browser or API client to a device-local cart.
//
// The cart ID travels in the cart_id cookie, or in the X-Cart-ID header for
// clients that do not keep cookies. A missing or malformed value is replaced
// with a fresh ID and the cookie is (re)issued.
package device

import (
	"net/http"
	"time"

	id "storefront/pkg/domain"
	"storefront/pkg/requestcontext"
)

const (
	CookieName   = "cart_id"
	HeaderCartID = "X-Cart-ID"

	cookieMaxAge = 180 * 24 * time.Hour
)

// CartCookie resolves the cart ID for the request and stores it in the context.
func CartCookie(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cartID, ok := fromRequest(r)
			if !ok {
				cartID = id.NewCartID()
				http.SetCookie(w, &http.Cookie{
					Name:     CookieName,
					Value:    cartID.String(),
					Path:     "/",
					MaxAge:   int(cookieMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			w.Header().Set(HeaderCartID, cartID.String())
			ctx := requestcontext.WithCartID(r.Context(), cartID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func fromRequest(r *http.Request) (id.CartID, bool) {
	if raw := r.Header.Get(HeaderCartID); raw != "" {
		if cartID, err := id.ParseCartID(raw); err == nil {
			return cartID, true
		}
	}
	if c, err := r.Cookie(CookieName); err == nil {
		if cartID, err := id.ParseCartID(c.Value); err == nil {
			return cartID, true
		}
	}
	return id.CartID{}, false
}

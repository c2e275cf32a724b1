// Package httpserver builds the storefront http.Server.
package httpserver

import (
	"net/http"
	"time"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	idleTimeout       = 120 * time.Second

	// writeSlack covers request decoding and response encoding around the
	// handler's own work.
	writeSlack = 5 * time.Second
)

type Option func(*http.Server)

// WithHandlerBudget sizes the write timeout to the slowest handler. Checkout
// submits and renders inside one request, so main passes the sum of both
// checkout timeouts.
func WithHandlerBudget(d time.Duration) Option {
	return func(s *http.Server) {
		if d > 0 {
			s.WriteTimeout = d + writeSlack
		}
	}
}

// New returns a server for handler on addr.
func New(addr string, handler http.Handler, opts ...Option) *http.Server {
	s := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       idleTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

package api

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/buchregal/buchregal-server/internal/http/response"
	"github.com/buchregal/buchregal-server/internal/ratelimit"
)

// rateLimitMiddleware rejects clients that exceed the per-address
// budget. Keyed by remote address after RealIP has resolved proxies.
func rateLimitMiddleware(limiter *ratelimit.KeyedLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientKey(r)) {
				response.Error(w, http.StatusTooManyRequests, "Too many requests", logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey extracts the client address without the ephemeral port.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

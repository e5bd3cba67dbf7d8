package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/sanjiv-madhavan/go-natours/apperror"
)

// RateLimit caps requests per client IP within window. When the limiter is
// unreachable requests are let through.
func (m *Middleware) RateLimit(limit int64, window time.Duration) func(http.Handler) http.Handler {
	return func(inner http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			if m.limiter == nil {
				inner.ServeHTTP(w, r)
				return
			}
			count, ttl, err := m.limiter.Hit(r.Context(), clientIP(r), window)
			if err != nil {
				m.logger.Warn("Rate limiter unavailable", slog.Any("error", err))
				inner.ServeHTTP(w, r)
				return
			}
			remaining := limit - count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if count > limit {
				w.Header().Set("Retry-After", strconv.Itoa(int(ttl.Seconds())))
				m.SendError(w, r, apperror.New("Too many requests from this IP, please try again in an hour!", http.StatusTooManyRequests))
				return
			}
			inner.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

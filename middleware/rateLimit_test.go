package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingLimiter struct {
	hits map[string]int64
	err  error
}

func (l *countingLimiter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if l.err != nil {
		return 0, 0, l.err
	}
	l.hits[key]++
	return l.hits[key], window, nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimit(t *testing.T) {
	limiter := &countingLimiter{hits: map[string]int64{}}
	m := NewMiddleware(discardLogger(), nil, limiter, true)
	handler := m.RateLimit(2, time.Hour)(okHandler())

	call := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	rec := call("10.0.0.1:5000")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, call("10.0.0.1:5001").Code)

	rec = call("10.0.0.1:5002")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "3600", rec.Header().Get("Retry-After"))
	assert.Equal(t, "Too many requests from this IP, please try again in an hour!", decodeBody(t, rec)["message"])

	assert.Equal(t, http.StatusOK, call("10.0.0.2:5000").Code)
	assert.Equal(t, int64(3), limiter.hits["10.0.0.1"])
}

func TestRateLimitFailsOpen(t *testing.T) {
	m := NewMiddleware(discardLogger(), nil, &countingLimiter{err: errors.New("redis: connection refused")}, true)
	rec := httptest.NewRecorder()
	m.RateLimit(1, time.Hour)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))

	m = NewMiddleware(discardLogger(), nil, nil, true)
	rec = httptest.NewRecorder()
	m.RateLimit(1, time.Hour)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitKeysOnSocketAddress(t *testing.T) {
	limiter := &countingLimiter{hits: map[string]int64{}}
	handler := NewMiddleware(discardLogger(), nil, limiter, true).RateLimit(2, time.Hour)(okHandler())

	var codes []int
	for _, forwarded := range []string{"198.51.100.1", "198.51.100.2", "198.51.100.3"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil)
		req.RemoteAddr = "203.0.113.7:41000"
		req.Header.Set("X-Forwarded-For", forwarded)
		req.Header.Set("X-Real-IP", forwarded)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, map[string]int64{"203.0.113.7": 3}, limiter.hits)
}

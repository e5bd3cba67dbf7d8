package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sanjiv-madhavan/go-natours/apperror"
	"github.com/sanjiv-madhavan/go-natours/constants"
	"github.com/sanjiv-madhavan/go-natours/models"
	"github.com/sanjiv-madhavan/go-natours/utils"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, *utils.AuthClaims, error)
}

// Limiter counts hits for a key inside a fixed window.
type Limiter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// ErrorPages renders HTML error pages for non-API requests.
type ErrorPages interface {
	RenderError(w http.ResponseWriter, r *http.Request, statusCode int, message string)
}

type Middleware struct {
	logger     *slog.Logger
	auth       Authenticator
	limiter    Limiter
	pages      ErrorPages
	production bool
	metrics    *Metrics
}

func NewMiddleware(logger *slog.Logger, auth Authenticator, limiter Limiter, production bool) *Middleware {
	return &Middleware{
		logger:     logger,
		auth:       auth,
		limiter:    limiter,
		production: production,
		metrics:    NewMetrics(),
	}
}

// SetErrorPages plugs in the HTML renderer used for errors outside /api.
func (m *Middleware) SetErrorPages(pages ErrorPages) {
	m.pages = pages
}

func (m *Middleware) Metrics() *Metrics {
	return m.metrics
}

func (m *Middleware) SendJSONResponse(w http.ResponseWriter, statusCode int, v interface{}) {
	if v == nil {
		w.Header().Set("Strict-Transport-Security", "max-age=31353600, includeSubDomains")
		w.WriteHeader(statusCode)
		return
	}
	buf := &bytes.Buffer{}
	encoder := json.NewEncoder(buf)
	encoder.SetEscapeHTML(true)
	if err := encoder.Encode(v); err != nil {
		m.logger.Error("Failed to encode response to JSON", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Strict-Transport-Security", "max-age=31353600, includeSubDomains")
	w.Header().Set("Content-Security-Policy", "default-src 'self'")
	w.WriteHeader(statusCode)
	w.Write(buf.Bytes())
}

// SendError is the single place failures are turned into responses.
func (m *Middleware) SendError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperror.Translate(err)
	if !appErr.Operational {
		m.logger.Error("Unexpected error", slog.String("path", r.URL.Path), slog.String("request_id", RequestID(r)), slog.Any("error", err))
	} else {
		m.logger.Debug("Request failed", slog.String("path", r.URL.Path), slog.Int("status", appErr.StatusCode), slog.String("message", appErr.Message))
	}

	if m.pages != nil && !strings.HasPrefix(r.URL.Path, "/api") {
		message := appErr.Message
		if m.production && !appErr.Operational {
			message = "Please try again later."
		}
		m.pages.RenderError(w, r, appErr.StatusCode, message)
		return
	}

	if !m.production {
		body := map[string]interface{}{
			"status":  appErr.Status,
			"message": appErr.Message,
			"stack":   appErr.Stack,
		}
		if appErr.Err != nil {
			body["error"] = appErr.Err.Error()
		}
		m.SendJSONResponse(w, appErr.StatusCode, body)
		return
	}
	if appErr.Operational {
		m.SendJSONResponse(w, appErr.StatusCode, map[string]string{"status": appErr.Status, "message": appErr.Message})
		return
	}
	m.SendJSONResponse(w, http.StatusInternalServerError, map[string]string{
		"status":  apperror.StatusError,
		"message": "Something went very wrong!",
	})
}

func (m *Middleware) NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.SendError(w, r, apperror.NotFound("Can't find "+r.URL.RequestURI()+" on this server!"))
	})
}

func (m *Middleware) PanicRecoveryHandler(inner http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				m.logger.Error("Recovered from panic", slog.Any("panic", err), slog.String("path", r.URL.Path))
				m.SendError(w, r, apperror.New("Something went very wrong!", http.StatusInternalServerError))
			}
		}()
		inner.ServeHTTP(w, r)
	}
	return http.HandlerFunc(fn)
}

// RequestContext stamps every request with an id and its arrival time.
func (m *Middleware) RequestContext(inner http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), constants.RequestID, id)
		ctx = context.WithValue(ctx, constants.RequestTime, time.Now().UTC())
		inner.ServeHTTP(w, r.WithContext(ctx))
	}
	return http.HandlerFunc(fn)
}

func RequestID(r *http.Request) string {
	id, _ := r.Context().Value(constants.RequestID).(string)
	return id
}

func RequestTime(r *http.Request) time.Time {
	t, _ := r.Context().Value(constants.RequestTime).(time.Time)
	return t
}

package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sanjiv-madhavan/go-natours/apperror"
	"github.com/sanjiv-madhavan/go-natours/middleware"
	"github.com/sanjiv-madhavan/go-natours/services"
	"github.com/sanjiv-madhavan/go-natours/views"
)

const requestTimeout = 10 * time.Second

// Pinger is anything the health check can ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Dependencies struct {
	Tours   *services.TourService
	Reviews *services.ReviewService
	Users   *services.UserService
	Auth    *services.AuthService
	Views   *views.Renderer
	Checks  map[string]Pinger
}

type Settings struct {
	Production      bool
	CookieExpiresIn int
}

type Controller struct {
	logger     *slog.Logger
	middleware *middleware.Middleware
	tours      *services.TourService
	reviews    *services.ReviewService
	users      *services.UserService
	auth       *services.AuthService
	views      *views.Renderer
	checks     map[string]Pinger
	settings   Settings
}

func NewController(logger *slog.Logger, middleware *middleware.Middleware, deps Dependencies, settings Settings) *Controller {
	return &Controller{
		logger:     logger,
		middleware: middleware,
		tours:      deps.Tours,
		reviews:    deps.Reviews,
		users:      deps.Users,
		auth:       deps.Auth,
		views:      deps.Views,
		checks:     deps.Checks,
		settings:   settings,
	}
}

// Handle adapts an error-returning handler, bounding it with the request
// timeout and routing any error to the central error handler.
func (c *Controller) Handle(fn func(w http.ResponseWriter, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		r = r.WithContext(ctx)
		if err := fn(w, r); err != nil {
			c.middleware.SendError(w, r, err)
		}
	}
}

type envelope struct {
	Status  string         `json:"status"`
	Results *int           `json:"results,omitempty"`
	Token   string         `json:"token,omitempty"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

func (c *Controller) respond(w http.ResponseWriter, statusCode int, name string, v any) {
	c.middleware.SendJSONResponse(w, statusCode, envelope{
		Status: apperror.StatusSuccess,
		Data:   map[string]any{name: v},
	})
}

func (c *Controller) respondMessage(w http.ResponseWriter, message string) {
	c.middleware.SendJSONResponse(w, http.StatusOK, envelope{Status: apperror.StatusSuccess, Message: message})
}

// decodeJSON accepts an empty body as an empty object.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperror.BadRequest("Invalid request body")
	}
	return nil
}

// requestBaseURL rebuilds scheme and host as the client saw them.
func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.URL.Scheme == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

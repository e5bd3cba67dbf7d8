package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sanjiv-madhavan/go-natours/apperror"
)

// HealthCheckHandler pings every backing service and reports 503 when any
// of them is down.
func (c *Controller) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	results := make(map[string]string, len(c.checks))
	for name, check := range c.checks {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		err := check.Ping(ctx)
		cancel()
		if err != nil {
			c.logger.Warn("Health check failed", slog.String("dependency", name), slog.Any("error", err))
			results[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "up"
	}
	body := envelope{Status: apperror.StatusSuccess, Data: map[string]any{"checks": results}}
	if status != http.StatusOK {
		body.Status = apperror.StatusError
	}
	c.middleware.SendJSONResponse(w, status, body)
}

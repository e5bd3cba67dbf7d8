package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	server *http.Server
	logger *slog.Logger
}

func NewServer(handler http.Handler, port string, logger *slog.Logger) *Server {
	return &Server{
		server: &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// Start blocks serving requests until the server is stopped. A clean stop
// returns nil.
func (srv *Server) Start() error {
	srv.logger.Info(fmt.Sprintf("Attempting to start server on the port %s", srv.server.Addr))
	if err := srv.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		srv.logger.Error("Failed to start the server", slog.Any("error", err))
		return err
	}
	return nil
}

// Wait stops the server once ctx is done.
func (srv *Server) Wait(ctx context.Context) error {
	<-ctx.Done()
	return srv.Stop()
}

func (srv *Server) Stop() error {
	srv.logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.server.Shutdown(ctx); err != nil {
		srv.logger.Error("Failed to shut down the server", slog.Any("error", err))
		return err
	}
	srv.logger.Info("Server closed gracefully")
	return nil
}

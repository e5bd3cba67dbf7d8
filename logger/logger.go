package logger

import (
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
)

// NewLogger builds the application logger. Call sites log through slog; the
// records are encoded by zap (console output in development, JSON otherwise).
func NewLogger(development bool) (*slog.Logger, func(), error) {
	var (
		z   *zap.Logger
		err error
	)
	if development {
		z, err = zap.NewDevelopment()
	} else {
		z, err = zap.NewProduction()
	}
	if err != nil {
		return nil, nil, err
	}
	handler := zapslog.NewHandler(z.Core(), zapslog.WithCaller(true))
	sync := func() { _ = z.Sync() }
	return slog.New(handler), sync, nil
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sanjiv-madhavan/go-natours/cache"
	"github.com/sanjiv-madhavan/go-natours/controllers"
	"github.com/sanjiv-madhavan/go-natours/database"
	"github.com/sanjiv-madhavan/go-natours/email"
	"github.com/sanjiv-madhavan/go-natours/env"
	applog "github.com/sanjiv-madhavan/go-natours/logger"
	"github.com/sanjiv-madhavan/go-natours/middleware"
	"github.com/sanjiv-madhavan/go-natours/router"
	"github.com/sanjiv-madhavan/go-natours/server"
	"github.com/sanjiv-madhavan/go-natours/services"
	"github.com/sanjiv-madhavan/go-natours/storage"
	"github.com/sanjiv-madhavan/go-natours/utils"
	"github.com/sanjiv-madhavan/go-natours/views"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings, err := env.LoadEnvironment(ctx)
	if err != nil {
		return fmt.Errorf("loading environment: %w", err)
	}

	logger, syncLogger, err := applog.NewLogger(!settings.IsProduction())
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer syncLogger()

	db, err := database.NewMongoClient(ctx, logger, settings.MongoDBURL, settings.DatabaseName)
	if err != nil {
		logger.Error("Failed to connect to the database", slog.Any("error", err))
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Disconnect(ctx); err != nil {
			logger.Error("Failed to disconnect from the database", slog.Any("error", err))
		}
	}()
	if err := db.EnsureIndexes(ctx); err != nil {
		logger.Error("Failed to create indexes", slog.Any("error", err))
		return err
	}

	redisClient := cache.NewRedisClient(logger, settings.RedisAddr, settings.RedisPassword, settings.RedisDB)
	defer redisClient.Close()

	var mailer services.Mailer = email.NewLogMailer(logger)
	if settings.SendGridAPIKey != "" {
		mailer = email.NewSendGridMailer(logger, settings.SendGridAPIKey, settings.EmailFrom, settings.EmailFromName)
	}

	// Photos on local disk are served by the app itself; S3 photos are not.
	var photos services.PhotoStore
	var photoDir string
	if settings.AWSS3Bucket != "" {
		if photos, err = storage.NewS3Store(ctx, settings.AWSRegion, settings.AWSS3Bucket); err != nil {
			return fmt.Errorf("configuring photo bucket: %w", err)
		}
	} else {
		disk, err := storage.NewDiskStore(settings.PhotoDir)
		if err != nil {
			return fmt.Errorf("preparing photo directory: %w", err)
		}
		photos, photoDir = disk, disk.Dir()
	}

	renderer, err := views.NewRenderer(logger)
	if err != nil {
		return err
	}

	tourRepo := database.NewTourRepository(db, logger)
	userRepo := database.NewUserRepository(db, logger)
	reviewRepo := database.NewReviewRepository(db, logger)
	tokens := utils.NewTokenIssuer(settings.SECRET_KEY, settings.JWTExpiresIn)

	authService := services.NewAuthService(logger, userRepo, tokens, settings.JWTExpiresIn, redisClient, mailer)
	mw := middleware.NewMiddleware(logger, authService, redisClient, settings.IsProduction())
	mw.SetErrorPages(renderer)

	controller := controllers.NewController(logger, mw, controllers.Dependencies{
		Tours:   services.NewTourService(logger, tourRepo, userRepo, reviewRepo),
		Reviews: services.NewReviewService(logger, reviewRepo, tourRepo, userRepo),
		Users:   services.NewUserService(logger, userRepo, photos),
		Auth:    authService,
		Views:   renderer,
		Checks:  map[string]controllers.Pinger{"mongo": db, "redis": redisClient},
	}, controllers.Settings{
		Production:      settings.IsProduction(),
		CookieExpiresIn: settings.JWTCookieExpiresIn,
	})

	handler := router.CreateMuxRouter(controller, mw, router.Options{
		Development:     !settings.IsProduction(),
		PhotoDir:        photoDir,
		RateLimitMax:    settings.RateLimitMax,
		RateLimitWindow: settings.RateLimitWindow,
		TrustProxy:      settings.TrustProxy,
	})
	srv := server.NewServer(handler, settings.HTTPServerPort, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error { return srv.Wait(gctx) })
	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with an error", slog.Any("error", err))
		return err
	}
	return nil
}

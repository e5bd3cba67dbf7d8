package database

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DBClient owns the process-wide connection pool. It is opened once in main
// and handed to every repository.
type DBClient struct {
	logger      *slog.Logger
	mongoClient *mongo.Client
	database    *mongo.Database
}

func NewMongoClient(ctx context.Context, logger *slog.Logger, uri string, databaseName string) (*DBClient, error) {
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		logger.Error("Unable to connect to database", slog.Any("error", err))
		return nil, err
	}
	dbClient := &DBClient{
		logger:      logger,
		mongoClient: mongoClient,
		database:    mongoClient.Database(databaseName),
	}
	if err := dbClient.ping(ctx); err != nil {
		_ = mongoClient.Disconnect(context.Background())
		return nil, err
	}
	logger.Info("Connected to database", slog.String("database", databaseName))
	return dbClient, nil
}

func (db *DBClient) ping(ctx context.Context) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	return backoff.RetryNotify(func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return db.mongoClient.Ping(pingCtx, readpref.Primary())
	}, policy, func(err error, wait time.Duration) {
		db.logger.Warn("Database not reachable yet", slog.Any("error", err), slog.Duration("retry_in", wait))
	})
}

func (db *DBClient) Ping(ctx context.Context) error {
	return db.mongoClient.Ping(ctx, readpref.Primary())
}

func (db *DBClient) OpenCollection(collectionName string) *mongo.Collection {
	return db.database.Collection(collectionName)
}

func (db *DBClient) Disconnect(ctx context.Context) error {
	db.logger.Info("Closing database connection")
	return db.mongoClient.Disconnect(ctx)
}

package database

import (
	"context"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sanjiv-madhavan/go-natours/constants"
)

func collectionIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		constants.TourCollection: {
			{Keys: bson.D{{Key: "price", Value: 1}, {Key: "ratingsAverage", Value: -1}}},
			{Keys: bson.D{{Key: "slug", Value: 1}}},
			{Keys: bson.D{{Key: "startLocation", Value: "2dsphere"}}},
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		constants.UserCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		// A user may review the same tour more than once.
		constants.ReviewCollection: {
			{Keys: bson.D{{Key: "tour", Value: 1}, {Key: "user", Value: 1}}},
		},
	}
}

func (db *DBClient) EnsureIndexes(ctx context.Context) error {
	for name, models := range collectionIndexes() {
		created, err := db.OpenCollection(name).Indexes().CreateMany(ctx, models)
		if err != nil {
			db.logger.Error("Failed to create indexes", slog.String("collection", name), slog.Any("error", err))
			return err
		}
		db.logger.Debug("Indexes ready", slog.String("collection", name), slog.Any("indexes", created))
	}
	return nil
}

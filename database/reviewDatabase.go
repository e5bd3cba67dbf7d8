package database

import (
	"context"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sanjiv-madhavan/go-natours/constants"
	"github.com/sanjiv-madhavan/go-natours/models"
)

type ReviewRepository struct {
	store[models.Review]
}

func NewReviewRepository(db *DBClient, logger *slog.Logger) *ReviewRepository {
	return &ReviewRepository{store[models.Review]{logger: logger, collection: db.OpenCollection(constants.ReviewCollection)}}
}

func (r *ReviewRepository) Insert(ctx context.Context, review *models.Review) error {
	return r.insert(ctx, review)
}

func (r *ReviewRepository) Replace(ctx context.Context, review *models.Review) error {
	return r.replace(ctx, review.ID, review)
}

// RatingStats returns nil when the tour has no reviews.
func (r *ReviewRepository) RatingStats(ctx context.Context, tourID primitive.ObjectID) (*models.RatingStats, error) {
	var stats []models.RatingStats
	if err := r.aggregate(ctx, RatingStatsPipeline(tourID), &stats); err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return nil, nil
	}
	return &stats[0], nil
}

func RatingStatsPipeline(tourID primitive.ObjectID) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"tour": tourID}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$tour"},
			{Key: "nRating", Value: bson.M{"$sum": 1}},
			{Key: "avgRating", Value: bson.M{"$avg": "$rating"}},
		}}},
	}
}

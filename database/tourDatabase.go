package database

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sanjiv-madhavan/go-natours/constants"
	"github.com/sanjiv-madhavan/go-natours/models"
)

type TourRepository struct {
	store[models.Tour]
}

func NewTourRepository(db *DBClient, logger *slog.Logger) *TourRepository {
	return &TourRepository{store[models.Tour]{logger: logger, collection: db.OpenCollection(constants.TourCollection)}}
}

func (r *TourRepository) Insert(ctx context.Context, tour *models.Tour) error {
	return r.insert(ctx, tour)
}

func (r *TourRepository) Replace(ctx context.Context, tour *models.Tour) error {
	return r.replace(ctx, tour.ID, tour)
}

func (r *TourRepository) SetRatings(ctx context.Context, id primitive.ObjectID, quantity int, average float64) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"ratingsQuantity": quantity,
		"ratingsAverage":  average,
	}})
	return err
}

func (r *TourRepository) Stats(ctx context.Context, match bson.M) ([]models.TourStats, error) {
	stats := []models.TourStats{}
	if err := r.aggregate(ctx, StatsPipeline(match), &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *TourRepository) MonthlyPlan(ctx context.Context, year int, match bson.M) ([]models.MonthlyPlan, error) {
	plan := []models.MonthlyPlan{}
	if err := r.aggregate(ctx, MonthlyPlanPipeline(year, match), &plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (r *TourRepository) Distances(ctx context.Context, lng, lat, multiplier float64, match bson.M) ([]models.TourDistance, error) {
	distances := []models.TourDistance{}
	if err := r.aggregate(ctx, DistancesPipeline(lng, lat, multiplier, match), &distances); err != nil {
		return nil, err
	}
	return distances, nil
}

// StatsPipeline groups the matched tours by difficulty.
func StatsPipeline(match bson.M) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.M{"$toUpper": "$difficulty"}},
			{Key: "numTours", Value: bson.M{"$sum": 1}},
			{Key: "numRatings", Value: bson.M{"$sum": "$ratingsQuantity"}},
			{Key: "avgRating", Value: bson.M{"$avg": "$ratingsAverage"}},
			{Key: "avgPrice", Value: bson.M{"$avg": "$price"}},
			{Key: "minPrice", Value: bson.M{"$min": "$price"}},
			{Key: "maxPrice", Value: bson.M{"$max": "$price"}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "avgPrice", Value: 1}}}},
	}
}

// MonthlyPlanPipeline counts tour starts per month of year, busiest first.
func MonthlyPlanPipeline(year int, match bson.M) mongo.Pipeline {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$unwind", Value: "$startDates"}},
		{{Key: "$match", Value: bson.M{"startDates": bson.M{"$gte": from, "$lt": to}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.M{"$month": "$startDates"}},
			{Key: "numTourStarts", Value: bson.M{"$sum": 1}},
			{Key: "tours", Value: bson.M{"$push": "$name"}},
		}}},
		{{Key: "$addFields", Value: bson.M{"month": "$_id"}}},
		{{Key: "$project", Value: bson.M{"_id": 0}}},
		{{Key: "$sort", Value: bson.D{{Key: "numTourStarts", Value: -1}}}},
		{{Key: "$limit", Value: 12}},
	}
}

// DistancesPipeline must start with $geoNear, so the caller's conditions go
// into its query field rather than a separate $match stage.
func DistancesPipeline(lng, lat, multiplier float64, match bson.M) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$geoNear", Value: bson.D{
			{Key: "near", Value: bson.M{"type": "Point", "coordinates": bson.A{lng, lat}}},
			{Key: "distanceField", Value: "distance"},
			{Key: "distanceMultiplier", Value: multiplier},
			{Key: "query", Value: match},
			{Key: "spherical", Value: true},
		}}},
		{{Key: "$project", Value: bson.M{"distance": 1, "name": 1}}},
	}
}

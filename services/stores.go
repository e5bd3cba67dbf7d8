// Package services holds the business rules of the API. Every side effect a
// write has (slug derivation, rating recomputation, password hashing, token
// revocation) is performed here explicitly, and every read applies its
// visibility rules (secret tours, inactive users) here rather than in the
// storage layer.
package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sanjiv-madhavan/go-natours/apperror"
	"github.com/sanjiv-madhavan/go-natours/models"
)

type TourStore interface {
	Find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Tour, error)
	FindOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*models.Tour, error)
	Count(ctx context.Context, filter bson.M) (int64, error)
	Insert(ctx context.Context, tour *models.Tour) error
	Replace(ctx context.Context, tour *models.Tour) error
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
	SetRatings(ctx context.Context, id primitive.ObjectID, quantity int, average float64) error
	Stats(ctx context.Context, match bson.M) ([]models.TourStats, error)
	MonthlyPlan(ctx context.Context, year int, match bson.M) ([]models.MonthlyPlan, error)
	Distances(ctx context.Context, lng, lat, multiplier float64, match bson.M) ([]models.TourDistance, error)
}

type UserStore interface {
	Find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.User, error)
	FindOne(ctx context.Context, filter bson.M) (*models.User, error)
	FindOneWithPassword(ctx context.Context, filter bson.M) (*models.User, error)
	FindSummaries(ctx context.Context, filter bson.M) ([]models.UserSummary, error)
	Count(ctx context.Context, filter bson.M) (int64, error)
	Insert(ctx context.Context, user *models.User) error
	Update(ctx context.Context, id primitive.ObjectID, update bson.M) error
}

type ReviewStore interface {
	Find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Review, error)
	FindOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*models.Review, error)
	Count(ctx context.Context, filter bson.M) (int64, error)
	Insert(ctx context.Context, review *models.Review) error
	Replace(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
	RatingStats(ctx context.Context, tourID primitive.ObjectID) (*models.RatingStats, error)
}

// Revoker records token invalidation timestamps.
type Revoker interface {
	SetGlobalInvalidation(ctx context.Context, timestamp int64, ttl time.Duration) error
	SetUserSpecificInvalidation(ctx context.Context, userID string, timestamp int64, ttl time.Duration) error
	GetGlobalInvalidation(ctx context.Context) (int64, error)
	GetUserSpecificInvalidation(ctx context.Context, userID string) (int64, error)
}

type Mailer interface {
	SendWelcome(ctx context.Context, to models.UserSummary, url string) error
	SendPasswordReset(ctx context.Context, to models.UserSummary, url string) error
}

// PhotoStore keeps user photos. Save returns the name the photo is served
// under, which is what a user's photo field holds.
type PhotoStore interface {
	Save(ctx context.Context, name string, contentType string, data []byte) (string, error)
}

// visibleTours adds the secrecy predicate every default tour read carries.
func visibleTours(filter bson.M) bson.M {
	out := bson.M{}
	for k, v := range filter {
		out[k] = v
	}
	out["secretTour"] = bson.M{"$ne": true}
	return out
}

// activeUsers adds the soft-delete predicate every default user read carries.
func activeUsers(filter bson.M) bson.M {
	out := bson.M{}
	for k, v := range filter {
		out[k] = v
	}
	out["active"] = bson.M{"$ne": false}
	return out
}

func parseID(id string) (primitive.ObjectID, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperror.InvalidID(id)
	}
	return objectID, nil
}

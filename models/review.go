package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Review struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Review    string             `bson:"review" json:"review" validate:"required"`
	Rating    float64            `bson:"rating" json:"rating" validate:"required,min=1,max=5"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	TourID    primitive.ObjectID `bson:"tour" json:"tour" validate:"required"`
	UserID    primitive.ObjectID `bson:"user" json:"user" validate:"required"`
	Version   int                `bson:"__v" json:"-"`

	Author   *UserSummary `bson:"-" json:"author,omitempty"`
	TourName string       `bson:"-" json:"tourName,omitempty"`
}

func (r *Review) ApplyDefaults(now time.Time) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
}

// RatingStats is the per-tour aggregate the derived tour ratings come from.
type RatingStats struct {
	TourID     primitive.ObjectID `bson:"_id"`
	NumRatings int                `bson:"nRating"`
	AvgRating  float64            `bson:"avgRating"`
}

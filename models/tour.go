package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultRatingsAverage  = 4.5
	DefaultRatingsQuantity = 0
)

type GeoPoint struct {
	Type        string    `bson:"type" json:"type" validate:"omitempty,eq=Point"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates" validate:"omitempty,len=2"`
	Address     string    `bson:"address,omitempty" json:"address,omitempty"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Day         int       `bson:"day,omitempty" json:"day,omitempty"`
}

// IsZero reports a point without coordinates; such a start location is
// omitted from the stored tour.
func (p GeoPoint) IsZero() bool {
	return len(p.Coordinates) == 0
}

type Tour struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Name            string               `bson:"name" json:"name" validate:"required,min=10,max=40"`
	Slug            string               `bson:"slug" json:"slug"`
	Duration        int                  `bson:"duration" json:"duration" validate:"required,gt=0"`
	MaxGroupSize    int                  `bson:"maxGroupSize" json:"maxGroupSize" validate:"required,gt=0"`
	Difficulty      string               `bson:"difficulty" json:"difficulty" validate:"required,oneof=easy medium difficult"`
	RatingsAverage  float64              `bson:"ratingsAverage" json:"ratingsAverage" validate:"min=1,max=5"`
	RatingsQuantity int                  `bson:"ratingsQuantity" json:"ratingsQuantity" validate:"min=0"`
	Price           float64              `bson:"price" json:"price" validate:"required,gt=0"`
	PriceDiscount   float64              `bson:"priceDiscount,omitempty" json:"priceDiscount,omitempty" validate:"omitempty,ltfield=Price"`
	Summary         string               `bson:"summary" json:"summary" validate:"required"`
	Description     string               `bson:"description,omitempty" json:"description,omitempty"`
	ImageCover      string               `bson:"imageCover" json:"imageCover" validate:"required"`
	Images          []string             `bson:"images" json:"images"`
	CreatedAt       time.Time            `bson:"createdAt" json:"-"`
	StartDates      []time.Time          `bson:"startDates" json:"startDates"`
	SecretTour      bool                 `bson:"secretTour" json:"secretTour"`
	StartLocation   GeoPoint             `bson:"startLocation,omitempty" json:"startLocation"`
	Locations       []GeoPoint           `bson:"locations" json:"locations" validate:"dive"`
	GuideIDs        []primitive.ObjectID `bson:"guides" json:"-"`
	Version         int                  `bson:"__v" json:"-"`

	Guides  []UserSummary `bson:"-" json:"-"`
	Reviews []Review      `bson:"-" json:"reviews,omitempty"`
}

// DurationWeeks is derived and never stored.
func (t Tour) DurationWeeks() float64 {
	return float64(t.Duration) / 7
}

// MarshalJSON writes guides as profiles once they are populated and as bare
// IDs before that.
func (t Tour) MarshalJSON() ([]byte, error) {
	type tour Tour
	var guides any = t.GuideIDs
	if t.Guides != nil {
		guides = t.Guides
	} else if t.GuideIDs == nil {
		guides = []primitive.ObjectID{}
	}
	return json.Marshal(struct {
		tour
		Guides        any     `json:"guides"`
		HexID         string  `json:"id"`
		DurationWeeks float64 `json:"durationWeeks"`
	}{tour(t), guides, t.ID.Hex(), t.DurationWeeks()})
}

// UnmarshalJSON takes guides as an array of user IDs. Profiles as written by
// MarshalJSON are accepted too and reduced to their IDs. Fields missing from
// data keep their current values.
func (t *Tour) UnmarshalJSON(data []byte) error {
	type tour Tour
	in := struct {
		*tour
		Guides json.RawMessage `json:"guides"`
	}{tour: (*tour)(t)}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.Guides == nil {
		return nil
	}
	ids, err := guideRefs(in.Guides)
	if err != nil {
		return err
	}
	t.GuideIDs, t.Guides = ids, nil
	return nil
}

func guideRefs(raw json.RawMessage) ([]primitive.ObjectID, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	if items == nil {
		return nil, nil
	}
	ids := make([]primitive.ObjectID, 0, len(items))
	for _, item := range items {
		if bytes.HasPrefix(bytes.TrimSpace(item), []byte("{")) {
			var profile struct {
				ID primitive.ObjectID `json:"_id"`
			}
			if err := json.Unmarshal(item, &profile); err != nil {
				return nil, err
			}
			ids = append(ids, profile.ID)
			continue
		}
		var id primitive.ObjectID
		if err := json.Unmarshal(item, &id); err != nil {
			return nil, fmt.Errorf("invalid guide reference %s: %w", item, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ApplyDefaults fills in the values a freshly created tour starts with.
func (t *Tour) ApplyDefaults(now time.Time) {
	if t.RatingsAverage == 0 {
		t.RatingsAverage = DefaultRatingsAverage
	}
	if t.StartLocation.Type == "" && len(t.StartLocation.Coordinates) > 0 {
		t.StartLocation.Type = "Point"
	}
	for i := range t.Locations {
		if t.Locations[i].Type == "" {
			t.Locations[i].Type = "Point"
		}
	}
	if t.Images == nil {
		t.Images = []string{}
	}
	if t.StartDates == nil {
		t.StartDates = []time.Time{}
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
}

type TourSummary struct {
	ID   primitive.ObjectID `bson:"_id" json:"id"`
	Name string             `bson:"name" json:"name"`
}

type TourStats struct {
	Difficulty string  `bson:"_id" json:"_id"`
	NumTours   int     `bson:"numTours" json:"numTours"`
	NumRatings int     `bson:"numRatings" json:"numRatings"`
	AvgRating  float64 `bson:"avgRating" json:"avgRating"`
	AvgPrice   float64 `bson:"avgPrice" json:"avgPrice"`
	MinPrice   float64 `bson:"minPrice" json:"minPrice"`
	MaxPrice   float64 `bson:"maxPrice" json:"maxPrice"`
}

type MonthlyPlan struct {
	Month         int      `bson:"month" json:"month"`
	NumTourStarts int      `bson:"numTourStarts" json:"numTourStarts"`
	Tours         []string `bson:"tours" json:"tours"`
}

type TourDistance struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	Name     string             `bson:"name" json:"name"`
	Distance float64            `bson:"distance" json:"distance"`
}

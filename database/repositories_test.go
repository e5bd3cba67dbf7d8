package database_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sanjiv-madhavan/go-natours/apperror"
	"github.com/sanjiv-madhavan/go-natours/database"
	"github.com/sanjiv-madhavan/go-natours/database/dbtest"
	"github.com/sanjiv-madhavan/go-natours/features"
	"github.com/sanjiv-madhavan/go-natours/models"
)

func TestMain(m *testing.M) {
	code := m.Run()
	dbtest.Terminate()
	os.Exit(code)
}

var visible = bson.M{"secretTour": bson.M{"$ne": true}}

type repos struct {
	tours   *database.TourRepository
	users   *database.UserRepository
	reviews *database.ReviewRepository
}

func openRepos(t *testing.T) repos {
	t.Helper()
	db := dbtest.Open(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return repos{
		tours:   database.NewTourRepository(db, logger),
		users:   database.NewUserRepository(db, logger),
		reviews: database.NewReviewRepository(db, logger),
	}
}

func (r repos) insertTour(t *testing.T, name string, mutate func(*models.Tour)) *models.Tour {
	t.Helper()
	tour := &models.Tour{
		ID:             primitive.NewObjectID(),
		Name:           name,
		Duration:       5,
		MaxGroupSize:   10,
		Difficulty:     "easy",
		RatingsAverage: models.DefaultRatingsAverage,
		Price:          500,
		Summary:        "Breathtaking hike",
		ImageCover:     "cover.jpg",
	}
	if mutate != nil {
		mutate(tour)
	}
	tour.ApplyDefaults(time.Now())
	require.NoError(t, r.tours.Insert(context.Background(), tour))
	return tour
}

func TestFindAppliesQueryFeatures(t *testing.T) {
	r := openRepos(t)
	ctx := context.Background()
	for i, price := range []float64{100, 900, 500} {
		r.insertTour(t, []string{"The Forest Hiker", "The Sea Explorer", "The Snow Adventurer"}[i], func(tour *models.Tour) {
			tour.Price = price
		})
	}
	r.insertTour(t, "The Secret Caverns", func(tour *models.Tour) {
		tour.Price = 700
		tour.SecretTour = true
	})

	params := url.Values{"price[gte]": {"500"}, "sort": {"-price"}, "fields": {"name,price"}}
	filter, opts, err := features.New(params, visible).Filter().Sort().LimitFields().Paginate(ctx, r.tours).Result()
	require.NoError(t, err)
	tours, err := r.tours.Find(ctx, filter, opts)
	require.NoError(t, err)

	require.Len(t, tours, 2)
	assert.Equal(t, "The Sea Explorer", tours[0].Name)
	assert.Equal(t, 900.0, tours[0].Price)
	assert.Equal(t, "The Snow Adventurer", tours[1].Name)
	assert.Zero(t, tours[0].Duration, "unselected fields are not returned")

	filter, _, err = features.New(url.Values{"secretTour": {"true"}}, visible).Filter().Result()
	require.NoError(t, err)
	n, err := r.tours.Count(ctx, filter)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, _, err = features.New(url.Values{"page": {"2"}, "limit": {"3"}}, visible).Filter().Paginate(ctx, r.tours).Result()
	assert.Equal(t, http.StatusNotFound, apperror.Translate(err).StatusCode)
}

func TestTourWithoutStartLocation(t *testing.T) {
	r := openRepos(t)
	tour := r.insertTour(t, "The City Wanderer", func(tour *models.Tour) {
		tour.StartLocation = models.GeoPoint{Description: "Unknown"}
	})

	stored, err := r.tours.FindOne(context.Background(), bson.M{"_id": tour.ID})
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Empty(t, stored.StartLocation.Coordinates)
}

func TestDuplicateTourName(t *testing.T) {
	r := openRepos(t)
	r.insertTour(t, "The Forest Hiker", nil)

	err := r.tours.Insert(context.Background(), &models.Tour{ID: primitive.NewObjectID(), Name: "The Forest Hiker"})
	translated := apperror.Translate(err)
	assert.Equal(t, http.StatusBadRequest, translated.StatusCode)
	assert.Equal(t, `Duplicate field value: "The Forest Hiker". Please use another value!`, translated.Message)
}

func TestReplaceSetRatingsAndDelete(t *testing.T) {
	r := openRepos(t)
	ctx := context.Background()
	tour := r.insertTour(t, "The Park Camper", nil)

	tour.Price = 1497
	require.NoError(t, r.tours.Replace(ctx, tour))
	require.NoError(t, r.tours.SetRatings(ctx, tour.ID, 7, 4.7))

	stored, err := r.tours.FindOne(ctx, bson.M{"_id": tour.ID})
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 1497.0, stored.Price)
	assert.Equal(t, 7, stored.RatingsQuantity)
	assert.Equal(t, 4.7, stored.RatingsAverage)

	deleted, err := r.tours.Delete(ctx, tour.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	missing, err := r.tours.FindOne(ctx, bson.M{"_id": tour.ID})
	require.NoError(t, err)
	assert.Nil(t, missing)

	deleted, err = r.tours.Delete(ctx, tour.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestStats(t *testing.T) {
	r := openRepos(t)
	r.insertTour(t, "The Easy Stroller", func(tour *models.Tour) {
		tour.Price = 300
		tour.RatingsQuantity = 4
	})
	r.insertTour(t, "The Easy Wanderer", func(tour *models.Tour) {
		tour.Price = 500
		tour.RatingsAverage = 4.9
		tour.RatingsQuantity = 6
	})
	r.insertTour(t, "The Hard Climber", func(tour *models.Tour) {
		tour.Difficulty = "difficult"
		tour.Price = 1000
	})
	r.insertTour(t, "The Poorly Rated", func(tour *models.Tour) {
		tour.Difficulty = "medium"
		tour.RatingsAverage = 3.1
	})

	stats, err := r.tours.Stats(context.Background(), bson.M{"ratingsAverage": bson.M{"$gte": 4.5}})
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "EASY", stats[0].Difficulty)
	assert.Equal(t, 2, stats[0].NumTours)
	assert.Equal(t, 10, stats[0].NumRatings)
	assert.InDelta(t, 4.7, stats[0].AvgRating, 1e-9)
	assert.Equal(t, 400.0, stats[0].AvgPrice)
	assert.Equal(t, 300.0, stats[0].MinPrice)
	assert.Equal(t, 500.0, stats[0].MaxPrice)
	assert.Equal(t, "DIFFICULT", stats[1].Difficulty)
	assert.Equal(t, 1000.0, stats[1].AvgPrice)
}

func TestMonthlyPlan(t *testing.T) {
	r := openRepos(t)
	date := func(m time.Month, d int) time.Time { return time.Date(2021, m, d, 10, 0, 0, 0, time.UTC) }
	r.insertTour(t, "The Forest Hiker", func(tour *models.Tour) {
		tour.StartDates = []time.Time{date(time.April, 25), date(time.July, 20), time.Date(2022, time.April, 1, 0, 0, 0, 0, time.UTC)}
	})
	r.insertTour(t, "The Sea Explorer", func(tour *models.Tour) {
		tour.StartDates = []time.Time{date(time.April, 5)}
	})
	r.insertTour(t, "The Secret Caverns", func(tour *models.Tour) {
		tour.SecretTour = true
		tour.StartDates = []time.Time{date(time.April, 9)}
	})

	plan, err := r.tours.MonthlyPlan(context.Background(), 2021, visible)
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, 4, plan[0].Month)
	assert.Equal(t, 2, plan[0].NumTourStarts)
	assert.ElementsMatch(t, []string{"The Forest Hiker", "The Sea Explorer"}, plan[0].Tours)
	assert.Equal(t, models.MonthlyPlan{Month: 7, NumTourStarts: 1, Tours: []string{"The Forest Hiker"}}, plan[1])
}

func TestDistances(t *testing.T) {
	r := openRepos(t)
	at := func(lng, lat float64) func(*models.Tour) {
		return func(tour *models.Tour) {
			tour.StartLocation = models.GeoPoint{Coordinates: []float64{lng, lat}}
		}
	}
	r.insertTour(t, "The San Diego Surfer", at(-117.16, 32.72))
	r.insertTour(t, "The Los Angeles Walk", at(-118.24, 34.05))
	r.insertTour(t, "The Hidden Canyon", func(tour *models.Tour) {
		at(-118.0, 34.0)(tour)
		tour.SecretTour = true
	})
	r.insertTour(t, "The Unplaced Tour", nil)

	distances, err := r.tours.Distances(context.Background(), -118.24, 34.05, 0.001, visible)
	require.NoError(t, err)
	require.Len(t, distances, 2)
	assert.Equal(t, "The Los Angeles Walk", distances[0].Name)
	assert.InDelta(t, 0, distances[0].Distance, 0.001)
	assert.Equal(t, "The San Diego Surfer", distances[1].Name)
	assert.InDelta(t, 180, distances[1].Distance, 10)
}

func TestRatingStats(t *testing.T) {
	r := openRepos(t)
	ctx := context.Background()
	tourID, other := primitive.NewObjectID(), primitive.NewObjectID()

	stats, err := r.reviews.RatingStats(ctx, tourID)
	require.NoError(t, err)
	assert.Nil(t, stats)

	for _, review := range []models.Review{
		{Rating: 4, TourID: tourID},
		{Rating: 5, TourID: tourID},
		{Rating: 1, TourID: other},
	} {
		review.ID = primitive.NewObjectID()
		review.Review = "Nice"
		review.UserID = primitive.NewObjectID()
		review.ApplyDefaults(time.Now())
		require.NoError(t, r.reviews.Insert(ctx, &review))
	}

	stats, err = r.reviews.RatingStats(ctx, tourID)
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, tourID, stats.TourID)
	assert.Equal(t, 2, stats.NumRatings)
	assert.Equal(t, 4.5, stats.AvgRating)

	reviews, err := r.reviews.Find(ctx, bson.M{"tour": other}, options.Find())
	require.NoError(t, err)
	assert.Len(t, reviews, 1)
}

func TestUserCredentialsStayHidden(t *testing.T) {
	r := openRepos(t)
	ctx := context.Background()
	expires := time.Now().Add(10 * time.Minute)
	user := &models.User{
		ID:                   primitive.NewObjectID(),
		Name:                 "Ana",
		Email:                "ana@example.com",
		Role:                 "user",
		Password:             "$2a$12$hash",
		PasswordResetToken:   "digest",
		PasswordResetExpires: &expires,
	}
	user.ApplyDefaults()
	require.NoError(t, r.users.Insert(ctx, user))

	found, err := r.users.FindOne(ctx, bson.M{"email": "ana@example.com"})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Empty(t, found.Password)
	assert.Empty(t, found.PasswordResetToken)
	assert.Nil(t, found.PasswordResetExpires)

	withPassword, err := r.users.FindOneWithPassword(ctx, bson.M{"_id": user.ID})
	require.NoError(t, err)
	assert.Equal(t, "$2a$12$hash", withPassword.Password)

	require.NoError(t, r.users.Update(ctx, user.ID, bson.M{"$set": bson.M{"role": "guide"}, "$unset": bson.M{"passwordResetToken": ""}}))
	summaries, err := r.users.FindSummaries(ctx, bson.M{"_id": bson.M{"$in": bson.A{user.ID}}})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "guide", summaries[0].Role)
	assert.Equal(t, "Ana", summaries[0].Name)

	err = r.users.Insert(ctx, &models.User{ID: primitive.NewObjectID(), Name: "Other", Email: "ana@example.com"})
	assert.Equal(t, http.StatusBadRequest, apperror.Translate(err).StatusCode)
}

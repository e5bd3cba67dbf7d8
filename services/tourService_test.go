package services

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/sanjiv-madhavan/go-natours/apperror"
	"github.com/sanjiv-madhavan/go-natours/models"
)

func statusOf(t *testing.T, err error) int {
	t.Helper()
	require.Error(t, err)
	return apperror.Translate(err).StatusCode
}

func TestTourCreateDerivesFields(t *testing.T) {
	f := newFixture(t)
	tour := f.createTour(t, "  The Forest Hiker ", func(tour *models.Tour) {
		tour.RatingsAverage = 1.2
		tour.RatingsQuantity = 99
	})

	assert.Equal(t, "The Forest Hiker", tour.Name)
	assert.Equal(t, "the-forest-hiker", tour.Slug)
	assert.Equal(t, models.DefaultRatingsAverage, tour.RatingsAverage)
	assert.Equal(t, models.DefaultRatingsQuantity, tour.RatingsQuantity)
	assert.False(t, tour.CreatedAt.IsZero())
	assert.Equal(t, 1.0, tour.DurationWeeks())

	stored, err := f.tourService.GetBySlug(context.Background(), "the-forest-hiker")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, tour.ID, stored.ID)
}

func TestTourCreateRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	_, err := f.tourService.Create(context.Background(), &models.Tour{
		Name:          "The Sea Explorer",
		Duration:      7,
		MaxGroupSize:  10,
		Difficulty:    "medium",
		Price:         500,
		PriceDiscount: 600,
		Summary:       "Sailing",
		ImageCover:    "cover.jpg",
	})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	assert.Contains(t, err.Error(), "priceDiscount")
}

func TestTourCreateDuplicateName(t *testing.T) {
	f := newFixture(t)
	f.createTour(t, "The Snow Adventurer", nil)

	_, err := f.tourService.Create(context.Background(), &models.Tour{
		Name: "The Snow Adventurer", Duration: 4, MaxGroupSize: 10, Difficulty: "difficult",
		Price: 997, Summary: "Snow", ImageCover: "cover.jpg",
	})
	translated := apperror.Translate(err)
	assert.Equal(t, http.StatusBadRequest, translated.StatusCode)
	assert.Equal(t, `Duplicate field value: "The Snow Adventurer". Please use another value!`, translated.Message)
}

func TestSecretToursAreHidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	visible := f.createTour(t, "The City Wanderer", nil)
	secret := f.createTour(t, "The Secret Caverns", func(tour *models.Tour) {
		tour.SecretTour = true })

	tours, err := f.tourService.List(ctx, url.Values{}, nil)
	require.NoError(t, err)
	require.Len(t, tours, 1)
	assert.Equal(t, visible.ID, tours[0].ID)

	tours, err = f.tourService.List(ctx, url.Values{"secretTour": {"true"}}, nil)
	require.NoError(t, err)
	assert.Empty(t, tours)

	got, err := f.tourService.Get(ctx, secret.ID.Hex())
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = f.tourService.GetBySlug(ctx, secret.Slug)
	require.NoError(t, err)
	assert.Nil(t, got)

	stats, err := f.tourService.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 1, stats[0].NumTours)

	exists, err := f.tourService.Exists(ctx, secret.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	updated, err := f.tourService.Update(ctx, secret.ID.Hex(), func(tour *models.Tour) error {
		tour.Price = 650
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, 650.0, updated.Price)
}

func TestTourUpdateKeepsDerivedFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tour := f.createTour(t, "The Park Camper", nil)

	updated, err := f.tourService.Update(ctx, tour.ID.Hex(), func(doc *models.Tour) error {
		doc.Name = "The Northern Lights"
		doc.RatingsAverage = 1
		doc.RatingsQuantity = 1000
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "the-northern-lights", updated.Slug)
	assert.Equal(t, models.DefaultRatingsAverage, updated.RatingsAverage)
	assert.Equal(t, 0, updated.RatingsQuantity)
	assert.Equal(t, tour.ID, updated.ID)

	_, err = f.tourService.Update(ctx, tour.ID.Hex(), func(doc *models.Tour) error {
		doc.Difficulty = "extreme"
		return nil
	})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	missing, err := f.tourService.Update(ctx, "5c88fa8cf4afda39709c2951", func(*models.Tour) error { return nil })
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTourLookupsRejectMalformedIDs(t *testing.T) {
	f := newFixture(t)
	_, err := f.tourService.Get(context.Background(), "wwwww")
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	assert.Equal(t, "Invalid _id: wwwww", err.Error())

	_, err = f.tourService.Delete(context.Background(), "wwwww")
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func TestTourDelete(t *testing.T) {
	f := newFixture(t)
	tour := f.createTour(t, "The Wine Taster", nil)

	deleted, err := f.tourService.Delete(context.Background(), tour.ID.Hex())
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = f.tourService.Delete(context.Background(), tour.ID.Hex())
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestTourStats(t *testing.T) {
	f := newFixture(t)
	f.createTour(t, "The Easy Stroller", func(tour *models.Tour) {
		tour.Difficulty = "easy"
		tour.Price = 300
	})
	f.createTour(t, "The Easy Wanderer", func(tour *models.Tour) {
		tour.Difficulty = "easy"
		tour.Price = 500
	})
	f.createTour(t, "The Hard Climber", func(tour *models.Tour) {
		tour.Difficulty = "difficult"
		tour.Price = 1000
	})
	f.createTour(t, "The Hidden Climber", func(tour *models.Tour) {
		tour.Difficulty = "difficult"
		tour.SecretTour = true
	})

	stats, err := f.tourService.Stats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "EASY", stats[0].Difficulty)
	assert.Equal(t, 2, stats[0].NumTours)
	assert.Equal(t, 400.0, stats[0].AvgPrice)
	assert.Equal(t, 300.0, stats[0].MinPrice)
	assert.Equal(t, 500.0, stats[0].MaxPrice)
	assert.Equal(t, "DIFFICULT", stats[1].Difficulty)
	assert.Equal(t, 1, stats[1].NumTours)
}

func TestMonthlyPlan(t *testing.T) {
	f := newFixture(t)
	date := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 10, 0, 0, 0, time.UTC) }
	f.createTour(t, "The Forest Hiker", func(tour *models.Tour) {
		tour.StartDates = []time.Time{date(2021, time.March, 5), date(2021, time.July, 20), date(2022, time.March, 1)}
	})
	f.createTour(t, "The Sea Explorer", func(tour *models.Tour) {
		tour.StartDates = []time.Time{date(2021, time.March, 15)}
	})
	f.createTour(t, "The Secret Caverns", func(tour *models.Tour) {
		tour.SecretTour = true
		tour.StartDates = []time.Time{date(2021, time.March, 20)}
	})

	plan, err := f.tourService.MonthlyPlan(context.Background(), "2021")
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, 3, plan[0].Month)
	assert.Equal(t, 2, plan[0].NumTourStarts)
	assert.ElementsMatch(t, []string{"The Forest Hiker", "The Sea Explorer"}, plan[0].Tours)
	assert.Equal(t, models.MonthlyPlan{Month: 7, NumTourStarts: 1, Tours: []string{"The Forest Hiker"}}, plan[1])

	_, err = f.tourService.MonthlyPlan(context.Background(), "next")
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func geoFixture(t *testing.T) *fixture {
	f := newFixture(t)
	at := func(lng, lat float64) func(*models.Tour) {
		return func(tour *models.Tour) {
			tour.StartLocation = models.GeoPoint{Coordinates: []float64{lng, lat}, Description: "start"}
		}
	}
	f.createTour(t, "The Los Angeles Walk", at(-118.24, 34.05))
	f.createTour(t, "The San Diego Surfer", at(-117.16, 32.72))
	f.createTour(t, "The New York Stroll", at(-74.0, 40.71))
	return f
}

func TestWithin(t *testing.T) {
	f := geoFixture(t)
	ctx := context.Background()

	tours, err := f.tourService.Within(ctx, "250", "34.05,-118.24", "km")
	require.NoError(t, err)
	var names []string
	for _, tour := range tours {
		names = append(names, tour.Name)
	}
	assert.ElementsMatch(t, []string{"The Los Angeles Walk", "The San Diego Surfer"}, names)

	tours, err = f.tourService.Within(ctx, "3000", "34.05,-118.24", "mi")
	require.NoError(t, err)
	assert.Len(t, tours, 3)

	_, err = f.tourService.Within(ctx, "250", "34.05", "km")
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	assert.Equal(t, "Please provide latitude and longitude in the format lat,lng.", err.Error())

	_, err = f.tourService.Within(ctx, "250", "34.05,-118.24", "parsecs")
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func TestDistances(t *testing.T) {
	f := geoFixture(t)

	distances, err := f.tourService.Distances(context.Background(), "34.05,-118.24", "km")
	require.NoError(t, err)
	require.Len(t, distances, 3)
	assert.Equal(t, "The Los Angeles Walk", distances[0].Name)
	assert.InDelta(t, 0, distances[0].Distance, 0.001)
	assert.Equal(t, "The San Diego Surfer", distances[1].Name)
	assert.InDelta(t, 180, distances[1].Distance, 10)
	assert.Equal(t, "The New York Stroll", distances[2].Name)

	miles, err := f.tourService.Distances(context.Background(), "34.05,-118.24", "mi")
	require.NoError(t, err)
	assert.InDelta(t, distances[2].Distance*0.621371, miles[2].Distance, 1)
}

func TestTourDetailsArePopulated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guide := f.createUser(t, "steven", "lead-guide")
	retired := f.createUser(t, "miyah", "guide")
	require.NoError(t, f.users.Update(ctx, retired.ID, bson.M{"$set": bson.M{"active": false}}))
	author := f.createUser(t, "laura", "user")

	tour := f.createTour(t, "The Star Gazer Trip", func(tour *models.Tour) {
		tour.GuideIDs = append(tour.GuideIDs, guide.ID, retired.ID)
	})
	_, err := f.reviewService.Create(ctx, &models.Review{Review: "Stunning", Rating: 5, TourID: tour.ID, UserID: author.ID})
	require.NoError(t, err)

	detailed, err := f.tourService.GetBySlug(ctx, "the-star-gazer-trip")
	require.NoError(t, err)
	require.NotNil(t, detailed)
	require.Len(t, detailed.Guides, 1)
	assert.Equal(t, "steven", detailed.Guides[0].Name)
	assert.Equal(t, "lead-guide", detailed.Guides[0].Role)
	require.Len(t, detailed.Reviews, 1)
	require.NotNil(t, detailed.Reviews[0].Author)
	assert.Equal(t, "laura", detailed.Reviews[0].Author.Name)
	assert.Equal(t, 5.0, detailed.RatingsAverage)
	assert.Equal(t, 1, detailed.RatingsQuantity)
}

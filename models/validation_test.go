package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanjiv-madhavan/go-natours/apperror"
)

func validTour() Tour {
	return Tour{
		Name:           "The Forest Hiker",
		Duration:       5,
		MaxGroupSize:   25,
		Difficulty:     "easy",
		RatingsAverage: 4.5,
		Price:          397,
		Summary:        "Breathtaking hike through the Canadian Banff National Park",
		ImageCover:     "tour-1-cover.jpg",
	}
}

func TestValidateTour(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Tour)
		wantErr string
	}{
		{name: "valid", mutate: func(*Tour) {}},
		{name: "discount below price", mutate: func(tour *Tour) { tour.PriceDiscount = 100 }},
		{name: "discount equal to price", mutate: func(tour *Tour) { tour.PriceDiscount = 397 }, wantErr: "priceDiscount (397) should be below the regular price"},
		{name: "discount above price", mutate: func(tour *Tour) { tour.PriceDiscount = 500 }, wantErr: "priceDiscount"},
		{name: "short name", mutate: func(tour *Tour) { tour.Name = "Short" }, wantErr: "name must have at least 10 characters"},
		{name: "unknown difficulty", mutate: func(tour *Tour) { tour.Difficulty = "extreme" }, wantErr: "difficulty is either: easy, medium, difficult"},
		{name: "rating out of range", mutate: func(tour *Tour) { tour.RatingsAverage = 6 }, wantErr: "ratingsAverage must be at most 5"},
		{name: "missing summary", mutate: func(tour *Tour) { tour.Summary = "" }, wantErr: "summary is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tour := validTour()
			tt.mutate(&tour)
			err := Validate(&tour)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, 400, appErr.StatusCode)
			assert.Contains(t, appErr.Message, "Invalid input data.")
			assert.Contains(t, appErr.Message, tt.wantErr)
		})
	}
}

func TestValidateSignupPasswordConfirm(t *testing.T) {
	req := SignupRequest{Name: "Jonas", Email: "jonas@example.com", Password: "pass1234", PasswordConfirm: "pass1234"}
	assert.NoError(t, Validate(req))

	req.PasswordConfirm = "pass12345"
	err := Validate(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Passwords are not the same!")

	req.PasswordConfirm, req.Password = "short", "short"
	assert.ErrorContains(t, Validate(req), "password must have at least 8 characters")
}

func TestValidateReviewRating(t *testing.T) {
	review := Review{Review: "Loved it", Rating: 0}
	err := Validate(&review)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rating is required")
	assert.Contains(t, err.Error(), "tour is required")
}

package services

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sanjiv-madhavan/go-natours/apperror"
	"github.com/sanjiv-madhavan/go-natours/features"
	"github.com/sanjiv-madhavan/go-natours/models"
)

const (
	earthRadiusMiles = 3963.2
	earthRadiusKm    = 6378.1
	metersToMiles    = 0.000621371
	metersToKm       = 0.001
)

type TourService struct {
	logger  *slog.Logger
	tours   TourStore
	users   UserStore
	reviews ReviewStore
	now     func() time.Time
}

func NewTourService(logger *slog.Logger, tours TourStore, users UserStore, reviews ReviewStore) *TourService {
	return &TourService{logger: logger, tours: tours, users: users, reviews: reviews, now: time.Now}
}

// List returns the visible tours matching the query string within scope.
func (s *TourService) List(ctx context.Context, params url.Values, scope bson.M) ([]models.Tour, error) {
	filter, opts, err := features.New(params, visibleTours(scope)).
		Filter().
		Sort().
		LimitFields().
		Paginate(ctx, s.tours).
		Result()
	if err != nil {
		return nil, err
	}
	tours, err := s.tours.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	if err := s.populateGuides(ctx, tours); err != nil {
		return nil, err
	}
	return tours, nil
}

// Get returns nil, nil when the tour does not exist or is secret.
func (s *TourService) Get(ctx context.Context, id string) (*models.Tour, error) {
	tourID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.findDetailed(ctx, bson.M{"_id": tourID})
}

func (s *TourService) GetBySlug(ctx context.Context, tourSlug string) (*models.Tour, error) {
	return s.findDetailed(ctx, bson.M{"slug": tourSlug})
}

func (s *TourService) findDetailed(ctx context.Context, filter bson.M) (*models.Tour, error) {
	tour, err := s.tours.FindOne(ctx, visibleTours(filter))
	if err != nil || tour == nil {
		return nil, err
	}
	tours := []models.Tour{*tour}
	if err := s.populateGuides(ctx, tours); err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	reviews, err := s.reviews.Find(ctx, bson.M{"tour": tour.ID}, opts)
	if err != nil {
		return nil, err
	}
	if err := populateAuthors(ctx, s.users, reviews); err != nil {
		return nil, err
	}
	tours[0].Reviews = reviews
	return &tours[0], nil
}

// Exists looks a tour up by id, secret tours included.
func (s *TourService) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	n, err := s.tours.Count(ctx, bson.M{"_id": id})
	return n > 0, err
}

func (s *TourService) Create(ctx context.Context, tour *models.Tour) (*models.Tour, error) {
	tour.ID = primitive.NewObjectID()
	tour.RatingsAverage = models.DefaultRatingsAverage
	tour.RatingsQuantity = models.DefaultRatingsQuantity
	tour.CreatedAt = time.Time{}
	tour.ApplyDefaults(s.now())
	tour.Name = strings.TrimSpace(tour.Name)
	tour.Summary = strings.TrimSpace(tour.Summary)
	tour.Slug = slug.Make(tour.Name)
	if err := models.Validate(tour); err != nil {
		return nil, err
	}
	if err := s.tours.Insert(ctx, tour); err != nil {
		return nil, err
	}
	s.logger.Info("Tour created", slog.String("tour", tour.ID.Hex()), slog.String("slug", tour.Slug))
	return tour, nil
}

// Update applies a partial update to any tour, secret ones included. Ratings
// stay derived: whatever apply does to them is discarded.
func (s *TourService) Update(ctx context.Context, id string, apply func(*models.Tour) error) (*models.Tour, error) {
	tourID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	existing, err := s.tours.FindOne(ctx, bson.M{"_id": tourID})
	if err != nil || existing == nil {
		return nil, err
	}
	updated := *existing
	if err := apply(&updated); err != nil {
		return nil, apperror.BadRequest("Invalid request body")
	}
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	updated.RatingsAverage = existing.RatingsAverage
	updated.RatingsQuantity = existing.RatingsQuantity
	updated.Guides, updated.Reviews = nil, nil
	updated.ApplyDefaults(s.now())
	updated.Name = strings.TrimSpace(updated.Name)
	updated.Slug = slug.Make(updated.Name)
	if err := models.Validate(&updated); err != nil {
		return nil, err
	}
	if err := s.tours.Replace(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *TourService) Delete(ctx context.Context, id string) (bool, error) {
	tourID, err := parseID(id)
	if err != nil {
		return false, err
	}
	return s.tours.Delete(ctx, tourID)
}

func (s *TourService) Stats(ctx context.Context) ([]models.TourStats, error) {
	return s.tours.Stats(ctx, visibleTours(bson.M{"ratingsAverage": bson.M{"$gte": 4.5}}))
}

func (s *TourService) MonthlyPlan(ctx context.Context, year string) ([]models.MonthlyPlan, error) {
	y, err := strconv.Atoi(year)
	if err != nil || y < 1 {
		return nil, apperror.Newf(http.StatusBadRequest, "Invalid year: %s", year)
	}
	return s.tours.MonthlyPlan(ctx, y, visibleTours(nil))
}

// Within lists the visible tours starting inside the given radius of latlng.
func (s *TourService) Within(ctx context.Context, distance string, latlng string, unit string) ([]models.Tour, error) {
	lat, lng, err := parseLatLng(latlng)
	if err != nil {
		return nil, err
	}
	d, err := strconv.ParseFloat(distance, 64)
	if err != nil || d < 0 {
		return nil, apperror.Newf(http.StatusBadRequest, "Invalid distance: %s", distance)
	}
	radius, _, err := unitFactors(unit)
	if err != nil {
		return nil, err
	}
	filter := visibleTours(bson.M{"startLocation": bson.M{
		"$geoWithin": bson.M{"$centerSphere": bson.A{bson.A{lng, lat}, d / radius}},
	}})
	tours, err := s.tours.Find(ctx, filter, options.Find())
	if err != nil {
		return nil, err
	}
	if err := s.populateGuides(ctx, tours); err != nil {
		return nil, err
	}
	return tours, nil
}

// Distances reports how far every visible tour starts from latlng.
func (s *TourService) Distances(ctx context.Context, latlng string, unit string) ([]models.TourDistance, error) {
	lat, lng, err := parseLatLng(latlng)
	if err != nil {
		return nil, err
	}
	_, multiplier, err := unitFactors(unit)
	if err != nil {
		return nil, err
	}
	return s.tours.Distances(ctx, lng, lat, multiplier, visibleTours(nil))
}

func (s *TourService) populateGuides(ctx context.Context, tours []models.Tour) error {
	var ids []primitive.ObjectID
	for _, tour := range tours {
		ids = append(ids, tour.GuideIDs...)
	}
	byID := make(map[primitive.ObjectID]models.UserSummary)
	if len(ids) > 0 {
		guides, err := s.users.FindSummaries(ctx, activeUsers(bson.M{"_id": bson.M{"$in": ids}}))
		if err != nil {
			return err
		}
		for _, guide := range guides {
			byID[guide.ID] = guide
		}
	}
	// A populated tour always has a non-nil Guides slice.
	for i := range tours {
		tours[i].Guides = []models.UserSummary{}
		for _, id := range tours[i].GuideIDs {
			if guide, ok := byID[id]; ok {
				tours[i].Guides = append(tours[i].Guides, guide)
			}
		}
	}
	return nil
}

func parseLatLng(latlng string) (float64, float64, error) {
	parts := strings.Split(latlng, ",")
	invalid := apperror.BadRequest("Please provide latitude and longitude in the format lat,lng.")
	if len(parts) != 2 {
		return 0, 0, invalid
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || lat < -90 || lat > 90 {
		return 0, 0, invalid
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || lng < -180 || lng > 180 {
		return 0, 0, invalid
	}
	return lat, lng, nil
}

// unitFactors returns the earth radius and the metre multiplier for unit.
func unitFactors(unit string) (float64, float64, error) {
	switch unit {
	case "mi":
		return earthRadiusMiles, metersToMiles, nil
	case "km":
		return earthRadiusKm, metersToKm, nil
	}
	return 0, 0, apperror.BadRequest("Please provide the unit as mi or km.")
}

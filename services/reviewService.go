package services

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sanjiv-madhavan/go-natours/apperror"
	"github.com/sanjiv-madhavan/go-natours/features"
	"github.com/sanjiv-madhavan/go-natours/models"
)

type ReviewService struct {
	logger  *slog.Logger
	reviews ReviewStore
	tours   TourStore
	users   UserStore
	now     func() time.Time
}

func NewReviewService(logger *slog.Logger, reviews ReviewStore, tours TourStore, users UserStore) *ReviewService {
	return &ReviewService{logger: logger, reviews: reviews, tours: tours, users: users, now: time.Now}
}

func (s *ReviewService) List(ctx context.Context, params url.Values, scope bson.M) ([]models.Review, error) {
	filter, opts, err := features.New(params, scope).
		Filter().
		Sort().
		LimitFields().
		Paginate(ctx, s.reviews).
		Result()
	if err != nil {
		return nil, err
	}
	reviews, err := s.reviews.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	if err := s.populate(ctx, reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

func (s *ReviewService) Get(ctx context.Context, id string) (*models.Review, error) {
	reviewID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	review, err := s.reviews.FindOne(ctx, bson.M{"_id": reviewID})
	if err != nil || review == nil {
		return nil, err
	}
	reviews := []models.Review{*review}
	if err := s.populate(ctx, reviews); err != nil {
		return nil, err
	}
	return &reviews[0], nil
}

// Create stores a review for an existing tour and user, then refreshes the
// tour's ratings.
func (s *ReviewService) Create(ctx context.Context, review *models.Review) (*models.Review, error) {
	review.ID = primitive.NewObjectID()
	review.CreatedAt = time.Time{}
	review.ApplyDefaults(s.now())
	if err := models.Validate(review); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, review); err != nil {
		return nil, err
	}
	if err := s.reviews.Insert(ctx, review); err != nil {
		return nil, err
	}
	if err := s.RecalculateRatings(ctx, review.TourID); err != nil {
		return nil, err
	}
	return review, nil
}

// Update captures the review before writing, since the tour it belongs to is
// needed for the rating refresh that follows the write.
func (s *ReviewService) Update(ctx context.Context, id string, apply func(*models.Review) error) (*models.Review, error) {
	reviewID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	before, err := s.reviews.FindOne(ctx, bson.M{"_id": reviewID})
	if err != nil || before == nil {
		return nil, err
	}
	updated := *before
	if err := apply(&updated); err != nil {
		return nil, apperror.BadRequest("Invalid request body")
	}
	updated.ID = before.ID
	updated.TourID = before.TourID
	updated.UserID = before.UserID
	updated.CreatedAt = before.CreatedAt
	updated.Author, updated.TourName = nil, ""
	if err := models.Validate(&updated); err != nil {
		return nil, err
	}
	if err := s.reviews.Replace(ctx, &updated); err != nil {
		return nil, err
	}
	if err := s.RecalculateRatings(ctx, before.TourID); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *ReviewService) Delete(ctx context.Context, id string) (bool, error) {
	reviewID, err := parseID(id)
	if err != nil {
		return false, err
	}
	before, err := s.reviews.FindOne(ctx, bson.M{"_id": reviewID})
	if err != nil || before == nil {
		return false, err
	}
	deleted, err := s.reviews.Delete(ctx, reviewID)
	if err != nil || !deleted {
		return deleted, err
	}
	return true, s.RecalculateRatings(ctx, before.TourID)
}

// RecalculateRatings rewrites a tour's derived rating fields from its
// reviews, falling back to the defaults once none remain. Concurrent writers
// are not serialised; the last recomputation wins.
func (s *ReviewService) RecalculateRatings(ctx context.Context, tourID primitive.ObjectID) error {
	stats, err := s.reviews.RatingStats(ctx, tourID)
	if err != nil {
		return err
	}
	quantity, average := models.DefaultRatingsQuantity, models.DefaultRatingsAverage
	if stats != nil && stats.NumRatings > 0 {
		quantity, average = stats.NumRatings, stats.AvgRating
	}
	if err := s.tours.SetRatings(ctx, tourID, quantity, average); err != nil {
		s.logger.Error("Failed to update tour ratings", slog.String("tour", tourID.Hex()), slog.Any("error", err))
		return err
	}
	s.logger.Debug("Tour ratings updated", slog.String("tour", tourID.Hex()), slog.Int("quantity", quantity), slog.Float64("average", average))
	return nil
}

func (s *ReviewService) checkReferences(ctx context.Context, review *models.Review) error {
	tours, err := s.tours.Count(ctx, bson.M{"_id": review.TourID})
	if err != nil {
		return err
	}
	if tours == 0 {
		return apperror.NotFound("No tour found with that ID")
	}
	users, err := s.users.Count(ctx, activeUsers(bson.M{"_id": review.UserID}))
	if err != nil {
		return err
	}
	if users == 0 {
		return apperror.NotFound("No user found with that ID")
	}
	return nil
}

func (s *ReviewService) populate(ctx context.Context, reviews []models.Review) error {
	if err := populateAuthors(ctx, s.users, reviews); err != nil {
		return err
	}
	var ids []primitive.ObjectID
	for _, review := range reviews {
		ids = append(ids, review.TourID)
	}
	if len(ids) == 0 {
		return nil
	}
	opts := options.Find().SetProjection(bson.M{"name": 1})
	tours, err := s.tours.Find(ctx, visibleTours(bson.M{"_id": bson.M{"$in": ids}}), opts)
	if err != nil {
		return err
	}
	names := make(map[primitive.ObjectID]string, len(tours))
	for _, tour := range tours {
		names[tour.ID] = tour.Name
	}
	for i := range reviews {
		reviews[i].TourName = names[reviews[i].TourID]
	}
	return nil
}

func populateAuthors(ctx context.Context, users UserStore, reviews []models.Review) error {
	var ids []primitive.ObjectID
	for _, review := range reviews {
		ids = append(ids, review.UserID)
	}
	if len(ids) == 0 {
		return nil
	}
	authors, err := users.FindSummaries(ctx, activeUsers(bson.M{"_id": bson.M{"$in": ids}}))
	if err != nil {
		return err
	}
	byID := make(map[primitive.ObjectID]models.UserSummary, len(authors))
	for _, author := range authors {
		byID[author.ID] = models.UserSummary{ID: author.ID, Name: author.Name, Photo: author.Photo}
	}
	for i := range reviews {
		if author, ok := byID[reviews[i].UserID]; ok {
			reviews[i].Author = &author
		}
	}
	return nil
}

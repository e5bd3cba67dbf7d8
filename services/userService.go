package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/sanjiv-madhavan/go-natours/apperror"
	"github.com/sanjiv-madhavan/go-natours/features"
	"github.com/sanjiv-madhavan/go-natours/models"
)

var credentialFields = []string{"password", "passwordResetToken", "passwordResetExpires"}

type UserService struct {
	logger *slog.Logger
	users  UserStore
	photos PhotoStore
	now    func() time.Time
}

func NewUserService(logger *slog.Logger, users UserStore, photos PhotoStore) *UserService {
	return &UserService{logger: logger, users: users, photos: photos, now: time.Now}
}

func (s *UserService) List(ctx context.Context, params url.Values, scope bson.M) ([]models.User, error) {
	filter, opts, err := features.New(params, activeUsers(scope)).
		Filter().
		Sort().
		LimitFields().
		Hide(credentialFields...).
		Paginate(ctx, s.users).
		Result()
	if err != nil {
		return nil, err
	}
	return s.users.Find(ctx, filter, opts)
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	userID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.users.FindOne(ctx, activeUsers(bson.M{"_id": userID}))
}

// Create is not offered to administrators; accounts come from signup only.
func (s *UserService) Create(ctx context.Context, user *models.User) (*models.User, error) {
	return nil, apperror.New("This route is not defined! Please use /signup instead", http.StatusInternalServerError)
}

// Update lets an administrator change profile fields. Credentials are never
// touched here.
func (s *UserService) Update(ctx context.Context, id string, apply func(*models.User) error) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil || user == nil {
		return nil, err
	}
	updated := *user
	if err := apply(&updated); err != nil {
		return nil, apperror.BadRequest("Invalid request body")
	}
	updated.ID = user.ID
	updated.Email = strings.ToLower(strings.TrimSpace(updated.Email))
	if err := models.Validate(&updated); err != nil {
		return nil, err
	}
	set := bson.M{"name": updated.Name, "email": updated.Email, "photo": updated.Photo, "role": updated.Role}
	if err := s.users.Update(ctx, updated.ID, bson.M{"$set": set}); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete deactivates the account; users are never removed.
func (s *UserService) Delete(ctx context.Context, id string) (bool, error) {
	user, err := s.Get(ctx, id)
	if err != nil || user == nil {
		return false, err
	}
	return true, s.deactivate(ctx, user)
}

func (s *UserService) DeleteMe(ctx context.Context, user *models.User) error {
	return s.deactivate(ctx, user)
}

func (s *UserService) deactivate(ctx context.Context, user *models.User) error {
	if err := s.users.Update(ctx, user.ID, bson.M{"$set": bson.M{"active": false}}); err != nil {
		return err
	}
	s.logger.Info("User deactivated", slog.String("user", user.ID.Hex()))
	return nil
}

// UpdateMe changes the caller's own name, email and photo. photo may be nil.
func (s *UserService) UpdateMe(ctx context.Context, user *models.User, req models.UpdateMeRequest, photo []byte) (*models.User, error) {
	if req.Password != "" || req.PasswordConfirm != "" {
		return nil, apperror.BadRequest("This route is not for password updates. Please use /updateMyPassword.")
	}
	updated := *user
	if req.Name != nil {
		updated.Name = *req.Name
	}
	if req.Email != nil {
		updated.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if photo != nil {
		name, err := s.savePhoto(ctx, user, photo)
		if err != nil {
			return nil, err
		}
		updated.Photo = name
	}
	if err := models.Validate(&updated); err != nil {
		return nil, err
	}
	set := bson.M{"name": updated.Name, "email": updated.Email, "photo": updated.Photo}
	if err := s.users.Update(ctx, updated.ID, bson.M{"$set": set}); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *UserService) savePhoto(ctx context.Context, user *models.User, data []byte) (string, error) {
	if s.photos == nil {
		return "", apperror.New("Photo uploads are not configured", http.StatusInternalServerError)
	}
	resized, err := ResizePhoto(data)
	if err != nil {
		return "", apperror.BadRequest("Not an image! Please upload only images.")
	}
	name := fmt.Sprintf("user-%s-%d.jpeg", user.ID.Hex(), s.now().UnixMilli())
	stored, err := s.photos.Save(ctx, name, "image/jpeg", resized)
	if err != nil {
		s.logger.Error("Failed to store photo", slog.String("user", user.ID.Hex()), slog.Any("error", err))
		return "", err
	}
	return stored, nil
}

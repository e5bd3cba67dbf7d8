package database

import (
	"context"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sanjiv-madhavan/go-natours/constants"
	"github.com/sanjiv-madhavan/go-natours/models"
)

// Credential fields are left out of every read unless asked for explicitly.
var hiddenUserFields = bson.M{
	"password":             0,
	"passwordResetToken":   0,
	"passwordResetExpires": 0,
	"__v":                  0,
}

type UserRepository struct {
	store[models.User]
}

func NewUserRepository(db *DBClient, logger *slog.Logger) *UserRepository {
	return &UserRepository{store[models.User]{logger: logger, collection: db.OpenCollection(constants.UserCollection)}}
}

func (r *UserRepository) FindOne(ctx context.Context, filter bson.M) (*models.User, error) {
	return r.store.FindOne(ctx, filter, options.FindOne().SetProjection(hiddenUserFields))
}

func (r *UserRepository) FindOneWithPassword(ctx context.Context, filter bson.M) (*models.User, error) {
	return r.store.FindOne(ctx, filter)
}

func (r *UserRepository) FindSummaries(ctx context.Context, filter bson.M) ([]models.UserSummary, error) {
	opts := options.Find().SetProjection(bson.M{"name": 1, "email": 1, "photo": 1, "role": 1})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	summaries := []models.UserSummary{}
	if err := cursor.All(ctx, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (r *UserRepository) Insert(ctx context.Context, user *models.User) error {
	return r.insert(ctx, user)
}

// Update applies an update document ($set/$unset) to a single user.
func (r *UserRepository) Update(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

package database

import (
	"context"
	"errors"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// store holds the collection plumbing shared by the typed repositories.
type store[T any] struct {
	logger     *slog.Logger
	collection *mongo.Collection
}

func (s *store[T]) Find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]T, error) {
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		s.logger.Error("Find failed", slog.String("collection", s.collection.Name()), slog.Any("error", err))
		return nil, err
	}
	docs := []T{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// FindOne returns nil, nil when nothing matches.
func (s *store[T]) FindOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*T, error) {
	var doc T
	err := s.collection.FindOne(ctx, filter, opts...).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *store[T]) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.collection.CountDocuments(ctx, filter)
}

func (s *store[T]) insert(ctx context.Context, doc *T) error {
	_, err := s.collection.InsertOne(ctx, doc)
	return err
}

func (s *store[T]) replace(ctx context.Context, id primitive.ObjectID, doc *T) error {
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	return err
}

func (s *store[T]) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return result.DeletedCount > 0, nil
}

func (s *store[T]) aggregate(ctx context.Context, pipeline mongo.Pipeline, out any) error {
	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		s.logger.Error("Aggregation failed", slog.String("collection", s.collection.Name()), slog.Any("error", err))
		return err
	}
	return cursor.All(ctx, out)
}

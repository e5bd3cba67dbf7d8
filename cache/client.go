package cache

import (
	"context"
	"log/slog"

	redis "github.com/redis/go-redis/v9"
)

type RedisClient struct {
	Client *redis.Client
	logger *slog.Logger
}

func NewRedisClient(logger *slog.Logger, addr string, password string, db int) *RedisClient {
	client := redis.NewClient(
		&redis.Options{
			Addr:     addr,
			DB:       db,
			Password: password,
		},
	)
	return &RedisClient{
		Client: client,
		logger: logger,
	}
}

func (r *RedisClient) Close() error {
	r.logger.Info("Closing redis connection")
	return r.Client.Close()
}

func (r *RedisClient) Ping(ctx context.Context) error {
	pong, err := r.Client.Ping(ctx).Result()
	if err != nil {
		r.logger.Error("Health Check Failed", slog.Any("error", err))
		return err
	}
	r.logger.Debug("Ping from Redis", slog.String("reply", pong))
	return nil
}

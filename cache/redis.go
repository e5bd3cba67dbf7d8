package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sanjiv-madhavan/go-natours/constants"
)

// SetGlobalInvalidation revokes every token issued before timestamp.
func (r *RedisClient) SetGlobalInvalidation(ctx context.Context, timestamp int64, ttl time.Duration) error {
	if err := r.Client.Set(ctx, constants.GlobalInvalidationKey, timestamp, ttl).Err(); err != nil {
		r.logger.Error("Global Invalidation Failed", slog.Any("error", err))
		return err
	}
	return nil
}

// SetUserSpecificInvalidation revokes the user's tokens issued before timestamp.
func (r *RedisClient) SetUserSpecificInvalidation(ctx context.Context, userID string, timestamp int64, ttl time.Duration) error {
	key := constants.UserInvalidation + ":" + userID
	if err := r.Client.Set(ctx, key, timestamp, ttl).Err(); err != nil {
		r.logger.Error(fmt.Sprintf("Token invalidation for %s user failed", userID), slog.Any("error", err))
		return err
	}
	return nil
}

func (r *RedisClient) GetGlobalInvalidation(ctx context.Context) (int64, error) {
	return r.getTimestamp(ctx, constants.GlobalInvalidationKey)
}

func (r *RedisClient) GetUserSpecificInvalidation(ctx context.Context, userID string) (int64, error) {
	return r.getTimestamp(ctx, constants.UserInvalidation+":"+userID)
}

func (r *RedisClient) getTimestamp(ctx context.Context, key string) (int64, error) {
	value, err := r.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		r.logger.Error("Failed to retrieve invalidation", slog.String("key", key), slog.Any("error", err))
		return 0, err
	}
	timestamp, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		r.logger.Error("Malformed invalidation timestamp", slog.String("key", key), slog.Any("error", err))
		return 0, err
	}
	return timestamp, nil
}

// Hit counts one request against key in a fixed window and returns the count
// so far together with the time left in the window.
func (r *RedisClient) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	redisKey := constants.RateLimitPrefix + ":" + key
	count, err := r.Client.Incr(ctx, redisKey).Result()
	if err != nil {
		return 0, 0, err
	}
	if count == 1 {
		if err := r.Client.Expire(ctx, redisKey, window).Err(); err != nil {
			return count, window, err
		}
		return count, window, nil
	}
	ttl, err := r.Client.TTL(ctx, redisKey).Result()
	if err != nil {
		return count, 0, err
	}
	return count, ttl, nil
}

package db

import (
	"context"
	"fmt"
	"time"

	"orpheus/config"

	"github.com/go-redis/redis/v8"
)

// RedisClient is the global Redis client.
var RedisClient *redis.Client

// ConnectRedis initializes the Redis connection.
func ConnectRedis(cfg *config.Config) error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return nil
}

// CloseRedis closes the Redis connection.
func CloseRedis() error {
	if RedisClient != nil {
		return RedisClient.Close()
	}
	return nil
}

// TestRedis verifies the connection with a round-trip write and read.
func TestRedis() error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	ctx := context.Background()

	err := RedisClient.Set(ctx, "orpheus:test_key", "Redis connection successful!", 5*time.Minute).Err()
	if err != nil {
		return fmt.Errorf("failed to set Redis key: %w", err)
	}

	if _, err := RedisClient.Get(ctx, "orpheus:test_key").Result(); err != nil {
		return fmt.Errorf("failed to get Redis key: %w", err)
	}

	return RedisClient.Del(ctx, "orpheus:test_key").Err()
}

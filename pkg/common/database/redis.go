package database

import (
	"context"
	"fmt"
	"time"

	"github.com/loopi346/MAIT-Privacy-Vault/pkg/common/config"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/common/logger"
	"github.com/redis/go-redis/v9"
)

// OpenRedis builds a client and verifies it answers a ping within five seconds.
func OpenRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Log.WithError(err).Error("Failed to connect to Redis")
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.Log.Info("Connected to Redis")
	return client, nil
}

package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/opencivica/legisync/pkg/utils"
)

// Client wraps redis for cross-process coordination. The scheduler uses it
// as a run lock so two daemons pointed at the same store never sync
// concurrently.
type Client struct {
	client *redis.Client
	logger *zap.Logger
}

// NewClient creates a redis client from environment configuration.
// Environment variables:
//   - REDIS_HOST: redis host (default: "localhost")
//   - REDIS_PORT: redis port (default: "6379")
//   - REDIS_PASSWORD: redis password (default: "")
//   - REDIS_DB: redis database number (default: "0")
func NewClient(ctx context.Context, logger *zap.Logger) (*Client, error) {
	host := utils.Env("REDIS_HOST", "localhost")
	port := utils.Env("REDIS_PORT", "6379")
	password := utils.Env("REDIS_PASSWORD", "")
	db := utils.EnvInt("REDIS_DB", 0)

	addr := fmt.Sprintf("%s:%s", host, port)

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		PoolSize:     10,
		MinIdleConns: 2,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	logger.Info("Connected to redis", zap.String("addr", addr), zap.Int("db", db))
	return &Client{client: rdb, logger: logger}, nil
}

// Close closes the redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// Acquire takes the named lock for ttl. Returns false when another holder
// already owns it. The TTL bounds the damage of a crashed holder.
func (c *Client) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, key, time.Now().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	return ok, nil
}

// Release drops the named lock. Best effort: an expired lock is already
// gone and that is fine.
func (c *Client) Release(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("Failed to release lock", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// internal/infrastructure/database/redis/connection.go
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/config"
)

const healthTimeout = 3 * time.Second

// Client is the API's handle on redis. It backs the per-IP request counters
// and the /health check.
type Client struct {
	rdb *redis.Client
}

// New wraps an existing go-redis client
func New(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// NewConnection dials redis from cfg and fails unless the server answers PING
func NewConnection(cfg *config.Config, log logrus.FieldLogger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolTimeout:  2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := New(rdb)
	if err := c.Health(ctx); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.GetRedisAddr(), err)
	}

	log.WithFields(logrus.Fields{
		"addr": cfg.GetRedisAddr(),
		"db":   cfg.Redis.DB,
	}).Info("✅ Redis connection established successfully")
	return c, nil
}

// Close releases the connection pool
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Health pings redis, bounded by healthTimeout
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

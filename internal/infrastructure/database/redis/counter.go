// internal/infrastructure/database/redis/counter.go
package redis

import (
	"context"
	"fmt"
	"time"
)

// IncrWindow increments the counter stored at key and returns the new count.
// Incr and Expire run in one MULTI so a key never outlives its window.
func (c *Client) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment %s: %w", key, err)
	}
	return incr.Val(), nil
}

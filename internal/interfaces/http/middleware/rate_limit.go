// internal/interfaces/http/middleware/rate_limit.go
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/interfaces/http/response"
)

const rateLimitWindow = time.Minute

// WindowCounter counts hits on a key that resets after window
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimit allows RateLimitPerMinute requests per client IP in each fixed
// one-minute window. Requests pass when counter is nil or unreachable.
func RateLimit(cfg *config.Config, counter WindowCounter, log logrus.FieldLogger) gin.HandlerFunc {
	limit := cfg.Security.RateLimitPerMinute

	return func(c *gin.Context) {
		if counter == nil || limit <= 0 {
			c.Next()
			return
		}

		window := time.Now().Unix() / int64(rateLimitWindow.Seconds())
		key := fmt.Sprintf("rate_limit:%s:%d", c.ClientIP(), window)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
		defer cancel()

		count, err := counter.IncrWindow(ctx, key, rateLimitWindow)
		if err != nil {
			log.WithError(err).Warn("rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		current := int(count)
		reset := (window + 1) * int64(rateLimitWindow.Seconds())

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(limit-current, 0)))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(reset, 10))

		if current > limit {
			c.Header("Retry-After", strconv.FormatInt(reset-time.Now().Unix(), 10))
			response.Failure(c, http.StatusTooManyRequests, "Too many requests, please try again later", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}

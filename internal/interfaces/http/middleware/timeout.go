// internal/interfaces/http/middleware/timeout.go
package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-api/internal/interfaces/http/response"
)

// Timeout bounds the request context. Services observe the deadline through
// ctx; a handler that ran out of time without writing gets a 503.
func Timeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			c.Errors = c.Errors[:0]
			response.Failure(c, http.StatusServiceUnavailable, "Request timeout", nil)
		}
	}
}

// internal/interfaces/http/middleware/error.go
package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/interfaces/http/response"
	"github.com/your-org/storefront-api/internal/pkg/apperror"
	"gorm.io/gorm"
)

// ErrorHandler renders errors attached with c.Error and recovered panics
// as the failure envelope. It must be registered before any handler that
// reports errors.
func ErrorHandler(cfg *config.Config, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(logrus.Fields{
					"request_id": c.GetString(requestIDKey),
					"method":     c.Request.Method,
					"path":       c.Request.URL.Path,
					"panic":      r,
				}).Error("Panic recovered")

				render(c, cfg, log, apperror.Internal(fmt.Errorf("panic: %v", r)))
				c.Abort()
			}
		}()

		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		render(c, cfg, log, c.Errors.Last().Err)
	}
}

func render(c *gin.Context, cfg *config.Config, log logrus.FieldLogger, err error) {
	if c.Writer.Written() {
		return
	}

	appErr := classify(err)
	status := appErr.StatusCode()
	message := appErr.Message

	if status >= http.StatusInternalServerError {
		log.WithError(err).WithFields(logrus.Fields{
			"request_id": c.GetString(requestIDKey),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
		}).Error("Request failed")

		if !cfg.IsProduction() && appErr.Err != nil {
			message = appErr.Err.Error()
		}
	}

	response.Failure(c, status, message, appErr.Fields)
}

func classify(err error) *apperror.Error {
	if appErr, ok := apperror.From(err); ok {
		return appErr
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperror.NotFound("Resource not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperror.Conflict("Resource already exists")
	}
	return apperror.Internal(err)
}

// NotFound answers unknown routes with the failure envelope
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Failure(c, http.StatusNotFound, "Route not found", nil)
	}
}

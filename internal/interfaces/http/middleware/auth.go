// internal/interfaces/http/middleware/auth.go
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/pkg/apperror"
	"github.com/your-org/storefront-api/internal/pkg/auth"
)

const principalKey = "principal"

// AuthMiddleware creates JWT authentication middleware
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	jwtManager := auth.NewJWTManager(cfg)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, apperror.Unauthorized("Authorization header required"))
			return
		}

		tokenString := auth.ExtractTokenFromHeader(authHeader)
		if tokenString == "" {
			abort(c, apperror.Unauthorized("Invalid authorization header format"))
			return
		}

		claims, err := jwtManager.ValidateToken(tokenString)
		if err != nil {
			abort(c, apperror.Unauthorized("Invalid or expired token"))
			return
		}

		c.Set(principalKey, claims.Principal())
		c.Next()
	}
}

// AdminMiddleware ensures the authenticated caller has the ADMIN role
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			abort(c, apperror.Unauthorized("Authentication required"))
			return
		}

		if !principal.IsAdmin() {
			abort(c, apperror.Forbidden("Admin access required"))
			return
		}

		c.Next()
	}
}

// GetPrincipal returns the caller identity set by AuthMiddleware
func GetPrincipal(c *gin.Context) (auth.Principal, bool) {
	value, exists := c.Get(principalKey)
	if !exists {
		return auth.Principal{}, false
	}
	principal, ok := value.(auth.Principal)
	return principal, ok
}

func abort(c *gin.Context, err *apperror.Error) {
	_ = c.Error(err)
	c.Abort()
}

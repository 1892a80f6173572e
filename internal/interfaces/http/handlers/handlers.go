// internal/interfaces/http/handlers/handlers.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-api/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-api/internal/interfaces/http/validation"
	"github.com/your-org/storefront-api/internal/pkg/apperror"
	"github.com/your-org/storefront-api/internal/pkg/auth"
)

// bindJSON binds the request body and reports binding failures through c.Error
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		_ = c.Error(validation.FromBindError(err))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		_ = c.Error(validation.FromBindError(err))
		return false
	}
	return true
}

// pathID parses a numeric path parameter
func pathID(c *gin.Context, param string) (uint, bool) {
	id, err := validation.ParseID(c.Param(param), param)
	if err != nil {
		_ = c.Error(err)
		return 0, false
	}
	return id, true
}

// principal returns the authenticated caller. Routes using it sit behind
// AuthMiddleware, so a missing principal is a wiring error reported as 401.
func principal(c *gin.Context) (auth.Principal, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		_ = c.Error(apperror.Unauthorized("Authentication required"))
		return auth.Principal{}, false
	}
	return p, true
}

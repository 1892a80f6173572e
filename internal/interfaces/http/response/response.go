// internal/interfaces/http/response/response.go

// Package response writes the JSON envelope shared by every endpoint.
package response

import (
	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-api/internal/pkg/apperror"
)

// Envelope is the body of every API response
type Envelope struct {
	Success bool                  `json:"success"`
	Data    interface{}           `json:"data,omitempty"`
	Message string                `json:"message,omitempty"`
	Errors  []apperror.FieldError `json:"errors,omitempty"`
}

// Success writes {success: true, data}
func Success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

// Message writes {success: true, message}
func Message(c *gin.Context, status int, message string) {
	c.JSON(status, Envelope{Success: true, Message: message})
}

// Failure writes {success: false, message, errors?}
func Failure(c *gin.Context, status int, message string, fields []apperror.FieldError) {
	c.JSON(status, Envelope{Success: false, Message: message, Errors: fields})
}

package utils

import (
	"errors"
	"fmt"
	"net/http"

	"servicehub/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NotFoundError means a referenced booking, user or conversation does not
// exist. It is never retried.
type NotFoundError struct {
	Code    string
	Kind    string
	ID      string
	Message string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewNotFoundError(kind, id string) error {
	return &NotFoundError{
		Code:    "notFound",
		Kind:    kind,
		ID:      id,
		Message: fmt.Sprintf("%s %s does not exist", kind, id),
	}
}

// NotFoundIfMissing converts store.ErrNotFound into a NotFoundError and
// passes every other error through.
func NotFoundIfMissing(err error, kind, id string) error {
	if errors.Is(err, store.ErrNotFound) {
		return NewNotFoundError(kind, id)
	}
	return err
}

// ErrorResponse defines the structure of error responses
type ErrorResponse struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ErrorHandler is a middleware to catch panics and return structured errors
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				GetLogger().Error("Unhandled panic", zap.Any("error", err))

				c.JSON(http.StatusInternalServerError, ErrorResponse{
					Message: "Internal Server Error",
					Details: "An unexpected error occurred. Please try again later.",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// JSONError sends a standardized JSON error response
func JSONError(c *gin.Context, status int, message string, details string) {
	GetLogger().Warn(message, zap.String("details", details))
	c.JSON(status, ErrorResponse{Message: message, Details: details})
}

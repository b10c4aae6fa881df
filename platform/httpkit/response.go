// Package httpkit provides HTTP response utilities.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"errors"
	"net/http"

	"leadpipe_backend/platform/apperr"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// Error sends an error response with the given status code and message.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	c.JSON(status, ErrorResponse{Error: message, Code: code, Details: details})
}

// OK sends a 200 OK response with the given payload.
func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// NoContent sends a 204 with an empty body.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// HandleError maps domain errors to HTTP responses.
// A typed *apperr.Error anywhere in the chain decides the status and code.
// Anything else is an unexpected failure: 500, reported to Sentry.
// Returns true if an error was handled, false otherwise.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var domainErr *apperr.Error
	if errors.As(err, &domainErr) {
		status := domainErr.HTTPStatus()
		if status >= http.StatusInternalServerError {
			_ = c.Error(err)
			sentry.CaptureException(err)
		}
		message := domainErr.Message
		if status >= http.StatusInternalServerError {
			message = "internal server error"
		}
		c.AbortWithStatusJSON(status, ErrorResponse{
			Error:   message,
			Code:    domainErr.ResponseCode(),
			Details: domainErr.Details,
		})
		return true
	}

	_ = c.Error(err)
	sentry.CaptureException(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		Error: "internal server error",
		Code:  apperr.CodeInternal,
	})
	return true
}

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"payments/internal/repository"
	"payments/internal/service"
)

// ErrorResponse is the structured error body returned by the read API.
type ErrorResponse struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Path    string `json:"path"`
}

// respondError sends a structured error response for the given failure.
func respondError(c *gin.Context, err error, message string) {
	status, code := mapError(err)
	if status == http.StatusInternalServerError {
		// Do not leak internals on unexpected failures.
		message = "Something went wrong. Please try again."
	}

	c.JSON(status, ErrorResponse{
		Status:  status,
		Error:   code,
		Message: message,
		Path:    c.Request.URL.Path,
	})
}

// mapError maps service/repository errors to an HTTP status and error code.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, service.ErrInvalidPaymentID):
		return http.StatusBadRequest, "BAD_REQUEST"
	default:
		return http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"
	}
}

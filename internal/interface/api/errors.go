package api

import (
	"errors"
	"net/http"

	"tripcast-service/internal/domain/repository"
	"tripcast-service/internal/usecase"
	"tripcast-service/pkg/logger"
	"tripcast-service/pkg/utils"

	"github.com/gin-gonic/gin"
)

// Error codes that are not phase gate codes
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeTripNotFound         = "TRIP_NOT_FOUND"
	CodeProvidersUnavailable = "PROVIDERS_UNAVAILABLE"
	CodeMalformedOutput      = "MALFORMED_OUTPUT"
	CodeRateLimited          = "RATE_LIMITED"
	CodeInternal             = "INTERNAL_ERROR"
)

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// JSONError sends a standardized JSON error response
func JSONError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message, Code: code})
}

// respondError maps service errors onto HTTP statuses
func respondError(c *gin.Context, log logger.Logger, err error) {
	var (
		violation *usecase.PhaseViolationError
		exhausted *usecase.AllProvidersFailedError
		malformed *utils.MalformedOutputError
	)

	switch {
	case errors.As(err, &violation):
		JSONError(c, http.StatusBadRequest, string(violation.Result.Code), violation.Result.Message)
	case errors.Is(err, repository.ErrTripNotFound):
		JSONError(c, http.StatusNotFound, CodeTripNotFound, "trip not found")
	case errors.As(err, &exhausted):
		log.Warn("Providers unavailable", "path", c.FullPath(), "error", err)
		JSONError(c, http.StatusServiceUnavailable, CodeProvidersUnavailable, "Our travel providers are unavailable right now. Please try again shortly.")
	case errors.As(err, &malformed):
		log.Warn("Malformed provider output", "path", c.FullPath(), "error", err)
		JSONError(c, http.StatusBadGateway, CodeMalformedOutput, "We couldn't read the planner's answer. Please try again.")
	default:
		log.Error("Request failed", "path", c.FullPath(), "error", err)
		JSONError(c, http.StatusInternalServerError, CodeInternal, "An unexpected error occurred. Please try again later.")
	}
}

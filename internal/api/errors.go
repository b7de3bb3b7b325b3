package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cindy0891101/nordictrip.fi.sw/internal/core"
	"github.com/cindy0891101/nordictrip.fi.sw/internal/imageutil"
)

// mapTripErrorToStatus maps errors from the core services to HTTP status codes and ErrorResponse.
func mapTripErrorToStatus(c *gin.Context, logger *zap.Logger, err error) {
	var statusCode int
	var errResponse ErrorResponse

	// Order matters only where errors wrap one another; client errors come first.
	switch {
	case errors.Is(err, core.ErrMissingMemberID):
		statusCode = http.StatusBadRequest
		errResponse = ErrorResponse{Error: core.ErrMissingMemberID.Error()}
	case errors.Is(err, core.ErrInvalidField):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrInvalidField.Error(), Details: err.Error()}
	case errors.Is(err, core.ErrValidation):
		statusCode = http.StatusBadRequest
		errResponse = ErrorResponse{Error: core.ErrValidation.Error(), Details: err.Error()}
	case errors.Is(err, core.ErrMemberNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrMemberNotFound.Error()}
	case errors.Is(err, core.ErrDateNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrDateNotFound.Error(), Details: err.Error()}
	case errors.Is(err, core.ErrItemNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrItemNotFound.Error(), Details: err.Error()}
	case errors.Is(err, core.ErrDateExists):
		statusCode = http.StatusConflict
		errResponse = ErrorResponse{Error: core.ErrDateExists.Error(), Details: err.Error()}
	// Upload problems are the client's input, not a server fault.
	case errors.Is(err, imageutil.ErrUnsupportedImage):
		statusCode = http.StatusUnsupportedMediaType
		errResponse = ErrorResponse{Error: imageutil.ErrUnsupportedImage.Error(), Details: "supported formats are JPEG, PNG, GIF and WebP"}
	case errors.Is(err, imageutil.ErrImageTooLarge):
		statusCode = http.StatusRequestEntityTooLarge
		errResponse = ErrorResponse{Error: imageutil.ErrImageTooLarge.Error()}
	case errors.Is(err, core.ErrIdentity):
		statusCode = http.StatusServiceUnavailable
		errResponse = ErrorResponse{Error: core.ErrIdentity.Error()}
		logger.Error("Identity not available", zap.Error(err))
	default:
		// Anything unrecognised is treated as a server fault and logged as such.
		logger.Error("Internal Server Error", zap.Error(err))
		statusCode = http.StatusInternalServerError
		errResponse = ErrorResponse{Error: "An unexpected internal server error occurred."}
	}
	c.JSON(statusCode, errResponse)
}

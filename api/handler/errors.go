package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagesnap/models"
)

// respondError maps a CaptureError to the correct HTTP status code and
// writes a structured JSON error response.
func respondError(c *gin.Context, captureID string, err error, timing models.TimingInfo) {
	var ce *models.CaptureError
	if !errors.As(err, &ce) {
		ce = models.NewCaptureError(models.ErrCodeInternal, "internal error", err)
	}

	c.JSON(mapErrorToStatus(ce), models.CaptureResponse{
		Success:   false,
		CaptureID: captureID,
		Error:     ce.ToDetail(),
		Timing:    timing,
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.CaptureError) int {
	switch e.Code {
	case models.ErrCodeNavigationTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited, models.ErrCodeBusy:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}

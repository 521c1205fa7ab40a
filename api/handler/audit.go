package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagesnap/audit"
	"github.com/use-agent/pagesnap/models"
)

// Audit returns a handler for POST /api/v1/audit. The snapshot travels in
// the request body and the fixed markup comes back in the response.
func Audit() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.AuditRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.AuditResponse{
				Success:  false,
				Findings: []models.Finding{},
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		res, err := audit.Fix(req.HTML, audit.Options{Lang: req.Lang, Rules: req.Rules})
		if err != nil {
			var ce *models.CaptureError
			if !errors.As(err, &ce) {
				ce = models.NewCaptureError(models.ErrCodeInternal, "internal error", err)
			}
			c.JSON(mapErrorToStatus(ce), models.AuditResponse{
				Success:  false,
				Findings: []models.Finding{},
				Error:    ce.ToDetail(),
			})
			return
		}

		c.JSON(http.StatusOK, models.AuditResponse{
			Success:  true,
			Findings: res.Findings,
			Markup:   res.Markup,
		})
	}
}

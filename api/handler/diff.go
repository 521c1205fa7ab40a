package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagesnap/diff"
	"github.com/use-agent/pagesnap/models"
)

// Diff returns a handler for POST /api/v1/diff. Both snapshots travel in
// the request body; nothing is read from the server's filesystem.
func Diff() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.DiffRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.DiffResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		r := diff.Compare(req.Before, req.After)
		c.JSON(http.StatusOK, models.DiffResponse{
			Success:            true,
			Insertions:         r.Insertions,
			Deletions:          r.Deletions,
			ContentDistance:    r.ContentDistance,
			StructuralDistance: r.StructuralDistance,
			Markup:             r.Markup,
		})
	}
}

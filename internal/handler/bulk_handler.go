package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acadsys/teaching-load-api/internal/models"
	appErrors "github.com/acadsys/teaching-load-api/pkg/errors"
	"github.com/acadsys/teaching-load-api/pkg/response"
)

type bulkService interface {
	CreateBulk(ctx context.Context, userID int64, batch models.BulkBatch) (*models.BulkResult, error)
}

// BulkHandler exposes batch assignment creation.
type BulkHandler struct {
	service bulkService
}

// NewBulkHandler constructs the handler.
func NewBulkHandler(service bulkService) *BulkHandler {
	return &BulkHandler{service: service}
}

// Create godoc
// @Summary Create several assignments for one group in a single call
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body models.BulkBatch true "Bulk batch"
// @Success 200 {object} response.Envelope
// @Router /assignments/bulk [post]
func (h *BulkHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var batch models.BulkBatch
	if err := c.ShouldBindJSON(&batch); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid bulk payload"))
		return
	}
	result, err := h.service.CreateBulk(c.Request.Context(), claims.UserID, batch)
	if err != nil {
		response.Error(c, err)
		return
	}
	// Partial failure is still a 200; the result itemizes every failed pair.
	response.JSON(c, http.StatusOK, result, nil)
}

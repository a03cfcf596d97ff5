package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/acadsys/teaching-load-api/internal/models"
	appErrors "github.com/acadsys/teaching-load-api/pkg/errors"
	"github.com/acadsys/teaching-load-api/pkg/response"
)

type versionService interface {
	List(ctx context.Context, assignmentID int64) ([]models.Version, error)
	Compare(ctx context.Context, assignmentID, v1ID, v2ID int64) (*models.VersionDiff, error)
	Restore(ctx context.Context, userID, assignmentID, versionID int64) (*models.Assignment, error)
}

// VersionHandler exposes the assignment version ledger.
type VersionHandler struct {
	service versionService
}

// NewVersionHandler constructs the handler.
func NewVersionHandler(service versionService) *VersionHandler {
	return &VersionHandler{service: service}
}

// List godoc
// @Summary List the version history of an assignment
// @Tags Versions
// @Produce json
// @Param id path int true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/versions [get]
func (h *VersionHandler) List(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid assignment id"))
		return
	}
	versions, err := h.service.List(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, versions, nil)
}

// Compare godoc
// @Summary Compare two versions of an assignment
// @Tags Versions
// @Produce json
// @Param id path int true "Assignment ID"
// @Param v1 query int true "Base version ID"
// @Param v2 query int true "Target version ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/versions/compare [get]
func (h *VersionHandler) Compare(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid assignment id"))
		return
	}
	v1, err1 := strconv.ParseInt(c.Query("v1"), 10, 64)
	v2, err2 := strconv.ParseInt(c.Query("v2"), 10, 64)
	if err1 != nil || err2 != nil || v1 <= 0 || v2 <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "v1 and v2 version ids are required"))
		return
	}
	diff, err := h.service.Compare(c.Request.Context(), id, v1, v2)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, diff, nil)
}

// Restore godoc
// @Summary Restore an approved assignment to a previous version
// @Tags Versions
// @Produce json
// @Param id path int true "Assignment ID"
// @Param versionId path int true "Version ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/versions/{versionId}/restore [post]
func (h *VersionHandler) Restore(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid assignment id"))
		return
	}
	versionID, ok := pathID(c, "versionId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid version id"))
		return
	}
	assignment, err := h.service.Restore(c.Request.Context(), claims.UserID, id, versionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acadsys/teaching-load-api/internal/models"
	appErrors "github.com/acadsys/teaching-load-api/pkg/errors"
	"github.com/acadsys/teaching-load-api/pkg/response"
)

type groupCatalogService interface {
	GetGroup(ctx context.Context, id int64) (*models.Group, error)
}

type groupingService interface {
	Grouped(ctx context.Context, filter models.AssignmentFilter) ([]models.GroupedAssignments, error)
}

type courseSelectionService interface {
	SelectableCourses(ctx context.Context, groupID int64) ([]models.Course, error)
}

// GroupHandler exposes course groups and the grouped assignment view.
type GroupHandler struct {
	catalog  groupCatalogService
	grouping groupingService
	courses  courseSelectionService
}

// NewGroupHandler constructs the handler.
func NewGroupHandler(catalog groupCatalogService, grouping groupingService, courses courseSelectionService) *GroupHandler {
	return &GroupHandler{catalog: catalog, grouping: grouping, courses: courses}
}

// Get godoc
// @Summary Get one course group
// @Tags Groups
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{id} [get]
func (h *GroupHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid group id"))
		return
	}
	group, err := h.catalog.GetGroup(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, group, nil)
}

// Courses godoc
// @Summary List the courses selectable for a group's bulk batch
// @Tags Groups
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{id}/courses [get]
func (h *GroupHandler) Courses(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid group id"))
		return
	}
	courses, err := h.courses.SelectableCourses(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// Grouped godoc
// @Summary View assignments aggregated by course group
// @Tags Assignments
// @Produce json
// @Param group_id query int false "Course group ID"
// @Param teacher_id query int false "Teacher ID"
// @Param approval_state query string false "Approval state"
// @Success 200 {object} response.Envelope
// @Router /assignments/grouped [get]
func (h *GroupHandler) Grouped(c *gin.Context) {
	filter, err := assignmentFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	grouped, err := h.grouping.Grouped(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grouped, nil)
}

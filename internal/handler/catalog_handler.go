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

type catalogService interface {
	Departments(ctx context.Context) ([]models.Department, error)
	Careers(ctx context.Context) ([]models.Career, error)
	Teachers(ctx context.Context) ([]models.Teacher, error)
	Courses(ctx context.Context, careerID *int64) ([]models.Course, error)
}

// CatalogHandler serves the read-only reference catalogs.
type CatalogHandler struct {
	service catalogService
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(service catalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// Departments godoc
// @Summary List departments
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /departments [get]
func (h *CatalogHandler) Departments(c *gin.Context) {
	departments, err := h.service.Departments(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, departments, nil)
}

// Careers godoc
// @Summary List careers
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /careers [get]
func (h *CatalogHandler) Careers(c *gin.Context) {
	careers, err := h.service.Careers(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, careers, nil)
}

// Courses godoc
// @Summary List courses
// @Tags Catalog
// @Produce json
// @Param career_id query int false "Career ID"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CatalogHandler) Courses(c *gin.Context) {
	var careerID *int64
	if raw := c.Query("career_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid career_id"))
			return
		}
		careerID = &id
	}
	courses, err := h.service.Courses(c.Request.Context(), careerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// Teachers godoc
// @Summary List active teachers
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /teachers [get]
func (h *CatalogHandler) Teachers(c *gin.Context) {
	teachers, err := h.service.Teachers(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, nil)
}

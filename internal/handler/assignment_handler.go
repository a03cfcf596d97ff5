package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/acadsys/teaching-load-api/internal/dto"
	"github.com/acadsys/teaching-load-api/internal/models"
	appErrors "github.com/acadsys/teaching-load-api/pkg/errors"
	"github.com/acadsys/teaching-load-api/pkg/response"
)

type assignmentReadService interface {
	Get(ctx context.Context, id int64) (*models.AssignmentDetail, error)
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, *models.Pagination, error)
	AuditTrail(ctx context.Context, assignmentID int64) ([]models.AuditLog, error)
}

type workflowService interface {
	CreateDraft(ctx context.Context, userID int64, req dto.CreateAssignmentRequest) (*models.Assignment, error)
	UpdateDraft(ctx context.Context, userID, assignmentID int64, req dto.UpdateDraftRequest) (*models.Assignment, error)
	SubmitForReview(ctx context.Context, userID, assignmentID int64) (*models.Assignment, error)
	Review(ctx context.Context, userID, assignmentID int64, req dto.ReviewRequest) (*models.Assignment, error)
	FinalApprove(ctx context.Context, userID, assignmentID int64, req dto.DecisionRequest) (*models.Assignment, error)
	Reject(ctx context.Context, userID, assignmentID int64, req dto.DecisionRequest) (*models.Assignment, error)
	PermittedActions(ctx context.Context, userID, assignmentID int64) ([]models.WorkflowAction, error)
}

// AssignmentHandler exposes REST endpoints for teaching load assignments and
// their approval workflow.
type AssignmentHandler struct {
	reads    assignmentReadService
	workflow workflowService
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(reads assignmentReadService, workflow workflowService) *AssignmentHandler {
	return &AssignmentHandler{reads: reads, workflow: workflow}
}

// Create godoc
// @Summary Create a draft assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body dto.CreateAssignmentRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Router /assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid assignment payload"))
		return
	}
	assignment, err := h.workflow.CreateDraft(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// Get godoc
// @Summary Get assignment detail
// @Tags Assignments
// @Produce json
// @Param id path int true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id} [get]
func (h *AssignmentHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid assignment id"))
		return
	}
	detail, err := h.reads.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// List godoc
// @Summary List assignments
// @Tags Assignments
// @Produce json
// @Param group_id query int false "Course group ID"
// @Param teacher_id query int false "Teacher ID"
// @Param approval_state query string false "Approval state"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	filter, err := assignmentFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	details, pagination, err := h.reads.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, details, pagination)
}

// Update godoc
// @Summary Edit a draft assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path int true "Assignment ID"
// @Param payload body dto.UpdateDraftRequest true "Draft changes"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id} [put]
func (h *AssignmentHandler) Update(c *gin.Context) {
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
	var req dto.UpdateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid draft payload"))
		return
	}
	assignment, err := h.workflow.UpdateDraft(c.Request.Context(), claims.UserID, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Submit godoc
// @Summary Submit an assignment for review
// @Tags Workflow
// @Produce json
// @Param id path int true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/submit [post]
func (h *AssignmentHandler) Submit(c *gin.Context) {
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
	assignment, err := h.workflow.SubmitForReview(c.Request.Context(), claims.UserID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Review godoc
// @Summary Record the department head review decision
// @Tags Workflow
// @Accept json
// @Produce json
// @Param id path int true "Assignment ID"
// @Param payload body dto.ReviewRequest true "Review decision"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/review [post]
func (h *AssignmentHandler) Review(c *gin.Context) {
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
	var req dto.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid review payload"))
		return
	}
	assignment, err := h.workflow.Review(c.Request.Context(), claims.UserID, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Approve godoc
// @Summary Grant final approval
// @Tags Workflow
// @Accept json
// @Produce json
// @Param id path int true "Assignment ID"
// @Param payload body dto.DecisionRequest false "Optional notes"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/approve [post]
func (h *AssignmentHandler) Approve(c *gin.Context) {
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
	var req dto.DecisionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid approval payload"))
			return
		}
	}
	assignment, err := h.workflow.FinalApprove(c.Request.Context(), claims.UserID, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Reject godoc
// @Summary Reject an in-flight assignment
// @Tags Workflow
// @Accept json
// @Produce json
// @Param id path int true "Assignment ID"
// @Param payload body dto.DecisionRequest false "Optional notes"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/reject [post]
func (h *AssignmentHandler) Reject(c *gin.Context) {
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
	var req dto.DecisionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid rejection payload"))
			return
		}
	}
	assignment, err := h.workflow.Reject(c.Request.Context(), claims.UserID, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Actions godoc
// @Summary List workflow actions the caller may perform
// @Tags Workflow
// @Produce json
// @Param id path int true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/actions [get]
func (h *AssignmentHandler) Actions(c *gin.Context) {
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
	actions, err := h.workflow.PermittedActions(c.Request.Context(), claims.UserID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"actions": actions}, nil)
}

// AuditTrail godoc
// @Summary List the audit trail for an assignment
// @Tags Assignments
// @Produce json
// @Param id path int true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/audit [get]
func (h *AssignmentHandler) AuditTrail(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid assignment id"))
		return
	}
	logs, err := h.reads.AuditTrail(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}

func assignmentFilterFromQuery(c *gin.Context) (models.AssignmentFilter, error) {
	var filter models.AssignmentFilter

	if raw := c.Query("group_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid group_id")
		}
		filter.GroupID = &id
	}
	if raw := c.Query("teacher_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid teacher_id")
		}
		filter.TeacherID = &id
	}
	if raw := c.Query("approval_state"); raw != "" {
		state := models.ApprovalState(raw)
		if !state.Valid() {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid approval_state")
		}
		filter.ApprovalState = &state
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return filter, nil
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/acadsys/teaching-load-api/internal/dto"
	"github.com/acadsys/teaching-load-api/internal/middleware"
	"github.com/acadsys/teaching-load-api/internal/models"
	appErrors "github.com/acadsys/teaching-load-api/pkg/errors"
)

type assignmentReadStub struct {
	detail *models.AssignmentDetail
	trail  []models.AuditLog
	err    error
	filter models.AssignmentFilter
}

func (s *assignmentReadStub) Get(_ context.Context, _ int64) (*models.AssignmentDetail, error) {
	return s.detail, s.err
}

func (s *assignmentReadStub) AuditTrail(_ context.Context, _ int64) ([]models.AuditLog, error) {
	return s.trail, s.err
}

func (s *assignmentReadStub) List(_ context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, *models.Pagination, error) {
	s.filter = filter
	if s.err != nil {
		return nil, nil, s.err
	}
	return []models.AssignmentDetail{*s.detail}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, nil
}

type workflowStub struct {
	assignment *models.Assignment
	actions    []models.WorkflowAction
	err        error
	userID     int64
	createReq  dto.CreateAssignmentRequest
}

func (s *workflowStub) CreateDraft(_ context.Context, userID int64, req dto.CreateAssignmentRequest) (*models.Assignment, error) {
	s.userID = userID
	s.createReq = req
	return s.assignment, s.err
}

func (s *workflowStub) UpdateDraft(_ context.Context, userID, _ int64, _ dto.UpdateDraftRequest) (*models.Assignment, error) {
	s.userID = userID
	return s.assignment, s.err
}

func (s *workflowStub) SubmitForReview(_ context.Context, userID, _ int64) (*models.Assignment, error) {
	s.userID = userID
	return s.assignment, s.err
}

func (s *workflowStub) Review(_ context.Context, userID, _ int64, _ dto.ReviewRequest) (*models.Assignment, error) {
	s.userID = userID
	return s.assignment, s.err
}

func (s *workflowStub) FinalApprove(_ context.Context, userID, _ int64, _ dto.DecisionRequest) (*models.Assignment, error) {
	s.userID = userID
	return s.assignment, s.err
}

func (s *workflowStub) Reject(_ context.Context, userID, _ int64, _ dto.DecisionRequest) (*models.Assignment, error) {
	s.userID = userID
	return s.assignment, s.err
}

func (s *workflowStub) PermittedActions(_ context.Context, userID, _ int64) ([]models.WorkflowAction, error) {
	s.userID = userID
	return s.actions, s.err
}

func newAssignmentRouter(reads assignmentReadService, workflow workflowService, claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if claims != nil {
		r.Use(func(c *gin.Context) { c.Set(middleware.ContextUserKey, claims) })
	}
	h := NewAssignmentHandler(reads, workflow)
	r.POST("/assignments", h.Create)
	r.GET("/assignments", h.List)
	r.GET("/assignments/:id", h.Get)
	r.POST("/assignments/:id/submit", h.Submit)
	r.POST("/assignments/:id/approve", h.Approve)
	r.GET("/assignments/:id/actions", h.Actions)
	r.GET("/assignments/:id/audit", h.AuditTrail)
	return r
}

func coordinatorClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: 100, RoleID: models.RoleCoordinator, RoleName: "coordinator"}
}

func TestAssignmentHandlerCreate(t *testing.T) {
	workflow := &workflowStub{assignment: &models.Assignment{ID: 1, ApprovalState: models.ApprovalDraft}}
	r := newAssignmentRouter(&assignmentReadStub{}, workflow, coordinatorClaims())

	body := `{"group_id":10,"course_id":20,"teacher_id":30}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/assignments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, int64(100), workflow.userID)
	require.Equal(t, int64(20), workflow.createReq.CourseID)
	require.Contains(t, w.Body.String(), `"approval_state":"borrador"`)
}

func TestAssignmentHandlerCreateRequiresAuth(t *testing.T) {
	r := newAssignmentRouter(&assignmentReadStub{}, &workflowStub{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/assignments", strings.NewReader(`{"group_id":1,"course_id":2,"teacher_id":3}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAssignmentHandlerGetInvalidID(t *testing.T) {
	r := newAssignmentRouter(&assignmentReadStub{}, &workflowStub{}, coordinatorClaims())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/assignments/abc", nil))

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), `"code":"VALIDATION_ERROR"`)
}

func TestAssignmentHandlerListParsesFilters(t *testing.T) {
	name := "Algorithms"
	reads := &assignmentReadStub{detail: &models.AssignmentDetail{
		Assignment: models.Assignment{ID: 1, ApprovalState: models.ApprovalApproved},
		GroupCode:  "G-101",
		CourseName: &name,
	}}
	r := newAssignmentRouter(reads, &workflowStub{}, coordinatorClaims())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/assignments?group_id=10&approval_state=aprobada&page=2&page_size=5", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, reads.filter.GroupID)
	require.Equal(t, int64(10), *reads.filter.GroupID)
	require.Equal(t, models.ApprovalApproved, *reads.filter.ApprovalState)
	require.Equal(t, 2, reads.filter.Page)
	require.Equal(t, 5, reads.filter.PageSize)
	require.Contains(t, w.Body.String(), `"pagination"`)
}

func TestAssignmentHandlerListRejectsUnknownState(t *testing.T) {
	r := newAssignmentRouter(&assignmentReadStub{}, &workflowStub{}, coordinatorClaims())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/assignments?approval_state=published", nil))

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssignmentHandlerSubmitPropagatesWorkflowError(t *testing.T) {
	workflow := &workflowStub{err: appErrors.Clone(appErrors.ErrStateConflict, "assignment is not submittable")}
	r := newAssignmentRouter(&assignmentReadStub{}, workflow, coordinatorClaims())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/assignments/1/submit", nil))

	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), `"code":"STATE_CONFLICT"`)
}

func TestAssignmentHandlerApproveWithoutBody(t *testing.T) {
	workflow := &workflowStub{assignment: &models.Assignment{ID: 1, ApprovalState: models.ApprovalApproved, CurrentVersion: 2}}
	r := newAssignmentRouter(&assignmentReadStub{}, workflow, coordinatorClaims())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/assignments/1/approve", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"current_version":2`)
}

func TestAssignmentHandlerAuditTrail(t *testing.T) {
	actor := int64(100)
	reads := &assignmentReadStub{trail: []models.AuditLog{
		{ID: 2, UserID: &actor, Action: models.AuditActionSubmitForReview, Resource: "assignment"},
		{ID: 1, UserID: &actor, Action: models.AuditActionDraftCreate, Resource: "assignment"},
	}}
	r := newAssignmentRouter(reads, &workflowStub{}, coordinatorClaims())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/assignments/1/audit", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []models.AuditLog `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	require.Equal(t, models.AuditActionSubmitForReview, body.Data[0].Action)
}

func TestAssignmentHandlerActions(t *testing.T) {
	workflow := &workflowStub{actions: []models.WorkflowAction{models.ActionReview, models.ActionReject}}
	r := newAssignmentRouter(&assignmentReadStub{}, workflow, coordinatorClaims())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/assignments/1/actions", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			Actions []models.WorkflowAction `json:"actions"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, []models.WorkflowAction{models.ActionReview, models.ActionReject}, body.Data.Actions)
}

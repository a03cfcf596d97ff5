package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/acadsys/teaching-load-api/internal/models"
	appErrors "github.com/acadsys/teaching-load-api/pkg/errors"
)

type detailReaderStub struct {
	detail *models.AssignmentDetail
	err    error
}

func (s *detailReaderStub) GetDetailByID(ctx context.Context, id int64) (*models.AssignmentDetail, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.detail, nil
}

func (s *detailReaderStub) List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	return []models.AssignmentDetail{*s.detail}, 1, nil
}

type auditTrailStub struct {
	logs     []models.AuditLog
	resource string
	err      error
}

func (s *auditTrailStub) ListByResource(ctx context.Context, resource string, resourceID int64) ([]models.AuditLog, error) {
	s.resource = resource
	if s.err != nil {
		return nil, s.err
	}
	return s.logs, nil
}

func sampleDetail() *models.AssignmentDetail {
	return &models.AssignmentDetail{
		Assignment: models.Assignment{ID: 1, GroupID: 10, CourseID: 20, TeacherID: 30},
		GroupCode:  "G-101",
	}
}

func TestAssignmentGetNotFound(t *testing.T) {
	svc := NewAssignmentService(&detailReaderStub{err: sql.ErrNoRows}, &auditTrailStub{}, nil, nil)

	_, err := svc.Get(context.Background(), 99)
	requireCode(t, err, appErrors.ErrNotFound.Code)
}

func TestAssignmentListClampsPagination(t *testing.T) {
	reads := &detailReaderStub{detail: sampleDetail()}
	svc := NewAssignmentService(reads, &auditTrailStub{}, nil, nil)

	_, pagination, err := svc.List(context.Background(), models.AssignmentFilter{Page: -1, PageSize: 500})
	require.NoError(t, err)
	require.Equal(t, 1, pagination.Page)
	require.Equal(t, 20, pagination.PageSize)
	require.Equal(t, 1, pagination.TotalCount)
}

func TestAssignmentAuditTrail(t *testing.T) {
	actor := int64(100)
	audit := &auditTrailStub{logs: []models.AuditLog{
		{ID: 2, UserID: &actor, Action: models.AuditActionSubmitForReview, Resource: "assignment"},
		{ID: 1, UserID: &actor, Action: models.AuditActionDraftCreate, Resource: "assignment"},
	}}
	svc := NewAssignmentService(&detailReaderStub{detail: sampleDetail()}, audit, nil, nil)

	logs, err := svc.AuditTrail(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, "assignment", audit.resource)
}

func TestAssignmentAuditTrailUnknownAssignment(t *testing.T) {
	svc := NewAssignmentService(&detailReaderStub{err: sql.ErrNoRows}, &auditTrailStub{}, nil, nil)

	_, err := svc.AuditTrail(context.Background(), 99)
	requireCode(t, err, appErrors.ErrNotFound.Code)
}

func TestAssignmentReadsRecordQueryTimings(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewAssignmentService(&detailReaderStub{detail: sampleDetail()}, &auditTrailStub{}, metrics, nil)

	_, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	_, _, err = svc.List(context.Background(), models.AssignmentFilter{})
	require.NoError(t, err)

	detailCount := testutil.CollectAndCount(metrics.dbQueryDuration)
	require.Equal(t, 2, detailCount)
}

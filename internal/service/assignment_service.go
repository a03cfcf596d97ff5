package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/acadsys/teaching-load-api/internal/models"
	appErrors "github.com/acadsys/teaching-load-api/pkg/errors"
)

type assignmentDetailReader interface {
	GetDetailByID(ctx context.Context, id int64) (*models.AssignmentDetail, error)
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, int, error)
}

type auditTrailReader interface {
	ListByResource(ctx context.Context, resource string, resourceID int64) ([]models.AuditLog, error)
}

// AssignmentService serves the read side of the teaching load: single detail
// lookups, filtered paginated listings, and the per-assignment audit trail.
type AssignmentService struct {
	repo    assignmentDetailReader
	audit   auditTrailReader
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAssignmentService constructs the service.
func NewAssignmentService(repo assignmentDetailReader, audit auditTrailReader, metrics *MetricsService, logger *zap.Logger) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{repo: repo, audit: audit, metrics: metrics, logger: logger}
}

// Get returns one assignment with display relations.
func (s *AssignmentService) Get(ctx context.Context, id int64) (*models.AssignmentDetail, error) {
	start := time.Now()
	detail, err := s.repo.GetDetailByID(ctx, id)
	s.metrics.ObserveDBQuery("assignment_detail", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.New(appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get assignment")
	}
	return detail, nil
}

// List returns a page of assignments plus pagination metadata.
func (s *AssignmentService) List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	start := time.Now()
	details, total, err := s.repo.List(ctx, filter)
	s.metrics.ObserveDBQuery("assignment_list", time.Since(start))
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	pagination := &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	}
	return details, pagination, nil
}

// AuditTrail returns the audit rows recorded against one assignment, newest
// first. Unknown assignments are a not-found, not an empty trail.
func (s *AssignmentService) AuditTrail(ctx context.Context, assignmentID int64) ([]models.AuditLog, error) {
	if _, err := s.Get(ctx, assignmentID); err != nil {
		return nil, err
	}
	start := time.Now()
	logs, err := s.audit.ListByResource(ctx, "assignment", assignmentID)
	s.metrics.ObserveDBQuery("assignment_audit_trail", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit trail")
	}
	return logs, nil
}

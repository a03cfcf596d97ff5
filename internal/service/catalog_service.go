package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/acadsys/teaching-load-api/internal/models"
	appErrors "github.com/acadsys/teaching-load-api/pkg/errors"
)

type departmentLister interface {
	List(ctx context.Context) ([]models.Department, error)
}

type careerLister interface {
	List(ctx context.Context) ([]models.Career, error)
}

type teacherLister interface {
	List(ctx context.Context) ([]models.Teacher, error)
}

type courseLister interface {
	List(ctx context.Context, careerID *int64) ([]models.Course, error)
}

// CatalogService serves the read-only reference data the workflow screens
// need: departments, careers, teachers and course groups.
type CatalogService struct {
	departments departmentLister
	careers     careerLister
	teachers    teacherLister
	courses     courseLister
	groups      groupReader
	logger      *zap.Logger
}

// NewCatalogService constructs the service.
func NewCatalogService(
	departments departmentLister,
	careers careerLister,
	teachers teacherLister,
	courses courseLister,
	groups groupReader,
	logger *zap.Logger,
) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		departments: departments,
		careers:     careers,
		teachers:    teachers,
		courses:     courses,
		groups:      groups,
		logger:      logger,
	}
}

// Departments lists every department.
func (s *CatalogService) Departments(ctx context.Context) ([]models.Department, error) {
	departments, err := s.departments.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list departments")
	}
	return departments, nil
}

// Careers lists every career.
func (s *CatalogService) Careers(ctx context.Context) ([]models.Career, error) {
	careers, err := s.careers.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list careers")
	}
	return careers, nil
}

// Teachers lists the active staff roster.
func (s *CatalogService) Teachers(ctx context.Context) ([]models.Teacher, error) {
	teachers, err := s.teachers.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	return teachers, nil
}

// Courses lists the course catalog, optionally filtered by career.
func (s *CatalogService) Courses(ctx context.Context, careerID *int64) ([]models.Course, error) {
	courses, err := s.courses.List(ctx, careerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, nil
}

// GetGroup returns one course group with its career normalized, so callers
// always see a non-nil career even when the group has none on record.
func (s *CatalogService) GetGroup(ctx context.Context, id int64) (*models.Group, error) {
	group, err := s.groups.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.New(appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get group")
	}
	group.NormalizeCareer()
	return group, nil
}

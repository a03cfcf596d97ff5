package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/acadsys/teaching-load-api/internal/models"
	appErrors "github.com/acadsys/teaching-load-api/pkg/errors"
)

type bulkAssignmentStore interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	ExistsByGroupCourse(ctx context.Context, groupID, courseID int64) (bool, error)
}

type courseCatalog interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
	ListByCareer(ctx context.Context, careerID int64) ([]models.Course, error)
}

// BulkService creates batches of draft assignments against one group and
// curriculum plan, collecting per-pair outcomes. A partially failed batch is
// a successful call: failures are itemized, never collapsed into one error.
type BulkService struct {
	assignments bulkAssignmentStore
	groups      groupReader
	courses     courseCatalog
	teachers    staffReader
	identity    activeRoleResolver
	audit       auditStore
	cache       groupedViewInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewBulkService constructs the service.
func NewBulkService(
	assignments bulkAssignmentStore,
	groups groupReader,
	courses courseCatalog,
	teachers staffReader,
	identity activeRoleResolver,
	audit auditStore,
	cache groupedViewInvalidator,
	validate *validator.Validate,
	logger *zap.Logger,
) *BulkService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BulkService{
		assignments: assignments,
		groups:      groups,
		courses:     courses,
		teachers:    teachers,
		identity:    identity,
		audit:       audit,
		cache:       cache,
		validator:   validate,
		logger:      logger,
	}
}

// SelectableCourses returns the courses a batch against the group may use:
// only courses belonging to the group's career.
func (s *BulkService) SelectableCourses(ctx context.Context, groupID int64) ([]models.Course, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.CareerID == nil {
		return []models.Course{}, nil
	}
	courses, err := s.courses.ListByCareer(ctx, *group.CareerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list selectable courses")
	}
	return courses, nil
}

// CreateBulk validates and executes one batch. Each pair succeeds or fails
// independently; successes are persisted regardless of sibling failures.
func (s *BulkService) CreateBulk(ctx context.Context, userID int64, batch models.BulkBatch) (*models.BulkResult, error) {
	if err := s.validator.Struct(batch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk payload")
	}
	if len(batch.Items) == 0 {
		return nil, appErrors.Clone(appErrors.ErrEmptyBatch, "")
	}
	if batch.State != nil && !batch.State.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown assignment state")
	}
	role := s.identity.ActiveRole(ctx, userID)
	if role != models.RoleCoordinator {
		return nil, appErrors.Clone(appErrors.ErrForbiddenRole, "only a Career Coordinator may create bulk assignments")
	}

	group, err := s.loadGroup(ctx, batch.GroupID)
	if err != nil {
		return nil, err
	}
	planID := batch.PlanID
	if planID == 0 {
		resolved, ok := group.ResolvePlanID()
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "group has no curriculum plan")
		}
		planID = resolved
	}
	if group.CareerID == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "group has no career; courses cannot be restricted")
	}

	// Map keys make duplicate courses impossible; sort them for a
	// deterministic result order.
	courseIDs := make([]int64, 0, len(batch.Items))
	for courseID := range batch.Items {
		courseIDs = append(courseIDs, courseID)
	}
	sort.Slice(courseIDs, func(i, j int) bool { return courseIDs[i] < courseIDs[j] })

	result := &models.BulkResult{Total: len(courseIDs)}
	for _, courseID := range courseIDs {
		teacherID := batch.Items[courseID]
		created, failure := s.createOne(ctx, userID, group, courseID, teacherID, batch)
		if failure != nil {
			result.Failed++
			result.Failures = append(result.Failures, *failure)
			continue
		}
		result.Succeeded++
		result.Created = append(result.Created, *created)
	}

	if result.Succeeded > 0 {
		invalidateGroupedView(ctx, s.cache, s.logger)
	}
	s.emitBulkAudit(ctx, userID, group.ID, planID, result)
	return result, nil
}

func (s *BulkService) createOne(ctx context.Context, userID int64, group *models.Group, courseID, teacherID int64, batch models.BulkBatch) (*models.Assignment, *models.BulkFailure) {
	fail := func(message string) (*models.Assignment, *models.BulkFailure) {
		return nil, &models.BulkFailure{CourseID: courseID, TeacherID: teacherID, Error: message}
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail("course not found")
		}
		return fail("failed to load course")
	}
	if course.CareerID != *group.CareerID {
		return fail("course does not belong to the group's career")
	}

	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail("teacher not found")
		}
		return fail("failed to load teacher")
	}
	if !teacher.Active {
		return fail("teacher is inactive")
	}

	exists, err := s.assignments.ExistsByGroupCourse(ctx, group.ID, courseID)
	if err != nil {
		return fail("failed to check assignment uniqueness")
	}
	if exists {
		return fail("the group already has an assignment for this course")
	}

	creator := userID
	assignment := &models.Assignment{
		GroupID:   group.ID,
		CourseID:  courseID,
		TeacherID: teacherID,
		CreatorID: &creator,
		Notes:     batch.Notes,
	}
	if batch.State != nil {
		assignment.State = *batch.State
	}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		s.logger.Warn("bulk item creation failed",
			zap.Int64("group_id", group.ID),
			zap.Int64("course_id", courseID),
			zap.Error(err))
		return fail("failed to create assignment")
	}
	return assignment, nil
}

func (s *BulkService) emitBulkAudit(ctx context.Context, userID, groupID, planID int64, result *models.BulkResult) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"plan_id":   planID,
		"total":     result.Total,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	})
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     models.AuditActionBulkCreate,
		Resource:   "group",
		ResourceID: &groupID,
		NewValues:  payload,
		IPAddress:  "system",
		UserAgent:  "bulk-service",
	}); err != nil {
		s.logger.Warn("failed to persist bulk audit log", zap.Error(err))
	}
}

func (s *BulkService) loadGroup(ctx context.Context, groupID int64) (*models.Group, error) {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	return group, nil
}

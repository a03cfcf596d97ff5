package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/acadsys/teaching-load-api/internal/dto"
	"github.com/acadsys/teaching-load-api/internal/models"
	appErrors "github.com/acadsys/teaching-load-api/pkg/errors"
)

const (
	reasonReviewApproved = "review_approved"
	reasonFinalApproved  = "final_approved"
	reasonRejected       = "rejected"
)

type workflowAssignmentStore interface {
	GetByID(ctx context.Context, id int64) (*models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	UpdateDraft(ctx context.Context, assignment *models.Assignment) error
	ApplyTransition(ctx context.Context, assignment *models.Assignment) error
	ExistsByGroupCourse(ctx context.Context, groupID, courseID int64) (bool, error)
}

type workflowVersionStore interface {
	Create(ctx context.Context, version *models.Version) error
}

type auditStore interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type activeRoleResolver interface {
	ActiveRole(ctx context.Context, userID int64) models.RoleID
}

type groupReader interface {
	GetByID(ctx context.Context, id int64) (*models.Group, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
}

type staffReader interface {
	FindByID(ctx context.Context, id int64) (*models.Teacher, error)
}

// WorkflowService executes the approval state machine over persisted
// assignments. Pure guard evaluation lives in Decide; this service binds it
// to storage, the version ledger, and the audit trail. A refused action never
// mutates the assignment.
type WorkflowService struct {
	assignments workflowAssignmentStore
	versions    workflowVersionStore
	audit       auditStore
	identity    activeRoleResolver
	groups      groupReader
	courses     courseReader
	teachers    staffReader
	cache       groupedViewInvalidator
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewWorkflowService constructs the service.
func NewWorkflowService(
	assignments workflowAssignmentStore,
	versions workflowVersionStore,
	audit auditStore,
	identity activeRoleResolver,
	groups groupReader,
	courses courseReader,
	teachers staffReader,
	cache groupedViewInvalidator,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *WorkflowService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkflowService{
		assignments: assignments,
		versions:    versions,
		audit:       audit,
		identity:    identity,
		groups:      groups,
		courses:     courses,
		teachers:    teachers,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

func (s *WorkflowService) actor(ctx context.Context, userID int64) Actor {
	return Actor{UserID: userID, Role: s.identity.ActiveRole(ctx, userID)}
}

// decide evaluates the pure guard and counts the attempt per action/outcome.
func (s *WorkflowService) decide(assignment *models.Assignment, actor Actor, action models.WorkflowAction) (Decision, error) {
	decision, err := Decide(assignment, actor, action)
	s.metrics.ObserveTransition(action, err == nil)
	return decision, err
}

func (s *WorkflowService) load(ctx context.Context, id int64) (*models.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return assignment, nil
}

// PermittedActions lists what the caller may do with the assignment.
func (s *WorkflowService) PermittedActions(ctx context.Context, userID, assignmentID int64) ([]models.WorkflowAction, error) {
	assignment, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	return PermittedActions(assignment, s.actor(ctx, userID)), nil
}

// CreateDraft creates a new draft assignment owned by the calling
// coordinator. Drafts carry no versions; the ledger starts with the first
// review.
func (s *WorkflowService) CreateDraft(ctx context.Context, userID int64, req dto.CreateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	actor := s.actor(ctx, userID)
	if actor.Role != models.RoleCoordinator {
		return nil, appErrors.Clone(appErrors.ErrForbiddenRole, "only a Career Coordinator may create draft assignments")
	}
	if req.State != nil && !req.State.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown assignment state")
	}

	group, err := s.loadGroup(ctx, req.GroupID)
	if err != nil {
		return nil, err
	}
	if err := s.checkCourseForGroup(ctx, group, req.CourseID); err != nil {
		return nil, err
	}
	if err := s.checkTeacher(ctx, req.TeacherID); err != nil {
		return nil, err
	}

	exists, err := s.assignments.ExistsByGroupCourse(ctx, req.GroupID, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "the group already has an assignment for this course")
	}

	creator := userID
	assignment := &models.Assignment{
		GroupID:   req.GroupID,
		CourseID:  req.CourseID,
		TeacherID: req.TeacherID,
		CreatorID: &creator,
		Notes:     req.Notes,
	}
	if req.State != nil {
		assignment.State = *req.State
	}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	invalidateGroupedView(ctx, s.cache, s.logger)
	s.emitAudit(ctx, actor, models.AuditActionDraftCreate, assignment.ID, map[string]interface{}{
		"group_id":   assignment.GroupID,
		"course_id":  assignment.CourseID,
		"teacher_id": assignment.TeacherID,
	})
	return assignment, nil
}

// UpdateDraft edits a draft (or rejected) assignment prior to submission.
// Only the creating coordinator may edit, and edits never touch the version
// counter.
func (s *WorkflowService) UpdateDraft(ctx context.Context, userID, assignmentID int64, req dto.UpdateDraftRequest) (*models.Assignment, error) {
	actor := s.actor(ctx, userID)
	if actor.Role != models.RoleCoordinator {
		return nil, appErrors.Clone(appErrors.ErrForbiddenRole, "only a Career Coordinator may edit draft assignments")
	}
	assignment, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.ApprovalState != models.ApprovalDraft && assignment.ApprovalState != models.ApprovalRejected {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "only draft or rejected assignments can be edited")
	}
	if assignment.CreatorID != nil && *assignment.CreatorID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbiddenRole, "only the creating coordinator may edit this assignment")
	}
	if req.State != nil && !req.State.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown assignment state")
	}

	if req.TeacherID != nil && *req.TeacherID != assignment.TeacherID {
		if err := s.checkTeacher(ctx, *req.TeacherID); err != nil {
			return nil, err
		}
		assignment.TeacherID = *req.TeacherID
	}
	if req.State != nil {
		assignment.State = *req.State
	}
	if req.Notes != nil {
		assignment.Notes = req.Notes
	}
	if err := s.assignments.UpdateDraft(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update draft")
	}
	invalidateGroupedView(ctx, s.cache, s.logger)
	s.emitAudit(ctx, actor, models.AuditActionDraftUpdate, assignment.ID, nil)
	return assignment, nil
}

// SubmitForReview moves a draft (or rejected) assignment to pending review.
// No version is recorded; the ledger tracks approved/rejected events only.
func (s *WorkflowService) SubmitForReview(ctx context.Context, userID, assignmentID int64) (*models.Assignment, error) {
	actor := s.actor(ctx, userID)
	assignment, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	decision, err := s.decide(assignment, actor, models.ActionSubmitForReview)
	if err != nil {
		return nil, err
	}

	assignment.ApprovalState = models.ApprovalPendingReview
	if err := s.assignments.ApplyTransition(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit assignment")
	}
	invalidateGroupedView(ctx, s.cache, s.logger)
	s.emitAudit(ctx, actor, models.AuditActionSubmitForReview, assignment.ID, map[string]interface{}{
		"creator_deferred": decision == DecisionDeferred,
	})
	return assignment, nil
}

// Review applies the Department Head's decision. A rejection returns the
// assignment to draft. An approval moves it to reviewed, applies the optional
// change-set (only values that actually differ), and records one version.
func (s *WorkflowService) Review(ctx context.Context, userID, assignmentID int64, req dto.ReviewRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	if req.Changes != nil && req.Changes.State != nil && !req.Changes.State.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown assignment state in change-set")
	}
	actor := s.actor(ctx, userID)
	assignment, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.decide(assignment, actor, models.ActionReview); err != nil {
		return nil, err
	}

	if !*req.Approved {
		assignment.ApprovalState = models.ApprovalDraft
		if err := s.assignments.ApplyTransition(ctx, assignment); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to return assignment to draft")
		}
		invalidateGroupedView(ctx, s.cache, s.logger)
		s.emitAudit(ctx, actor, models.AuditActionReview, assignment.ID, map[string]interface{}{
			"approved": false,
			"notes":    req.Notes,
		})
		return assignment, nil
	}

	changed := applyChangeSet(assignment, req.Changes)
	assignment.ApprovalState = models.ApprovalReviewed
	assignment.CurrentVersion++
	if err := s.assignments.ApplyTransition(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply review")
	}
	invalidateGroupedView(ctx, s.cache, s.logger)
	if err := s.appendVersion(ctx, assignment, actor, reasonReviewApproved); err != nil {
		return nil, err
	}
	s.emitAudit(ctx, actor, models.AuditActionReview, assignment.ID, map[string]interface{}{
		"approved":       true,
		"notes":          req.Notes,
		"changed_fields": changed,
	})
	return assignment, nil
}

// FinalApprove grants the Department Director's final approval and records
// one version.
func (s *WorkflowService) FinalApprove(ctx context.Context, userID, assignmentID int64, req dto.DecisionRequest) (*models.Assignment, error) {
	actor := s.actor(ctx, userID)
	assignment, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.decide(assignment, actor, models.ActionFinalApprove); err != nil {
		return nil, err
	}

	assignment.ApprovalState = models.ApprovalApproved
	assignment.CurrentVersion++
	if err := s.assignments.ApplyTransition(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve assignment")
	}
	invalidateGroupedView(ctx, s.cache, s.logger)
	if err := s.appendVersion(ctx, assignment, actor, reasonFinalApproved); err != nil {
		return nil, err
	}
	s.emitAudit(ctx, actor, models.AuditActionFinalApprove, assignment.ID, map[string]interface{}{
		"notes": req.Notes,
	})
	return assignment, nil
}

// Reject explicitly rejects an assignment. The state is terminal until the
// creating coordinator edits and re-submits.
func (s *WorkflowService) Reject(ctx context.Context, userID, assignmentID int64, req dto.DecisionRequest) (*models.Assignment, error) {
	actor := s.actor(ctx, userID)
	assignment, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.decide(assignment, actor, models.ActionReject); err != nil {
		return nil, err
	}

	assignment.ApprovalState = models.ApprovalRejected
	assignment.CurrentVersion++
	if err := s.assignments.ApplyTransition(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject assignment")
	}
	invalidateGroupedView(ctx, s.cache, s.logger)
	if err := s.appendVersion(ctx, assignment, actor, reasonRejected); err != nil {
		return nil, err
	}
	s.emitAudit(ctx, actor, models.AuditActionReject, assignment.ID, map[string]interface{}{
		"notes": req.Notes,
	})
	return assignment, nil
}

// applyChangeSet mutates the assignment with values that actually differ and
// reports which tracked fields changed. No-op changes are not applied and do
// not count as deltas.
func applyChangeSet(assignment *models.Assignment, changes *dto.ChangeSet) []models.VersionField {
	if changes.Empty() {
		return nil
	}
	var changed []models.VersionField
	if changes.TeacherID != nil && *changes.TeacherID != assignment.TeacherID {
		assignment.TeacherID = *changes.TeacherID
		changed = append(changed, models.FieldTeacher)
	}
	if changes.State != nil && *changes.State != assignment.State {
		assignment.State = *changes.State
		changed = append(changed, models.FieldState)
	}
	if changes.Notes != nil && (assignment.Notes == nil || *assignment.Notes != *changes.Notes) {
		assignment.Notes = changes.Notes
		changed = append(changed, models.FieldNotes)
	}
	return changed
}

func (s *WorkflowService) appendVersion(ctx context.Context, assignment *models.Assignment, actor Actor, reason string) error {
	version := &models.Version{
		AssignmentID:  assignment.ID,
		TeacherID:     assignment.TeacherID,
		State:         assignment.State,
		ApprovalState: assignment.ApprovalState,
		Notes:         assignment.Notes,
		Reason:        reason,
		CreatedBy:     actor.UserID,
	}
	if err := s.versions.Create(ctx, version); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record assignment version")
	}
	return nil
}

func (s *WorkflowService) loadGroup(ctx context.Context, groupID int64) (*models.Group, error) {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	return group, nil
}

func (s *WorkflowService) checkCourseForGroup(ctx context.Context, group *models.Group, courseID int64) error {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if group.CareerID == nil || course.CareerID != *group.CareerID {
		return appErrors.Clone(appErrors.ErrValidation, "course does not belong to the group's career")
	}
	return nil
}

func (s *WorkflowService) checkTeacher(ctx context.Context, teacherID int64) error {
	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if !teacher.Active {
		return appErrors.Clone(appErrors.ErrValidation, "teacher is inactive")
	}
	return nil
}

func (s *WorkflowService) emitAudit(ctx context.Context, actor Actor, action string, assignmentID int64, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(details)
	log := &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     action,
		Resource:   "assignment",
		ResourceID: &assignmentID,
		NewValues:  payload,
		IPAddress:  "system",
		UserAgent:  "workflow-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

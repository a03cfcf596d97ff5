package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/acadsys/teaching-load-api/internal/models"
	appErrors "github.com/acadsys/teaching-load-api/pkg/errors"
)

type versionStore interface {
	Create(ctx context.Context, version *models.Version) error
	ListByAssignment(ctx context.Context, assignmentID int64) ([]models.Version, error)
	GetByID(ctx context.Context, assignmentID, versionID int64) (*models.Version, error)
}

type versionAssignmentStore interface {
	GetByID(ctx context.Context, id int64) (*models.Assignment, error)
	ApplyTransition(ctx context.Context, assignment *models.Assignment) error
}

// VersionService exposes the append-only version ledger: listing, pairwise
// comparison, and restore. Restore never rewrites history; it reads a
// snapshot and appends a new version on top.
type VersionService struct {
	versions    versionStore
	assignments versionAssignmentStore
	audit       auditStore
	identity    activeRoleResolver
	cache       groupedViewInvalidator
	logger      *zap.Logger
}

// NewVersionService constructs the service.
func NewVersionService(
	versions versionStore,
	assignments versionAssignmentStore,
	audit auditStore,
	identity activeRoleResolver,
	cache groupedViewInvalidator,
	logger *zap.Logger,
) *VersionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VersionService{
		versions:    versions,
		assignments: assignments,
		audit:       audit,
		identity:    identity,
		cache:       cache,
		logger:      logger,
	}
}

// List returns the ledger for an assignment ordered by sequence ascending.
func (s *VersionService) List(ctx context.Context, assignmentID int64) ([]models.Version, error) {
	if _, err := s.loadAssignment(ctx, assignmentID); err != nil {
		return nil, err
	}
	versions, err := s.versions.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list versions")
	}
	return versions, nil
}

// Compare diffs two versions over the fixed tracked-field set, directed from
// v1 to v2 in whichever order the caller chose.
func (s *VersionService) Compare(ctx context.Context, assignmentID, v1ID, v2ID int64) (*models.VersionDiff, error) {
	v1, err := s.loadVersion(ctx, assignmentID, v1ID)
	if err != nil {
		return nil, err
	}
	v2, err := s.loadVersion(ctx, assignmentID, v2ID)
	if err != nil {
		return nil, err
	}
	diff := v1.Diff(v2)
	return &diff, nil
}

// Restore applies a past version's snapshot as the assignment's current field
// values and records the restoration as a new version. The restored-from
// version is untouched and sequence numbers are never reused.
func (s *VersionService) Restore(ctx context.Context, userID, assignmentID, versionID int64) (*models.Assignment, error) {
	actor := Actor{UserID: userID, Role: s.identity.ActiveRole(ctx, userID)}
	assignment, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if _, err := Decide(assignment, actor, models.ActionRestoreVersion); err != nil {
		return nil, err
	}
	target, err := s.loadVersion(ctx, assignmentID, versionID)
	if err != nil {
		return nil, err
	}

	assignment.TeacherID = target.TeacherID
	assignment.State = target.State
	assignment.ApprovalState = target.ApprovalState
	assignment.Notes = target.Notes
	assignment.CurrentVersion++
	if err := s.assignments.ApplyTransition(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore assignment")
	}
	invalidateGroupedView(ctx, s.cache, s.logger)

	restored := &models.Version{
		AssignmentID:  assignment.ID,
		TeacherID:     assignment.TeacherID,
		State:         assignment.State,
		ApprovalState: assignment.ApprovalState,
		Notes:         assignment.Notes,
		Reason:        fmt.Sprintf("restored_from_%d", target.Sequence),
		CreatedBy:     userID,
	}
	if err := s.versions.Create(ctx, restored); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record restoration version")
	}

	if s.audit != nil {
		resourceID := assignment.ID
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &userID,
			Action:     models.AuditActionRestore,
			Resource:   "assignment",
			ResourceID: &resourceID,
			NewValues:  []byte(fmt.Sprintf(`{"restored_from_sequence":%d}`, target.Sequence)),
			IPAddress:  "system",
			UserAgent:  "version-service",
		}); err != nil {
			s.logger.Warn("failed to persist restore audit log", zap.Error(err))
		}
	}
	return assignment, nil
}

func (s *VersionService) loadAssignment(ctx context.Context, id int64) (*models.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return assignment, nil
}

func (s *VersionService) loadVersion(ctx context.Context, assignmentID, versionID int64) (*models.Version, error) {
	version, err := s.versions.GetByID(ctx, assignmentID, versionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "version not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load version")
	}
	return version, nil
}

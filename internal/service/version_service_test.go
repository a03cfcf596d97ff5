package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acadsys/teaching-load-api/internal/models"
	appErrors "github.com/acadsys/teaching-load-api/pkg/errors"
)

type versionFixture struct {
	store    *assignmentStoreStub
	versions *versionStoreStub
	audit    *auditStoreStub
	cache    *cacheStub
	svc      *VersionService
}

func newVersionFixture() *versionFixture {
	store := newAssignmentStoreStub()
	versions := &versionStoreStub{}
	audit := &auditStoreStub{}
	roles := &roleResolverStub{roles: map[int64]models.RoleID{
		coordinatorID: models.RoleCoordinator,
		headID:        models.RoleDepartmentHead,
		directorID:    models.RoleDirector,
	}}
	cache := newCacheStub()
	svc := NewVersionService(versions, store, audit, roles, cache, nil)
	return &versionFixture{store: store, versions: versions, audit: audit, cache: cache, svc: svc}
}

func (f *versionFixture) seedApproved(t *testing.T) (*models.Assignment, models.Version, models.Version) {
	t.Helper()
	creator := coordinatorID
	assignment := &models.Assignment{
		GroupID:       10,
		CourseID:      20,
		TeacherID:     30,
		State:         models.AssignmentActive,
		ApprovalState: models.ApprovalApproved,
		CreatorID:     &creator,
	}
	require.NoError(t, f.store.Create(context.Background(), assignment))
	f.store.assignments[assignment.ID].ApprovalState = models.ApprovalApproved
	f.store.assignments[assignment.ID].CurrentVersion = 2

	notes := "initial review"
	v1 := &models.Version{
		AssignmentID:  assignment.ID,
		TeacherID:     30,
		State:         models.AssignmentActive,
		ApprovalState: models.ApprovalReviewed,
		Notes:         &notes,
		Reason:        reasonReviewApproved,
		CreatedBy:     headID,
	}
	require.NoError(t, f.versions.Create(context.Background(), v1))

	v2 := &models.Version{
		AssignmentID:  assignment.ID,
		TeacherID:     31,
		State:         models.AssignmentActive,
		ApprovalState: models.ApprovalApproved,
		Reason:        reasonFinalApproved,
		CreatedBy:     directorID,
	}
	require.NoError(t, f.versions.Create(context.Background(), v2))

	return f.store.assignments[assignment.ID], *v1, *v2
}

func TestVersionListOrdered(t *testing.T) {
	f := newVersionFixture()
	assignment, v1, v2 := f.seedApproved(t)

	list, err := f.svc.List(context.Background(), assignment.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, v1.Sequence, list[0].Sequence)
	require.Equal(t, v2.Sequence, list[1].Sequence)
}

func TestVersionListUnknownAssignment(t *testing.T) {
	f := newVersionFixture()

	_, err := f.svc.List(context.Background(), 999)
	requireCode(t, err, appErrors.ErrNotFound.Code)
}

func TestVersionCompareIsDirectional(t *testing.T) {
	f := newVersionFixture()
	assignment, v1, v2 := f.seedApproved(t)

	forward, err := f.svc.Compare(context.Background(), assignment.ID, v1.ID, v2.ID)
	require.NoError(t, err)
	require.Equal(t, v1.Sequence, forward.FromSequence)
	require.Equal(t, v2.Sequence, forward.ToSequence)
	require.Len(t, forward.Fields, len(models.VersionFields))
	require.ElementsMatch(t,
		[]models.VersionField{models.FieldTeacher, models.FieldApprovalState, models.FieldNotes},
		forward.ChangedFields)

	backward, err := f.svc.Compare(context.Background(), assignment.ID, v2.ID, v1.ID)
	require.NoError(t, err)
	require.Equal(t, v2.Sequence, backward.FromSequence)
	require.Equal(t, v1.Sequence, backward.ToSequence)
	// Direction flips old/new, not the changed-field set.
	require.ElementsMatch(t, forward.ChangedFields, backward.ChangedFields)
}

func TestVersionCompareScopedToAssignment(t *testing.T) {
	f := newVersionFixture()
	assignment, v1, _ := f.seedApproved(t)

	_, err := f.svc.Compare(context.Background(), assignment.ID, v1.ID, 999)
	requireCode(t, err, appErrors.ErrNotFound.Code)
}

func TestVersionRestoreAppendsNewVersion(t *testing.T) {
	f := newVersionFixture()
	assignment, v1, _ := f.seedApproved(t)

	restored, err := f.svc.Restore(context.Background(), directorID, assignment.ID, v1.ID)
	require.NoError(t, err)
	require.Equal(t, v1.TeacherID, restored.TeacherID)
	require.Equal(t, v1.ApprovalState, restored.ApprovalState)
	require.Equal(t, 3, restored.CurrentVersion)

	require.Len(t, f.versions.versions, 3)
	appended := f.versions.versions[2]
	require.Equal(t, 3, appended.Sequence)
	require.Equal(t, "restored_from_1", appended.Reason)
	// The restored-from snapshot is untouched.
	require.Equal(t, v1, f.versions.versions[0])
}

func TestVersionRestoreRequiresApprovedState(t *testing.T) {
	f := newVersionFixture()
	assignment, v1, _ := f.seedApproved(t)
	f.store.assignments[assignment.ID].ApprovalState = models.ApprovalReviewed

	_, err := f.svc.Restore(context.Background(), directorID, assignment.ID, v1.ID)
	requireCode(t, err, appErrors.ErrStateConflict.Code)
}

func TestVersionRestoreDeniedForHead(t *testing.T) {
	f := newVersionFixture()
	assignment, v1, _ := f.seedApproved(t)

	_, err := f.svc.Restore(context.Background(), headID, assignment.ID, v1.ID)
	requireCode(t, err, appErrors.ErrForbiddenRole.Code)
}

func TestVersionRestoreInvalidatesGroupedView(t *testing.T) {
	f := newVersionFixture()
	assignment, v1, _ := f.seedApproved(t)
	require.NoError(t, f.cache.Set(context.Background(), "assignments:grouped:g0:t0:s", []models.GroupedAssignments{}, 0))

	_, err := f.svc.Restore(context.Background(), directorID, assignment.ID, v1.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"assignments:grouped:*"}, f.cache.deletes)
	require.Empty(t, f.cache.entries)
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acadsys/teaching-load-api/internal/models"
	appErrors "github.com/acadsys/teaching-load-api/pkg/errors"
)

type bulkFixture struct {
	store *assignmentStoreStub
	audit *auditStoreStub
	cache *cacheStub
	svc   *BulkService
}

func newBulkFixture() *bulkFixture {
	store := newAssignmentStoreStub()
	audit := &auditStoreStub{}
	roles := &roleResolverStub{roles: map[int64]models.RoleID{
		coordinatorID: models.RoleCoordinator,
		headID:        models.RoleDepartmentHead,
	}}
	careerID := int64(1)
	planID := int64(5)
	noCareer := &models.Group{ID: 11, Code: "G-201"}
	noPlan := &models.Group{ID: 12, Code: "G-301", CareerID: &careerID}
	groups := &groupReaderStub{groups: map[int64]*models.Group{
		10: {ID: 10, Code: "G-101", CareerID: &careerID, PlanID: &planID},
		11: noCareer,
		12: noPlan,
		13: {ID: 13, Code: "G-401", CareerID: &careerID, Plan: &models.CurriculumPlan{ID: 6, CareerID: careerID}},
	}}
	courses := &courseCatalogStub{courses: map[int64]*models.Course{
		20: {ID: 20, CareerID: 1, Name: "Algorithms", Code: "CS201"},
		21: {ID: 21, CareerID: 1, Name: "Databases", Code: "CS301"},
		22: {ID: 22, CareerID: 2, Name: "Anatomy", Code: "MD101"},
	}}
	teachers := &staffReaderStub{teachers: map[int64]*models.Teacher{
		30: {ID: 30, FullName: "Alice Smith", Active: true},
		31: {ID: 31, FullName: "Bob Jones", Active: false},
	}}
	cache := newCacheStub()
	svc := NewBulkService(store, groups, courses, teachers, roles, audit, cache, nil, nil)
	return &bulkFixture{store: store, audit: audit, cache: cache, svc: svc}
}

func TestBulkCreateAllSucceed(t *testing.T) {
	f := newBulkFixture()

	result, err := f.svc.CreateBulk(context.Background(), coordinatorID, models.BulkBatch{
		GroupID: 10,
		Items:   map[int64]int64{20: 30, 21: 30},
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.Total)
	require.Equal(t, 2, result.Succeeded)
	require.Equal(t, 0, result.Failed)
	require.Len(t, result.Created, 2)
	require.Len(t, f.store.assignments, 2)

	for _, created := range result.Created {
		require.Equal(t, models.ApprovalDraft, created.ApprovalState)
		require.NotNil(t, created.CreatorID)
		require.Equal(t, coordinatorID, *created.CreatorID)
	}

	require.Len(t, f.audit.logs, 1)
	require.Contains(t, string(f.audit.logs[0].NewValues), `"plan_id":5`)
}

func TestBulkCreatePartialFailureIsNotAnError(t *testing.T) {
	f := newBulkFixture()

	result, err := f.svc.CreateBulk(context.Background(), coordinatorID, models.BulkBatch{
		GroupID: 10,
		Items: map[int64]int64{
			20: 30, // ok
			21: 31, // inactive teacher
			22: 30, // foreign career course
			99: 30, // unknown course
		},
	})
	require.NoError(t, err)
	require.Equal(t, 4, result.Total)
	require.Equal(t, 1, result.Succeeded)
	require.Equal(t, 3, result.Failed)
	require.Len(t, result.Failures, 3)
	// The successful sibling is persisted despite the failures.
	require.Len(t, f.store.assignments, 1)

	messages := map[int64]string{}
	for _, failure := range result.Failures {
		messages[failure.CourseID] = failure.Error
	}
	require.Equal(t, "teacher is inactive", messages[21])
	require.Equal(t, "course does not belong to the group's career", messages[22])
	require.Equal(t, "course not found", messages[99])
}

func TestBulkCreateEmptyBatch(t *testing.T) {
	f := newBulkFixture()

	_, err := f.svc.CreateBulk(context.Background(), coordinatorID, models.BulkBatch{
		GroupID: 10,
		Items:   map[int64]int64{},
	})
	requireCode(t, err, appErrors.ErrEmptyBatch.Code)
}

func TestBulkCreateRequiresCoordinator(t *testing.T) {
	f := newBulkFixture()

	_, err := f.svc.CreateBulk(context.Background(), headID, models.BulkBatch{
		GroupID: 10,
		Items:   map[int64]int64{20: 30},
	})
	requireCode(t, err, appErrors.ErrForbiddenRole.Code)
	require.Empty(t, f.store.assignments)
}

func TestBulkCreateDuplicateCourseInGroup(t *testing.T) {
	f := newBulkFixture()
	creator := coordinatorID
	seed := &models.Assignment{GroupID: 10, CourseID: 20, TeacherID: 30, CreatorID: &creator}
	require.NoError(t, f.store.Create(context.Background(), seed))

	result, err := f.svc.CreateBulk(context.Background(), coordinatorID, models.BulkBatch{
		GroupID: 10,
		Items:   map[int64]int64{20: 30, 21: 30},
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Succeeded)
	require.Equal(t, 1, result.Failed)
	require.Equal(t, "the group already has an assignment for this course", result.Failures[0].Error)
}

func TestBulkCreatePlanFallsBackToNestedPlan(t *testing.T) {
	f := newBulkFixture()

	_, err := f.svc.CreateBulk(context.Background(), coordinatorID, models.BulkBatch{
		GroupID: 13,
		Items:   map[int64]int64{20: 30},
	})
	require.NoError(t, err)
	require.Contains(t, string(f.audit.logs[0].NewValues), `"plan_id":6`)
}

func TestBulkCreateGroupWithoutPlan(t *testing.T) {
	f := newBulkFixture()

	_, err := f.svc.CreateBulk(context.Background(), coordinatorID, models.BulkBatch{
		GroupID: 12,
		Items:   map[int64]int64{20: 30},
	})
	requireCode(t, err, appErrors.ErrValidation.Code)
}

func TestBulkCreateExplicitPlanOverridesGroup(t *testing.T) {
	f := newBulkFixture()

	_, err := f.svc.CreateBulk(context.Background(), coordinatorID, models.BulkBatch{
		GroupID: 10,
		PlanID:  9,
		Items:   map[int64]int64{20: 30},
	})
	require.NoError(t, err)
	require.Contains(t, string(f.audit.logs[0].NewValues), `"plan_id":9`)
}

func TestBulkCreateInvalidatesGroupedView(t *testing.T) {
	f := newBulkFixture()
	require.NoError(t, f.cache.Set(context.Background(), "assignments:grouped:g0:t0:s", []models.GroupedAssignments{}, 0))

	result, err := f.svc.CreateBulk(context.Background(), coordinatorID, models.BulkBatch{
		GroupID: 10,
		Items:   map[int64]int64{20: 30},
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Succeeded)
	require.Equal(t, []string{"assignments:grouped:*"}, f.cache.deletes)
	require.Empty(t, f.cache.entries)
}

func TestBulkCreateAllFailedKeepsGroupedView(t *testing.T) {
	f := newBulkFixture()
	require.NoError(t, f.cache.Set(context.Background(), "assignments:grouped:g0:t0:s", []models.GroupedAssignments{}, 0))

	result, err := f.svc.CreateBulk(context.Background(), coordinatorID, models.BulkBatch{
		GroupID: 10,
		Items:   map[int64]int64{22: 30, 99: 30},
	})
	require.NoError(t, err)
	require.Equal(t, 0, result.Succeeded)
	require.Empty(t, f.cache.deletes)
	require.Len(t, f.cache.entries, 1)
}

func TestSelectableCoursesRestrictedToCareer(t *testing.T) {
	f := newBulkFixture()

	courses, err := f.svc.SelectableCourses(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, courses, 2)
	for _, course := range courses {
		require.Equal(t, int64(1), course.CareerID)
	}
}

func TestSelectableCoursesGroupWithoutCareer(t *testing.T) {
	f := newBulkFixture()

	courses, err := f.svc.SelectableCourses(context.Background(), 11)
	require.NoError(t, err)
	require.Empty(t, courses)
}

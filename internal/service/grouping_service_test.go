package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/acadsys/teaching-load-api/internal/dto"
	"github.com/acadsys/teaching-load-api/internal/models"
)

type assignmentListerStub struct {
	details []models.AssignmentDetail
	err     error
	calls   int
}

func (s *assignmentListerStub) List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, int, error) {
	s.calls++
	if s.err != nil {
		return nil, 0, s.err
	}
	return s.details, len(s.details), nil
}

type cacheStub struct {
	entries map[string][]byte
	sets    int
	deletes []string
}

func newCacheStub() *cacheStub {
	return &cacheStub{entries: make(map[string][]byte)}
}

func (s *cacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := s.entries[key]
	if !ok {
		return errors.New("cache miss")
	}
	return json.Unmarshal(raw, dest)
}

func (s *cacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.entries[key] = raw
	s.sets++
	return nil
}

func (s *cacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	s.deletes = append(s.deletes, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
		}
	}
	return nil
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func detailRow(id, groupID int64, groupCode string, courseID int64, courseName string, teacherID int64, teacherName string) models.AssignmentDetail {
	return models.AssignmentDetail{
		Assignment: models.Assignment{
			ID:            id,
			GroupID:       groupID,
			CourseID:      courseID,
			TeacherID:     teacherID,
			State:         models.AssignmentActive,
			ApprovalState: models.ApprovalDraft,
		},
		GroupCode:   groupCode,
		CourseName:  strPtr(courseName),
		TeacherName: strPtr(teacherName),
	}
}

func TestGroupingFoldsByGroup(t *testing.T) {
	rowA := detailRow(1, 10, "G-101", 20, "Algorithms", 30, "Alice Smith")
	rowA.CareerID = int64Ptr(1)
	rowA.CareerName = strPtr("Computer Science")
	rowA.CareerCode = strPtr("CS")
	rowB := detailRow(2, 10, "G-101", 21, "Databases", 31, "Bob Jones")
	rowC := detailRow(3, 11, "G-201", 20, "Algorithms", 30, "Alice Smith")
	rowC.CareerID = int64Ptr(1)
	rowC.CareerName = strPtr("Computer Science")

	lister := &assignmentListerStub{details: []models.AssignmentDetail{rowA, rowB, rowC}}
	groups := &groupReaderStub{groups: map[int64]*models.Group{}}
	svc := NewGroupingService(lister, groups, nil, nil, 0, nil, nil)

	grouped, err := svc.Grouped(context.Background(), models.AssignmentFilter{})
	require.NoError(t, err)
	require.Len(t, grouped, 2)

	require.Equal(t, int64(10), grouped[0].GroupID)
	require.Equal(t, "G-101", grouped[0].GroupCode)
	require.Len(t, grouped[0].Assignments, 2)
	require.Equal(t, "Computer Science", grouped[0].Career.Name)

	require.Equal(t, int64(11), grouped[1].GroupID)
	require.Len(t, grouped[1].Assignments, 1)
}

func TestGroupingSkipsRowsWithoutRelations(t *testing.T) {
	good := detailRow(1, 10, "G-101", 20, "Algorithms", 30, "Alice Smith")
	broken := detailRow(2, 10, "G-101", 21, "", 31, "")
	broken.CourseName = nil
	broken.TeacherName = nil

	lister := &assignmentListerStub{details: []models.AssignmentDetail{good, broken}}
	groups := &groupReaderStub{groups: map[int64]*models.Group{}}
	svc := NewGroupingService(lister, groups, nil, nil, 0, nil, nil)

	grouped, err := svc.Grouped(context.Background(), models.AssignmentFilter{})
	require.NoError(t, err)
	require.Len(t, grouped, 1)
	// The broken row is dropped from the summaries, not the whole group.
	require.Len(t, grouped[0].Assignments, 1)
	require.Equal(t, int64(1), grouped[0].Assignments[0].ID)
}

func TestGroupingBackfillsCareerFromGroup(t *testing.T) {
	row := detailRow(1, 10, "G-101", 20, "Algorithms", 30, "Alice Smith")

	lister := &assignmentListerStub{details: []models.AssignmentDetail{row}}
	groups := &groupReaderStub{groups: map[int64]*models.Group{
		10: {ID: 10, Code: "G-101", Career: &models.Career{ID: 1, Name: "Computer Science", Code: "CS"}},
	}}
	svc := NewGroupingService(lister, groups, nil, nil, 0, nil, nil)

	grouped, err := svc.Grouped(context.Background(), models.AssignmentFilter{})
	require.NoError(t, err)
	require.Len(t, grouped, 1)
	require.Equal(t, "Computer Science", grouped[0].Career.Name)
}

func TestGroupingSentinelWhenCareerUnresolvable(t *testing.T) {
	row := detailRow(1, 10, "G-101", 20, "Algorithms", 30, "Alice Smith")

	lister := &assignmentListerStub{details: []models.AssignmentDetail{row}}
	// The group lookup fails; the entry keeps the sentinel.
	groups := &groupReaderStub{groups: map[int64]*models.Group{}}
	svc := NewGroupingService(lister, groups, nil, nil, 0, nil, nil)

	grouped, err := svc.Grouped(context.Background(), models.AssignmentFilter{})
	require.NoError(t, err)
	require.Len(t, grouped, 1)
	require.Equal(t, models.SentinelCareer, grouped[0].Career)
}

func TestGroupingBlankCareerNameBecomesSentinel(t *testing.T) {
	row := detailRow(1, 10, "G-101", 20, "Algorithms", 30, "Alice Smith")
	row.CareerID = int64Ptr(1)
	row.CareerName = strPtr("")

	lister := &assignmentListerStub{details: []models.AssignmentDetail{row}}
	groups := &groupReaderStub{groups: map[int64]*models.Group{
		10: {ID: 10, Code: "G-101", Career: &models.Career{ID: 1, Name: "   "}},
	}}
	svc := NewGroupingService(lister, groups, nil, nil, 0, nil, nil)

	grouped, err := svc.Grouped(context.Background(), models.AssignmentFilter{})
	require.NoError(t, err)
	require.Equal(t, models.SentinelCareer, grouped[0].Career)
}

func TestGroupingRefreshesAfterWorkflowMutation(t *testing.T) {
	f := newWorkflowFixture()
	lister := &assignmentListerStub{details: []models.AssignmentDetail{
		detailRow(5, 10, "G-101", 20, "Algorithms", 30, "Alice Smith"),
	}}
	grouping := NewGroupingService(lister, &groupReaderStub{groups: map[int64]*models.Group{}}, f.cache, nil, time.Minute, nil, nil)

	first, err := grouping.Grouped(context.Background(), models.AssignmentFilter{})
	require.NoError(t, err)
	require.Len(t, first[0].Assignments, 1)
	require.Equal(t, 1, lister.calls)

	// Warm cache absorbs the second read.
	_, err = grouping.Grouped(context.Background(), models.AssignmentFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, lister.calls)

	created, err := f.svc.CreateDraft(context.Background(), coordinatorID, dto.CreateAssignmentRequest{
		GroupID:   10,
		CourseID:  20,
		TeacherID: 30,
	})
	require.NoError(t, err)
	lister.details = append(lister.details, detailRow(created.ID, 10, "G-101", 20, "Algorithms", 30, "Alice Smith"))

	refreshed, err := grouping.Grouped(context.Background(), models.AssignmentFilter{})
	require.NoError(t, err)
	require.Equal(t, 2, lister.calls)
	require.Len(t, refreshed[0].Assignments, 2)
}

func TestGroupingRecordsCacheHitsAndMisses(t *testing.T) {
	row := detailRow(1, 10, "G-101", 20, "Algorithms", 30, "Alice Smith")
	lister := &assignmentListerStub{details: []models.AssignmentDetail{row}}
	groups := &groupReaderStub{groups: map[int64]*models.Group{}}
	cache := newCacheStub()
	metrics := NewMetricsService()
	svc := NewGroupingService(lister, groups, cache, nil, time.Minute, metrics, nil)

	_, err := svc.Grouped(context.Background(), models.AssignmentFilter{})
	require.NoError(t, err)
	_, err = svc.Grouped(context.Background(), models.AssignmentFilter{})
	require.NoError(t, err)

	require.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheMisses))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheHits))
}

func TestGroupingBackfillBatchesGroupLookups(t *testing.T) {
	rows := []models.AssignmentDetail{
		detailRow(1, 10, "G-101", 20, "Algorithms", 30, "Alice Smith"),
		detailRow(2, 11, "G-201", 20, "Algorithms", 30, "Alice Smith"),
		detailRow(3, 12, "G-301", 20, "Algorithms", 30, "Alice Smith"),
	}
	lister := &assignmentListerStub{details: rows}
	groups := &groupReaderStub{groups: map[int64]*models.Group{
		10: {ID: 10, Code: "G-101", Career: &models.Career{ID: 1, Name: "Computer Science", Code: "CS"}},
		11: {ID: 11, Code: "G-201", Career: &models.Career{ID: 1, Name: "Computer Science", Code: "CS"}},
		12: {ID: 12, Code: "G-301", Career: &models.Career{ID: 2, Name: "Medicine", Code: "MD"}},
	}}
	svc := NewGroupingService(lister, groups, nil, nil, 0, nil, nil)

	grouped, err := svc.Grouped(context.Background(), models.AssignmentFilter{})
	require.NoError(t, err)
	require.Len(t, grouped, 3)
	// All three careers resolve through a single batched lookup.
	require.Equal(t, 1, groups.batchCalls)
	require.Equal(t, "Computer Science", grouped[0].Career.Name)
	require.Equal(t, "Medicine", grouped[2].Career.Name)
}

func TestGroupingServesFromCache(t *testing.T) {
	row := detailRow(1, 10, "G-101", 20, "Algorithms", 30, "Alice Smith")
	lister := &assignmentListerStub{details: []models.AssignmentDetail{row}}
	groups := &groupReaderStub{groups: map[int64]*models.Group{}}
	cache := newCacheStub()
	svc := NewGroupingService(lister, groups, cache, nil, time.Minute, nil, nil)

	first, err := svc.Grouped(context.Background(), models.AssignmentFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, lister.calls)
	require.Equal(t, 1, cache.sets)

	second, err := svc.Grouped(context.Background(), models.AssignmentFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, lister.calls)
	require.Equal(t, first, second)
}

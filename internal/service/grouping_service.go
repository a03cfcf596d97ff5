package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/acadsys/teaching-load-api/internal/models"
	appErrors "github.com/acadsys/teaching-load-api/pkg/errors"
	"github.com/acadsys/teaching-load-api/pkg/jobs"
)

type assignmentLister interface {
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, int, error)
}

type groupedCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// groupedViewInvalidator is the write-side counterpart of groupedCache: every
// service that mutates assignments drops the cached grouped views through it.
type groupedViewInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

type groupBatchReader interface {
	ListByIDs(ctx context.Context, ids []int64) (map[int64]*models.Group, error)
}

// groupedCachePattern matches every key produced by groupedCacheKey.
const groupedCachePattern = "assignments:grouped:*"

// backfillChunkSize caps how many group ids one backfill task fetches at once.
const backfillChunkSize = 25

// invalidateGroupedView drops all cached grouped views. Invalidation failures
// are logged, not returned: a stale view expires with the TTL anyway.
func invalidateGroupedView(ctx context.Context, cache groupedViewInvalidator, logger *zap.Logger) {
	if cache == nil {
		return
	}
	if err := cache.DeleteByPattern(ctx, groupedCachePattern); err != nil {
		logger.Warn("failed to invalidate grouped view cache", zap.Error(err))
	}
}

// groupKey is the composite fold key. Two in-flight records sharing a numeric
// id but different codes stay separate entries.
type groupKey struct {
	id   int64
	code string
}

// GroupingService folds flat assignment listings into a grouped-by-course-
// group view. Missing careers degrade to the sentinel, never to null, and
// career backfill runs as a bounded concurrent join with per-task error
// isolation.
type GroupingService struct {
	assignments assignmentLister
	groups      groupBatchReader
	cache       groupedCache
	pool        *jobs.Pool
	cacheTTL    time.Duration
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewGroupingService constructs the service.
func NewGroupingService(
	assignments assignmentLister,
	groups groupBatchReader,
	cache groupedCache,
	pool *jobs.Pool,
	cacheTTL time.Duration,
	metrics *MetricsService,
	logger *zap.Logger,
) *GroupingService {
	if pool == nil {
		pool = jobs.NewPool(4, logger)
	}
	if cacheTTL <= 0 {
		cacheTTL = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupingService{
		assignments: assignments,
		groups:      groups,
		cache:       cache,
		pool:        pool,
		cacheTTL:    cacheTTL,
		metrics:     metrics,
		logger:      logger,
	}
}

// Grouped builds the grouped view for the filter, serving from cache when
// possible.
func (s *GroupingService) Grouped(ctx context.Context, filter models.AssignmentFilter) ([]models.GroupedAssignments, error) {
	key := groupedCacheKey(filter)
	if s.cache != nil {
		var cached []models.GroupedAssignments
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.RecordCacheLookup(true)
			return cached, nil
		}
		s.metrics.RecordCacheLookup(false)
	}

	// The grouped view folds the full result set, not a page.
	filter.Page = 0
	filter.PageSize = 0
	details, _, err := s.assignments.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments for grouping")
	}

	grouped := s.fold(details)
	s.backfillCareers(ctx, grouped)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, grouped, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache grouped view", zap.Error(err))
		}
	}
	return grouped, nil
}

// fold aggregates flat details into one entry per (group id, group code),
// preserving first-seen order. Entries whose source row lacks a resolvable
// course or teacher relation are logged and skipped so downstream rendering
// stays total.
func (s *GroupingService) fold(details []models.AssignmentDetail) []models.GroupedAssignments {
	index := make(map[groupKey]int)
	grouped := make([]models.GroupedAssignments, 0)

	for i := range details {
		detail := &details[i]
		key := groupKey{id: detail.GroupID, code: detail.GroupCode}
		pos, seen := index[key]
		if !seen {
			pos = len(grouped)
			index[key] = pos
			grouped = append(grouped, models.GroupedAssignments{
				GroupID:     detail.GroupID,
				GroupCode:   detail.GroupCode,
				Career:      models.SentinelCareer,
				Assignments: []models.AssignmentSummary{},
			})
		}

		entry := &grouped[pos]
		if entry.Career.ID == models.SentinelCareer.ID && detail.CareerID != nil && detail.CareerName != nil && *detail.CareerName != "" {
			entry.Career = models.Career{ID: *detail.CareerID, Name: *detail.CareerName}
			if detail.CareerCode != nil {
				entry.Career.Code = *detail.CareerCode
			}
		}

		if detail.CourseName == nil || detail.TeacherName == nil {
			s.logger.Warn("skipping assignment without resolvable relations",
				zap.Int64("assignment_id", detail.ID),
				zap.Int64("group_id", detail.GroupID))
			continue
		}
		entry.Assignments = append(entry.Assignments, models.AssignmentSummary{
			ID:            detail.ID,
			CourseID:      detail.CourseID,
			CourseName:    *detail.CourseName,
			TeacherID:     detail.TeacherID,
			TeacherName:   *detail.TeacherName,
			State:         detail.State,
			ApprovalState: detail.ApprovalState,
			Version:       detail.CurrentVersion,
		})
	}
	return grouped
}

// backfillCareers resolves the full career record for entries still carrying
// the sentinel. Distinct group ids are fetched in batched chunks so the work
// stays one query per chunk instead of one per group; chunks run as a bounded
// parallel batch and a failed chunk leaves its entries at the sentinel without
// aborting the rest.
func (s *GroupingService) backfillCareers(ctx context.Context, grouped []models.GroupedAssignments) {
	pending := make(map[int64][]*models.GroupedAssignments)
	ids := make([]int64, 0)
	for i := range grouped {
		if grouped[i].Career.ID != models.SentinelCareer.ID {
			continue
		}
		entry := &grouped[i]
		if _, seen := pending[entry.GroupID]; !seen {
			ids = append(ids, entry.GroupID)
		}
		pending[entry.GroupID] = append(pending[entry.GroupID], entry)
	}
	if len(ids) == 0 {
		return
	}

	// Chunks hold disjoint ids, so tasks never touch the same entry.
	tasks := make([]jobs.Task, 0)
	for start := 0; start < len(ids); start += backfillChunkSize {
		end := start + backfillChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]
		tasks = append(tasks, func(ctx context.Context) error {
			groups, err := s.groups.ListByIDs(ctx, chunk)
			if err != nil {
				return fmt.Errorf("backfill careers for %d groups: %w", len(chunk), err)
			}
			for _, id := range chunk {
				group, ok := groups[id]
				if !ok {
					continue
				}
				group.NormalizeCareer()
				for _, entry := range pending[id] {
					entry.Career = *group.Career
				}
			}
			return nil
		})
	}
	s.pool.Join(ctx, "career-backfill", tasks)
}

func groupedCacheKey(filter models.AssignmentFilter) string {
	groupID := int64(0)
	if filter.GroupID != nil {
		groupID = *filter.GroupID
	}
	teacherID := int64(0)
	if filter.TeacherID != nil {
		teacherID = *filter.TeacherID
	}
	state := ""
	if filter.ApprovalState != nil {
		state = string(*filter.ApprovalState)
	}
	return fmt.Sprintf("assignments:grouped:g%d:t%d:s%s", groupID, teacherID, state)
}

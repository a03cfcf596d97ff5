package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/acadsys/teaching-load-api/internal/models"
)

type roleSource interface {
	FindRoleID(ctx context.Context, userID int64) (models.RoleID, error)
}

// cachedRole is an explicitly timestamped cache value. It is owned by the
// IdentityService and passed by dependency, never ambient state.
type cachedRole struct {
	role       models.RoleID
	resolvedAt time.Time
}

// IdentityService resolves the caller's currently-active role code and caches
// it for a bounded window to avoid a round-trip per guard check. A failed
// resolution invalidates the cache entry and resolves to RoleNone (deny-all)
// instead of serving a stale allow-decision.
type IdentityService struct {
	source roleSource
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger

	mu    sync.Mutex
	cache map[int64]cachedRole
}

// NewIdentityService constructs the resolver.
func NewIdentityService(source roleSource, ttl time.Duration, logger *zap.Logger) *IdentityService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityService{
		source: source,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
		cache:  make(map[int64]cachedRole),
	}
}

// ActiveRole returns the user's active role code, serving from the cache
// within the TTL window. Resolution failures degrade to RoleNone.
func (s *IdentityService) ActiveRole(ctx context.Context, userID int64) models.RoleID {
	s.mu.Lock()
	entry, ok := s.cache[userID]
	if ok && s.now().Sub(entry.resolvedAt) < s.ttl {
		s.mu.Unlock()
		return entry.role
	}
	s.mu.Unlock()

	role, err := s.source.FindRoleID(ctx, userID)
	if err != nil {
		s.logger.Warn("role resolution failed, denying workflow actions",
			zap.Int64("user_id", userID), zap.Error(err))
		s.Invalidate(userID)
		return models.RoleNone
	}

	s.mu.Lock()
	s.cache[userID] = cachedRole{role: role, resolvedAt: s.now()}
	s.mu.Unlock()
	return role
}

// Invalidate drops the cached role for a user.
func (s *IdentityService) Invalidate(userID int64) {
	s.mu.Lock()
	delete(s.cache, userID)
	s.mu.Unlock()
}

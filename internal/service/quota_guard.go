package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/cityfix-service/internal/domain"
	"github.com/spec-kit/cityfix-service/internal/repository"
	"github.com/spec-kit/cityfix-service/pkg/apperrors"
)

// Locker is a best-effort exclusive lock keyed by string.
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

// QuotaGuard enforces the free-tier submission cap. Check-then-insert is
// serialized per reporter through a Redis lock; when the lock cannot be
// obtained the guard falls back to the plain check, which can overshoot the
// cap by at most the number of concurrently racing submissions minus one.
type QuotaGuard struct {
	issues  repository.IssueRepository
	locker  Locker
	logger  *zap.Logger
	limit   int
	lockTTL time.Duration
}

// NewQuotaGuard constructs the guard. locker may be nil.
func NewQuotaGuard(issues repository.IssueRepository, locker Locker, logger *zap.Logger, limit int, lockTTL time.Duration) *QuotaGuard {
	if limit <= 0 {
		limit = 3
	}
	if lockTTL <= 0 {
		lockTTL = 5 * time.Second
	}
	return &QuotaGuard{issues: issues, locker: locker, logger: logger, limit: limit, lockTTL: lockTTL}
}

// Reserve checks the reporter's quota and, for non-premium users, holds the
// per-reporter lock until the returned release func runs. Callers must call
// release after the insert completes, error or not.
func (g *QuotaGuard) Reserve(ctx context.Context, user *domain.User) (func(), error) {
	release := func() {}
	if user.Premium {
		return release, nil
	}

	if g.locker != nil {
		key := "quota:" + user.Email
		for attempt := 0; attempt < 3; attempt++ {
			ok, err := g.locker.AcquireLock(ctx, key, g.lockTTL)
			if err != nil {
				g.logger.Warn("quota lock unavailable; proceeding unserialized", zap.Error(err))
				break
			}
			if ok {
				release = func() {
					if err := g.locker.ReleaseLock(context.WithoutCancel(ctx), key); err != nil {
						g.logger.Warn("quota lock release failed", zap.Error(err))
					}
				}
				break
			}
			select {
			case <-ctx.Done():
				return func() {}, apperrors.MapError(ctx.Err())
			case <-time.After(50 * time.Millisecond):
			}
		}
	}

	count, err := g.issues.CountLiveByReporter(ctx, user.Email)
	if err != nil {
		release()
		return func() {}, apperrors.NewStoreUnavailable(err)
	}
	if count >= g.limit {
		release()
		return func() {}, apperrors.NewQuotaExceeded(g.limit)
	}
	return release, nil
}

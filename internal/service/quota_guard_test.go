package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/cityfix-service/internal/domain"
	"github.com/spec-kit/cityfix-service/internal/mocks"
	"github.com/spec-kit/cityfix-service/pkg/apperrors"
)

func seedIssues(issues *mocks.MockIssueRepository, email string, n int) {
	for i := 0; i < n; i++ {
		_ = issues.Create(context.Background(), &domain.Issue{
			ReporterEmail: email,
			Title:         "seed",
			Status:        domain.IssueStatusPending,
		})
	}
}

func TestQuotaGuardDeniesAtLimit(t *testing.T) {
	issues := mocks.NewMockIssueRepository()
	locker := mocks.NewMockLocker()
	guard := NewQuotaGuard(issues, locker, zap.NewNop(), 3, time.Second)
	user := &domain.User{Email: "alice@example.com"}

	seedIssues(issues, user.Email, 2)
	release, err := guard.Reserve(context.Background(), user)
	if err != nil {
		t.Fatalf("Reserve under limit: %v", err)
	}
	release()

	seedIssues(issues, user.Email, 1)
	if _, err := guard.Reserve(context.Background(), user); !apperrors.IsCode(err, "QUOTA_EXCEEDED") {
		t.Fatalf("expected QUOTA_EXCEEDED at limit, got %v", err)
	}
}

func TestQuotaGuardPremiumBypass(t *testing.T) {
	issues := mocks.NewMockIssueRepository()
	locker := mocks.NewMockLocker()
	guard := NewQuotaGuard(issues, locker, zap.NewNop(), 3, time.Second)
	user := &domain.User{Email: "vip@example.com", Premium: true}

	seedIssues(issues, user.Email, 10)
	if _, err := guard.Reserve(context.Background(), user); err != nil {
		t.Fatalf("premium Reserve: %v", err)
	}
	if len(locker.Locks) != 0 {
		t.Error("premium reservation must not touch the lock")
	}
}

func TestQuotaGuardHoldsAndReleasesLock(t *testing.T) {
	issues := mocks.NewMockIssueRepository()
	locker := mocks.NewMockLocker()
	guard := NewQuotaGuard(issues, locker, zap.NewNop(), 3, time.Second)
	user := &domain.User{Email: "alice@example.com"}

	release, err := guard.Reserve(context.Background(), user)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if !locker.Locks["quota:alice@example.com"] {
		t.Fatal("lock must be held during reservation")
	}
	release()
	if locker.Locks["quota:alice@example.com"] {
		t.Error("lock must be released")
	}
}

func TestQuotaGuardFallsBackWhenLockerFails(t *testing.T) {
	issues := mocks.NewMockIssueRepository()
	locker := mocks.NewMockLocker()
	locker.AcquireError = errors.New("redis down")
	guard := NewQuotaGuard(issues, locker, zap.NewNop(), 3, time.Second)
	user := &domain.User{Email: "alice@example.com"}

	// Lock failure degrades to the unserialized check rather than refusing
	// the submission.
	release, err := guard.Reserve(context.Background(), user)
	if err != nil {
		t.Fatalf("Reserve with failing locker: %v", err)
	}
	release()

	seedIssues(issues, user.Email, 3)
	if _, err := guard.Reserve(context.Background(), user); !apperrors.IsCode(err, "QUOTA_EXCEEDED") {
		t.Errorf("quota still enforced without lock, got %v", err)
	}
}

func TestQuotaGuardNilLocker(t *testing.T) {
	issues := mocks.NewMockIssueRepository()
	guard := NewQuotaGuard(issues, nil, zap.NewNop(), 3, time.Second)
	user := &domain.User{Email: "alice@example.com"}

	if _, err := guard.Reserve(context.Background(), user); err != nil {
		t.Fatalf("Reserve without locker: %v", err)
	}
}

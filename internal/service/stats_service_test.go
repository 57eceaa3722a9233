package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/cityfix-service/internal/domain"
	"github.com/spec-kit/cityfix-service/internal/mocks"
	"github.com/spec-kit/cityfix-service/internal/repository"
)

type fakeStatsCache struct {
	store map[string][]byte
	hits  int
	sets  int
}

func newFakeStatsCache() *fakeStatsCache {
	return &fakeStatsCache{store: make(map[string][]byte)}
}

func (c *fakeStatsCache) GetJSON(ctx context.Context, key string, dest any) bool {
	raw, ok := c.store[key]
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false
	}
	c.hits++
	return true
}

func (c *fakeStatsCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.store[key] = raw
	c.sets++
}

func TestDashboardAggregates(t *testing.T) {
	repo := &mocks.MockStatsRepository{
		IssuesByStatus: map[domain.IssueStatus]int64{
			domain.IssueStatusPending:  4,
			domain.IssueStatusResolved: 2,
		},
		Users:        repository.UserCounts{Total: 10, Premium: 3, Blocked: 1, Staff: 2},
		PaymentTotal: 4995,
		Top: []domain.Issue{
			{ID: "issue-1", Priority: domain.IssuePriorityHigh, UpvoteCount: 7},
			{ID: "issue-2", UpvoteCount: 9},
		},
	}
	svc := NewStatsService(repo, nil, zap.NewNop())

	stats, err := svc.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if stats.TotalIssues != 6 {
		t.Errorf("total issues = %d, want 6", stats.TotalIssues)
	}
	if stats.Users.Premium != 3 {
		t.Errorf("premium users = %d, want 3", stats.Users.Premium)
	}
	if stats.PaymentTotal != 4995 {
		t.Errorf("payment total = %d, want 4995", stats.PaymentTotal)
	}
	if len(stats.TopIssues) != 2 || stats.TopIssues[0].ID != "issue-1" {
		t.Errorf("top issues = %+v", stats.TopIssues)
	}
}

func TestDashboardUsesCache(t *testing.T) {
	repo := &mocks.MockStatsRepository{
		IssuesByStatus: map[domain.IssueStatus]int64{domain.IssueStatusPending: 1},
	}
	cache := newFakeStatsCache()
	svc := NewStatsService(repo, cache, zap.NewNop())

	if _, err := svc.Dashboard(context.Background()); err != nil {
		t.Fatalf("first Dashboard: %v", err)
	}
	if cache.sets != 1 {
		t.Fatalf("cache sets = %d, want 1", cache.sets)
	}

	// Mutate the backing repo; the cached projection must still be served.
	repo.IssuesByStatus[domain.IssueStatusPending] = 99
	stats, err := svc.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("second Dashboard: %v", err)
	}
	if cache.hits != 1 {
		t.Errorf("cache hits = %d, want 1", cache.hits)
	}
	if stats.TotalIssues != 1 {
		t.Errorf("expected cached total 1, got %d", stats.TotalIssues)
	}
}

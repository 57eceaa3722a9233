package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/cityfix-service/internal/domain"
	"github.com/spec-kit/cityfix-service/internal/repository"
	"github.com/spec-kit/cityfix-service/pkg/apperrors"
)

const (
	dashboardCacheKey = "stats:dashboard"
	dashboardCacheTTL = 30 * time.Second
)

// StatsCache is an advisory read-through cache for dashboard projections.
type StatsCache interface {
	GetJSON(ctx context.Context, key string, dest any) bool
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration)
}

// DashboardStats is the admin dashboard projection.
type DashboardStats struct {
	IssuesByStatus map[domain.IssueStatus]int64 `json:"issues_by_status"`
	TotalIssues    int64                        `json:"total_issues"`
	Users          repository.UserCounts        `json:"users"`
	PaymentTotal   int64                        `json:"payment_total"`
	TopIssues      []domain.Issue               `json:"top_issues"`
}

// StatsService produces read-only aggregates over the store.
type StatsService struct {
	stats  repository.StatsRepository
	cache  StatsCache
	logger *zap.Logger
	topN   int
}

// NewStatsService constructs the service. cache may be nil.
func NewStatsService(stats repository.StatsRepository, cache StatsCache, logger *zap.Logger) *StatsService {
	return &StatsService{stats: stats, cache: cache, logger: logger, topN: 10}
}

// Dashboard assembles the aggregate view, served from cache when fresh.
func (s *StatsService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	if s.cache != nil {
		var cached DashboardStats
		if s.cache.GetJSON(ctx, dashboardCacheKey, &cached) {
			return &cached, nil
		}
	}

	byStatus, err := s.stats.CountIssuesByStatus(ctx)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	var total int64
	for _, count := range byStatus {
		total += count
	}

	userCounts, err := s.stats.CountUsers(ctx)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}

	paymentTotal, err := s.stats.SumPaymentAmount(ctx)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}

	topIssues, err := s.stats.TopIssues(ctx, s.topN)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}

	result := &DashboardStats{
		IssuesByStatus: byStatus,
		TotalIssues:    total,
		Users:          userCounts,
		PaymentTotal:   paymentTotal,
		TopIssues:      topIssues,
	}
	if s.cache != nil {
		s.cache.SetJSON(ctx, dashboardCacheKey, result, dashboardCacheTTL)
	}
	return result, nil
}

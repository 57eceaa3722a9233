package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/cityfix-service/internal/domain"
)

// UserCounts aggregates user totals for the dashboard.
type UserCounts struct {
	Total   int64 `json:"total"`
	Premium int64 `json:"premium"`
	Blocked int64 `json:"blocked"`
	Staff   int64 `json:"staff"`
}

// StatsRepository exposes read-only projections over the store.
type StatsRepository interface {
	CountIssuesByStatus(ctx context.Context) (map[domain.IssueStatus]int64, error)
	CountUsers(ctx context.Context) (UserCounts, error)
	SumPaymentAmount(ctx context.Context) (int64, error)
	TopIssues(ctx context.Context, limit int) ([]domain.Issue, error)
}

type statsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository builds the repository.
func NewStatsRepository(pool *pgxpool.Pool) StatsRepository {
	return &statsRepository{pool: pool}
}

func (r *statsRepository) CountIssuesByStatus(ctx context.Context) (map[domain.IssueStatus]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM issues GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.IssueStatus]int64)
	for rows.Next() {
		var status domain.IssueStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *statsRepository) CountUsers(ctx context.Context) (UserCounts, error) {
	const query = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE premium),
               COUNT(*) FILTER (WHERE blocked),
               COUNT(*) FILTER (WHERE role IN ('staff','admin'))
        FROM users`
	var counts UserCounts
	if err := r.pool.QueryRow(ctx, query).Scan(
		&counts.Total,
		&counts.Premium,
		&counts.Blocked,
		&counts.Staff,
	); err != nil {
		return UserCounts{}, err
	}
	return counts, nil
}

func (r *statsRepository) SumPaymentAmount(ctx context.Context) (int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// TopIssues orders by priority, then upvotes, then recency.
func (r *statsRepository) TopIssues(ctx context.Context, limit int) ([]domain.Issue, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT ` + issueColumns + `
        FROM issues
        WHERE status <> 'Rejected'
        ORDER BY (priority = 'High') DESC, upvote_count DESC, created_at DESC
        LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIssues(rows)
}

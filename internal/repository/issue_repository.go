package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/cityfix-service/internal/domain"
)

// IssueFilter captures listing parameters.
type IssueFilter struct {
	ReporterEmail *string
	Statuses      []domain.IssueStatus
	Limit         int
	Offset        int
}

// IssuePatch carries the allow-listed mutable fields.
type IssuePatch struct {
	Title       *string
	Description *string
	Category    *string
	Location    *string
	PhotoURLs   []string
}

// IssueRepository encapsulates issue persistence. Every conditional mutation
// is a single UPDATE whose WHERE clause carries the business precondition,
// so a concurrent writer can never be lost; the bool result reports whether
// the precondition held. Callers disambiguate a false result with GetByID.
type IssueRepository interface {
	Create(ctx context.Context, issue *domain.Issue) error
	GetByID(ctx context.Context, id string) (*domain.Issue, error)
	List(ctx context.Context, filter IssueFilter) ([]domain.Issue, error)
	CountLiveByReporter(ctx context.Context, email string) (int, error)
	AddUpvote(ctx context.Context, id, voter string, entry domain.TimelineEntry) (bool, error)
	SetAssignedStaff(ctx context.Context, id string, staff domain.AssignedStaff, at time.Time, entry domain.TimelineEntry) (bool, error)
	TransitionStatus(ctx context.Context, id string, from, to domain.IssueStatus, entry domain.TimelineEntry) (bool, error)
	MarkBoosted(ctx context.Context, id string, entry domain.TimelineEntry) (bool, error)
	MarkRejected(ctx context.Context, id string, entry domain.TimelineEntry) (bool, error)
	UpdateFields(ctx context.Context, id string, patch IssuePatch, entry domain.TimelineEntry) (bool, error)
}

type issueRepository struct {
	pool *pgxpool.Pool
}

// NewIssueRepository instantiates the repository.
func NewIssueRepository(pool *pgxpool.Pool) IssueRepository {
	return &issueRepository{pool: pool}
}

const issueColumns = `id, reporter_email, title, description, category, location, photo_urls,
               status, priority, upvote_count, upvoted_by, assigned_staff, assigned_at, timeline, created_at`

func (r *issueRepository) Create(ctx context.Context, issue *domain.Issue) error {
	timeline, err := json.Marshal(issue.Timeline)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO issues (reporter_email, title, description, category, location, photo_urls,
                            status, priority, upvoted_by, timeline)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		issue.ReporterEmail,
		issue.Title,
		issue.Description,
		issue.Category,
		issue.Location,
		issue.PhotoURLs,
		issue.Status,
		issue.Priority,
		issue.UpvotedBy,
		timeline,
	).Scan(&issue.ID, &issue.CreatedAt)
}

func (r *issueRepository) GetByID(ctx context.Context, id string) (*domain.Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM issues WHERE id=$1`
	var issue domain.Issue
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&issue.ID,
		&issue.ReporterEmail,
		&issue.Title,
		&issue.Description,
		&issue.Category,
		&issue.Location,
		&issue.PhotoURLs,
		&issue.Status,
		&issue.Priority,
		&issue.UpvoteCount,
		&issue.UpvotedBy,
		&issue.AssignedStaff,
		&issue.AssignedAt,
		&issue.Timeline,
		&issue.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &issue, nil
}

func (r *issueRepository) List(ctx context.Context, filter IssueFilter) ([]domain.Issue, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ReporterEmail != nil {
		args = append(args, *filter.ReporterEmail)
		clauses = append(clauses, fmt.Sprintf("reporter_email=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM issues WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		issueColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIssues(rows)
}

func (r *issueRepository) CountLiveByReporter(ctx context.Context, email string) (int, error) {
	const query = `SELECT COUNT(*) FROM issues WHERE reporter_email=$1 AND status <> 'Rejected'`
	var count int
	if err := r.pool.QueryRow(ctx, query, email).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// AddUpvote bumps the counter, records the voter and appends the timeline
// entry in one statement. The WHERE clause rejects self-upvotes and
// duplicates so the count can never diverge from the ledger.
func (r *issueRepository) AddUpvote(ctx context.Context, id, voter string, entry domain.TimelineEntry) (bool, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return false, err
	}
	const query = `
        UPDATE issues
        SET upvote_count = upvote_count + 1,
            upvoted_by   = array_append(upvoted_by, $2),
            timeline     = timeline || $3::jsonb
        WHERE id = $1
          AND reporter_email <> $2
          AND NOT (upvoted_by @> ARRAY[$2]::text[])`
	cmd, err := r.pool.Exec(ctx, query, id, voter, payload)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// SetAssignedStaff writes the assignment only while assigned_staff is still
// NULL, closing the check-then-act race on the write-once field.
func (r *issueRepository) SetAssignedStaff(ctx context.Context, id string, staff domain.AssignedStaff, at time.Time, entry domain.TimelineEntry) (bool, error) {
	staffDoc, err := json.Marshal(staff)
	if err != nil {
		return false, err
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return false, err
	}
	const query = `
        UPDATE issues
        SET assigned_staff = $2::jsonb,
            assigned_at    = $3,
            timeline       = timeline || $4::jsonb
        WHERE id = $1 AND assigned_staff IS NULL`
	cmd, err := r.pool.Exec(ctx, query, id, staffDoc, at, payload)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// TransitionStatus moves from -> to, keyed on the expected current status so
// two racing transitions cannot both apply.
func (r *issueRepository) TransitionStatus(ctx context.Context, id string, from, to domain.IssueStatus, entry domain.TimelineEntry) (bool, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return false, err
	}
	const query = `
        UPDATE issues
        SET status   = $3,
            timeline = timeline || $4::jsonb
        WHERE id = $1 AND status = $2`
	cmd, err := r.pool.Exec(ctx, query, id, from, to, payload)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *issueRepository) MarkBoosted(ctx context.Context, id string, entry domain.TimelineEntry) (bool, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return false, err
	}
	const query = `
        UPDATE issues
        SET priority = $2,
            timeline = timeline || $3::jsonb
        WHERE id = $1 AND priority <> $2`
	cmd, err := r.pool.Exec(ctx, query, id, domain.IssuePriorityHigh, payload)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *issueRepository) MarkRejected(ctx context.Context, id string, entry domain.TimelineEntry) (bool, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return false, err
	}
	const query = `
        UPDATE issues
        SET status   = $2,
            timeline = timeline || $3::jsonb
        WHERE id = $1 AND status NOT IN ($2, $4)`
	cmd, err := r.pool.Exec(ctx, query, id, domain.IssueStatusRejected, payload, domain.IssueStatusClosed)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *issueRepository) UpdateFields(ctx context.Context, id string, patch IssuePatch, entry domain.TimelineEntry) (bool, error) {
	sets := []string{}
	args := []any{id}

	appendSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	if patch.Title != nil {
		appendSet("title", *patch.Title)
	}
	if patch.Description != nil {
		appendSet("description", *patch.Description)
	}
	if patch.Category != nil {
		appendSet("category", *patch.Category)
	}
	if patch.Location != nil {
		appendSet("location", *patch.Location)
	}
	if patch.PhotoURLs != nil {
		appendSet("photo_urls", patch.PhotoURLs)
	}
	if len(sets) == 0 {
		cmd, err := r.pool.Exec(ctx, `UPDATE issues SET id=id WHERE id=$1`, id)
		if err != nil {
			return false, err
		}
		return cmd.RowsAffected() > 0, nil
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return false, err
	}
	args = append(args, payload)
	sets = append(sets, fmt.Sprintf("timeline=timeline || $%d::jsonb", len(args)))

	query := fmt.Sprintf(`UPDATE issues SET %s WHERE id=$1`, strings.Join(sets, ", "))
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func scanIssues(rows pgx.Rows) ([]domain.Issue, error) {
	var result []domain.Issue
	for rows.Next() {
		var issue domain.Issue
		if err := rows.Scan(
			&issue.ID,
			&issue.ReporterEmail,
			&issue.Title,
			&issue.Description,
			&issue.Category,
			&issue.Location,
			&issue.PhotoURLs,
			&issue.Status,
			&issue.Priority,
			&issue.UpvoteCount,
			&issue.UpvotedBy,
			&issue.AssignedStaff,
			&issue.AssignedAt,
			&issue.Timeline,
			&issue.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, issue)
	}
	return result, rows.Err()
}

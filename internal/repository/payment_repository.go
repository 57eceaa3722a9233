package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/cityfix-service/internal/domain"
)

// PaymentRepository stores settled payment records. SessionID is the primary
// key; Insert reports false when the session was already recorded, which is
// the settlement dedup gate.
type PaymentRepository interface {
	Insert(ctx context.Context, payment *domain.Payment) (bool, error)
	GetBySession(ctx context.Context, sessionID string) (*domain.Payment, error)
	MarkApplied(ctx context.Context, sessionID string, at time.Time) error
	List(ctx context.Context, email *string) ([]domain.Payment, error)
}

type paymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository builds the repository.
func NewPaymentRepository(pool *pgxpool.Pool) PaymentRepository {
	return &paymentRepository{pool: pool}
}

const paymentColumns = `session_id, email, type, issue_id, amount, currency, payment_status, applied_at, created_at`

func (r *paymentRepository) Insert(ctx context.Context, payment *domain.Payment) (bool, error) {
	const query = `
        INSERT INTO payments (session_id, email, type, issue_id, amount, currency, payment_status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (session_id) DO NOTHING
        RETURNING created_at`
	err := r.pool.QueryRow(ctx, query,
		payment.SessionID,
		payment.Email,
		payment.Type,
		payment.IssueID,
		payment.Amount,
		payment.Currency,
		payment.PaymentStatus,
	).Scan(&payment.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *paymentRepository) GetBySession(ctx context.Context, sessionID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE session_id=$1`
	var payment domain.Payment
	if err := r.pool.QueryRow(ctx, query, sessionID).Scan(
		&payment.SessionID,
		&payment.Email,
		&payment.Type,
		&payment.IssueID,
		&payment.Amount,
		&payment.Currency,
		&payment.PaymentStatus,
		&payment.AppliedAt,
		&payment.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) MarkApplied(ctx context.Context, sessionID string, at time.Time) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE payments SET applied_at=$2 WHERE session_id=$1`, sessionID, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *paymentRepository) List(ctx context.Context, email *string) ([]domain.Payment, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if email != nil {
		args = append(args, *email)
		clauses = append(clauses, fmt.Sprintf("email=$%d", len(args)))
	}
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE %s ORDER BY created_at DESC`,
		paymentColumns, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Payment
	for rows.Next() {
		var payment domain.Payment
		if err := rows.Scan(
			&payment.SessionID,
			&payment.Email,
			&payment.Type,
			&payment.IssueID,
			&payment.Amount,
			&payment.Currency,
			&payment.PaymentStatus,
			&payment.AppliedAt,
			&payment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, payment)
	}
	return result, rows.Err()
}

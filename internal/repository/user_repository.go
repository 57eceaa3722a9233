package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/cityfix-service/internal/domain"
)

// UserFilter captures listing parameters.
type UserFilter struct {
	Role   *domain.UserRole
	Limit  int
	Offset int
}

// UserPatch carries the admin-patchable fields. Email is deliberately absent:
// identity never changes after creation.
type UserPatch struct {
	Name *string
	Role *domain.UserRole
}

// UserRepository defines persistence access for users.
type UserRepository interface {
	CreateIfAbsent(ctx context.Context, user *domain.User) (bool, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
	SetBlocked(ctx context.Context, email string, blocked bool) (bool, error)
	UpdateProfile(ctx context.Context, email string, patch UserPatch) (bool, error)
	SetPremium(ctx context.Context, email string, sub domain.Subscription) (bool, error)
	Delete(ctx context.Context, email string) (bool, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, name, email, role, blocked, premium, subscription, created_at`

// CreateIfAbsent inserts the user unless the email is already registered.
// ON CONFLICT DO NOTHING makes duplicate registration a no-op even under
// concurrent requests; the bool reports whether a row was inserted.
func (r *userRepository) CreateIfAbsent(ctx context.Context, user *domain.User) (bool, error) {
	const query = `
        INSERT INTO users (name, email, role, blocked, premium)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (email) DO NOTHING
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.Role,
		user.Blocked,
		user.Premium,
	).Scan(&user.ID, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.Blocked,
		&user.Premium,
		&user.Subscription,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]domain.User, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY created_at ASC LIMIT %d OFFSET %d`,
		userColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(
			&user.ID,
			&user.Name,
			&user.Email,
			&user.Role,
			&user.Blocked,
			&user.Premium,
			&user.Subscription,
			&user.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}

func (r *userRepository) SetBlocked(ctx context.Context, email string, blocked bool) (bool, error) {
	cmd, err := r.pool.Exec(ctx, `UPDATE users SET blocked=$2 WHERE email=$1`, email, blocked)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, email string, patch UserPatch) (bool, error) {
	sets := []string{}
	args := []any{email}
	if patch.Name != nil {
		args = append(args, *patch.Name)
		sets = append(sets, fmt.Sprintf("name=$%d", len(args)))
	}
	if patch.Role != nil {
		args = append(args, *patch.Role)
		sets = append(sets, fmt.Sprintf("role=$%d", len(args)))
	}
	if len(sets) == 0 {
		cmd, err := r.pool.Exec(ctx, `UPDATE users SET email=email WHERE email=$1`, email)
		if err != nil {
			return false, err
		}
		return cmd.RowsAffected() > 0, nil
	}
	query := fmt.Sprintf(`UPDATE users SET %s WHERE email=$1`, strings.Join(sets, ", "))
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *userRepository) SetPremium(ctx context.Context, email string, sub domain.Subscription) (bool, error) {
	doc, err := json.Marshal(sub)
	if err != nil {
		return false, err
	}
	const query = `UPDATE users SET premium=TRUE, subscription=$2::jsonb WHERE email=$1`
	cmd, err := r.pool.Exec(ctx, query, email, doc)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *userRepository) Delete(ctx context.Context, email string) (bool, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM users WHERE email=$1`, email)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

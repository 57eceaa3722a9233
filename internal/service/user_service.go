package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/cityfix-service/internal/domain"
	"github.com/spec-kit/cityfix-service/internal/repository"
	"github.com/spec-kit/cityfix-service/pkg/apperrors"
)

// UserService coordinates user registration and administration.
type UserService struct {
	users  repository.UserRepository
	logger *zap.Logger
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

// Register creates the user unless the email is already known. Duplicate
// registration is a no-op success returning the existing record.
func (s *UserService) Register(ctx context.Context, name, email string, role domain.UserRole) (*domain.User, bool, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, false, apperrors.NewMissingIdentity()
	}
	if role == "" {
		role = domain.UserRoleCitizen
	}
	if !validRole(role) {
		return nil, false, apperrors.NewValidationError("unknown role", map[string]any{"role": string(role)})
	}

	user := &domain.User{
		Name:  strings.TrimSpace(name),
		Email: email,
		Role:  role,
	}
	created, err := s.users.CreateIfAbsent(ctx, user)
	if err != nil {
		return nil, false, apperrors.NewStoreUnavailable(err)
	}
	if !created {
		existing, err := s.users.GetByEmail(ctx, email)
		if err != nil {
			return nil, false, apperrors.NewStoreUnavailable(err)
		}
		return existing, false, nil
	}
	s.logger.Info("user registered", zap.String("email", email), zap.String("role", string(role)))
	return user, true, nil
}

// Get fetches a user by email.
func (s *UserService) Get(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"email": email})
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return user, nil
}

// List returns users, optionally filtered by role.
func (s *UserService) List(ctx context.Context, role *domain.UserRole) ([]domain.User, error) {
	if role != nil && !validRole(*role) {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": string(*role)})
	}
	result, err := s.users.List(ctx, repository.UserFilter{Role: role})
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return result, nil
}

// SetBlocked toggles the blocked flag. Blocking removes action eligibility
// but never read access.
func (s *UserService) SetBlocked(ctx context.Context, email string, blocked bool) (*domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	updated, err := s.users.SetBlocked(ctx, email, blocked)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	if !updated {
		return nil, apperrors.NewNotFound("user", map[string]any{"email": email})
	}
	return s.Get(ctx, email)
}

// Patch applies the admin-patchable fields (name, role). Email is immutable.
func (s *UserService) Patch(ctx context.Context, email string, patch repository.UserPatch) (*domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if patch.Role != nil && !validRole(*patch.Role) {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": string(*patch.Role)})
	}
	updated, err := s.users.UpdateProfile(ctx, email, patch)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	if !updated {
		return nil, apperrors.NewNotFound("user", map[string]any{"email": email})
	}
	return s.Get(ctx, email)
}

// RemoveStaff hard-deletes a staff record. Staff removal is the only hard
// delete on users.
func (s *UserService) RemoveStaff(ctx context.Context, email string) error {
	user, err := s.Get(ctx, email)
	if err != nil {
		return err
	}
	if user.Role != domain.UserRoleStaff {
		return apperrors.NewForbidden("only staff records can be removed")
	}
	deleted, err := s.users.Delete(ctx, user.Email)
	if err != nil {
		return apperrors.NewStoreUnavailable(err)
	}
	if !deleted {
		return apperrors.NewNotFound("user", map[string]any{"email": email})
	}
	s.logger.Info("staff removed", zap.String("email", user.Email))
	return nil
}

func validRole(role domain.UserRole) bool {
	switch role {
	case domain.UserRoleCitizen, domain.UserRoleStaff, domain.UserRoleAdmin:
		return true
	}
	return false
}

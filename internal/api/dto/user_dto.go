package dto

import (
	"time"

	"github.com/spec-kit/cityfix-service/internal/domain"
)

// RegisterUserRequest payload.
type RegisterUserRequest struct {
	Name  string          `json:"name"`
	Email string          `json:"email"`
	Role  domain.UserRole `json:"role,omitempty"`
}

// TokenRequest payload for principal token issuance.
type TokenRequest struct {
	Email string `json:"email"`
}

// AuthResponse carries an issued token.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SetBlockedRequest payload.
type SetBlockedRequest struct {
	Blocked bool `json:"blocked"`
}

// PatchUserRequest carries admin-patchable fields.
type PatchUserRequest struct {
	Name *string          `json:"name,omitempty"`
	Role *domain.UserRole `json:"role,omitempty"`
}

// UserResponse representation.
type UserResponse struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Email        string               `json:"email"`
	Role         domain.UserRole      `json:"role"`
	Blocked      bool                 `json:"blocked"`
	Premium      bool                 `json:"premium"`
	Subscription *domain.Subscription `json:"subscription,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		Role:         user.Role,
		Blocked:      user.Blocked,
		Premium:      user.Premium,
		Subscription: user.Subscription,
		CreatedAt:    user.CreatedAt,
	}
}

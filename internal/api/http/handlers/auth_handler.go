package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/cityfix-service/internal/api/dto"
	"github.com/spec-kit/cityfix-service/internal/auth"
	"github.com/spec-kit/cityfix-service/internal/service"
	"github.com/spec-kit/cityfix-service/pkg/apperrors"
)

// AuthHandler issues bearer tokens for registered users.
type AuthHandler struct {
	users  *service.UserService
	tokens *auth.TokenManager
}

// NewAuthHandler constructs handler.
func NewAuthHandler(users *service.UserService, tokens *auth.TokenManager) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

// IssueToken POST /auth/token.
func (h *AuthHandler) IssueToken(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return apperrors.NewValidationError("email required", nil)
	}
	user, err := h.users.Get(c.Context(), email)
	if err != nil {
		return err
	}
	token, expiresAt, err := h.tokens.GenerateToken(user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{Token: token, ExpiresAt: expiresAt}})
}

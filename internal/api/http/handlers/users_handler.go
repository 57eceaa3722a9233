package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/cityfix-service/internal/api/dto"
	"github.com/spec-kit/cityfix-service/internal/domain"
	"github.com/spec-kit/cityfix-service/internal/repository"
	"github.com/spec-kit/cityfix-service/internal/service"
	"github.com/spec-kit/cityfix-service/pkg/apperrors"
)

// UsersHandler manages user registration and administration endpoints.
type UsersHandler struct {
	service *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{service: userService}
}

// Register POST /users.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, created, err := h.service.Register(c.Context(), req.Name, req.Email, req.Role)
	if err != nil {
		return err
	}
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"data": dto.NewUserResponse(user), "created": created})
}

// GetUser GET /users/:email.
func (h *UsersHandler) GetUser(c *fiber.Ctx) error {
	user, err := h.service.Get(c.Context(), c.Params("email"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// ListUsers GET /users.
func (h *UsersHandler) ListUsers(c *fiber.Ctx) error {
	var role *domain.UserRole
	if raw := c.Query("role"); raw != "" {
		r := domain.UserRole(raw)
		role = &r
	}
	users, err := h.service.List(c.Context(), role)
	if err != nil {
		return err
	}
	out := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, dto.NewUserResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// SetBlocked PATCH /users/:email/blocked.
func (h *UsersHandler) SetBlocked(c *fiber.Ctx) error {
	var req dto.SetBlockedRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.service.SetBlocked(c.Context(), c.Params("email"), req.Blocked)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// PatchUser PATCH /users/:email.
func (h *UsersHandler) PatchUser(c *fiber.Ctx) error {
	var req dto.PatchUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Name == nil && req.Role == nil {
		return apperrors.NewValidationError("no fields to update", nil)
	}
	user, err := h.service.Patch(c.Context(), c.Params("email"), repository.UserPatch{
		Name: req.Name,
		Role: req.Role,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// RemoveStaff DELETE /users/:email.
func (h *UsersHandler) RemoveStaff(c *fiber.Ctx) error {
	if err := h.service.RemoveStaff(c.Context(), c.Params("email")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

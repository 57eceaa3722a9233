package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/cityfix-service/internal/api/dto"
	"github.com/spec-kit/cityfix-service/internal/service"
	"github.com/spec-kit/cityfix-service/pkg/apperrors"
)

// PaymentsHandler manages payment settlement endpoints.
type PaymentsHandler struct {
	service *service.PaymentService
}

// NewPaymentsHandler constructs handler.
func NewPaymentsHandler(paymentService *service.PaymentService) *PaymentsHandler {
	return &PaymentsHandler{service: paymentService}
}

// Settle POST /payments/settle.
func (h *PaymentsHandler) Settle(c *fiber.Ctx) error {
	var req dto.SettleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.service.Settle(c.Context(), service.SettleInput{
		SessionID:     req.SessionID,
		Email:         req.Email,
		Type:          req.Type,
		IssueID:       req.IssueID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		PaymentStatus: req.PaymentStatus,
	})
	if err != nil {
		return err
	}
	status := fiber.StatusCreated
	if result.AlreadyRecorded {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(fiber.Map{"data": dto.SettleResponse{
		AlreadyRecorded: result.AlreadyRecorded,
		Payment:         dto.NewPaymentResponse(result.Payment),
	}})
}

// ListPayments GET /payments.
func (h *PaymentsHandler) ListPayments(c *fiber.Ctx) error {
	var email *string
	if raw := c.Query("email"); raw != "" {
		lowered := strings.ToLower(raw)
		email = &lowered
	}
	payments, err := h.service.List(c.Context(), email)
	if err != nil {
		return err
	}
	out := make([]dto.PaymentResponse, 0, len(payments))
	for i := range payments {
		out = append(out, dto.NewPaymentResponse(&payments[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

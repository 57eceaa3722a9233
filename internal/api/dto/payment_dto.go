package dto

import (
	"time"

	"github.com/spec-kit/cityfix-service/internal/domain"
)

// SettleRequest payload reported by the payment provider webhook or a
// trusted backoffice caller.
type SettleRequest struct {
	SessionID     string             `json:"session_id"`
	Email         string             `json:"email"`
	Type          domain.PaymentType `json:"type"`
	IssueID       *string            `json:"issue_id,omitempty"`
	Amount        int64              `json:"amount"`
	Currency      string             `json:"currency"`
	PaymentStatus string             `json:"payment_status"`
}

// PaymentResponse representation.
type PaymentResponse struct {
	SessionID     string             `json:"session_id"`
	Email         string             `json:"email"`
	Type          domain.PaymentType `json:"type"`
	IssueID       *string            `json:"issue_id,omitempty"`
	Amount        int64              `json:"amount"`
	Currency      string             `json:"currency"`
	PaymentStatus string             `json:"payment_status"`
	AppliedAt     *time.Time         `json:"applied_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

// SettleResponse wraps the settled payment with a duplicate marker.
type SettleResponse struct {
	AlreadyRecorded bool            `json:"already_recorded"`
	Payment         PaymentResponse `json:"payment"`
}

// NewPaymentResponse maps a domain payment.
func NewPaymentResponse(payment *domain.Payment) PaymentResponse {
	return PaymentResponse{
		SessionID:     payment.SessionID,
		Email:         payment.Email,
		Type:          payment.Type,
		IssueID:       payment.IssueID,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		PaymentStatus: payment.PaymentStatus,
		AppliedAt:     payment.AppliedAt,
		CreatedAt:     payment.CreatedAt,
	}
}

package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/cityfix-service/internal/domain"
	"github.com/spec-kit/cityfix-service/internal/events"
	"github.com/spec-kit/cityfix-service/internal/repository"
	"github.com/spec-kit/cityfix-service/pkg/apperrors"
)

// PaymentService applies the business effect of a confirmed external payment
// exactly once per session id. Settlement is record-then-apply: the payment
// row is the dedup gate, applied_at records that the side effect ran. A crash
// between the two leaves a recorded-but-unapplied payment that the next
// settle call for the same session repairs by re-running the dispatch.
type PaymentService struct {
	payments   repository.PaymentRepository
	users      repository.UserRepository
	issues     *IssueService
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// PaymentDependencies bundles collaborators.
type PaymentDependencies struct {
	PaymentRepo repository.PaymentRepository
	UserRepo    repository.UserRepository
	Issues      *IssueService
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// SettleInput is the confirmed checkout session delivered by the provider
// callback. Signature verification happens upstream.
type SettleInput struct {
	SessionID     string
	Email         string
	Type          domain.PaymentType
	IssueID       *string
	Amount        int64
	Currency      string
	PaymentStatus string
}

// SettlementResult distinguishes a fresh application from an idempotent
// short-circuit.
type SettlementResult struct {
	Payment         *domain.Payment
	AlreadyRecorded bool
}

// NewPaymentService constructs the service.
func NewPaymentService(deps PaymentDependencies) *PaymentService {
	return &PaymentService{
		payments:   deps.PaymentRepo,
		users:      deps.UserRepo,
		issues:     deps.Issues,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// Settle records and applies a confirmed payment.
func (s *PaymentService) Settle(ctx context.Context, input SettleInput) (*SettlementResult, error) {
	if strings.TrimSpace(input.SessionID) == "" {
		return nil, apperrors.NewValidationError("session id required", nil)
	}
	if strings.TrimSpace(input.Email) == "" {
		return nil, apperrors.NewMissingIdentity()
	}
	switch input.Type {
	case domain.PaymentTypeSubscribe:
	case domain.PaymentTypeBoost:
		if input.IssueID == nil || strings.TrimSpace(*input.IssueID) == "" {
			return nil, apperrors.NewValidationError("boost payment requires issue id", nil)
		}
	default:
		return nil, apperrors.NewValidationError("unknown payment type", map[string]any{"type": string(input.Type)})
	}

	payment := &domain.Payment{
		SessionID:     input.SessionID,
		Email:         input.Email,
		Type:          input.Type,
		IssueID:       input.IssueID,
		Amount:        input.Amount,
		Currency:      input.Currency,
		PaymentStatus: input.PaymentStatus,
	}

	inserted, err := s.payments.Insert(ctx, payment)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	if !inserted {
		existing, err := s.payments.GetBySession(ctx, input.SessionID)
		if err != nil {
			return nil, apperrors.NewStoreUnavailable(err)
		}
		if existing.AppliedAt != nil {
			return &SettlementResult{Payment: existing, AlreadyRecorded: true}, nil
		}
		// Recorded but never applied: a prior settle crashed between insert
		// and dispatch. Re-run the dispatch, not the insert.
		s.logger.Warn("re-applying recorded payment", zap.String("session_id", existing.SessionID))
		if err := s.applyAndStamp(ctx, existing); err != nil {
			return nil, err
		}
		return &SettlementResult{Payment: existing, AlreadyRecorded: false}, nil
	}

	if err := s.applyAndStamp(ctx, payment); err != nil {
		return nil, err
	}
	return &SettlementResult{Payment: payment, AlreadyRecorded: false}, nil
}

// List returns recorded payments, optionally filtered by payer email.
func (s *PaymentService) List(ctx context.Context, email *string) ([]domain.Payment, error) {
	result, err := s.payments.List(ctx, email)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return result, nil
}

func (s *PaymentService) applyAndStamp(ctx context.Context, payment *domain.Payment) error {
	if err := s.apply(ctx, payment); err != nil {
		return err
	}
	now := time.Now().UTC()
	if err := s.payments.MarkApplied(ctx, payment.SessionID, now); err != nil {
		return apperrors.NewStoreUnavailable(err)
	}
	payment.AppliedAt = &now
	return nil
}

// apply dispatches the payment's side effect. It is idempotent so the
// crash-recovery path can safely re-run it.
func (s *PaymentService) apply(ctx context.Context, payment *domain.Payment) error {
	switch payment.Type {
	case domain.PaymentTypeSubscribe:
		sub := domain.Subscription{
			Status:       domain.SubscriptionStatusActive,
			Plan:         "premium",
			SubscribedAt: time.Now().UTC(),
		}
		updated, err := s.users.SetPremium(ctx, payment.Email, sub)
		if err != nil {
			return apperrors.NewStoreUnavailable(err)
		}
		if !updated {
			return apperrors.NewNotFound("user", map[string]any{"email": payment.Email})
		}
		s.publish(ctx, events.Event{
			Type:  events.EventUserUpgraded,
			Actor: payment.Email,
			Payload: events.UserUpgradedPayload{
				Email: payment.Email,
				Plan:  sub.Plan,
			},
		})
		return nil
	case domain.PaymentTypeBoost:
		_, err := s.issues.Boost(ctx, *payment.IssueID, payment.Email)
		if err != nil && !apperrors.IsCode(err, "ALREADY_BOOSTED") {
			return err
		}
		return nil
	default:
		return apperrors.NewValidationError("unknown payment type", map[string]any{"type": string(payment.Type)})
	}
}

func (s *PaymentService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

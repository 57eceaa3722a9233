package service

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/cityfix-service/internal/domain"
	"github.com/spec-kit/cityfix-service/internal/mocks"
	"github.com/spec-kit/cityfix-service/pkg/apperrors"
)

type paymentFixture struct {
	payments *mocks.MockPaymentRepository
	users    *mocks.MockUserRepository
	issues   *mocks.MockIssueRepository
	svc      *PaymentService
	issueSvc *IssueService
}

func newPaymentFixture() *paymentFixture {
	payments := mocks.NewMockPaymentRepository()
	users := mocks.NewMockUserRepository()
	issues := mocks.NewMockIssueRepository()
	issueSvc := newTestIssueService(issues, users)
	svc := NewPaymentService(PaymentDependencies{
		PaymentRepo: payments,
		UserRepo:    users,
		Issues:      issueSvc,
		Logger:      zap.NewNop(),
	})
	return &paymentFixture{payments: payments, users: users, issues: issues, svc: svc, issueSvc: issueSvc}
}

func TestSettleSubscribeUpgradesUser(t *testing.T) {
	f := newPaymentFixture()
	seedUser(f.users, "alice@example.com", domain.UserRoleCitizen)

	result, err := f.svc.Settle(context.Background(), SettleInput{
		SessionID:     "sess-1",
		Email:         "alice@example.com",
		Type:          domain.PaymentTypeSubscribe,
		Amount:        999,
		Currency:      "usd",
		PaymentStatus: "paid",
	})
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if result.AlreadyRecorded {
		t.Error("first settlement must not be marked as duplicate")
	}
	if result.Payment.AppliedAt == nil {
		t.Error("settlement must stamp applied_at")
	}

	user, err := f.users.GetByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if !user.Premium {
		t.Error("subscribe settlement must mark the user premium")
	}
	if user.Subscription == nil || user.Subscription.Plan != "premium" {
		t.Errorf("subscription = %+v", user.Subscription)
	}
}

func TestSettleIsIdempotentPerSession(t *testing.T) {
	f := newPaymentFixture()
	seedUser(f.users, "alice@example.com", domain.UserRoleCitizen)

	input := SettleInput{
		SessionID:     "sess-dup",
		Email:         "alice@example.com",
		Type:          domain.PaymentTypeSubscribe,
		Amount:        999,
		Currency:      "usd",
		PaymentStatus: "paid",
	}
	if _, err := f.svc.Settle(context.Background(), input); err != nil {
		t.Fatalf("first Settle: %v", err)
	}
	result, err := f.svc.Settle(context.Background(), input)
	if err != nil {
		t.Fatalf("second Settle: %v", err)
	}
	if !result.AlreadyRecorded {
		t.Error("replayed session must report already_recorded")
	}
	if len(f.payments.Payments) != 1 {
		t.Errorf("payments recorded = %d, want 1", len(f.payments.Payments))
	}
}

func TestSettleRecoversFromCrashBeforeApply(t *testing.T) {
	f := newPaymentFixture()
	seedUser(f.users, "alice@example.com", domain.UserRoleCitizen)

	// Simulate a prior settle that recorded the session but crashed before
	// applying the side effect.
	_, err := f.payments.Insert(context.Background(), &domain.Payment{
		SessionID:     "sess-crash",
		Email:         "alice@example.com",
		Type:          domain.PaymentTypeSubscribe,
		Amount:        999,
		Currency:      "usd",
		PaymentStatus: "paid",
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	result, err := f.svc.Settle(context.Background(), SettleInput{
		SessionID:     "sess-crash",
		Email:         "alice@example.com",
		Type:          domain.PaymentTypeSubscribe,
		Amount:        999,
		Currency:      "usd",
		PaymentStatus: "paid",
	})
	if err != nil {
		t.Fatalf("recovery Settle: %v", err)
	}
	if result.AlreadyRecorded {
		t.Error("recovery run applies the effect, so it is not a duplicate")
	}
	user, _ := f.users.GetByEmail(context.Background(), "alice@example.com")
	if !user.Premium {
		t.Error("recovery settlement must still upgrade the user")
	}
}

func TestSettleBoostRaisesIssuePriority(t *testing.T) {
	f := newPaymentFixture()
	seedUser(f.users, "alice@example.com", domain.UserRoleCitizen)
	issue, err := f.issueSvc.Create(context.Background(), "alice@example.com", IssueCreateInput{Title: "pothole"})
	if err != nil {
		t.Fatalf("Create issue: %v", err)
	}

	if _, err := f.svc.Settle(context.Background(), SettleInput{
		SessionID:     "sess-boost",
		Email:         "alice@example.com",
		Type:          domain.PaymentTypeBoost,
		IssueID:       &issue.ID,
		Amount:        499,
		Currency:      "usd",
		PaymentStatus: "paid",
	}); err != nil {
		t.Fatalf("Settle boost: %v", err)
	}

	got, _ := f.issueSvc.Get(context.Background(), issue.ID)
	if got.Priority != domain.IssuePriorityHigh {
		t.Errorf("priority = %s, want High", got.Priority)
	}
}

func TestSettleBoostToleratesAlreadyBoosted(t *testing.T) {
	f := newPaymentFixture()
	seedUser(f.users, "alice@example.com", domain.UserRoleCitizen)
	issue, err := f.issueSvc.Create(context.Background(), "alice@example.com", IssueCreateInput{Title: "pothole"})
	if err != nil {
		t.Fatalf("Create issue: %v", err)
	}
	if _, err := f.issueSvc.Boost(context.Background(), issue.ID, "alice@example.com"); err != nil {
		t.Fatalf("Boost: %v", err)
	}

	// A fresh session paying for an already boosted issue still settles.
	if _, err := f.svc.Settle(context.Background(), SettleInput{
		SessionID:     "sess-boost-2",
		Email:         "alice@example.com",
		Type:          domain.PaymentTypeBoost,
		IssueID:       &issue.ID,
		Amount:        499,
		Currency:      "usd",
		PaymentStatus: "paid",
	}); err != nil {
		t.Fatalf("Settle on boosted issue: %v", err)
	}
}

func TestSettleValidation(t *testing.T) {
	f := newPaymentFixture()

	if _, err := f.svc.Settle(context.Background(), SettleInput{
		Email: "a@example.com", Type: domain.PaymentTypeSubscribe,
	}); !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Errorf("expected VALIDATION_FAILED without session id, got %v", err)
	}
	if _, err := f.svc.Settle(context.Background(), SettleInput{
		SessionID: "s", Type: domain.PaymentTypeSubscribe,
	}); !apperrors.IsCode(err, "MISSING_IDENTITY") {
		t.Errorf("expected MISSING_IDENTITY without email, got %v", err)
	}
	if _, err := f.svc.Settle(context.Background(), SettleInput{
		SessionID: "s", Email: "a@example.com", Type: domain.PaymentTypeBoost,
	}); !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Errorf("expected VALIDATION_FAILED for boost without issue id, got %v", err)
	}
	if _, err := f.svc.Settle(context.Background(), SettleInput{
		SessionID: "s", Email: "a@example.com", Type: domain.PaymentType("tip"),
	}); !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Errorf("expected VALIDATION_FAILED for unknown type, got %v", err)
	}
}

func TestSettleSubscribeUnknownUser(t *testing.T) {
	f := newPaymentFixture()
	if _, err := f.svc.Settle(context.Background(), SettleInput{
		SessionID:     "sess-ghost",
		Email:         "ghost@example.com",
		Type:          domain.PaymentTypeSubscribe,
		Amount:        999,
		Currency:      "usd",
		PaymentStatus: "paid",
	}); !apperrors.IsCode(err, "NOT_FOUND") {
		t.Errorf("expected NOT_FOUND for unknown subscriber, got %v", err)
	}
}

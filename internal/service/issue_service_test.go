package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/cityfix-service/internal/domain"
	"github.com/spec-kit/cityfix-service/internal/mocks"
	"github.com/spec-kit/cityfix-service/pkg/apperrors"
)

func newTestIssueService(issues *mocks.MockIssueRepository, users *mocks.MockUserRepository) *IssueService {
	quota := NewQuotaGuard(issues, mocks.NewMockLocker(), zap.NewNop(), 3, time.Second)
	return NewIssueService(IssueDependencies{
		IssueRepo: issues,
		UserRepo:  users,
		Quota:     quota,
		Logger:    zap.NewNop(),
	})
}

func seedUser(users *mocks.MockUserRepository, email string, role domain.UserRole) *domain.User {
	user := &domain.User{Name: email, Email: email, Role: role}
	_, _ = users.CreateIfAbsent(context.Background(), user)
	return user
}

func TestCreateIssueSetsInitialState(t *testing.T) {
	issues := mocks.NewMockIssueRepository()
	users := mocks.NewMockUserRepository()
	seedUser(users, "alice@example.com", domain.UserRoleCitizen)
	svc := newTestIssueService(issues, users)

	issue, err := svc.Create(context.Background(), "alice@example.com", IssueCreateInput{
		Title:    "  Broken streetlight  ",
		Category: "lighting",
		Location: "5th and Main",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if issue.Status != domain.IssueStatusPending {
		t.Errorf("status = %s, want Pending", issue.Status)
	}
	if issue.Priority != domain.IssuePriorityNormal {
		t.Errorf("priority = %s, want Normal", issue.Priority)
	}
	if issue.Title != "Broken streetlight" {
		t.Errorf("title not trimmed: %q", issue.Title)
	}
	if issue.UpvoteCount != 0 || len(issue.UpvotedBy) != 0 {
		t.Errorf("fresh issue must have an empty upvote ledger")
	}
	if len(issue.Timeline) != 1 || issue.Timeline[0].Status != domain.TimelineCreated {
		t.Fatalf("timeline = %+v, want single Created entry", issue.Timeline)
	}
	if issue.Timeline[0].UpdatedBy != "alice@example.com" {
		t.Errorf("timeline author = %s", issue.Timeline[0].UpdatedBy)
	}
}

func TestCreateIssueRequiresIdentityAndTitle(t *testing.T) {
	issues := mocks.NewMockIssueRepository()
	users := mocks.NewMockUserRepository()
	svc := newTestIssueService(issues, users)

	if _, err := svc.Create(context.Background(), "", IssueCreateInput{Title: "x"}); !apperrors.IsCode(err, "MISSING_IDENTITY") {
		t.Errorf("expected MISSING_IDENTITY, got %v", err)
	}
	seedUser(users, "alice@example.com", domain.UserRoleCitizen)
	if _, err := svc.Create(context.Background(), "alice@example.com", IssueCreateInput{Title: "   "}); !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Errorf("expected VALIDATION_FAILED, got %v", err)
	}
}

func TestCreateIssueRejectsBlockedAndUnknownReporters(t *testing.T) {
	issues := mocks.NewMockIssueRepository()
	users := mocks.NewMockUserRepository()
	blocked := seedUser(users, "blocked@example.com", domain.UserRoleCitizen)
	users.Users[blocked.Email].Blocked = true
	svc := newTestIssueService(issues, users)

	if _, err := svc.Create(context.Background(), "blocked@example.com", IssueCreateInput{Title: "x"}); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Errorf("expected FORBIDDEN for blocked reporter, got %v", err)
	}
	if _, err := svc.Create(context.Background(), "ghost@example.com", IssueCreateInput{Title: "x"}); !apperrors.IsCode(err, "NOT_FOUND") {
		t.Errorf("expected NOT_FOUND for unknown reporter, got %v", err)
	}
}

func TestFreeTierQuota(t *testing.T) {
	issues := mocks.NewMockIssueRepository()
	users := mocks.NewMockUserRepository()
	seedUser(users, "alice@example.com", domain.UserRoleCitizen)
	svc := newTestIssueService(issues, users)

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(context.Background(), "alice@example.com", IssueCreateInput{
			Title: fmt.Sprintf("issue %d", i),
		}); err != nil {
			t.Fatalf("create %d within quota: %v", i, err)
		}
	}
	_, err := svc.Create(context.Background(), "alice@example.com", IssueCreateInput{Title: "one too many"})
	if !apperrors.IsCode(err, "QUOTA_EXCEEDED") {
		t.Fatalf("expected QUOTA_EXCEEDED on fourth issue, got %v", err)
	}
}

func TestPremiumBypassesQuota(t *testing.T) {
	issues := mocks.NewMockIssueRepository()
	users := mocks.NewMockUserRepository()
	premium := seedUser(users, "vip@example.com", domain.UserRoleCitizen)
	users.Users[premium.Email].Premium = true
	svc := newTestIssueService(issues, users)

	for i := 0; i < 5; i++ {
		if _, err := svc.Create(context.Background(), "vip@example.com", IssueCreateInput{
			Title: fmt.Sprintf("issue %d", i),
		}); err != nil {
			t.Fatalf("premium create %d: %v", i, err)
		}
	}
}

func TestRejectedIssuesFreeQuota(t *testing.T) {
	issues := mocks.NewMockIssueRepository()
	users := mocks.NewMockUserRepository()
	seedUser(users, "alice@example.com", domain.UserRoleCitizen)
	svc := newTestIssueService(issues, users)

	var first *domain.Issue
	for i := 0; i < 3; i++ {
		issue, err := svc.Create(context.Background(), "alice@example.com", IssueCreateInput{
			Title: fmt.Sprintf("issue %d", i),
		})
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if first == nil {
			first = issue
		}
	}
	if _, err := svc.Reject(context.Background(), first.ID, "admin@example.com"); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if _, err := svc.Create(context.Background(), "alice@example.com", IssueCreateInput{Title: "replacement"}); err != nil {
		t.Fatalf("create after reject should succeed: %v", err)
	}
}

func TestUpvoteKeepsLedgerAndCountInSync(t *testing.T) {
	issues := mocks.NewMockIssueRepository()
	users := mocks.NewMockUserRepository()
	seedUser(users, "alice@example.com", domain.UserRoleCitizen)
	svc := newTestIssueService(issues, users)

	issue, err := svc.Create(context.Background(), "alice@example.com", IssueCreateInput{Title: "pothole"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	voters := []string{"bob@example.com", "carol@example.com", "dave@example.com"}
	for _, voter := range voters {
		if _, err := svc.Upvote(context.Background(), issue.ID, voter); err != nil {
			t.Fatalf("Upvote by %s: %v", voter, err)
		}
	}

	got, err := svc.Get(context.Background(), issue.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.UpvoteCount != len(got.UpvotedBy) {
		t.Errorf("count %d diverged from ledger size %d", got.UpvoteCount, len(got.UpvotedBy))
	}
	if got.UpvoteCount != 3 {
		t.Errorf("upvote count = %d, want 3", got.UpvoteCount)
	}
}

func TestUpvoteRejectsSelfAndDuplicate(t *testing.T) {
	issues := mocks.NewMockIssueRepository()
	users := mocks.NewMockUserRepository()
	seedUser(users, "alice@example.com", domain.UserRoleCitizen)
	svc := newTestIssueService(issues, users)

	issue, err := svc.Create(context.Background(), "alice@example.com", IssueCreateInput{Title: "pothole"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Upvote(context.Background(), issue.ID, "alice@example.com"); !apperrors.IsCode(err, "SELF_UPVOTE") {
		t.Errorf("expected SELF_UPVOTE, got %v", err)
	}
	if _, err := svc.Upvote(context.Background(), issue.ID, "bob@example.com"); err != nil {
		t.Fatalf("first upvote: %v", err)
	}
	if _, err := svc.Upvote(context.Background(), issue.ID, "bob@example.com"); !apperrors.IsCode(err, "DUPLICATE_UPVOTE") {
		t.Errorf("expected DUPLICATE_UPVOTE, got %v", err)
	}

	got, _ := svc.Get(context.Background(), issue.ID)
	if got.UpvoteCount != 1 {
		t.Errorf("rejected votes must not change the count, got %d", got.UpvoteCount)
	}
}

func TestAssignIsWriteOnce(t *testing.T) {
	issues := mocks.NewMockIssueRepository()
	users := mocks.NewMockUserRepository()
	seedUser(users, "alice@example.com", domain.UserRoleCitizen)
	staff := seedUser(users, "staff@example.com", domain.UserRoleStaff)
	other := seedUser(users, "staff2@example.com", domain.UserRoleStaff)
	svc := newTestIssueService(issues, users)

	issue, err := svc.Create(context.Background(), "alice@example.com", IssueCreateInput{Title: "leak"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := svc.Assign(context.Background(), issue.ID, staff.ID, "admin@example.com")
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if got.AssignedStaff == nil || got.AssignedStaff.Email != staff.Email {
		t.Fatalf("assigned staff = %+v", got.AssignedStaff)
	}
	if got.AssignedAt == nil {
		t.Error("assigned_at must be set")
	}

	if _, err := svc.Assign(context.Background(), issue.ID, other.ID, "admin@example.com"); !apperrors.IsCode(err, "ALREADY_ASSIGNED") {
		t.Errorf("expected ALREADY_ASSIGNED, got %v", err)
	}
	got, _ = svc.Get(context.Background(), issue.ID)
	if got.AssignedStaff.Email != staff.Email {
		t.Errorf("second assign must not overwrite, got %s", got.AssignedStaff.Email)
	}
}

func TestAssignRejectsNonStaff(t *testing.T) {
	issues := mocks.NewMockIssueRepository()
	users := mocks.NewMockUserRepository()
	seedUser(users, "alice@example.com", domain.UserRoleCitizen)
	citizen := seedUser(users, "bob@example.com", domain.UserRoleCitizen)
	svc := newTestIssueService(issues, users)

	issue, err := svc.Create(context.Background(), "alice@example.com", IssueCreateInput{Title: "leak"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Assign(context.Background(), issue.ID, citizen.ID, "admin@example.com"); !apperrors.IsCode(err, "NOT_FOUND") {
		t.Errorf("expected NOT_FOUND for non-staff assignee, got %v", err)
	}
}

func TestChangeStatusFollowsChain(t *testing.T) {
	issues := mocks.NewMockIssueRepository()
	users := mocks.NewMockUserRepository()
	seedUser(users, "alice@example.com", domain.UserRoleCitizen)
	svc := newTestIssueService(issues, users)

	issue, err := svc.Create(context.Background(), "alice@example.com", IssueCreateInput{Title: "graffiti"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Skipping a state is refused.
	if _, err := svc.ChangeStatus(context.Background(), issue.ID, domain.IssueStatusWorking, "staff@example.com"); !apperrors.IsCode(err, "INVALID_TRANSITION") {
		t.Errorf("expected INVALID_TRANSITION for Pending -> Working, got %v", err)
	}

	chain := []domain.IssueStatus{
		domain.IssueStatusInProgress,
		domain.IssueStatusWorking,
		domain.IssueStatusResolved,
		domain.IssueStatusClosed,
	}
	for _, next := range chain {
		got, err := svc.ChangeStatus(context.Background(), issue.ID, next, "staff@example.com")
		if err != nil {
			t.Fatalf("ChangeStatus to %s: %v", next, err)
		}
		if got.Status != next {
			t.Fatalf("status = %s, want %s", got.Status, next)
		}
	}

	// Terminal state accepts nothing.
	if _, err := svc.ChangeStatus(context.Background(), issue.ID, domain.IssueStatusPending, "staff@example.com"); !apperrors.IsCode(err, "INVALID_TRANSITION") {
		t.Errorf("expected INVALID_TRANSITION from Closed, got %v", err)
	}

	got, _ := svc.Get(context.Background(), issue.ID)
	// Created + four transitions; refused attempts leave no trace.
	if len(got.Timeline) != 5 {
		t.Errorf("timeline length = %d, want 5", len(got.Timeline))
	}
}

func TestBoostAppliesOnce(t *testing.T) {
	issues := mocks.NewMockIssueRepository()
	users := mocks.NewMockUserRepository()
	seedUser(users, "alice@example.com", domain.UserRoleCitizen)
	svc := newTestIssueService(issues, users)

	issue, err := svc.Create(context.Background(), "alice@example.com", IssueCreateInput{Title: "noise"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := svc.Boost(context.Background(), issue.ID, "alice@example.com")
	if err != nil {
		t.Fatalf("Boost: %v", err)
	}
	if got.Priority != domain.IssuePriorityHigh {
		t.Errorf("priority = %s, want High", got.Priority)
	}
	if _, err := svc.Boost(context.Background(), issue.ID, "alice@example.com"); !apperrors.IsCode(err, "ALREADY_BOOSTED") {
		t.Errorf("expected ALREADY_BOOSTED, got %v", err)
	}
}

func TestRejectIsTerminalAndPreservesTimeline(t *testing.T) {
	issues := mocks.NewMockIssueRepository()
	users := mocks.NewMockUserRepository()
	seedUser(users, "alice@example.com", domain.UserRoleCitizen)
	svc := newTestIssueService(issues, users)

	issue, err := svc.Create(context.Background(), "alice@example.com", IssueCreateInput{Title: "spam"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := svc.Reject(context.Background(), issue.ID, "admin@example.com")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if got.Status != domain.IssueStatusRejected {
		t.Errorf("status = %s, want Rejected", got.Status)
	}
	if len(got.Timeline) != 2 {
		t.Errorf("timeline length = %d, want 2", len(got.Timeline))
	}
	if _, err := svc.Reject(context.Background(), issue.ID, "admin@example.com"); !apperrors.IsCode(err, "INVALID_TRANSITION") {
		t.Errorf("expected INVALID_TRANSITION on double reject, got %v", err)
	}
	if _, err := svc.ChangeStatus(context.Background(), issue.ID, domain.IssueStatusInProgress, "staff@example.com"); !apperrors.IsCode(err, "INVALID_TRANSITION") {
		t.Errorf("expected INVALID_TRANSITION out of Rejected, got %v", err)
	}
}

func TestUpdateGuardsOwnershipAndIdentity(t *testing.T) {
	issues := mocks.NewMockIssueRepository()
	users := mocks.NewMockUserRepository()
	alice := seedUser(users, "alice@example.com", domain.UserRoleCitizen)
	mallory := seedUser(users, "mallory@example.com", domain.UserRoleCitizen)
	staff := seedUser(users, "staff@example.com", domain.UserRoleStaff)
	svc := newTestIssueService(issues, users)

	issue, err := svc.Create(context.Background(), "alice@example.com", IssueCreateInput{Title: "fence", Description: "broken"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	hijack := "mallory@example.com"
	if _, err := svc.Update(context.Background(), issue.ID, IssueUpdateInput{Email: &hijack}, alice); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Errorf("expected FORBIDDEN on reporter rewrite, got %v", err)
	}
	newTitle := "fixed title"
	if _, err := svc.Update(context.Background(), issue.ID, IssueUpdateInput{Title: &newTitle}, mallory); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Errorf("expected FORBIDDEN for a stranger, got %v", err)
	}

	got, err := svc.Update(context.Background(), issue.ID, IssueUpdateInput{Title: &newTitle}, staff)
	if err != nil {
		t.Fatalf("staff update: %v", err)
	}
	if got.Title != newTitle {
		t.Errorf("title = %q, want %q", got.Title, newTitle)
	}
	if got.ReporterEmail != "alice@example.com" {
		t.Errorf("reporter changed to %s", got.ReporterEmail)
	}
	if len(got.Timeline) != 2 || got.Timeline[1].Status != domain.TimelineUpdated {
		t.Errorf("timeline = %+v, want Updated entry appended", got.Timeline)
	}
}

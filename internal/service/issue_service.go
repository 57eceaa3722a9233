package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/cityfix-service/internal/domain"
	"github.com/spec-kit/cityfix-service/internal/events"
	"github.com/spec-kit/cityfix-service/internal/observability"
	"github.com/spec-kit/cityfix-service/internal/repository"
	"github.com/spec-kit/cityfix-service/pkg/apperrors"
)

// IssueService owns the issue lifecycle: the status state machine, the
// append-only timeline, the upvote ledger and the write-once staff
// assignment. All business-rule checks happen before (or inside) the single
// store statement that applies the mutation, so a rejected operation never
// leaves partial effects.
type IssueService struct {
	issues     repository.IssueRepository
	users      repository.UserRepository
	quota      *QuotaGuard
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// IssueDependencies bundles collaborators for the service.
type IssueDependencies struct {
	IssueRepo  repository.IssueRepository
	UserRepo   repository.UserRepository
	Quota      *QuotaGuard
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// IssueCreateInput describes the citizen-supplied payload. The reporter is
// never part of it; identity always comes from the authenticated principal.
type IssueCreateInput struct {
	Title       string
	Description string
	Category    string
	Location    string
	PhotoURLs   []string
}

// IssueUpdateInput is the allow-listed patch. Email is accepted only so the
// identity-hijack attempt can be detected and refused explicitly.
type IssueUpdateInput struct {
	Email       *string
	Title       *string
	Description *string
	Category    *string
	Location    *string
	PhotoURLs   []string
}

// NewIssueService constructs the service.
func NewIssueService(deps IssueDependencies) *IssueService {
	return &IssueService{
		issues:     deps.IssueRepo,
		users:      deps.UserRepo,
		quota:      deps.Quota,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
}

// Create files a new issue for the reporter, subject to the free-tier quota.
func (s *IssueService) Create(ctx context.Context, reporterEmail string, input IssueCreateInput) (*domain.Issue, error) {
	reporterEmail = strings.TrimSpace(reporterEmail)
	if reporterEmail == "" {
		return nil, apperrors.NewMissingIdentity()
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}

	reporter, err := s.users.GetByEmail(ctx, reporterEmail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"email": reporterEmail})
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}
	if !reporter.CanAct() {
		return nil, apperrors.NewForbidden("blocked users cannot submit issues")
	}

	release, err := s.quota.Reserve(ctx, reporter)
	if err != nil {
		s.recordOp("create", "denied")
		return nil, err
	}
	defer release()

	now := time.Now().UTC()
	issue := &domain.Issue{
		ReporterEmail: reporterEmail,
		Title:         strings.TrimSpace(input.Title),
		Description:   strings.TrimSpace(input.Description),
		Category:      strings.TrimSpace(input.Category),
		Location:      strings.TrimSpace(input.Location),
		PhotoURLs:     input.PhotoURLs,
		Status:        domain.IssueStatusPending,
		Priority:      domain.IssuePriorityNormal,
		UpvotedBy:     []string{},
		Timeline: []domain.TimelineEntry{{
			Status:    domain.TimelineCreated,
			Message:   "Issue submitted",
			UpdatedBy: reporterEmail,
			Time:      now,
		}},
	}
	if issue.PhotoURLs == nil {
		issue.PhotoURLs = []string{}
	}

	if err := s.issues.Create(ctx, issue); err != nil {
		s.recordOp("create", "error")
		return nil, apperrors.NewStoreUnavailable(err)
	}

	s.recordOp("create", "ok")
	s.publish(ctx, events.Event{
		Type:    events.EventIssueCreated,
		IssueID: issue.ID,
		Actor:   reporterEmail,
		Payload: events.IssueCreatedPayload{
			ReporterEmail: reporterEmail,
			Title:         issue.Title,
			Category:      issue.Category,
		},
	})
	return issue, nil
}

// Get fetches a single issue.
func (s *IssueService) Get(ctx context.Context, id string) (*domain.Issue, error) {
	issue, err := s.issues.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("issue", map[string]any{"issue_id": id})
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return issue, nil
}

// List returns issues matching the filter.
func (s *IssueService) List(ctx context.Context, filter repository.IssueFilter) ([]domain.Issue, error) {
	result, err := s.issues.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return result, nil
}

// Upvote records one vote by voterEmail. Counter bump, ledger append and
// timeline append commit atomically in the store.
func (s *IssueService) Upvote(ctx context.Context, id, voterEmail string) (*domain.Issue, error) {
	voterEmail = strings.TrimSpace(voterEmail)
	if voterEmail == "" {
		return nil, apperrors.NewMissingIdentity()
	}

	entry := domain.TimelineEntry{
		Status:    domain.TimelineUpvoted,
		Message:   fmt.Sprintf("Upvoted by %s", voterEmail),
		UpdatedBy: voterEmail,
		Time:      time.Now().UTC(),
	}
	applied, err := s.issues.AddUpvote(ctx, id, voterEmail, entry)
	if err != nil {
		s.recordOp("upvote", "error")
		return nil, apperrors.NewStoreUnavailable(err)
	}
	if !applied {
		s.recordOp("upvote", "denied")
		issue, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if issue.ReporterEmail == voterEmail {
			return nil, apperrors.NewSelfUpvote()
		}
		if issue.HasUpvoted(voterEmail) {
			return nil, apperrors.NewDuplicateUpvote()
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("upvote not applied for issue %s", id))
	}

	issue, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.recordOp("upvote", "ok")
	s.publish(ctx, events.Event{
		Type:    events.EventIssueUpvoted,
		IssueID: id,
		Actor:   voterEmail,
		Payload: events.IssueUpvotedPayload{
			VoterEmail:  voterEmail,
			UpvoteCount: issue.UpvoteCount,
		},
	})
	return issue, nil
}

// Assign sets the resolving staff member exactly once. Status is not touched.
func (s *IssueService) Assign(ctx context.Context, id, staffID, actorEmail string) (*domain.Issue, error) {
	staff, err := s.users.GetByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("staff", map[string]any{"staff_id": staffID})
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}
	if !staff.IsStaff() {
		return nil, apperrors.NewNotFound("staff", map[string]any{"staff_id": staffID})
	}
	if staff.Blocked {
		return nil, apperrors.NewForbidden("staff member is blocked")
	}

	now := time.Now().UTC()
	entry := domain.TimelineEntry{
		Status:    domain.TimelineAssigned,
		Message:   fmt.Sprintf("Assigned to %s", staff.Name),
		UpdatedBy: actorEmail,
		Time:      now,
	}
	assigned := domain.AssignedStaff{ID: staff.ID, Name: staff.Name, Email: staff.Email}
	applied, err := s.issues.SetAssignedStaff(ctx, id, assigned, now, entry)
	if err != nil {
		s.recordOp("assign", "error")
		return nil, apperrors.NewStoreUnavailable(err)
	}
	if !applied {
		s.recordOp("assign", "denied")
		issue, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if issue.AssignedStaff != nil {
			return nil, apperrors.NewAlreadyAssigned()
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("assignment not applied for issue %s", id))
	}

	s.recordOp("assign", "ok")
	s.publish(ctx, events.Event{
		Type:    events.EventIssueAssigned,
		IssueID: id,
		Actor:   actorEmail,
		Payload: events.IssueAssignedPayload{
			StaffID:    staff.ID,
			StaffEmail: staff.Email,
		},
	})
	return s.Get(ctx, id)
}

// ChangeStatus advances the issue along the lifecycle chain. Only the unique
// successor of the current status is accepted.
func (s *IssueService) ChangeStatus(ctx context.Context, id string, requested domain.IssueStatus, actorEmail string) (*domain.Issue, error) {
	issue, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.IsValidTransition(issue.Status, requested) {
		s.recordOp("change_status", "denied")
		return nil, apperrors.NewInvalidTransition(string(issue.Status), string(requested))
	}

	entry := domain.TimelineEntry{
		Status:    string(requested),
		Message:   fmt.Sprintf("Status changed to %s", requested),
		UpdatedBy: actorEmail,
		Time:      time.Now().UTC(),
	}
	applied, err := s.issues.TransitionStatus(ctx, id, issue.Status, requested, entry)
	if err != nil {
		s.recordOp("change_status", "error")
		return nil, apperrors.NewStoreUnavailable(err)
	}
	if !applied {
		// A concurrent writer moved the status between our read and write.
		s.recordOp("change_status", "denied")
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, apperrors.NewInvalidTransition(string(current.Status), string(requested))
	}

	s.recordOp("change_status", "ok")
	s.publish(ctx, events.Event{
		Type:    events.EventIssueStatusChanged,
		IssueID: id,
		Actor:   actorEmail,
		Payload: events.IssueStatusChangedPayload{
			OldStatus: issue.Status,
			NewStatus: requested,
		},
	})
	return s.Get(ctx, id)
}

// Boost raises priority to High exactly once. Normally driven by payment
// settlement; admins may invoke it directly.
func (s *IssueService) Boost(ctx context.Context, id, payerEmail string) (*domain.Issue, error) {
	entry := domain.TimelineEntry{
		Status:    domain.TimelineBoosted,
		Message:   fmt.Sprintf("Priority boosted by %s", payerEmail),
		UpdatedBy: payerEmail,
		Time:      time.Now().UTC(),
	}
	applied, err := s.issues.MarkBoosted(ctx, id, entry)
	if err != nil {
		s.recordOp("boost", "error")
		return nil, apperrors.NewStoreUnavailable(err)
	}
	if !applied {
		s.recordOp("boost", "denied")
		issue, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if issue.Priority == domain.IssuePriorityHigh {
			return nil, apperrors.NewAlreadyBoosted()
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("boost not applied for issue %s", id))
	}

	s.recordOp("boost", "ok")
	s.publish(ctx, events.Event{
		Type:    events.EventIssueBoosted,
		IssueID: id,
		Actor:   payerEmail,
		Payload: events.IssueBoostedPayload{PayerEmail: payerEmail},
	})
	return s.Get(ctx, id)
}

// Reject moves the issue to the terminal Rejected status, preserving the
// full timeline for audit. Rejected issues no longer count against quota.
func (s *IssueService) Reject(ctx context.Context, id, actorEmail string) (*domain.Issue, error) {
	entry := domain.TimelineEntry{
		Status:    domain.TimelineRejected,
		Message:   "Issue rejected",
		UpdatedBy: actorEmail,
		Time:      time.Now().UTC(),
	}
	applied, err := s.issues.MarkRejected(ctx, id, entry)
	if err != nil {
		s.recordOp("reject", "error")
		return nil, apperrors.NewStoreUnavailable(err)
	}
	if !applied {
		s.recordOp("reject", "denied")
		issue, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, apperrors.NewInvalidTransition(string(issue.Status), string(domain.IssueStatusRejected))
	}

	s.recordOp("reject", "ok")
	s.publish(ctx, events.Event{
		Type:    events.EventIssueRejected,
		IssueID: id,
		Actor:   actorEmail,
	})
	return s.Get(ctx, id)
}

// Update applies the allow-listed field patch. The reporter identity can
// never be rewritten through this path.
func (s *IssueService) Update(ctx context.Context, id string, input IssueUpdateInput, requester *domain.User) (*domain.Issue, error) {
	issue, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Email != nil && *input.Email != issue.ReporterEmail {
		return nil, apperrors.NewForbidden("reporter identity cannot be changed")
	}
	if requester.Email != issue.ReporterEmail && !requester.IsStaff() {
		return nil, apperrors.NewForbidden("only the reporter or staff may edit an issue")
	}

	patch := repository.IssuePatch{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Location:    input.Location,
		PhotoURLs:   input.PhotoURLs,
	}
	entry := domain.TimelineEntry{
		Status:    domain.TimelineUpdated,
		Message:   "Issue details updated",
		UpdatedBy: requester.Email,
		Time:      time.Now().UTC(),
	}
	applied, err := s.issues.UpdateFields(ctx, id, patch, entry)
	if err != nil {
		s.recordOp("update", "error")
		return nil, apperrors.NewStoreUnavailable(err)
	}
	if !applied {
		return nil, apperrors.NewNotFound("issue", map[string]any{"issue_id": id})
	}
	s.recordOp("update", "ok")
	return s.Get(ctx, id)
}

func (s *IssueService) recordOp(op, outcome string) {
	s.metrics.RecordIssueOp(op, outcome)
}

func (s *IssueService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", zap.String("type", string(event.Type)), zap.Error(err))
	}
}

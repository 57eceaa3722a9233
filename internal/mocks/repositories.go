package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/cityfix-service/internal/domain"
	"github.com/spec-kit/cityfix-service/internal/repository"
)

// MockIssueRepository is an in-memory IssueRepository. Conditional mutations
// honor the same preconditions the SQL statements carry.
type MockIssueRepository struct {
	mu     sync.Mutex
	Issues map[string]*domain.Issue
	NextID int

	CreateError error
	GetError    error
	UpdateError error
}

func NewMockIssueRepository() *MockIssueRepository {
	return &MockIssueRepository{Issues: make(map[string]*domain.Issue)}
}

func (m *MockIssueRepository) Create(ctx context.Context, issue *domain.Issue) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NextID++
	issue.ID = fmt.Sprintf("issue-%d", m.NextID)
	if issue.CreatedAt.IsZero() {
		issue.CreatedAt = time.Now()
	}
	copied := cloneIssue(issue)
	m.Issues[issue.ID] = copied
	return nil
}

func (m *MockIssueRepository) GetByID(ctx context.Context, id string) (*domain.Issue, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	issue, ok := m.Issues[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cloneIssue(issue), nil
}

func (m *MockIssueRepository) List(ctx context.Context, filter repository.IssueFilter) ([]domain.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Issue
	for _, issue := range m.Issues {
		if filter.ReporterEmail != nil && issue.ReporterEmail != *filter.ReporterEmail {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, issue.Status) {
			continue
		}
		out = append(out, *cloneIssue(issue))
	}
	return out, nil
}

func (m *MockIssueRepository) CountLiveByReporter(ctx context.Context, email string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, issue := range m.Issues {
		if issue.ReporterEmail == email && issue.Status != domain.IssueStatusRejected {
			count++
		}
	}
	return count, nil
}

func (m *MockIssueRepository) AddUpvote(ctx context.Context, id, voter string, entry domain.TimelineEntry) (bool, error) {
	if m.UpdateError != nil {
		return false, m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	issue, ok := m.Issues[id]
	if !ok || issue.ReporterEmail == voter || issue.HasUpvoted(voter) {
		return false, nil
	}
	issue.UpvoteCount++
	issue.UpvotedBy = append(issue.UpvotedBy, voter)
	issue.Timeline = append(issue.Timeline, entry)
	return true, nil
}

func (m *MockIssueRepository) SetAssignedStaff(ctx context.Context, id string, staff domain.AssignedStaff, at time.Time, entry domain.TimelineEntry) (bool, error) {
	if m.UpdateError != nil {
		return false, m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	issue, ok := m.Issues[id]
	if !ok || issue.AssignedStaff != nil {
		return false, nil
	}
	assigned := staff
	assignedAt := at
	issue.AssignedStaff = &assigned
	issue.AssignedAt = &assignedAt
	issue.Timeline = append(issue.Timeline, entry)
	return true, nil
}

func (m *MockIssueRepository) TransitionStatus(ctx context.Context, id string, from, to domain.IssueStatus, entry domain.TimelineEntry) (bool, error) {
	if m.UpdateError != nil {
		return false, m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	issue, ok := m.Issues[id]
	if !ok || issue.Status != from {
		return false, nil
	}
	issue.Status = to
	issue.Timeline = append(issue.Timeline, entry)
	return true, nil
}

func (m *MockIssueRepository) MarkBoosted(ctx context.Context, id string, entry domain.TimelineEntry) (bool, error) {
	if m.UpdateError != nil {
		return false, m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	issue, ok := m.Issues[id]
	if !ok || issue.Priority == domain.IssuePriorityHigh {
		return false, nil
	}
	issue.Priority = domain.IssuePriorityHigh
	issue.Timeline = append(issue.Timeline, entry)
	return true, nil
}

func (m *MockIssueRepository) MarkRejected(ctx context.Context, id string, entry domain.TimelineEntry) (bool, error) {
	if m.UpdateError != nil {
		return false, m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	issue, ok := m.Issues[id]
	if !ok || issue.Status == domain.IssueStatusRejected || issue.Status == domain.IssueStatusClosed {
		return false, nil
	}
	issue.Status = domain.IssueStatusRejected
	issue.Timeline = append(issue.Timeline, entry)
	return true, nil
}

func (m *MockIssueRepository) UpdateFields(ctx context.Context, id string, patch repository.IssuePatch, entry domain.TimelineEntry) (bool, error) {
	if m.UpdateError != nil {
		return false, m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	issue, ok := m.Issues[id]
	if !ok {
		return false, nil
	}
	changed := false
	if patch.Title != nil {
		issue.Title = *patch.Title
		changed = true
	}
	if patch.Description != nil {
		issue.Description = *patch.Description
		changed = true
	}
	if patch.Category != nil {
		issue.Category = *patch.Category
		changed = true
	}
	if patch.Location != nil {
		issue.Location = *patch.Location
		changed = true
	}
	if patch.PhotoURLs != nil {
		issue.PhotoURLs = append([]string(nil), patch.PhotoURLs...)
		changed = true
	}
	if changed {
		issue.Timeline = append(issue.Timeline, entry)
	}
	return true, nil
}

func cloneIssue(issue *domain.Issue) *domain.Issue {
	copied := *issue
	copied.PhotoURLs = append([]string(nil), issue.PhotoURLs...)
	copied.UpvotedBy = append([]string(nil), issue.UpvotedBy...)
	copied.Timeline = append([]domain.TimelineEntry(nil), issue.Timeline...)
	if issue.AssignedStaff != nil {
		staff := *issue.AssignedStaff
		copied.AssignedStaff = &staff
	}
	if issue.AssignedAt != nil {
		at := *issue.AssignedAt
		copied.AssignedAt = &at
	}
	return &copied
}

func containsStatus(statuses []domain.IssueStatus, status domain.IssueStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// MockUserRepository is an in-memory UserRepository keyed by email.
type MockUserRepository struct {
	mu     sync.Mutex
	Users  map[string]*domain.User
	NextID int

	CreateError error
	GetError    error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{Users: make(map[string]*domain.User)}
}

func (m *MockUserRepository) CreateIfAbsent(ctx context.Context, user *domain.User) (bool, error) {
	if m.CreateError != nil {
		return false, m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.Users[user.Email]; exists {
		return false, nil
	}
	m.NextID++
	user.ID = fmt.Sprintf("user-%d", m.NextID)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	copied := *user
	m.Users[user.Email] = &copied
	return true, nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.Users[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.Users {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *MockUserRepository) List(ctx context.Context, filter repository.UserFilter) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, user := range m.Users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		out = append(out, *user)
	}
	return out, nil
}

func (m *MockUserRepository) SetBlocked(ctx context.Context, email string, blocked bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.Users[email]
	if !ok {
		return false, nil
	}
	user.Blocked = blocked
	return true, nil
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, email string, patch repository.UserPatch) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.Users[email]
	if !ok {
		return false, nil
	}
	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.Role != nil {
		user.Role = *patch.Role
	}
	return true, nil
}

func (m *MockUserRepository) SetPremium(ctx context.Context, email string, sub domain.Subscription) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.Users[email]
	if !ok {
		return false, nil
	}
	user.Premium = true
	copied := sub
	user.Subscription = &copied
	return true, nil
}

func (m *MockUserRepository) Delete(ctx context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Users[email]; !ok {
		return false, nil
	}
	delete(m.Users, email)
	return true, nil
}

// MockPaymentRepository is an in-memory PaymentRepository keyed by session id.
type MockPaymentRepository struct {
	mu       sync.Mutex
	Payments map[string]*domain.Payment

	InsertError error
}

func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{Payments: make(map[string]*domain.Payment)}
}

func (m *MockPaymentRepository) Insert(ctx context.Context, payment *domain.Payment) (bool, error) {
	if m.InsertError != nil {
		return false, m.InsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.Payments[payment.SessionID]; exists {
		return false, nil
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now()
	}
	copied := *payment
	m.Payments[payment.SessionID] = &copied
	return true, nil
}

func (m *MockPaymentRepository) GetBySession(ctx context.Context, sessionID string) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payment, ok := m.Payments[sessionID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *payment
	return &copied, nil
}

func (m *MockPaymentRepository) MarkApplied(ctx context.Context, sessionID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	payment, ok := m.Payments[sessionID]
	if !ok {
		return pgx.ErrNoRows
	}
	applied := at
	payment.AppliedAt = &applied
	return nil
}

func (m *MockPaymentRepository) List(ctx context.Context, email *string) ([]domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Payment
	for _, payment := range m.Payments {
		if email != nil && payment.Email != *email {
			continue
		}
		out = append(out, *payment)
	}
	return out, nil
}

// MockStatsRepository returns canned aggregates.
type MockStatsRepository struct {
	IssuesByStatus map[domain.IssueStatus]int64
	Users          repository.UserCounts
	PaymentTotal   int64
	Top            []domain.Issue

	Err error
}

func (m *MockStatsRepository) CountIssuesByStatus(ctx context.Context) (map[domain.IssueStatus]int64, error) {
	return m.IssuesByStatus, m.Err
}

func (m *MockStatsRepository) CountUsers(ctx context.Context) (repository.UserCounts, error) {
	return m.Users, m.Err
}

func (m *MockStatsRepository) SumPaymentAmount(ctx context.Context) (int64, error) {
	return m.PaymentTotal, m.Err
}

func (m *MockStatsRepository) TopIssues(ctx context.Context, limit int) ([]domain.Issue, error) {
	if limit < len(m.Top) {
		return m.Top[:limit], m.Err
	}
	return m.Top, m.Err
}

// MockLocker is an in-memory lock table.
type MockLocker struct {
	mu    sync.Mutex
	Locks map[string]bool

	AcquireError error
	DenyAll      bool
}

func NewMockLocker() *MockLocker {
	return &MockLocker{Locks: make(map[string]bool)}
}

func (m *MockLocker) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DenyAll || m.Locks[key] {
		return false, nil
	}
	m.Locks[key] = true
	return true, nil
}

func (m *MockLocker) ReleaseLock(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Locks, key)
	return nil
}

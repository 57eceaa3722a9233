package dto

import (
	"time"

	"github.com/spec-kit/cityfix-service/internal/domain"
)

// CreateIssueRequest payload.
type CreateIssueRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Location    string   `json:"location"`
	PhotoURLs   []string `json:"photo_urls,omitempty"`
}

// UpdateIssueRequest carries reporter-editable fields. Email is parsed
// only so the service can refuse attempts to reassign issue ownership.
type UpdateIssueRequest struct {
	Email       *string   `json:"email,omitempty"`
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Category    *string   `json:"category,omitempty"`
	Location    *string   `json:"location,omitempty"`
	PhotoURLs   []string `json:"photo_urls,omitempty"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status domain.IssueStatus `json:"status"`
}

// AssignRequest payload.
type AssignRequest struct {
	StaffID string `json:"staff_id"`
}

// IssueResponse representation.
type IssueResponse struct {
	ID            string                 `json:"id"`
	Title         string                 `json:"title"`
	Description   string                 `json:"description"`
	Category      string                 `json:"category"`
	Location      string                 `json:"location"`
	PhotoURLs     []string               `json:"photo_urls,omitempty"`
	ReporterEmail string                 `json:"reporter_email"`
	Status        domain.IssueStatus     `json:"status"`
	Priority      domain.IssuePriority   `json:"priority"`
	UpvoteCount   int                    `json:"upvote_count"`
	UpvotedBy     []string               `json:"upvoted_by,omitempty"`
	AssignedStaff *domain.AssignedStaff  `json:"assigned_staff,omitempty"`
	AssignedAt    *time.Time             `json:"assigned_at,omitempty"`
	Timeline      []domain.TimelineEntry `json:"timeline"`
	CreatedAt     time.Time              `json:"created_at"`
}

// NewIssueResponse maps a domain issue.
func NewIssueResponse(issue *domain.Issue) IssueResponse {
	return IssueResponse{
		ID:            issue.ID,
		Title:         issue.Title,
		Description:   issue.Description,
		Category:      issue.Category,
		Location:      issue.Location,
		PhotoURLs:     issue.PhotoURLs,
		ReporterEmail: issue.ReporterEmail,
		Status:        issue.Status,
		Priority:      issue.Priority,
		UpvoteCount:   issue.UpvoteCount,
		UpvotedBy:     issue.UpvotedBy,
		AssignedStaff: issue.AssignedStaff,
		AssignedAt:    issue.AssignedAt,
		Timeline:      issue.Timeline,
		CreatedAt:     issue.CreatedAt,
	}
}

// NewIssueResponses maps a slice of domain issues.
func NewIssueResponses(issues []domain.Issue) []IssueResponse {
	out := make([]IssueResponse, 0, len(issues))
	for i := range issues {
		out = append(out, NewIssueResponse(&issues[i]))
	}
	return out
}

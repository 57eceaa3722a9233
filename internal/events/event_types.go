package events

import (
	"time"

	"github.com/spec-kit/cityfix-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIssueCreated       EventType = "issue_created"
	EventIssueUpvoted       EventType = "issue_upvoted"
	EventIssueStatusChanged EventType = "issue_status_changed"
	EventIssueAssigned      EventType = "issue_assigned"
	EventIssueBoosted       EventType = "issue_boosted"
	EventIssueRejected      EventType = "issue_rejected"
	EventUserUpgraded       EventType = "user_upgraded"
)

// Event represents a domain event emitted by services. Actor is the email of
// the principal that triggered the change.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	IssueID   string      `json:"issue_id,omitempty"`
	Actor     string      `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// IssueCreatedPayload payload.
type IssueCreatedPayload struct {
	ReporterEmail string `json:"reporter_email"`
	Title         string `json:"title"`
	Category      string `json:"category,omitempty"`
}

// IssueUpvotedPayload payload.
type IssueUpvotedPayload struct {
	VoterEmail  string `json:"voter_email"`
	UpvoteCount int    `json:"upvote_count"`
}

// IssueStatusChangedPayload payload.
type IssueStatusChangedPayload struct {
	OldStatus domain.IssueStatus `json:"old_status"`
	NewStatus domain.IssueStatus `json:"new_status"`
}

// IssueAssignedPayload payload.
type IssueAssignedPayload struct {
	StaffID    string `json:"staff_id"`
	StaffEmail string `json:"staff_email"`
}

// IssueBoostedPayload payload.
type IssueBoostedPayload struct {
	PayerEmail string `json:"payer_email"`
}

// UserUpgradedPayload payload.
type UserUpgradedPayload struct {
	Email string `json:"email"`
	Plan  string `json:"plan"`
}

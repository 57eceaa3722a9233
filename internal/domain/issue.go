package domain

import "time"

// IssueStatus enumerates lifecycle states for reported issues.
type IssueStatus string

const (
	IssueStatusPending    IssueStatus = "Pending"
	IssueStatusInProgress IssueStatus = "In-Progress"
	IssueStatusWorking    IssueStatus = "Working"
	IssueStatusResolved   IssueStatus = "Resolved"
	IssueStatusClosed     IssueStatus = "Closed"
	IssueStatusRejected   IssueStatus = "Rejected"
)

// statusSuccessor is the strict linear lifecycle: each state has exactly one
// legal successor. Rejected sits outside the chain and is reached only via
// Reject.
var statusSuccessor = map[IssueStatus]IssueStatus{
	IssueStatusPending:    IssueStatusInProgress,
	IssueStatusInProgress: IssueStatusWorking,
	IssueStatusWorking:    IssueStatusResolved,
	IssueStatusResolved:   IssueStatusClosed,
}

// NextStatus returns the unique successor of current, if any.
func NextStatus(current IssueStatus) (IssueStatus, bool) {
	next, ok := statusSuccessor[current]
	return next, ok
}

// Predecessor returns the state from which requested is legally reachable.
func Predecessor(requested IssueStatus) (IssueStatus, bool) {
	for from, to := range statusSuccessor {
		if to == requested {
			return from, true
		}
	}
	return "", false
}

// IsValidTransition reports whether current -> requested follows the chain.
func IsValidTransition(current, requested IssueStatus) bool {
	next, ok := statusSuccessor[current]
	return ok && next == requested
}

// IsTerminalStatus reports whether no further transitions are possible.
func IsTerminalStatus(status IssueStatus) bool {
	return status == IssueStatusClosed || status == IssueStatusRejected
}

// IssuePriority enumerates urgency. High is reachable only via boost.
type IssuePriority string

const (
	IssuePriorityNormal IssuePriority = "Normal"
	IssuePriorityHigh   IssuePriority = "High"
)

// Timeline entry statuses for operations that are not chain transitions.
const (
	TimelineCreated  = "Created"
	TimelineUpvoted  = "Upvoted"
	TimelineAssigned = "Assigned"
	TimelineBoosted  = "Boosted"
	TimelineRejected = "Rejected"
	TimelineUpdated  = "Updated"
)

// TimelineEntry is one immutable record in an issue's audit log.
type TimelineEntry struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	UpdatedBy string    `json:"updatedBy"`
	Time      time.Time `json:"time"`
}

// AssignedStaff captures the staff member resolving an issue. Write-once.
type AssignedStaff struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Issue is the aggregate for citizen reports.
type Issue struct {
	ID            string
	ReporterEmail string
	Title         string
	Description   string
	Category      string
	Location      string
	PhotoURLs     []string
	Status        IssueStatus
	Priority      IssuePriority
	UpvoteCount   int
	UpvotedBy     []string
	AssignedStaff *AssignedStaff
	AssignedAt    *time.Time
	Timeline      []TimelineEntry
	CreatedAt     time.Time
}

// HasUpvoted reports whether email already appears in the upvote ledger.
func (i *Issue) HasUpvoted(email string) bool {
	for _, voter := range i.UpvotedBy {
		if voter == email {
			return true
		}
	}
	return false
}

package domain

import "time"

// UserRole enumerates caller roles.
type UserRole string

const (
	UserRoleCitizen UserRole = "citizen"
	UserRoleStaff   UserRole = "staff"
	UserRoleAdmin   UserRole = "admin"
)

// SubscriptionStatus values for a premium subscription.
const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusCanceled = "canceled"
)

// Subscription records a paid premium plan.
type Subscription struct {
	Status       string    `json:"status"`
	Plan         string    `json:"plan"`
	SubscribedAt time.Time `json:"subscribedAt"`
}

// User is the domain model for citizens, staff and admins. Email is the
// identity key and never changes after creation.
type User struct {
	ID           string
	Name         string
	Email        string
	Role         UserRole
	Blocked      bool
	Premium      bool
	Subscription *Subscription
	CreatedAt    time.Time
}

// CanAct reports whether the user may perform mutating operations.
func (u *User) CanAct() bool {
	return u != nil && !u.Blocked
}

// IsStaff reports staff or admin membership.
func (u *User) IsStaff() bool {
	return u != nil && (u.Role == UserRoleStaff || u.Role == UserRoleAdmin)
}

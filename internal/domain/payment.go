package domain

import "time"

// PaymentType enumerates the business effect of a confirmed payment.
type PaymentType string

const (
	PaymentTypeSubscribe PaymentType = "subscribe"
	PaymentTypeBoost     PaymentType = "boost"
)

// Payment records one confirmed external transaction. SessionID is the
// provider's checkout session id and the deduplication key; a record is
// immutable except for AppliedAt, stamped once the side effect has run.
type Payment struct {
	SessionID     string
	Email         string
	Type          PaymentType
	IssueID       *string
	Amount        int64
	Currency      string
	PaymentStatus string
	AppliedAt     *time.Time
	CreatedAt     time.Time
}

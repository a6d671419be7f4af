package entity

import "time"

const (
	AttemptStatusPending      int32 = 1
	AttemptStatusApproved     int32 = 10
	AttemptStatusDeclined     int32 = 20
	AttemptStatusChargebacked int32 = 30
)

type BillingAttempt struct {
	ID uint64

	BatchID  uint64
	DebtorID uint64

	Status int32

	AmountCents int64
	Currency    string

	TransactionID *string
	Reference     string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// BlocksNewAttempt reports whether this attempt excludes its debtor from a new
// billing attempt: an in-flight or settled charge must never be duplicated.
func (a *BillingAttempt) BlocksNewAttempt() bool {
	return a.Status == AttemptStatusPending || a.Status == AttemptStatusApproved
}

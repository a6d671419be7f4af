package entity

import "time"

const (
	JobKindProcess     = "process"
	JobKindBillingSync = "billing_sync"
)

const (
	JobStatusQueued    int32 = 1
	JobStatusRunning   int32 = 2
	JobStatusCompleted int32 = 10
	JobStatusFailed    int32 = 20
)

// BillingJob is one queued unit of background work for a batch. Process jobs
// carry the effective record limit; billing sync jobs carry the eligible
// debtor set frozen at dispatch time.
type BillingJob struct {
	ID uint64

	BatchID uint64
	Kind    string

	EffectiveLimit int32
	DebtorIDs      []uint64

	Status     int32
	ClaimToken *string
	LastError  *string

	ClaimedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

package entity

import "time"

// VerificationRecord is the stored evidence that a debtor's payee identity was
// checked against the external VOP registry before the first billing attempt.
// For gating purposes only its existence matters, not the outcome detail.
type VerificationRecord struct {
	ID uint64

	BatchID  uint64
	DebtorID uint64

	Outcome *string

	CreatedAt time.Time
}

package entity

import "time"

const (
	ValidationStatusPending int32 = 1
	ValidationStatusValid   int32 = 10
	ValidationStatusInvalid int32 = 20
)

const (
	DebtorStatusPending int32 = 1
	DebtorStatusBilled  int32 = 10
)

type Debtor struct {
	ID uint64

	BatchID uint64

	FirstName string
	LastName  string

	IBAN string
	BIC  *string

	ValidationStatus int32
	IBANValid        bool

	Status int32

	// DeletedAt marks a debtor removed from future eligibility and reporting
	// while keeping its billing history. Set by chargeback reconciliation.
	DeletedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

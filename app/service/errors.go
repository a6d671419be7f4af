package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrBatchNotFound      = errors.New("batch not found")
	ErrDebtorNotFound     = errors.New("debtor not found")
	ErrInvalidUpload      = errors.New("invalid upload")
	ErrInvalidRecordLimit = errors.New("invalid record limit")
	ErrBatchConflict      = errors.New("batch state conflict")
	ErrArtifactNotFound   = errors.New("batch artifact not available")
	ErrDuplicateSync      = errors.New("billing sync already in flight")

	// ErrVerificationRequired is the errors.Is target for
	// VerificationRequiredError.
	ErrVerificationRequired = errors.New("payee verification required")
)

// VerificationRequiredError blocks a billing sync when any candidate debtor
// lacks a verification record. It carries the exact verified/pending split
// the caller must report.
type VerificationRequiredError struct {
	Verified int32
	Pending  int32
}

func (e *VerificationRequiredError) Error() string {
	return fmt.Sprintf("payee verification required: %d verified, %d pending", e.Verified, e.Pending)
}

func (e *VerificationRequiredError) Is(target error) bool {
	return target == ErrVerificationRequired
}

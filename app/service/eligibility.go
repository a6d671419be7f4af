package service

import (
	"context"

	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

type EligibilityResult struct {
	Eligible      []*entity.Debtor
	VerifiedCount int32
	PendingCount  int32
}

// EvaluateEligibility computes the debtors of a batch that may receive a new
// billing attempt. A debtor qualifies as a candidate when its payee data is
// valid and no attempt is pending, approved or chargebacked; the whole batch
// is then gated on every candidate having a verification record. Even one
// unverified candidate blocks the sync: verification is a compliance
// precondition, not a per-record optimization.
func (s *BillingService) EvaluateEligibility(ctx context.Context, batchID uint64) (*EligibilityResult, error) {
	debtors, err := s.debtorRepo.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	attempts, err := s.attemptRepo.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	blocked := make(map[uint64]bool)
	chargebacked := make(map[uint64]bool)
	for _, attempt := range attempts {
		if attempt.BlocksNewAttempt() {
			blocked[attempt.DebtorID] = true
		}
		if attempt.Status == entity.AttemptStatusChargebacked {
			chargebacked[attempt.DebtorID] = true
		}
	}

	verified, err := s.verificationRepo.VerifiedDebtorIDs(ctx, batchID)
	if err != nil {
		return nil, err
	}

	result := &EligibilityResult{Eligible: make([]*entity.Debtor, 0, len(debtors))}
	for _, debtor := range debtors {
		if debtor.ValidationStatus != entity.ValidationStatusValid || !debtor.IBANValid {
			continue
		}
		if blocked[debtor.ID] || chargebacked[debtor.ID] {
			continue
		}

		if _, ok := verified[debtor.ID]; ok {
			result.VerifiedCount++
			result.Eligible = append(result.Eligible, debtor)
		} else {
			result.PendingCount++
		}
	}

	if result.PendingCount > 0 {
		return nil, &VerificationRequiredError{
			Verified: result.VerifiedCount,
			Pending:  result.PendingCount,
		}
	}

	return result, nil
}

package service

import (
	"context"
	"time"
)

// ReconcileChargebacks soft-deletes every debtor of the batch that has at
// least one chargebacked attempt, keeping its billing history for audit.
// Re-running after cleanup is a no-op reporting zero removals.
func (s *BillingService) ReconcileChargebacks(ctx context.Context, batchID uint64) (int64, error) {
	batch, err := s.batchRepo.FindByID(ctx, batchID)
	if err != nil {
		return 0, err
	}
	if batch == nil {
		return 0, ErrBatchNotFound
	}

	now := time.Now().UTC()
	removed, err := s.debtorRepo.SoftDeleteChargebacked(ctx, batchID, now)
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		s.recordEvent(ctx, batchID, "chargebacks_reconciled", nil, batch.Status, now)
	}

	return removed, nil
}

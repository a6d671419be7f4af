package service

import (
	"context"
	"time"

	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

type SyncResult struct {
	Eligible int32
	Queued   bool
}

// SyncBatch coordinates one billing dispatch for a batch. Duplicate
// protection comes first: if the lock is already held the evaluator never
// runs. The lock is released on every synchronous failure path; only a
// successful enqueue keeps it, handing its release to the job's completion.
func (s *BillingService) SyncBatch(ctx context.Context, batchID uint64) (*SyncResult, error) {
	batch, err := s.batchRepo.FindByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, ErrBatchNotFound
	}

	acquired, err := s.lock.TryAcquire(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrDuplicateSync
	}

	result, err := s.EvaluateEligibility(ctx, batchID)
	if err != nil {
		_ = s.lock.Release(ctx, batchID)
		return nil, err
	}

	if len(result.Eligible) == 0 {
		_ = s.lock.Release(ctx, batchID)
		return &SyncResult{Eligible: 0, Queued: false}, nil
	}

	debtorIDs := make([]uint64, 0, len(result.Eligible))
	for _, debtor := range result.Eligible {
		debtorIDs = append(debtorIDs, debtor.ID)
	}

	now := time.Now().UTC()
	if err := s.jobRepo.Enqueue(ctx, &entity.BillingJob{
		BatchID:        batchID,
		Kind:           entity.JobKindBillingSync,
		EffectiveLimit: batch.EffectiveLimit(),
		DebtorIDs:      debtorIDs,
		Status:         entity.JobStatusQueued,
		CreatedAt:      now,
		UpdatedAt:      now,
	}); err != nil {
		_ = s.lock.Release(ctx, batchID)
		return nil, err
	}

	s.recordEvent(ctx, batchID, "billing_sync_queued", nil, batch.Status, now)

	return &SyncResult{Eligible: int32(len(debtorIDs)), Queued: true}, nil
}

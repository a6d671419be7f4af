package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

const counterFlushEvery = 100

// ProcessNextJob claims and runs one queued job. It reports whether a job was
// claimed so callers can distinguish an idle queue from a finished run.
func (s *BillingService) ProcessNextJob(ctx context.Context) (bool, error) {
	job, err := s.jobRepo.ClaimNext(ctx, time.Now().UTC())
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	var runErr error
	switch job.Kind {
	case entity.JobKindProcess:
		runErr = s.runProcessJob(ctx, job)
	case entity.JobKindBillingSync:
		runErr = s.runBillingSyncJob(ctx, job)
	default:
		runErr = fmt.Errorf("unknown job kind %q", job.Kind)
	}

	now := time.Now().UTC()
	if runErr != nil {
		_ = s.jobRepo.Fail(ctx, job.ID, truncate(runErr.Error(), 1024), now)
		return true, runErr
	}

	return true, s.jobRepo.Complete(ctx, job.ID, now)
}

// runProcessJob walks the batch's debtors up to the effective limit and owns
// the batch counters for the duration of the run. Counters restart from zero
// on a redelivered job instead of double-counting.
func (s *BillingService) runProcessJob(ctx context.Context, job *entity.BillingJob) error {
	batch, err := s.batchRepo.FindByID(ctx, job.BatchID)
	if err != nil {
		return err
	}
	if batch == nil {
		return ErrBatchNotFound
	}
	if batch.Status == entity.BatchStatusCompleted {
		return nil
	}
	if batch.Status != entity.BatchStatusProcessing {
		return fmt.Errorf("%w: batch is %s", ErrBatchConflict, entity.BatchStatusLabel(batch.Status))
	}

	debtors, err := s.debtorRepo.ListByBatch(ctx, batch.ID)
	if err != nil {
		return s.failBatch(ctx, batch, err)
	}

	limit := job.EffectiveLimit
	if limit <= 0 {
		limit = batch.EffectiveLimit()
	}
	if int(limit) < len(debtors) {
		debtors = debtors[:limit]
	}

	batch.ProcessedRecords = 0
	batch.SuccessCount = 0
	batch.FailedCount = 0
	batch.CreditsUsed = 0

	for i, debtor := range debtors {
		select {
		case <-ctx.Done():
			return s.failBatch(ctx, batch, ctx.Err())
		default:
		}

		batch.ProcessedRecords++
		batch.CreditsUsed++
		if debtor.ValidationStatus == entity.ValidationStatusValid && debtor.IBANValid {
			batch.SuccessCount++
		} else {
			batch.FailedCount++
		}

		if (i+1)%counterFlushEvery == 0 {
			batch.UpdatedAt = time.Now().UTC()
			if err := s.batchRepo.Update(ctx, batch); err != nil {
				return err
			}
		}
	}

	now := time.Now().UTC()
	oldStatus := batch.Status
	batch.Status = entity.BatchStatusCompleted
	batch.CompletedAt = &now
	batch.UpdatedAt = now

	if err := s.batchRepo.Update(ctx, batch); err != nil {
		return err
	}
	s.recordEvent(ctx, batch.ID, "batch_completed", &oldStatus, batch.Status, now)

	return nil
}

// runBillingSyncJob creates the billing attempts for the job's frozen
// eligible set, then releases the dispatch lock whether the run succeeded or
// not. A crashed worker leaves the lock to its TTL.
func (s *BillingService) runBillingSyncJob(ctx context.Context, job *entity.BillingJob) error {
	runErr := s.billEligible(ctx, job)

	if relErr := s.lock.Release(ctx, job.BatchID); relErr != nil && runErr == nil {
		runErr = relErr
	}
	return runErr
}

func (s *BillingService) billEligible(ctx context.Context, job *entity.BillingJob) error {
	batch, err := s.batchRepo.FindByID(ctx, job.BatchID)
	if err != nil {
		return err
	}
	if batch == nil {
		return ErrBatchNotFound
	}

	// Redelivery guard: a debtor already holding an in-flight or settled
	// attempt is skipped rather than charged twice.
	attempts, err := s.attemptRepo.ListByBatch(ctx, batch.ID)
	if err != nil {
		return err
	}
	blocked := make(map[uint64]bool)
	for _, attempt := range attempts {
		if attempt.BlocksNewAttempt() {
			blocked[attempt.DebtorID] = true
		}
	}

	now := time.Now().UTC()
	created := int32(0)
	for _, debtorID := range job.DebtorIDs {
		if blocked[debtorID] {
			continue
		}

		debtor, err := s.debtorRepo.FindByID(ctx, debtorID)
		if err != nil {
			return err
		}
		if debtor == nil || debtor.DeletedAt != nil {
			continue
		}

		if err := s.attemptRepo.Create(ctx, &entity.BillingAttempt{
			BatchID:     batch.ID,
			DebtorID:    debtor.ID,
			Status:      entity.AttemptStatusPending,
			AmountCents: s.billingCfg.ChargeAmountCents,
			Currency:    s.billingCfg.Currency,
			Reference:   uuid.NewString(),
			CreatedAt:   now,
			UpdatedAt:   now,
		}); err != nil {
			return err
		}

		debtor.Status = entity.DebtorStatusBilled
		debtor.UpdatedAt = now
		if err := s.debtorRepo.Update(ctx, debtor); err != nil {
			return err
		}

		created++
	}

	// The processing job owns the full counter row while the batch is
	// processing; the sync job only bumps credits, relative to the stored
	// value, so its stale snapshot never overwrites the other columns.
	if created > 0 {
		if err := s.batchRepo.AddCreditsUsed(ctx, batch.ID, int64(created), now); err != nil {
			return err
		}
	}

	s.recordEvent(ctx, batch.ID, "billing_sync_completed", nil, batch.Status, now)

	return nil
}

func (s *BillingService) failBatch(ctx context.Context, batch *entity.Batch, cause error) error {
	if !entity.CanTransitionBatch(batch.Status, entity.BatchStatusFailed) {
		return cause
	}

	now := time.Now().UTC()
	oldStatus := batch.Status
	batch.Status = entity.BatchStatusFailed
	batch.UpdatedAt = now

	if err := s.batchRepo.Update(ctx, batch); err != nil {
		return cause
	}
	s.recordEvent(ctx, batch.ID, "batch_failed", &oldStatus, batch.Status, now)

	return cause
}

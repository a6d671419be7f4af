package service

import (
	"context"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

type verifyDebtorRequest interface {
	GetId() uint64
	GetDebtorId() uint64
	GetOutcome() string
}

// VerifyDebtor records the payee verification result for one debtor of a
// batch. Recording twice is a no-op; the gate only cares that a record
// exists.
func (s *BillingService) VerifyDebtor(ctx context.Context, req verifyDebtorRequest) error {
	batch, err := s.batchRepo.FindByID(ctx, req.GetId())
	if err != nil {
		return err
	}
	if batch == nil {
		return ErrBatchNotFound
	}

	debtor, err := s.debtorRepo.FindByID(ctx, req.GetDebtorId())
	if err != nil {
		return err
	}
	if debtor == nil || debtor.BatchID != batch.ID || debtor.DeletedAt != nil {
		return ErrDebtorNotFound
	}

	exists, err := s.verificationRepo.Exists(ctx, batch.ID, debtor.ID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	record := &entity.VerificationRecord{
		BatchID:   batch.ID,
		DebtorID:  debtor.ID,
		CreatedAt: time.Now().UTC(),
	}
	if outcome := strings.TrimSpace(req.GetOutcome()); outcome != "" {
		record.Outcome = &outcome
	}

	return s.verificationRepo.Create(ctx, record)
}

package repository

import (
	"context"

	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

type VerificationRepository struct {
	db DBTX
}

func NewVerificationRepository(db DBTX) *VerificationRepository {
	return &VerificationRepository{db: db}
}

func (r *VerificationRepository) Create(ctx context.Context, record *entity.VerificationRecord) error {
	query := `
		INSERT INTO verification_records (batch_id, debtor_id, outcome, created_at)
		VALUES (?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		record.BatchID,
		record.DebtorID,
		nullableStringValue(record.Outcome),
		record.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	record.ID = uint64(id)

	return nil
}

func (r *VerificationRepository) Exists(ctx context.Context, batchID, debtorID uint64) (bool, error) {
	query := `SELECT COUNT(1) FROM verification_records WHERE batch_id = ? AND debtor_id = ?`

	var count int64
	if err := r.db.QueryRowContext(ctx, query, batchID, debtorID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// VerifiedDebtorIDs returns the set of debtors of the batch that have a
// verification record, for single-pass eligibility evaluation.
func (r *VerificationRepository) VerifiedDebtorIDs(ctx context.Context, batchID uint64) (map[uint64]struct{}, error) {
	query := `SELECT DISTINCT debtor_id FROM verification_records WHERE batch_id = ?`

	rows, err := r.db.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	verified := make(map[uint64]struct{})
	for rows.Next() {
		var debtorID uint64
		if err := rows.Scan(&debtorID); err != nil {
			return nil, err
		}
		verified[debtorID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return verified, nil
}

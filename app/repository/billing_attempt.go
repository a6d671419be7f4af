package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

type BillingAttemptRepository struct {
	db DBTX
}

func NewBillingAttemptRepository(db DBTX) *BillingAttemptRepository {
	return &BillingAttemptRepository{db: db}
}

func (r *BillingAttemptRepository) Create(ctx context.Context, attempt *entity.BillingAttempt) error {
	query := `
		INSERT INTO billing_attempts (
			batch_id, debtor_id, status, amount_cents, currency,
			transaction_id, reference, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		attempt.BatchID,
		attempt.DebtorID,
		attempt.Status,
		attempt.AmountCents,
		attempt.Currency,
		nullableStringValue(attempt.TransactionID),
		attempt.Reference,
		attempt.CreatedAt,
		attempt.UpdatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	attempt.ID = uint64(id)

	return nil
}

func (r *BillingAttemptRepository) ListByBatch(ctx context.Context, batchID uint64) ([]*entity.BillingAttempt, error) {
	query := `
		SELECT id, batch_id, debtor_id, status, amount_cents, currency,
			transaction_id, reference, created_at, updated_at
		FROM billing_attempts
		WHERE batch_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempts := make([]*entity.BillingAttempt, 0)
	for rows.Next() {
		item := &entity.BillingAttempt{}
		var transactionID sql.NullString

		err := rows.Scan(
			&item.ID,
			&item.BatchID,
			&item.DebtorID,
			&item.Status,
			&item.AmountCents,
			&item.Currency,
			&transactionID,
			&item.Reference,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		item.TransactionID = stringPtrFromNull(transactionID)

		attempts = append(attempts, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return attempts, nil
}

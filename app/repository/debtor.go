package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

var ErrDebtorNotFound = errors.New("debtor not found")

type DebtorRepository struct {
	db DBTX
}

func NewDebtorRepository(db DBTX) *DebtorRepository {
	return &DebtorRepository{db: db}
}

const debtorColumns = `id, batch_id, first_name, last_name, iban, bic,
		validation_status, iban_valid, status, deleted_at, created_at, updated_at`

// BulkCreate inserts debtors in chunks of one multi-row statement each.
func (r *DebtorRepository) BulkCreate(ctx context.Context, debtors []*entity.Debtor) error {
	const chunkSize = 500

	for start := 0; start < len(debtors); start += chunkSize {
		end := start + chunkSize
		if end > len(debtors) {
			end = len(debtors)
		}
		if err := r.insertChunk(ctx, debtors[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (r *DebtorRepository) insertChunk(ctx context.Context, debtors []*entity.Debtor) error {
	if len(debtors) == 0 {
		return nil
	}

	query := `
		INSERT INTO debtors (
			batch_id, first_name, last_name, iban, bic,
			validation_status, iban_valid, status, deleted_at, created_at, updated_at
		)
		VALUES ` + strings.TrimSuffix(strings.Repeat("(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?),", len(debtors)), ",")

	args := make([]interface{}, 0, len(debtors)*11)
	for _, d := range debtors {
		args = append(args,
			d.BatchID,
			d.FirstName,
			d.LastName,
			d.IBAN,
			nullableStringValue(d.BIC),
			d.ValidationStatus,
			d.IBANValid,
			d.Status,
			nullableTimeValue(d.DeletedAt),
			d.CreatedAt,
			d.UpdatedAt,
		)
	}

	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// ListByBatch returns the batch's debtors excluding soft-deleted ones,
// ordered by insertion.
func (r *DebtorRepository) ListByBatch(ctx context.Context, batchID uint64) ([]*entity.Debtor, error) {
	query := `SELECT ` + debtorColumns + `
		FROM debtors
		WHERE batch_id = ? AND deleted_at IS NULL
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	debtors := make([]*entity.Debtor, 0)
	for rows.Next() {
		item := &entity.Debtor{}
		if err := scanDebtor(rows, item); err != nil {
			return nil, err
		}
		debtors = append(debtors, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return debtors, nil
}

func (r *DebtorRepository) FindByID(ctx context.Context, id uint64) (*entity.Debtor, error) {
	query := `SELECT ` + debtorColumns + ` FROM debtors WHERE id = ?`

	debtor := &entity.Debtor{}
	if err := scanDebtor(r.db.QueryRowContext(ctx, query, id), debtor); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return debtor, nil
}

func (r *DebtorRepository) Update(ctx context.Context, debtor *entity.Debtor) error {
	query := `
		UPDATE debtors SET
			validation_status = ?,
			iban_valid = ?,
			status = ?,
			deleted_at = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		debtor.ValidationStatus,
		debtor.IBANValid,
		debtor.Status,
		nullableTimeValue(debtor.DeletedAt),
		debtor.UpdatedAt,
		debtor.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrDebtorNotFound
	}

	return nil
}

// SoftDeleteChargebacked marks every not-yet-deleted debtor of the batch that
// has at least one chargebacked attempt as removed, and reports how many rows
// it touched. Debtors of other batches are never affected.
func (r *DebtorRepository) SoftDeleteChargebacked(ctx context.Context, batchID uint64, now time.Time) (int64, error) {
	query := `
		UPDATE debtors SET
			deleted_at = ?,
			updated_at = ?
		WHERE batch_id = ?
		  AND deleted_at IS NULL
		  AND id IN (
			SELECT debtor_id FROM (
				SELECT DISTINCT debtor_id FROM billing_attempts
				WHERE batch_id = ? AND status = ?
			) chargebacked
		  )
	`

	result, err := r.db.ExecContext(ctx, query, now, now, batchID, batchID, entity.AttemptStatusChargebacked)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func scanDebtor(scan rowScanner, debtor *entity.Debtor) error {
	var bic sql.NullString
	var deletedAt sql.NullTime

	err := scan.Scan(
		&debtor.ID,
		&debtor.BatchID,
		&debtor.FirstName,
		&debtor.LastName,
		&debtor.IBAN,
		&bic,
		&debtor.ValidationStatus,
		&debtor.IBANValid,
		&debtor.Status,
		&deletedAt,
		&debtor.CreatedAt,
		&debtor.UpdatedAt,
	)
	if err != nil {
		return err
	}

	debtor.BIC = stringPtrFromNull(bic)
	debtor.DeletedAt = timePtrFromNull(deletedAt)

	return nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

var (
	ErrBatchNotFound      = errors.New("batch not found")
	ErrBatchAlreadyExists = errors.New("batch already exists")
	ErrBatchNotPending    = errors.New("batch is not pending")
)

type BatchFilter struct {
	CallerService string
	HasStatus     bool
	Status        int32
	Limit         int32
	Offset        int32
}

type BatchRepository struct {
	db DBTX
}

func NewBatchRepository(db DBTX) *BatchRepository {
	return &BatchRepository{db: db}
}

const batchColumns = `id, caller_service, original_filename, storage_path, status,
		total_records, record_limit, processed_records, success_count, failed_count, credits_used,
		delimiter, has_header, iban_column, bic_column, first_name_column, last_name_column,
		started_at, completed_at, created_at, updated_at`

func (r *BatchRepository) Create(ctx context.Context, batch *entity.Batch) error {
	query := `
		INSERT INTO batches (
			caller_service, original_filename, storage_path, status,
			total_records, record_limit, processed_records, success_count, failed_count, credits_used,
			delimiter, has_header, iban_column, bic_column, first_name_column, last_name_column,
			started_at, completed_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		batch.CallerService,
		batch.OriginalFilename,
		batch.StoragePath,
		batch.Status,
		batch.TotalRecords,
		nullableInt32Value(batch.RecordLimit),
		batch.ProcessedRecords,
		batch.SuccessCount,
		batch.FailedCount,
		batch.CreditsUsed,
		batch.Mapping.Delimiter,
		batch.Mapping.HasHeader,
		batch.Mapping.IBANColumn,
		nullableInt32Value(batch.Mapping.BICColumn),
		nullableInt32Value(batch.Mapping.FirstNameColumn),
		nullableInt32Value(batch.Mapping.LastNameColumn),
		nullableTimeValue(batch.StartedAt),
		nullableTimeValue(batch.CompletedAt),
		batch.CreatedAt,
		batch.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrBatchAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	batch.ID = uint64(id)
	return nil
}

func (r *BatchRepository) Update(ctx context.Context, batch *entity.Batch) error {
	query := `
		UPDATE batches SET
			status = ?,
			record_limit = ?,
			processed_records = ?,
			success_count = ?,
			failed_count = ?,
			credits_used = ?,
			started_at = ?,
			completed_at = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		batch.Status,
		nullableInt32Value(batch.RecordLimit),
		batch.ProcessedRecords,
		batch.SuccessCount,
		batch.FailedCount,
		batch.CreditsUsed,
		nullableTimeValue(batch.StartedAt),
		nullableTimeValue(batch.CompletedAt),
		batch.UpdatedAt,
		batch.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrBatchNotFound
	}

	return nil
}

// AddCreditsUsed bumps the credit counter relative to its stored value, so
// a caller holding a stale batch snapshot cannot roll back the other columns.
func (r *BatchRepository) AddCreditsUsed(ctx context.Context, batchID uint64, delta int64, updatedAt time.Time) error {
	query := `
		UPDATE batches SET
			credits_used = credits_used + ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, delta, updatedAt, batchID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrBatchNotFound
	}

	return nil
}

// StartProcessing flips a pending batch to processing in one guarded
// statement, so two concurrent start requests cannot both succeed.
func (r *BatchRepository) StartProcessing(ctx context.Context, batchID uint64, recordLimit int32, startedAt time.Time) error {
	query := `
		UPDATE batches SET
			status = ?,
			record_limit = ?,
			started_at = ?,
			updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		entity.BatchStatusProcessing,
		recordLimit,
		startedAt,
		startedAt,
		batchID,
		entity.BatchStatusPending,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrBatchNotPending
	}

	return nil
}

func (r *BatchRepository) FindByID(ctx context.Context, id uint64) (*entity.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE id = ?`

	batch := &entity.Batch{}
	if err := scanBatch(r.db.QueryRowContext(ctx, query, id), batch); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return batch, nil
}

func (r *BatchRepository) List(ctx context.Context, filter BatchFilter) ([]*entity.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches`

	conditions := make([]string, 0, 2)
	args := make([]interface{}, 0, 4)

	if strings.TrimSpace(filter.CallerService) != "" {
		conditions = append(conditions, "caller_service = ?")
		args = append(args, filter.CallerService)
	}
	if filter.HasStatus {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	batches := make([]*entity.Batch, 0)
	for rows.Next() {
		item := &entity.Batch{}
		if err := scanBatch(rows, item); err != nil {
			return nil, err
		}
		batches = append(batches, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return batches, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBatch(scan rowScanner, batch *entity.Batch) error {
	var recordLimit sql.NullInt32
	var bicColumn sql.NullInt32
	var firstNameColumn sql.NullInt32
	var lastNameColumn sql.NullInt32
	var startedAt sql.NullTime
	var completedAt sql.NullTime

	err := scan.Scan(
		&batch.ID,
		&batch.CallerService,
		&batch.OriginalFilename,
		&batch.StoragePath,
		&batch.Status,
		&batch.TotalRecords,
		&recordLimit,
		&batch.ProcessedRecords,
		&batch.SuccessCount,
		&batch.FailedCount,
		&batch.CreditsUsed,
		&batch.Mapping.Delimiter,
		&batch.Mapping.HasHeader,
		&batch.Mapping.IBANColumn,
		&bicColumn,
		&firstNameColumn,
		&lastNameColumn,
		&startedAt,
		&completedAt,
		&batch.CreatedAt,
		&batch.UpdatedAt,
	)
	if err != nil {
		return err
	}

	batch.RecordLimit = int32PtrFromNull(recordLimit)
	batch.Mapping.BICColumn = int32PtrFromNull(bicColumn)
	batch.Mapping.FirstNameColumn = int32PtrFromNull(firstNameColumn)
	batch.Mapping.LastNameColumn = int32PtrFromNull(lastNameColumn)
	batch.StartedAt = timePtrFromNull(startedAt)
	batch.CompletedAt = timePtrFromNull(completedAt)

	return nil
}

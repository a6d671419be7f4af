package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

var ErrJobNotFound = errors.New("billing job not found")

type BillingJobRepository struct {
	db DBTX
}

func NewBillingJobRepository(db DBTX) *BillingJobRepository {
	return &BillingJobRepository{db: db}
}

func (r *BillingJobRepository) Enqueue(ctx context.Context, job *entity.BillingJob) error {
	debtorIDs, err := serializeIDs(job.DebtorIDs)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO billing_jobs (
			batch_id, kind, effective_limit, debtor_ids, status,
			claim_token, last_error, claimed_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		job.BatchID,
		job.Kind,
		job.EffectiveLimit,
		debtorIDs,
		job.Status,
		nullableStringValue(job.ClaimToken),
		nullableStringValue(job.LastError),
		nullableTimeValue(job.ClaimedAt),
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	job.ID = uint64(id)

	return nil
}

// ClaimNext atomically claims the oldest queued job with a fresh token and
// returns it, or nil when the queue is empty. The token makes the claim safe
// against concurrent workers: only the updated row carries it.
func (r *BillingJobRepository) ClaimNext(ctx context.Context, now time.Time) (*entity.BillingJob, error) {
	token := uuid.NewString()

	claim := `
		UPDATE billing_jobs SET
			status = ?,
			claim_token = ?,
			claimed_at = ?,
			updated_at = ?
		WHERE status = ?
		ORDER BY id ASC
		LIMIT 1
	`

	result, err := r.db.ExecContext(ctx, claim,
		entity.JobStatusRunning,
		token,
		now,
		now,
		entity.JobStatusQueued,
	)
	if err != nil {
		return nil, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, nil
	}

	query := `
		SELECT id, batch_id, kind, effective_limit, debtor_ids, status,
			claim_token, last_error, claimed_at, created_at, updated_at
		FROM billing_jobs
		WHERE claim_token = ?
		LIMIT 1
	`

	job := &entity.BillingJob{}
	if err := scanBillingJob(r.db.QueryRowContext(ctx, query, token), job); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return job, nil
}

func (r *BillingJobRepository) Complete(ctx context.Context, jobID uint64, now time.Time) error {
	return r.finish(ctx, jobID, entity.JobStatusCompleted, nil, now)
}

func (r *BillingJobRepository) Fail(ctx context.Context, jobID uint64, reason string, now time.Time) error {
	return r.finish(ctx, jobID, entity.JobStatusFailed, &reason, now)
}

func (r *BillingJobRepository) finish(ctx context.Context, jobID uint64, status int32, lastError *string, now time.Time) error {
	query := `
		UPDATE billing_jobs SET
			status = ?,
			last_error = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, status, nullableStringValue(lastError), now, jobID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrJobNotFound
	}

	return nil
}

func scanBillingJob(scan rowScanner, job *entity.BillingJob) error {
	var debtorIDs string
	var claimToken sql.NullString
	var lastError sql.NullString
	var claimedAt sql.NullTime

	err := scan.Scan(
		&job.ID,
		&job.BatchID,
		&job.Kind,
		&job.EffectiveLimit,
		&debtorIDs,
		&job.Status,
		&claimToken,
		&lastError,
		&claimedAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return err
	}

	job.ClaimToken = stringPtrFromNull(claimToken)
	job.LastError = stringPtrFromNull(lastError)
	job.ClaimedAt = timePtrFromNull(claimedAt)

	ids, err := parseIDs(debtorIDs)
	if err != nil {
		return err
	}
	job.DebtorIDs = ids

	return nil
}

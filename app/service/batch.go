package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-billing/app/entity"
	"github.com/vibast-solutions/ms-go-billing/app/repository"
)

type startBatchRequest interface {
	GetId() uint64
	GetHasRecordLimit() bool
	GetRecordLimit() int32
}

type listBatchesRequest interface {
	GetCallerService() string
	GetHasStatus() bool
	GetStatus() int32
	GetLimit() int32
	GetOffset() int32
}

func (s *BillingService) GetBatch(ctx context.Context, id uint64) (*entity.Batch, error) {
	batch, err := s.batchRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, ErrBatchNotFound
	}
	return batch, nil
}

func (s *BillingService) ListBatches(ctx context.Context, req listBatchesRequest) ([]*entity.Batch, error) {
	limit := req.GetLimit()
	if limit <= 0 {
		limit = defaultListLimit
	}

	filter := repository.BatchFilter{
		CallerService: strings.TrimSpace(req.GetCallerService()),
		HasStatus:     req.GetHasStatus(),
		Status:        req.GetStatus(),
		Limit:         limit,
		Offset:        req.GetOffset(),
	}

	return s.batchRepo.List(ctx, filter)
}

// StartBatch transitions a pending batch to processing, fixes its record
// limit and enqueues the asynchronous processing job. Any non-pending batch
// is a conflict regardless of its current state.
func (s *BillingService) StartBatch(ctx context.Context, req startBatchRequest) (*entity.Batch, error) {
	batch, err := s.batchRepo.FindByID(ctx, req.GetId())
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, ErrBatchNotFound
	}

	if !entity.CanTransitionBatch(batch.Status, entity.BatchStatusProcessing) {
		return nil, fmt.Errorf("%w: cannot start a %s batch", ErrBatchConflict, entity.BatchStatusLabel(batch.Status))
	}

	limit := batch.TotalRecords
	if req.GetHasRecordLimit() {
		limit = req.GetRecordLimit()
		if limit <= 0 || limit > batch.TotalRecords {
			return nil, fmt.Errorf("%w: record_limit must be between 1 and %d", ErrInvalidRecordLimit, batch.TotalRecords)
		}
	}

	now := time.Now().UTC()
	if err := s.batchRepo.StartProcessing(ctx, batch.ID, limit, now); err != nil {
		if errors.Is(err, repository.ErrBatchNotPending) {
			return nil, fmt.Errorf("%w: batch is no longer pending", ErrBatchConflict)
		}
		return nil, err
	}

	oldStatus := batch.Status
	batch.Status = entity.BatchStatusProcessing
	batch.RecordLimit = &limit
	batch.StartedAt = &now
	batch.UpdatedAt = now

	if err := s.jobRepo.Enqueue(ctx, &entity.BillingJob{
		BatchID:        batch.ID,
		Kind:           entity.JobKindProcess,
		EffectiveLimit: limit,
		Status:         entity.JobStatusQueued,
		CreatedAt:      now,
		UpdatedAt:      now,
	}); err != nil {
		return nil, err
	}

	s.recordEvent(ctx, batch.ID, "batch_started", &oldStatus, batch.Status, now)

	return batch, nil
}

// DownloadArtifact opens the stored batch file for a completed batch. The
// artifact does not exist before completion and never will for a failed run,
// so anything but completed reports not-found.
func (s *BillingService) DownloadArtifact(ctx context.Context, id uint64) (io.ReadCloser, string, error) {
	batch, err := s.batchRepo.FindByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if batch == nil {
		return nil, "", ErrBatchNotFound
	}
	if batch.Status != entity.BatchStatusCompleted {
		return nil, "", ErrArtifactNotFound
	}

	reader, err := s.files.Open(ctx, batch.StoragePath)
	if err != nil {
		return nil, "", err
	}
	return reader, batch.OriginalFilename, nil
}

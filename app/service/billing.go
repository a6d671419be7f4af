package service

import (
	"context"
	"io"
	"time"

	"github.com/vibast-solutions/ms-go-billing/app/entity"
	"github.com/vibast-solutions/ms-go-billing/app/repository"
	"github.com/vibast-solutions/ms-go-billing/config"
)

const defaultListLimit = int32(100)

type batchRepository interface {
	Create(ctx context.Context, batch *entity.Batch) error
	Update(ctx context.Context, batch *entity.Batch) error
	AddCreditsUsed(ctx context.Context, batchID uint64, delta int64, updatedAt time.Time) error
	StartProcessing(ctx context.Context, batchID uint64, recordLimit int32, startedAt time.Time) error
	FindByID(ctx context.Context, id uint64) (*entity.Batch, error)
	List(ctx context.Context, filter repository.BatchFilter) ([]*entity.Batch, error)
}

type debtorRepository interface {
	BulkCreate(ctx context.Context, debtors []*entity.Debtor) error
	ListByBatch(ctx context.Context, batchID uint64) ([]*entity.Debtor, error)
	FindByID(ctx context.Context, id uint64) (*entity.Debtor, error)
	Update(ctx context.Context, debtor *entity.Debtor) error
	SoftDeleteChargebacked(ctx context.Context, batchID uint64, now time.Time) (int64, error)
}

type billingAttemptRepository interface {
	Create(ctx context.Context, attempt *entity.BillingAttempt) error
	ListByBatch(ctx context.Context, batchID uint64) ([]*entity.BillingAttempt, error)
}

type verificationRepository interface {
	Create(ctx context.Context, record *entity.VerificationRecord) error
	Exists(ctx context.Context, batchID, debtorID uint64) (bool, error)
	VerifiedDebtorIDs(ctx context.Context, batchID uint64) (map[uint64]struct{}, error)
}

type billingJobRepository interface {
	Enqueue(ctx context.Context, job *entity.BillingJob) error
	ClaimNext(ctx context.Context, now time.Time) (*entity.BillingJob, error)
	Complete(ctx context.Context, jobID uint64, now time.Time) error
	Fail(ctx context.Context, jobID uint64, reason string, now time.Time) error
}

type batchEventRepository interface {
	Create(ctx context.Context, event *entity.BatchEvent) error
}

type dispatchLock interface {
	TryAcquire(ctx context.Context, batchID uint64) (bool, error)
	Release(ctx context.Context, batchID uint64) error
}

type fileStore interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
	Open(ctx context.Context, storagePath string) (io.ReadCloser, error)
}

type BillingService struct {
	batchRepo        batchRepository
	debtorRepo       debtorRepository
	attemptRepo      billingAttemptRepository
	verificationRepo verificationRepository
	jobRepo          billingJobRepository
	eventRepo        batchEventRepository
	lock             dispatchLock
	files            fileStore
	billingCfg       config.BillingConfig
}

func NewBillingService(
	batchRepo batchRepository,
	debtorRepo debtorRepository,
	attemptRepo billingAttemptRepository,
	verificationRepo verificationRepository,
	jobRepo billingJobRepository,
	eventRepo batchEventRepository,
	lock dispatchLock,
	files fileStore,
	billingCfg config.BillingConfig,
) *BillingService {
	if billingCfg.PreviewRows <= 0 {
		billingCfg.PreviewRows = 5
	}
	return &BillingService{
		batchRepo:        batchRepo,
		debtorRepo:       debtorRepo,
		attemptRepo:      attemptRepo,
		verificationRepo: verificationRepo,
		jobRepo:          jobRepo,
		eventRepo:        eventRepo,
		lock:             lock,
		files:            files,
		billingCfg:       billingCfg,
	}
}

func (s *BillingService) recordEvent(ctx context.Context, batchID uint64, eventType string, oldStatus *int32, newStatus int32, now time.Time) {
	_ = s.eventRepo.Create(ctx, &entity.BatchEvent{
		BatchID:   batchID,
		EventType: eventType,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		CreatedAt: now,
	})
}

func truncate(v string, limit int) string {
	if len(v) <= limit {
		return v
	}
	return v[:limit]
}

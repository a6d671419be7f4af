package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-billing/app/csvmap"
	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

type uploadBatchRequest interface {
	GetCallerService() string
	GetFilename() string
	GetContent() string
}

// CreateBatch runs structure detection on the uploaded file, stores the raw
// bytes, persists the batch with its column mapping and ingests the debtor
// rows. No batch is created when detection fails.
func (s *BillingService) CreateBatch(ctx context.Context, req uploadBatchRequest) (*entity.Batch, *csvmap.Detection, error) {
	callerService := strings.TrimSpace(req.GetCallerService())
	filename := strings.TrimSpace(req.GetFilename())
	if callerService == "" || filename == "" {
		return nil, nil, ErrInvalidRequest
	}

	content := req.GetContent()
	detection, err := csvmap.Detect(content, s.billingCfg.PreviewRows)
	if err != nil {
		if errors.Is(err, csvmap.ErrNoDataRows) || errors.Is(err, csvmap.ErrNoIBANColumn) {
			return nil, nil, fmt.Errorf("%w: %s", ErrInvalidUpload, err.Error())
		}
		return nil, nil, err
	}

	records, err := csvmap.ParseRecords(content, detection.Mapping)
	if err != nil {
		return nil, nil, err
	}

	storagePath, err := s.files.Save(ctx, uuid.NewString()+".csv", []byte(content))
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	batch := &entity.Batch{
		CallerService:    callerService,
		OriginalFilename: filename,
		StoragePath:      storagePath,
		Status:           entity.BatchStatusPending,
		TotalRecords:     int32(detection.TotalRecords),
		Mapping:          mappingFromDetection(detection.Mapping),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.batchRepo.Create(ctx, batch); err != nil {
		return nil, nil, err
	}

	debtors := make([]*entity.Debtor, 0, len(records))
	for _, rec := range records {
		debtors = append(debtors, debtorFromRecord(batch.ID, rec, now))
	}
	if err := s.debtorRepo.BulkCreate(ctx, debtors); err != nil {
		return nil, nil, err
	}

	s.recordEvent(ctx, batch.ID, "batch_uploaded", nil, batch.Status, now)

	return batch, detection, nil
}

func debtorFromRecord(batchID uint64, rec csvmap.Record, now time.Time) *entity.Debtor {
	debtor := &entity.Debtor{
		BatchID:   batchID,
		FirstName: rec.FirstName,
		LastName:  rec.LastName,
		IBAN:      rec.IBAN,
		IBANValid: csvmap.LooksLikeIBAN(rec.IBAN),
		Status:    entity.DebtorStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if rec.BIC != "" {
		bic := rec.BIC
		debtor.BIC = &bic
	}

	if debtor.IBANValid {
		debtor.ValidationStatus = entity.ValidationStatusValid
	} else {
		debtor.ValidationStatus = entity.ValidationStatusInvalid
	}

	return debtor
}

func mappingFromDetection(m csvmap.Mapping) entity.ColumnMapping {
	mapping := entity.ColumnMapping{
		Delimiter:  m.Delimiter,
		HasHeader:  m.HasHeader,
		IBANColumn: int32(m.IBANColumn),
	}
	mapping.BICColumn = int32PtrFromInt(m.BICColumn)
	mapping.FirstNameColumn = int32PtrFromInt(m.FirstNameColumn)
	mapping.LastNameColumn = int32PtrFromInt(m.LastNameColumn)
	return mapping
}

func int32PtrFromInt(v *int) *int32 {
	if v == nil {
		return nil
	}
	n := int32(*v)
	return &n
}

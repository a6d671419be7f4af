package service

import (
	"math"

	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

// Progress is the normalized view of a batch's counters. RecordLimit stays
// nil when the caller never set one, while EffectiveLimit is always
// populated.
type Progress struct {
	Status         string
	Total          int32
	Processed      int32
	Percentage     float64
	RecordLimit    *int32
	EffectiveLimit int32
}

// BatchProgress computes percentage against the effective limit, not the raw
// row count, so partially-limited runs still reach 100%.
func BatchProgress(batch *entity.Batch) Progress {
	effective := batch.EffectiveLimit()

	percentage := 0.0
	if effective > 0 {
		percentage = math.Round(float64(batch.ProcessedRecords)/float64(effective)*1000) / 10
	}
	if percentage < 0 {
		percentage = 0
	}
	if percentage > 100 {
		percentage = 100
	}

	return Progress{
		Status:         entity.BatchStatusLabel(batch.Status),
		Total:          batch.TotalRecords,
		Processed:      batch.ProcessedRecords,
		Percentage:     percentage,
		RecordLimit:    batch.RecordLimit,
		EffectiveLimit: effective,
	}
}

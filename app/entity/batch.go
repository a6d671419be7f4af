package entity

import "time"

const (
	BatchStatusPending    int32 = 1
	BatchStatusProcessing int32 = 2
	BatchStatusCompleted  int32 = 10
	BatchStatusFailed     int32 = 20
)

// batchTransitions is the full set of allowed lifecycle moves. Anything not
// listed here is a conflict, including restarting a completed or failed batch.
var batchTransitions = map[int32][]int32{
	BatchStatusPending:    {BatchStatusProcessing},
	BatchStatusProcessing: {BatchStatusCompleted, BatchStatusFailed},
}

func CanTransitionBatch(from, to int32) bool {
	for _, allowed := range batchTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func BatchStatusLabel(status int32) string {
	switch status {
	case BatchStatusPending:
		return "pending"
	case BatchStatusProcessing:
		return "processing"
	case BatchStatusCompleted:
		return "completed"
	case BatchStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ColumnMapping is the persisted result of structure detection on an uploaded
// file. Column indices are zero-based; IBAN is the only mandatory field.
type ColumnMapping struct {
	Delimiter string
	HasHeader bool

	IBANColumn      int32
	BICColumn       *int32
	FirstNameColumn *int32
	LastNameColumn  *int32
}

type Batch struct {
	ID uint64

	CallerService string

	OriginalFilename string
	StoragePath      string

	Status int32

	TotalRecords     int32
	RecordLimit      *int32
	ProcessedRecords int32
	SuccessCount     int32
	FailedCount      int32
	CreditsUsed      int64

	Mapping ColumnMapping

	StartedAt   *time.Time
	CompletedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectiveLimit is the denominator for progress accounting: the configured
// record limit when set, the full row count otherwise.
func (b *Batch) EffectiveLimit() int32 {
	if b.RecordLimit != nil && *b.RecordLimit > 0 {
		return *b.RecordLimit
	}
	return b.TotalRecords
}

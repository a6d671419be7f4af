package entity

import "time"

type BatchEvent struct {
	ID uint64

	BatchID uint64

	EventType string

	OldStatus *int32
	NewStatus int32

	CreatedAt time.Time
}

package repository

import (
	"context"

	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

type BatchEventRepository struct {
	db DBTX
}

func NewBatchEventRepository(db DBTX) *BatchEventRepository {
	return &BatchEventRepository{db: db}
}

func (r *BatchEventRepository) Create(ctx context.Context, event *entity.BatchEvent) error {
	query := `
		INSERT INTO batch_events (batch_id, event_type, old_status, new_status, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		event.BatchID,
		event.EventType,
		nullableInt32Value(event.OldStatus),
		event.NewStatus,
		event.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = uint64(id)

	return nil
}

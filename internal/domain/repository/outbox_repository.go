package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jhoicas/fulfillment-api/internal/domain/event"
)

// OutboxRecord is one persisted, not-yet-published domain event.
type OutboxRecord struct {
	ID        int64
	EventID   string
	Name      string
	Key       string
	Payload   json.RawMessage
	CreatedAt time.Time
	SentAt    *time.Time
}

// OutboxRepository stores domain events inside the owning transaction so
// they become visible to the relay only after commit.
type OutboxRepository interface {
	Append(ctx context.Context, events []event.Event) error
	FetchPending(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkSent(ctx context.Context, id int64) error
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jhoicas/fulfillment-api/internal/domain/event"
	"github.com/jhoicas/fulfillment-api/internal/domain/repository"
)

var _ repository.OutboxRepository = (*OutboxRepo)(nil)

// OutboxRepo stores domain events in the outbox table. Appends run inside
// the owning transaction, so events become visible to the relay only after
// the business change committed.
type OutboxRepo struct {
	q Querier
}

func NewOutboxRepository(q Querier) *OutboxRepo {
	return &OutboxRepo{q: q}
}

func (r *OutboxRepo) Append(ctx context.Context, events []event.Event) error {
	if len(events) == 0 {
		return nil
	}
	query := `INSERT INTO outbox (event_id, name, key, payload, created_at) VALUES ($1, $2, $3, $4, $5)`
	for _, ev := range events {
		data, err := json.Marshal(ev.Payload)
		if err != nil {
			return fmt.Errorf("marshal event payload: %w", err)
		}
		if _, err := r.q.Exec(ctx, query, ev.ID, ev.Name, ev.Key, data, ev.OccurredAt); err != nil {
			return fmt.Errorf("append outbox: %w", err)
		}
	}
	return nil
}

func (r *OutboxRepo) FetchPending(ctx context.Context, limit int) ([]repository.OutboxRecord, error) {
	query := `SELECT id, event_id, name, key, payload, created_at, sent_at
		FROM outbox WHERE sent_at IS NULL ORDER BY id LIMIT $1`
	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch pending outbox: %w", err)
	}
	defer rows.Close()

	var out []repository.OutboxRecord
	for rows.Next() {
		var rec repository.OutboxRecord
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.Name, &rec.Key, &rec.Payload, &rec.CreatedAt, &rec.SentAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *OutboxRepo) MarkSent(ctx context.Context, id int64) error {
	if _, err := r.q.Exec(ctx, `UPDATE outbox SET sent_at = now() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("mark outbox sent: %w", err)
	}
	return nil
}

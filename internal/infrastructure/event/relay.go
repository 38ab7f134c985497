package event

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/fulfillment-api/internal/domain/repository"
	"github.com/jhoicas/fulfillment-api/pkg/logger"
)

// Relay drains the outbox into Kafka. It runs outside any business
// transaction: rows are fetched after commit, published, then marked sent.
// A crash between publish and mark re-sends the row, so consumers must
// dedupe on event_id.
type Relay struct {
	outbox   repository.OutboxRepository
	writer   *kafka.Writer
	log      *logger.Logger
	interval time.Duration
	batch    int
}

func NewRelay(outbox repository.OutboxRepository, writer *kafka.Writer, log *logger.Logger, interval time.Duration, batch int) *Relay {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	if batch <= 0 {
		batch = 100
	}
	return &Relay{outbox: outbox, writer: writer, log: log, interval: interval, batch: batch}
}

// Run polls until ctx is canceled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.relayOnce(ctx); err != nil {
				r.log.Error().Err(err).Msg("outbox relay pass failed")
			}
		}
	}
}

func (r *Relay) relayOnce(ctx context.Context) error {
	records, err := r.outbox.FetchPending(ctx, r.batch)
	if err != nil {
		return err
	}
	for _, rec := range records {
		msg := kafka.Message{
			Key:   []byte(rec.Key),
			Value: rec.Payload,
			Time:  rec.CreatedAt,
			Headers: []kafka.Header{
				{Key: "event_id", Value: []byte(rec.EventID)},
				{Key: "event_name", Value: []byte(rec.Name)},
			},
		}
		if err := r.writer.WriteMessages(ctx, msg); err != nil {
			return err
		}
		if err := r.outbox.MarkSent(ctx, rec.ID); err != nil {
			return err
		}
		r.log.Debug().Str("event", rec.Name).Str("key", rec.Key).Msg("event published")
	}
	return nil
}

package event

import (
	"time"

	"github.com/google/uuid"
)

// Event names published through the outbox. One event per state transition.
const (
	OrderCreated      = "order.created"
	OrderUpdated      = "order.updated"
	OrderStateChanged = "order.state_changed"
	OrderCompleted    = "order.completed"
	OrderCanceled     = "order.canceled"
	OrderReturned     = "order.returned"

	PaymentCreated    = "payment.created"
	PaymentAuthorized = "payment.authorized"
	PaymentCaptured   = "payment.captured"
	PaymentRefunded   = "payment.refunded"
	PaymentVoided     = "payment.voided"
	PaymentFailed     = "payment.failed"

	ShipmentCreated   = "shipment.created"
	ShipmentPicked    = "shipment.picked"
	ShipmentPacked    = "shipment.packed"
	ShipmentShipped   = "shipment.shipped"
	ShipmentDelivered = "shipment.delivered"
	ShipmentCanceled  = "shipment.canceled"

	StockAdjusted    = "stock.adjusted"
	StockReserved    = "stock.reserved"
	StockReleased    = "stock.released"
	StockTransferred = "stock.transferred"
)

// Event is a plain data record of a domain state transition. Aggregates
// append events in memory; the use case copies them into the outbox inside
// the owning transaction, and the relay publishes them after commit.
type Event struct {
	ID         string         `json:"event_id"`
	Name       string         `json:"name"`
	Key        string         `json:"key"` // aggregate id, used as the broker partition key
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// New builds an event with a fresh id and timestamp.
func New(name, key string, payload map[string]any) Event {
	return Event{
		ID:         uuid.New().String(),
		Name:       name,
		Key:        key,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// Recorder collects events raised by an aggregate during one operation.
// Embed by value; Drain at the transaction-commit boundary.
type Recorder struct {
	pending []Event
}

// Record appends an event to the pending list.
func (r *Recorder) Record(e Event) {
	r.pending = append(r.pending, e)
}

// Drain returns the pending events and clears the list. Called exactly once
// per transaction so retries cannot double-publish.
func (r *Recorder) Drain() []Event {
	out := r.pending
	r.pending = nil
	return out
}

package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/fulfillment-api/internal/domain"
	"github.com/jhoicas/fulfillment-api/internal/domain/event"
)

// PaymentState is the lifecycle of one monetary transaction.
type PaymentState string

const (
	PaymentPending    PaymentState = "PENDING"
	PaymentAuthorized PaymentState = "AUTHORIZED"
	PaymentCompleted  PaymentState = "COMPLETED"
	PaymentRefunded   PaymentState = "REFUNDED"
	PaymentVoid       PaymentState = "VOID"
	PaymentFailed     PaymentState = "FAILED"
)

// Payment is one transaction attempt against an order. Mutated by gateway
// callbacks; partial refunds accumulate in RefundedAmountCents and only a
// full refund flips the state to Refunded.
type Payment struct {
	event.Recorder

	ID          string
	OrderID     string
	AmountCents int64
	Currency    string
	State       PaymentState
	MethodType  string

	ReferenceTransactionID string
	RefundedAmountCents    int64
	FailureReason          string
	IdempotencyKey         string

	AuthorizedAt *time.Time
	CapturedAt   *time.Time
	VoidedAt     *time.Time
	CreatedAt    time.Time
}

// NewPayment creates a pending payment record.
func NewPayment(orderID string, amountCents int64, currency, methodType string, now time.Time) (*Payment, error) {
	if amountCents < 1 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput)
	}
	if currency == "" || methodType == "" {
		return nil, fmt.Errorf("%w: currency and method type required", domain.ErrInvalidInput)
	}
	p := &Payment{
		ID:          uuid.New().String(),
		OrderID:     orderID,
		AmountCents: amountCents,
		Currency:    strings.ToUpper(currency),
		State:       PaymentPending,
		MethodType:  methodType,
		CreatedAt:   now,
	}
	p.Record(event.New(event.PaymentCreated, p.OrderID, map[string]any{
		"payment_id":   p.ID,
		"amount_cents": p.AmountCents,
		"method_type":  p.MethodType,
	}))
	return p, nil
}

// MarkAsAuthorized records a successful gateway authorization. Idempotent
// for an already-authorized payment.
func (p *Payment) MarkAsAuthorized(transactionID string, now time.Time) error {
	if p.State == PaymentAuthorized {
		return nil
	}
	if p.State != PaymentPending {
		return domain.TransitionError("payment", string(p.State), "authorize")
	}
	p.ReferenceTransactionID = transactionID
	p.State = PaymentAuthorized
	p.AuthorizedAt = &now
	p.Record(event.New(event.PaymentAuthorized, p.OrderID, map[string]any{
		"payment_id":     p.ID,
		"transaction_id": transactionID,
	}))
	return nil
}

// MarkAsCaptured records funds movement. Idempotent for an
// already-completed payment. A transaction id must exist by capture time.
func (p *Payment) MarkAsCaptured(transactionID string, now time.Time) error {
	if p.State == PaymentCompleted {
		return nil
	}
	if p.State != PaymentAuthorized && p.State != PaymentPending {
		return domain.TransitionError("payment", string(p.State), "capture")
	}
	if transactionID != "" {
		p.ReferenceTransactionID = transactionID
	}
	if p.ReferenceTransactionID == "" {
		return domain.ErrTransactionRequired
	}
	p.State = PaymentCompleted
	p.CapturedAt = &now
	p.Record(event.New(event.PaymentCaptured, p.OrderID, map[string]any{
		"payment_id":     p.ID,
		"transaction_id": p.ReferenceTransactionID,
		"amount_cents":   p.AmountCents,
	}))
	return nil
}

// Void aborts a payment that has not captured funds.
func (p *Payment) Void(now time.Time) error {
	if p.State == PaymentVoid {
		return nil
	}
	if p.State == PaymentCompleted {
		return domain.ErrCannotVoidCaptured
	}
	if p.State != PaymentAuthorized && p.State != PaymentPending {
		return domain.TransitionError("payment", string(p.State), "void")
	}
	p.State = PaymentVoid
	p.VoidedAt = &now
	p.Record(event.New(event.PaymentVoided, p.OrderID, map[string]any{
		"payment_id": p.ID,
	}))
	return nil
}

// MarkAsFailed records a gateway decline.
func (p *Payment) MarkAsFailed(reason string) error {
	if p.State == PaymentFailed {
		return nil
	}
	p.State = PaymentFailed
	p.FailureReason = reason
	p.Record(event.New(event.PaymentFailed, p.OrderID, map[string]any{
		"payment_id": p.ID,
		"reason":     reason,
	}))
	return nil
}

// Refund applies a (possibly partial) refund. The cumulative refunded
// amount may never exceed the captured amount; the state stays Completed
// until the balance reaches zero.
func (p *Payment) Refund(amountCents int64, reason string) error {
	if amountCents <= 0 {
		return fmt.Errorf("%w: refund amount must be positive", domain.ErrInvalidInput)
	}
	if p.State != PaymentCompleted && p.State != PaymentRefunded {
		return domain.TransitionError("payment", string(p.State), "refund")
	}
	remaining := p.AmountCents - p.RefundedAmountCents
	if amountCents > remaining {
		return fmt.Errorf("%w: requested %d, remaining %d", domain.ErrRefundExceedsBalance, amountCents, remaining)
	}
	p.RefundedAmountCents += amountCents
	if p.RefundedAmountCents >= p.AmountCents {
		p.State = PaymentRefunded
	}
	p.Record(event.New(event.PaymentRefunded, p.OrderID, map[string]any{
		"payment_id":   p.ID,
		"amount_cents": amountCents,
		"reason":       reason,
	}))
	return nil
}

// RemainingBalanceCents is the captured amount not yet refunded.
func (p *Payment) RemainingBalanceCents() int64 {
	return p.AmountCents - p.RefundedAmountCents
}

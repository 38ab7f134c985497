package payment

import (
	"context"
	"fmt"

	"github.com/jhoicas/fulfillment-api/internal/application/ports"
	"github.com/jhoicas/fulfillment-api/internal/domain"
)

// OrderCapturer advances the owning order when a capture notification
// arrives. Implemented by the ordering layer; declared here to keep the
// dependency pointing outward.
type OrderCapturer interface {
	CaptureByTransaction(ctx context.Context, transactionID string) error
}

// WebhookUseCase verifies and dispatches gateway notifications. The
// processor owns signature verification; a bad signature never touches
// state.
type WebhookUseCase struct {
	tx       ports.TxRunner
	registry *Registry
	settings Settings
	capturer OrderCapturer
}

func NewWebhookUseCase(tx ports.TxRunner, registry *Registry, settings Settings, capturer OrderCapturer) *WebhookUseCase {
	return &WebhookUseCase{tx: tx, registry: registry, settings: settings, capturer: capturer}
}

// Handle verifies the payload against the method's processor and applies
// the notification: captures advance the order, declines mark the payment
// failed, refund notices apply the refunded amount.
func (uc *WebhookUseCase) Handle(ctx context.Context, method MethodType, payload []byte, signature string) error {
	proc, err := uc.registry.Resolve(method)
	if err != nil {
		return err
	}
	ev, err := proc.ProcessWebhook(ctx, uc.settings, payload, signature)
	if err != nil {
		return err
	}
	if ev.TransactionID == "" {
		return fmt.Errorf("%w: webhook event has no transaction id", domain.ErrInvalidInput)
	}

	switch ev.Type {
	case WebhookCaptured:
		return uc.capturer.CaptureByTransaction(ctx, ev.TransactionID)
	case WebhookFailed:
		return uc.markFailed(ctx, ev.TransactionID)
	case WebhookRefunded:
		return uc.applyRefund(ctx, ev.TransactionID, ev.AmountCents)
	}
	return fmt.Errorf("%w: unknown webhook event type %q", domain.ErrInvalidInput, ev.Type)
}

func (uc *WebhookUseCase) markFailed(ctx context.Context, transactionID string) error {
	return uc.tx.Run(ctx, func(r ports.Repos) error {
		p, err := r.Payments.GetByTransactionID(ctx, transactionID)
		if err != nil {
			return err
		}
		if err := p.MarkAsFailed("gateway declined"); err != nil {
			return err
		}
		if err := r.Payments.Save(ctx, p); err != nil {
			return err
		}
		return r.Outbox.Append(ctx, p.Drain())
	})
}

func (uc *WebhookUseCase) applyRefund(ctx context.Context, transactionID string, amountCents int64) error {
	return uc.tx.Run(ctx, func(r ports.Repos) error {
		p, err := r.Payments.GetByTransactionID(ctx, transactionID)
		if err != nil {
			return err
		}
		if amountCents == 0 {
			amountCents = p.RemainingBalanceCents()
		}
		if err := p.Refund(amountCents, "gateway refund notification"); err != nil {
			return err
		}
		if err := r.Payments.Save(ctx, p); err != nil {
			return err
		}
		return r.Outbox.Append(ctx, p.Drain())
	})
}

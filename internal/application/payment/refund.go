package payment

import (
	"context"

	"github.com/jhoicas/fulfillment-api/internal/application/ports"
	"github.com/jhoicas/fulfillment-api/internal/domain"
	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
)

// RefundUseCase pushes a refund through the gateway and applies it to the
// payment record. The entity guard runs before the gateway call so an
// over-balance request never leaves the process.
type RefundUseCase struct {
	tx       ports.TxRunner
	registry *Registry
	settings Settings
}

func NewRefundUseCase(tx ports.TxRunner, registry *Registry, settings Settings) *RefundUseCase {
	return &RefundUseCase{tx: tx, registry: registry, settings: settings}
}

// Refund refunds amountCents of a captured payment. A zero amount refunds
// the full remaining balance.
func (uc *RefundUseCase) Refund(ctx context.Context, paymentID string, amountCents int64, reason string) (*entity.Payment, error) {
	var refunded *entity.Payment
	err := uc.tx.Run(ctx, func(r ports.Repos) error {
		p, err := r.Payments.Get(ctx, paymentID)
		if err != nil {
			return err
		}
		if amountCents == 0 {
			amountCents = p.RemainingBalanceCents()
		}
		if p.State != entity.PaymentCompleted && p.State != entity.PaymentRefunded {
			return domain.TransitionError("payment", string(p.State), "refund")
		}
		if amountCents > p.RemainingBalanceCents() {
			return domain.ErrRefundExceedsBalance
		}

		method, err := ParseMethodType(p.MethodType)
		if err != nil {
			return err
		}
		proc, err := uc.registry.Resolve(method)
		if err != nil {
			return err
		}
		if err := proc.Refund(ctx, uc.settings, p, amountCents); err != nil {
			return err
		}

		if err := p.Refund(amountCents, reason); err != nil {
			return err
		}
		if err := r.Payments.Save(ctx, p); err != nil {
			return err
		}
		if err := r.Outbox.Append(ctx, p.Drain()); err != nil {
			return err
		}
		refunded = p
		return nil
	})
	return refunded, err
}

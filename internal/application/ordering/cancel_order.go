package ordering

import (
	"context"
	"time"

	"github.com/jhoicas/fulfillment-api/internal/application/inventory"
	"github.com/jhoicas/fulfillment-api/internal/application/payment"
	"github.com/jhoicas/fulfillment-api/internal/application/ports"
	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
)

// CancelOrderUseCase tears an order down before completion: the state flips
// to Canceled, still-promised units go back on the shelf, open payments are
// voided and captured ones refunded, unshipped shipments are aborted. One
// transaction covers the whole compensation.
type CancelOrderUseCase struct {
	tx       ports.TxRunner
	registry *payment.Registry
	settings payment.Settings
}

func NewCancelOrderUseCase(tx ports.TxRunner, registry *payment.Registry, settings payment.Settings) *CancelOrderUseCase {
	return &CancelOrderUseCase{tx: tx, registry: registry, settings: settings}
}

// Cancel cancels the order. Fails with ErrCannotCancelCompleted once the
// order reached Complete; canceling an already-canceled order is a no-op.
func (uc *CancelOrderUseCase) Cancel(ctx context.Context, orderID, reason string) (*entity.Order, error) {
	var order *entity.Order
	err := uc.tx.Run(ctx, func(r ports.Repos) error {
		var err error
		order, err = r.Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.State == entity.OrderCanceled {
			return nil
		}

		now := time.Now().UTC()
		if err := order.Cancel(reason, now); err != nil {
			return err
		}

		// Stock released before the aggregate save so the unit rows still
		// carry their pre-cancel states when the release counts them.
		if err := inventory.ReleaseTx(ctx, r, order.ID); err != nil {
			return err
		}

		for _, sh := range order.Shipments {
			if sh.State == entity.ShipmentShipped || sh.State == entity.ShipmentDelivered {
				continue
			}
			if err := sh.Cancel(); err != nil {
				return err
			}
			if err := r.Shipments.Save(ctx, sh); err != nil {
				return err
			}
		}

		for _, p := range order.Payments {
			switch p.State {
			case entity.PaymentPending, entity.PaymentAuthorized:
				if err := p.Void(now); err != nil {
					return err
				}
			case entity.PaymentCompleted:
				if err := uc.refund(ctx, p, reason); err != nil {
					return err
				}
			}
			if err := r.Payments.Save(ctx, p); err != nil {
				return err
			}
		}

		if err := r.Orders.Save(ctx, order); err != nil {
			return err
		}
		return appendAggregateEvents(ctx, r, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (uc *CancelOrderUseCase) refund(ctx context.Context, p *entity.Payment, reason string) error {
	remaining := p.RemainingBalanceCents()
	if remaining <= 0 {
		return nil
	}
	method, err := payment.ParseMethodType(p.MethodType)
	if err != nil {
		return err
	}
	proc, err := uc.registry.Resolve(method)
	if err != nil {
		return err
	}
	if err := proc.Refund(ctx, uc.settings, p, remaining); err != nil {
		return err
	}
	return p.Refund(remaining, "order canceled: "+reason)
}

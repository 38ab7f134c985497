package ordering

import (
	"context"
	"time"

	"github.com/jhoicas/fulfillment-api/internal/application/inventory"
	"github.com/jhoicas/fulfillment-api/internal/application/payment"
	"github.com/jhoicas/fulfillment-api/internal/application/ports"
	"github.com/jhoicas/fulfillment-api/internal/domain"
	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
)

// PlaceOrderUseCase is the placement orchestration: reserve inventory, cut
// shipments per stock location, advance to Payment and open an authorized
// payment, all inside one transaction. Any failure, including a gateway
// decline, rolls everything back so a failed placement leaves no
// reservation behind.
type PlaceOrderUseCase struct {
	tx           ports.TxRunner
	reservations *inventory.ReservationService
	registry     *payment.Registry
	settings     payment.Settings
}

func NewPlaceOrderUseCase(
	tx ports.TxRunner,
	reservations *inventory.ReservationService,
	registry *payment.Registry,
	settings payment.Settings,
) *PlaceOrderUseCase {
	return &PlaceOrderUseCase{
		tx:           tx,
		reservations: reservations,
		registry:     registry,
		settings:     settings,
	}
}

// PlaceInput selects the payment method for the placement.
type PlaceInput struct {
	OrderID        string
	Method         payment.MethodType
	IdempotencyKey string
}

// Place runs the placement for an order sitting in the Delivery state.
func (uc *PlaceOrderUseCase) Place(ctx context.Context, input PlaceInput) (*entity.Order, error) {
	proc, err := uc.registry.Resolve(input.Method)
	if err != nil {
		return nil, err
	}

	var order *entity.Order
	err = uc.tx.Run(ctx, func(r ports.Repos) error {
		var err error
		order, err = r.Orders.GetForUpdate(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if order.State != entity.OrderDelivery {
			return domain.TransitionError("order", order.State.String(), "place")
		}

		now := time.Now().UTC()

		if err := uc.reservations.ReserveTx(ctx, r, order); err != nil {
			return err
		}
		if err := uc.cutShipments(ctx, r, order, now); err != nil {
			return err
		}
		if err := order.Next(now); err != nil {
			return err
		}

		// A retried placement must not stack payment attempts: anything
		// still open from a previous run is voided first.
		for _, p := range order.Payments {
			if p.State == entity.PaymentPending || p.State == entity.PaymentAuthorized {
				if err := p.Void(now); err != nil {
					return err
				}
			}
		}

		pay, err := entity.NewPayment(order.ID, order.TotalCents, order.Currency, string(input.Method), now)
		if err != nil {
			return err
		}
		pay.IdempotencyKey = input.IdempotencyKey
		if err := order.AddPayment(pay); err != nil {
			return err
		}

		auth, err := proc.Process(ctx, uc.settings, pay, pay.AmountCents, pay.Currency)
		if err != nil {
			return err
		}
		if err := pay.MarkAsAuthorized(auth.TransactionID, now); err != nil {
			return err
		}
		if auth.Captured {
			if err := pay.MarkAsCaptured(auth.TransactionID, now); err != nil {
				return err
			}
			if err := advanceAfterCapture(order, now); err != nil {
				return err
			}
		}

		if err := r.Payments.Create(ctx, pay); err != nil {
			return err
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

// cutShipments groups the order's reserved units per stock location into one
// pending shipment each. Idempotent: units already assigned keep their
// shipment.
func (uc *PlaceOrderUseCase) cutShipments(ctx context.Context, r ports.Repos, order *entity.Order, now time.Time) error {
	byLocation := make(map[string][]*entity.InventoryUnit)
	for _, u := range order.Units() {
		if u.ShipmentID != "" {
			continue
		}
		if u.State != entity.UnitOnHand && u.State != entity.UnitBackordered {
			continue
		}
		byLocation[u.StockLocationID] = append(byLocation[u.StockLocationID], u)
	}

	for locationID, units := range byLocation {
		sh, err := entity.NewShipment(order.ID, locationID, 0, now)
		if err != nil {
			return err
		}
		for _, u := range units {
			if err := u.AssignToShipment(sh.ID); err != nil {
				return err
			}
			sh.Units = append(sh.Units, u)
		}
		sh.MarkAsReady()
		if err := order.AddShipment(sh); err != nil {
			return err
		}
		if err := r.Shipments.Create(ctx, sh); err != nil {
			return err
		}
	}
	return nil
}

// advanceAfterCapture walks the order forward while payment coverage and
// allocation allow it: Payment to Confirm, then Confirm to Complete.
func advanceAfterCapture(order *entity.Order, now time.Time) error {
	if order.State == entity.OrderPayment {
		if order.PaidTotalCents() < order.TotalCents {
			return nil
		}
		if err := order.Next(now); err != nil {
			return err
		}
	}
	if order.State == entity.OrderConfirm {
		return order.Next(now)
	}
	return nil
}

// appendAggregateEvents drains the order and all event-recording children
// into the outbox.
func appendAggregateEvents(ctx context.Context, r ports.Repos, order *entity.Order) error {
	if err := r.Outbox.Append(ctx, order.Drain()); err != nil {
		return err
	}
	for _, p := range order.Payments {
		if err := r.Outbox.Append(ctx, p.Drain()); err != nil {
			return err
		}
	}
	for _, sh := range order.Shipments {
		if err := r.Outbox.Append(ctx, sh.Drain()); err != nil {
			return err
		}
	}
	return nil
}

package ordering

import (
	"context"
	"time"

	"github.com/jhoicas/fulfillment-api/internal/application/ports"
	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
	"github.com/jhoicas/fulfillment-api/internal/domain/repository"
)

// CartUseCase covers the pre-placement half of the order lifecycle: cart
// building, addresses, delivery selection and single-step advancement.
type CartUseCase struct {
	tx     ports.TxRunner
	orders repository.OrderRepository
}

func NewCartUseCase(tx ports.TxRunner, orders repository.OrderRepository) *CartUseCase {
	return &CartUseCase{tx: tx, orders: orders}
}

// Create opens a new cart.
func (uc *CartUseCase) Create(ctx context.Context, currency, email string) (*entity.Order, error) {
	order, err := entity.NewOrder(currency, email, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	err = uc.tx.Run(ctx, func(r ports.Repos) error {
		if err := r.Orders.Create(ctx, order); err != nil {
			return err
		}
		return r.Outbox.Append(ctx, order.Drain())
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Get loads one order with its children.
func (uc *CartUseCase) Get(ctx context.Context, orderID string) (*entity.Order, error) {
	return uc.orders.Get(ctx, orderID)
}

// AddLineItem adds quantity units of a variant to the cart, snapshotting
// the catalog price unless an override is given.
func (uc *CartUseCase) AddLineItem(ctx context.Context, orderID, variantID string, quantity int, overridePriceCents *int64) (*entity.Order, error) {
	return uc.mutate(ctx, orderID, func(r ports.Repos, order *entity.Order, now time.Time) error {
		variant, err := r.Variants.Get(ctx, variantID)
		if err != nil {
			return err
		}
		_, err = order.AddVariant(variant, quantity, now, overridePriceCents)
		return err
	})
}

// RemoveLineItem drops one line from the cart.
func (uc *CartUseCase) RemoveLineItem(ctx context.Context, orderID, lineItemID string) (*entity.Order, error) {
	return uc.mutate(ctx, orderID, func(_ ports.Repos, order *entity.Order, now time.Time) error {
		return order.RemoveLineItem(lineItemID, now)
	})
}

// SetAddresses records shipping and billing addresses.
func (uc *CartUseCase) SetAddresses(ctx context.Context, orderID, shipAddressID, billAddressID string) (*entity.Order, error) {
	return uc.mutate(ctx, orderID, func(_ ports.Repos, order *entity.Order, now time.Time) error {
		return order.SetAddresses(shipAddressID, billAddressID, now)
	})
}

// SetShippingMethod assigns the delivery method and its cost.
func (uc *CartUseCase) SetShippingMethod(ctx context.Context, orderID, methodID string, costCents int64) (*entity.Order, error) {
	return uc.mutate(ctx, orderID, func(_ ports.Repos, order *entity.Order, now time.Time) error {
		return order.SetShippingMethod(methodID, costCents, now)
	})
}

// Next advances the order exactly one state when its exit guard passes.
func (uc *CartUseCase) Next(ctx context.Context, orderID string) (*entity.Order, error) {
	return uc.mutate(ctx, orderID, func(_ ports.Repos, order *entity.Order, now time.Time) error {
		return order.Next(now)
	})
}

func (uc *CartUseCase) mutate(ctx context.Context, orderID string, fn func(r ports.Repos, order *entity.Order, now time.Time) error) (*entity.Order, error) {
	var order *entity.Order
	err := uc.tx.Run(ctx, func(r ports.Repos) error {
		var err error
		order, err = r.Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := fn(r, order, time.Now().UTC()); err != nil {
			return err
		}
		if err := r.Orders.Save(ctx, order); err != nil {
			return err
		}
		return r.Outbox.Append(ctx, order.Drain())
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

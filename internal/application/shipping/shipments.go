package shipping

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/fulfillment-api/internal/application/ports"
	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
)

// ShipmentUseCase drives the warehouse lifecycle of one shipment. Shipping
// settles the reserved counters on the stock rows the units came from; the
// on-hand balance itself moved at reservation time.
type ShipmentUseCase struct {
	tx ports.TxRunner
}

func NewShipmentUseCase(tx ports.TxRunner) *ShipmentUseCase {
	return &ShipmentUseCase{tx: tx}
}

// Pick marks the shipment's items as taken off the shelf.
func (uc *ShipmentUseCase) Pick(ctx context.Context, shipmentID string) (*entity.Shipment, error) {
	return uc.transition(ctx, shipmentID, func(sh *entity.Shipment, now time.Time) error {
		return sh.MarkAsPicked(now)
	})
}

// Pack marks the shipment's items as boxed.
func (uc *ShipmentUseCase) Pack(ctx context.Context, shipmentID string) (*entity.Shipment, error) {
	return uc.transition(ctx, shipmentID, func(sh *entity.Shipment, now time.Time) error {
		return sh.MarkAsPacked(now)
	})
}

// Deliver closes a shipped shipment.
func (uc *ShipmentUseCase) Deliver(ctx context.Context, shipmentID string) (*entity.Shipment, error) {
	return uc.transition(ctx, shipmentID, func(sh *entity.Shipment, now time.Time) error {
		return sh.Deliver(now)
	})
}

// Ship hands the package to the carrier and settles the reserved counters
// for every unit on board.
func (uc *ShipmentUseCase) Ship(ctx context.Context, shipmentID, trackingNumber string) (*entity.Shipment, error) {
	var shipment *entity.Shipment
	err := uc.tx.Run(ctx, func(r ports.Repos) error {
		sh, err := r.Shipments.GetForUpdate(ctx, shipmentID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := sh.Ship(trackingNumber, now); err != nil {
			return err
		}

		if err := settleReserved(ctx, r, sh.Units); err != nil {
			return err
		}
		if err := saveShipment(ctx, r, sh); err != nil {
			return err
		}
		shipment = sh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return shipment, nil
}

// Cancel aborts an unshipped shipment and puts its still-promised units
// back on the shelf. Fails with ErrAlreadyShipped once the carrier has the
// package.
func (uc *ShipmentUseCase) Cancel(ctx context.Context, shipmentID string) (*entity.Shipment, error) {
	var shipment *entity.Shipment
	err := uc.tx.Run(ctx, func(r ports.Repos) error {
		sh, err := r.Shipments.GetForUpdate(ctx, shipmentID)
		if err != nil {
			return err
		}

		held := make(map[string]int)
		for _, u := range sh.Units {
			if u.State == entity.UnitOnHand || u.State == entity.UnitBackordered {
				held[u.StockItemID]++
			}
		}

		if err := sh.Cancel(); err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, stockID := range sortedKeys(held) {
			item, err := r.StockItems.GetForUpdate(ctx, stockID)
			if err != nil {
				return err
			}
			if err := item.Release(held[stockID], sh.OrderID, now); err != nil {
				return err
			}
			if err := r.StockItems.Save(ctx, item); err != nil {
				return err
			}
			if err := r.Outbox.Append(ctx, item.Drain()); err != nil {
				return err
			}
		}

		if err := saveShipment(ctx, r, sh); err != nil {
			return err
		}
		shipment = sh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return shipment, nil
}

func (uc *ShipmentUseCase) transition(ctx context.Context, shipmentID string, fn func(sh *entity.Shipment, now time.Time) error) (*entity.Shipment, error) {
	var shipment *entity.Shipment
	err := uc.tx.Run(ctx, func(r ports.Repos) error {
		sh, err := r.Shipments.GetForUpdate(ctx, shipmentID)
		if err != nil {
			return err
		}
		if err := fn(sh, time.Now().UTC()); err != nil {
			return err
		}
		if err := saveShipment(ctx, r, sh); err != nil {
			return err
		}
		shipment = sh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return shipment, nil
}

// settleReserved drops QuantityReserved on each source stock row for the
// units that physically left.
func settleReserved(ctx context.Context, r ports.Repos, units []*entity.InventoryUnit) error {
	counts := make(map[string]int)
	for _, u := range units {
		if u.State == entity.UnitShipped {
			counts[u.StockItemID]++
		}
	}
	for _, stockID := range sortedKeys(counts) {
		item, err := r.StockItems.GetForUpdate(ctx, stockID)
		if err != nil {
			return err
		}
		item.ConsumeShipped(counts[stockID])
		if err := r.StockItems.Save(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func saveShipment(ctx context.Context, r ports.Repos, sh *entity.Shipment) error {
	for _, u := range sh.Units {
		if err := r.Units.Save(ctx, u); err != nil {
			return err
		}
	}
	if err := r.Shipments.Save(ctx, sh); err != nil {
		return err
	}
	return r.Outbox.Append(ctx, sh.Drain())
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

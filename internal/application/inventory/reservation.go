package inventory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/fulfillment-api/internal/application/fulfillment"
	"github.com/jhoicas/fulfillment-api/internal/application/ports"
	"github.com/jhoicas/fulfillment-api/internal/domain"
	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
)

// ReservationService converts an order's line items into inventory units
// inside one transaction: plan against locked stock rows, decrement, create
// units. Any failure rolls the whole attempt back, so an order never holds
// a partial reservation.
type ReservationService struct {
	tx ports.TxRunner
}

func NewReservationService(tx ports.TxRunner) *ReservationService {
	return &ReservationService{tx: tx}
}

// Reserve runs a reservation attempt for an existing order in its own
// transaction.
func (s *ReservationService) Reserve(ctx context.Context, orderID string) error {
	return s.tx.Run(ctx, func(r ports.Repos) error {
		order, err := r.Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := s.ReserveTx(ctx, r, order); err != nil {
			return err
		}
		if err := r.Orders.Save(ctx, order); err != nil {
			return err
		}
		return r.Outbox.Append(ctx, order.Drain())
	})
}

// ReserveTx performs the attempt inside the caller's transaction, so order
// placement can reserve and advance state atomically. The caller saves the
// order aggregate afterwards; stock rows and units are persisted here.
//
// Reserving again for an order that already holds units is a no-op, which
// makes retried placements safe.
func (s *ReservationService) ReserveTx(ctx context.Context, r ports.Repos, order *entity.Order) error {
	if order.HasActiveReservation() {
		return nil
	}

	demands := make([]fulfillment.Demand, 0, len(order.LineItems))
	for _, li := range order.LineItems {
		if li.Quantity < 1 {
			continue
		}
		demands = append(demands, fulfillment.Demand{
			VariantID:  li.VariantID,
			LineItemID: li.ID,
			Quantity:   li.Quantity,
		})
	}
	if len(demands) == 0 {
		return domain.ErrEmptyCart
	}

	locations, err := r.Locations.ListFulfillable(ctx)
	if err != nil {
		return err
	}

	// Rows lock in variant-id order so two concurrent reservations that
	// touch the same variants cannot deadlock each other.
	variantIDs := distinctVariantIDs(demands)
	stocks := make([]*entity.StockItem, 0, len(variantIDs))
	for _, vid := range variantIDs {
		rows, err := r.StockItems.FindForVariantForUpdate(ctx, vid)
		if err != nil {
			return fmt.Errorf("locking stock for variant %s: %w", vid, err)
		}
		stocks = append(stocks, rows...)
	}

	plan, err := fulfillment.BuildPlan(locations, stocks, demands)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	lineByID := make(map[string]*entity.LineItem, len(order.LineItems))
	for _, li := range order.LineItems {
		lineByID[li.ID] = li
	}

	touched := make(map[string]*entity.StockItem)
	var created []*entity.InventoryUnit
	for _, alloc := range plan.Allocations {
		units, err := alloc.StockItem.Reserve(alloc.Quantity, order.ID, alloc.LineItemID, alloc.VariantID, now)
		if err != nil {
			return err
		}
		if li, ok := lineByID[alloc.LineItemID]; ok {
			li.Units = append(li.Units, units...)
		}
		created = append(created, units...)
		touched[alloc.StockItem.ID] = alloc.StockItem
	}

	if err := r.Units.CreateBatch(ctx, created); err != nil {
		return err
	}
	for _, id := range sortedKeys(touched) {
		item := touched[id]
		if err := r.StockItems.Save(ctx, item); err != nil {
			return err
		}
		if err := r.Outbox.Append(ctx, item.Drain()); err != nil {
			return err
		}
	}
	return nil
}

// Release returns every still-promised unit of an order to availability in
// its own transaction.
func (s *ReservationService) Release(ctx context.Context, orderID string) error {
	return s.tx.Run(ctx, func(r ports.Repos) error {
		return ReleaseTx(ctx, r, orderID)
	})
}

// ReleaseTx is the in-transaction counterpart used by order cancellation.
// Shipped units are left untouched; only on-hand and backordered promises
// are compensated back onto their stock rows.
func ReleaseTx(ctx context.Context, r ports.Repos, orderID string) error {
	units, err := r.Units.ListByOrder(ctx, orderID)
	if err != nil {
		return err
	}

	byStock := make(map[string][]*entity.InventoryUnit)
	for _, u := range units {
		if u.State != entity.UnitOnHand && u.State != entity.UnitBackordered {
			continue
		}
		byStock[u.StockItemID] = append(byStock[u.StockItemID], u)
	}
	if len(byStock) == 0 {
		return nil
	}

	now := time.Now().UTC()
	for _, stockID := range sortedStockKeys(byStock) {
		held := byStock[stockID]
		item, err := r.StockItems.GetForUpdate(ctx, stockID)
		if err != nil {
			return err
		}
		if err := item.Release(len(held), orderID, now); err != nil {
			return err
		}
		for _, u := range held {
			if err := u.Cancel(); err != nil {
				return err
			}
			if err := r.Units.Save(ctx, u); err != nil {
				return err
			}
		}
		if err := r.StockItems.Save(ctx, item); err != nil {
			return err
		}
		if err := r.Outbox.Append(ctx, item.Drain()); err != nil {
			return err
		}
	}
	return nil
}

func distinctVariantIDs(demands []fulfillment.Demand) []string {
	seen := make(map[string]struct{}, len(demands))
	out := make([]string, 0, len(demands))
	for _, d := range demands {
		if _, ok := seen[d.VariantID]; ok {
			continue
		}
		seen[d.VariantID] = struct{}{}
		out = append(out, d.VariantID)
	}
	sort.Strings(out)
	return out
}

func sortedKeys(m map[string]*entity.StockItem) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedStockKeys(m map[string][]*entity.InventoryUnit) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/fulfillment-api/internal/domain"
	"github.com/jhoicas/fulfillment-api/internal/domain/event"
)

// StockItem is the per (variant, location) quantity record. Its counts are
// mutated exclusively through AdjustStock, which appends a StockMovement,
// so the ledger is always a complete causal history of QuantityOnHand.
//
// Reservation decrements QuantityOnHand (the ledger row carries the
// before/after pair) and raises QuantityReserved, the count of outstanding
// promised units used by release and backorder accounting. With
// backordering enabled QuantityOnHand may go negative down to
// -BackorderLimit.
type StockItem struct {
	event.Recorder

	ID               string
	VariantID        string
	StockLocationID  string
	Sku              string
	QuantityOnHand   int
	QuantityReserved int
	Backorderable    bool
	BackorderLimit   int

	// Version is the optimistic-concurrency counter; the repository
	// compare-and-swaps on it when the row is updated outside FOR UPDATE.
	Version   int
	UpdatedAt time.Time

	// Movements holds rows appended during the current operation; the
	// repository persists and clears them on save.
	Movements []*StockMovement

	// Units holds inventory units touched during the current operation.
	Units []*InventoryUnit
}

// NewStockItem creates a stock record with an opening Receipt movement so
// the ledger explains the initial balance too.
func NewStockItem(variantID, stockLocationID, sku string, initialQty int, unitCost decimal.Decimal, now time.Time) (*StockItem, error) {
	if variantID == "" || stockLocationID == "" {
		return nil, fmt.Errorf("%w: variant and location required", domain.ErrInvalidInput)
	}
	if initialQty < 0 {
		return nil, fmt.Errorf("%w: initial quantity must not be negative", domain.ErrInvalidInput)
	}
	s := &StockItem{
		ID:              uuid.New().String(),
		VariantID:       variantID,
		StockLocationID: stockLocationID,
		Sku:             sku,
		UpdatedAt:       now,
	}
	if _, err := s.AdjustStock(initialQty, MovementReceipt, unitCost, "initial stock", "", now); err != nil {
		return nil, err
	}
	return s, nil
}

// CountAvailable is the quantity still offerable to new reservations.
func (s *StockItem) CountAvailable() int {
	return s.QuantityOnHand
}

// SetBackorderPolicy configures whether the balance may go negative and by
// how much.
func (s *StockItem) SetBackorderPolicy(allowed bool, limit int) {
	s.Backorderable = allowed
	s.BackorderLimit = limit
}

// AdjustStock is the single legal entry point for quantity changes. It
// computes the before/after pair, rejects the call without mutating
// anything when the resulting balance is illegal, and appends an immutable
// StockMovement on success.
func (s *StockItem) AdjustStock(delta int, typ StockMovementType, unitCost decimal.Decimal, reason, reference string, now time.Time) (*StockMovement, error) {
	before := s.QuantityOnHand
	after := before + delta

	if after < 0 {
		if !s.Backorderable {
			return nil, domain.ErrInsufficientStock
		}
		if -after > s.BackorderLimit {
			return nil, domain.ErrBackorderLimitExceeded
		}
	}

	mv := newStockMovement(s.ID, typ, delta, before, unitCost, reference, reason, now)
	s.QuantityOnHand = after
	s.UpdatedAt = now
	s.Movements = append(s.Movements, mv)

	if delta > 0 && typ == MovementReceipt {
		s.promoteBackorders()
	}

	s.Record(event.New(event.StockAdjusted, s.ID, map[string]any{
		"stock_item_id":  s.ID,
		"variant_id":     s.VariantID,
		"type":           string(typ),
		"quantity":       delta,
		"balance_before": before,
		"balance_after":  after,
		"reference":      reference,
	}))
	return mv, nil
}

// Reserve provisionally allocates qty units to an order. The decrement is
// recorded as a Reservation movement; units beyond the physical balance are
// created Backordered when the policy allows it.
func (s *StockItem) Reserve(qty int, orderID, lineItemID, variantID string, now time.Time) ([]*InventoryUnit, error) {
	if qty < 1 {
		return nil, fmt.Errorf("%w: reservation quantity must be positive", domain.ErrInvalidInput)
	}

	onHandPart := s.QuantityOnHand
	if onHandPart > qty {
		onHandPart = qty
	}
	if onHandPart < 0 {
		onHandPart = 0
	}
	backorderedPart := qty - onHandPart
	if backorderedPart > 0 && !s.Backorderable {
		return nil, domain.ErrInsufficientStock
	}

	if _, err := s.AdjustStock(-qty, MovementReservation, decimal.Zero, "order reservation", orderID, now); err != nil {
		return nil, err
	}
	s.QuantityReserved += qty

	units := make([]*InventoryUnit, 0, qty)
	for i := 0; i < qty; i++ {
		unit := NewInventoryUnit(orderID, lineItemID, variantID, now)
		var err error
		if i < onHandPart {
			err = unit.Allocate(s.ID, s.StockLocationID)
		} else {
			err = unit.Backorder(s.ID, s.StockLocationID)
		}
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	s.Units = append(s.Units, units...)

	s.Record(event.New(event.StockReserved, s.ID, map[string]any{
		"stock_item_id": s.ID,
		"order_id":      orderID,
		"quantity":      qty,
		"backordered":   backorderedPart,
	}))
	return units, nil
}

// Release returns qty previously reserved units to availability. The
// compensating ledger row references the order that held them.
func (s *StockItem) Release(qty int, orderID string, now time.Time) error {
	if qty < 1 {
		return fmt.Errorf("%w: release quantity must be positive", domain.ErrInvalidInput)
	}
	if qty > s.QuantityReserved {
		return fmt.Errorf("%w: releasing %d but only %d reserved", domain.ErrConflict, qty, s.QuantityReserved)
	}
	if _, err := s.AdjustStock(qty, MovementRelease, decimal.Zero, "reservation released", orderID, now); err != nil {
		return err
	}
	s.QuantityReserved -= qty

	s.Record(event.New(event.StockReleased, s.ID, map[string]any{
		"stock_item_id": s.ID,
		"order_id":      orderID,
		"quantity":      qty,
	}))
	return nil
}

// ConsumeShipped drops the reserved count for units that physically left;
// the on-hand decrement already happened at reservation time.
func (s *StockItem) ConsumeShipped(qty int) {
	if qty > s.QuantityReserved {
		qty = s.QuantityReserved
	}
	s.QuantityReserved -= qty
}

// promoteBackorders flips waiting units to on-hand as far as the new
// physical balance allows, oldest first. The promise count stays the same.
// QuantityOnHand already carries the backorder debt (it went negative at
// reservation time), so the shelf count is balance plus debt.
func (s *StockItem) promoteBackorders() {
	debt := 0
	for _, u := range s.Units {
		if u.State == UnitBackordered {
			debt++
		}
	}
	onShelf := s.QuantityOnHand + debt
	for _, u := range s.Units {
		if onShelf <= 0 {
			return
		}
		if u.State == UnitBackordered {
			if err := u.Promote(); err == nil {
				onShelf--
			}
		}
	}
}

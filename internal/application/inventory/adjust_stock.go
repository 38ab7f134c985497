package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/fulfillment-api/internal/application/ports"
	"github.com/jhoicas/fulfillment-api/internal/domain"
	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
)

// maxCASRetries bounds the optimistic retry loop before the conflict is
// surfaced to the caller.
const maxCASRetries = 3

// AdjustStockUseCase applies externally-driven quantity changes (receipts,
// sales, corrections, returns) to one stock row. It uses the version
// compare-and-swap path rather than a row lock: adjustments are short and
// rarely contended, so retrying a stale read beats holding locks.
type AdjustStockUseCase struct {
	tx ports.TxRunner
}

func NewAdjustStockUseCase(tx ports.TxRunner) *AdjustStockUseCase {
	return &AdjustStockUseCase{tx: tx}
}

// AdjustStockInput describes one manual ledger entry.
type AdjustStockInput struct {
	StockItemID string
	Delta       int
	Type        entity.StockMovementType
	UnitCost    decimal.Decimal
	Reason      string
	Reference   string
}

func (in AdjustStockInput) validate() error {
	if in.StockItemID == "" {
		return domain.ErrInvalidInput
	}
	if in.Delta == 0 {
		return domain.ErrInvalidInput
	}
	switch in.Type {
	case entity.MovementReceipt, entity.MovementSale, entity.MovementAdjustment, entity.MovementReturn:
	default:
		// Reservation, release and transfer rows are written by their own
		// services; they are not accepted as manual entries.
		return domain.ErrInvalidInput
	}
	if in.Type == entity.MovementReceipt && in.UnitCost.IsNegative() {
		return domain.ErrInvalidInput
	}
	return nil
}

// Adjust applies the change, retrying up to maxCASRetries times when a
// concurrent writer bumped the row version between read and save. Each
// attempt is its own transaction.
func (uc *AdjustStockUseCase) Adjust(ctx context.Context, input AdjustStockInput) (*entity.StockMovement, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	var mv *entity.StockMovement
	for attempt := 0; attempt < maxCASRetries; attempt++ {
		err := uc.tx.Run(ctx, func(r ports.Repos) error {
			var err error
			mv, err = uc.adjustOnce(ctx, r, input)
			return err
		})
		if err == nil {
			return mv, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return nil, err
		}
	}
	return nil, domain.ErrVersionConflict
}

func (uc *AdjustStockUseCase) adjustOnce(ctx context.Context, r ports.Repos, input AdjustStockInput) (*entity.StockMovement, error) {
	item, err := r.StockItems.Get(ctx, input.StockItemID)
	if err != nil {
		return nil, err
	}

	// A receipt may promote waiting backorders, so the row needs its active
	// units in memory before the balance moves.
	var waiting []*entity.InventoryUnit
	if input.Delta > 0 && input.Type == entity.MovementReceipt {
		units, err := r.Units.ListActiveByStockItem(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		item.Units = units
		for _, u := range units {
			if u.State == entity.UnitBackordered {
				waiting = append(waiting, u)
			}
		}
	}

	now := time.Now().UTC()
	mv, err := item.AdjustStock(input.Delta, input.Type, input.UnitCost, input.Reason, input.Reference, now)
	if err != nil {
		return nil, err
	}

	if err := r.StockItems.SaveWithVersion(ctx, item); err != nil {
		return nil, err
	}
	for _, u := range waiting {
		if u.State == entity.UnitOnHand {
			if err := r.Units.Save(ctx, u); err != nil {
				return nil, err
			}
		}
	}
	if err := r.Outbox.Append(ctx, item.Drain()); err != nil {
		return nil, err
	}
	return mv, nil
}

package ordering

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/fulfillment-api/internal/application/ports"
	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
)

// ReturnOrderUseCase closes a completed order whose goods came back and
// restocks the returned units as Return-typed receipts.
type ReturnOrderUseCase struct {
	tx ports.TxRunner
}

func NewReturnOrderUseCase(tx ports.TxRunner) *ReturnOrderUseCase {
	return &ReturnOrderUseCase{tx: tx}
}

// Return flips a Complete order to Returned and credits each shipped unit
// back onto the stock row it shipped from.
func (uc *ReturnOrderUseCase) Return(ctx context.Context, orderID, reason string) (*entity.Order, error) {
	var order *entity.Order
	err := uc.tx.Run(ctx, func(r ports.Repos) error {
		var err error
		order, err = r.Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		shipped := make(map[string]int)
		for _, u := range order.Units() {
			if u.State == entity.UnitShipped {
				shipped[u.StockItemID]++
			}
		}

		now := time.Now().UTC()
		if err := order.Return(reason, now); err != nil {
			return err
		}

		stockIDs := make([]string, 0, len(shipped))
		for id := range shipped {
			stockIDs = append(stockIDs, id)
		}
		sort.Strings(stockIDs)
		for _, stockID := range stockIDs {
			item, err := r.StockItems.GetForUpdate(ctx, stockID)
			if err != nil {
				return err
			}
			if _, err := item.AdjustStock(shipped[stockID], entity.MovementReturn, decimal.Zero, "order returned: "+reason, order.ID, now); err != nil {
				return err
			}
			if err := r.StockItems.Save(ctx, item); err != nil {
				return err
			}
			if err := r.Outbox.Append(ctx, item.Drain()); err != nil {
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

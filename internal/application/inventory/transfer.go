package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/fulfillment-api/internal/application/ports"
	"github.com/jhoicas/fulfillment-api/internal/domain"
	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
)

// TransferUseCase moves quantity of one variant between two locations as a
// paired TRANSFER_OUT / TRANSFER_IN, both inside one transaction so the
// global balance never changes mid-flight.
type TransferUseCase struct {
	tx ports.TxRunner
}

func NewTransferUseCase(tx ports.TxRunner) *TransferUseCase {
	return &TransferUseCase{tx: tx}
}

// TransferInput names the variant and the two locations involved.
type TransferInput struct {
	VariantID      string
	FromLocationID string
	ToLocationID   string
	Quantity       int
	Reason         string
}

// Transfer locks both stock rows in id order (two concurrent opposite
// transfers would otherwise deadlock), debits the source and credits the
// destination. The source row must cover the quantity from its physical
// balance; transfers never create backorders.
func (uc *TransferUseCase) Transfer(ctx context.Context, input TransferInput) error {
	if input.VariantID == "" || input.FromLocationID == "" || input.ToLocationID == "" {
		return domain.ErrInvalidInput
	}
	if input.FromLocationID == input.ToLocationID || input.Quantity < 1 {
		return domain.ErrInvalidInput
	}

	return uc.tx.Run(ctx, func(r ports.Repos) error {
		src, err := r.StockItems.FindByVariantAndLocation(ctx, input.VariantID, input.FromLocationID)
		if err != nil {
			return err
		}
		dst, err := r.StockItems.FindByVariantAndLocation(ctx, input.VariantID, input.ToLocationID)
		if err != nil {
			return err
		}

		first, second := src, dst
		if second.ID < first.ID {
			first, second = second, first
		}
		if first, err = r.StockItems.GetForUpdate(ctx, first.ID); err != nil {
			return err
		}
		if second, err = r.StockItems.GetForUpdate(ctx, second.ID); err != nil {
			return err
		}
		if src.ID == first.ID {
			src, dst = first, second
		} else {
			src, dst = second, first
		}

		if src.CountAvailable() < input.Quantity {
			return domain.ErrInsufficientStock
		}

		now := time.Now().UTC()
		reference := fmt.Sprintf("transfer:%s->%s", input.FromLocationID, input.ToLocationID)
		if _, err := src.AdjustStock(-input.Quantity, entity.MovementTransferOut, decimal.Zero, input.Reason, reference, now); err != nil {
			return err
		}
		if _, err := dst.AdjustStock(input.Quantity, entity.MovementTransferIn, decimal.Zero, input.Reason, reference, now); err != nil {
			return err
		}

		for _, item := range []*entity.StockItem{src, dst} {
			if err := r.StockItems.Save(ctx, item); err != nil {
				return err
			}
			if err := r.Outbox.Append(ctx, item.Drain()); err != nil {
				return err
			}
		}
		return nil
	})
}

package repository

import (
	"context"

	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
)

// StockMovementRepository persists the append-only ledger. There is no
// update or delete: movements are immutable once written.
type StockMovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	ListByStockItem(ctx context.Context, stockItemID string, limit, offset int) ([]*entity.StockMovement, error)
	ListByReference(ctx context.Context, reference string) ([]*entity.StockMovement, error)
}

package repository

import (
	"context"

	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
)

// InventoryUnitRepository persists per-physical-unit tracking rows.
type InventoryUnitRepository interface {
	CreateBatch(ctx context.Context, units []*entity.InventoryUnit) error
	Save(ctx context.Context, unit *entity.InventoryUnit) error
	ListByOrder(ctx context.Context, orderID string) ([]*entity.InventoryUnit, error)
	ListByShipment(ctx context.Context, shipmentID string) ([]*entity.InventoryUnit, error)
	// ListActiveByStockItem returns units still promised against a stock
	// record (on-hand or backordered), used by release and backfill.
	ListActiveByStockItem(ctx context.Context, stockItemID string) ([]*entity.InventoryUnit, error)
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
	"github.com/jhoicas/fulfillment-api/internal/domain/repository"
)

var _ repository.InventoryUnitRepository = (*InventoryUnitRepo)(nil)

// InventoryUnitRepo persists per-physical-unit tracking rows.
type InventoryUnitRepo struct {
	q Querier
}

func NewInventoryUnitRepository(q Querier) *InventoryUnitRepo {
	return &InventoryUnitRepo{q: q}
}

const unitColumns = `id, order_id, line_item_id, variant_id, COALESCE(stock_item_id, ''), COALESCE(stock_location_id, ''), COALESCE(shipment_id, ''), state, pending, created_at`

func (r *InventoryUnitRepo) CreateBatch(ctx context.Context, units []*entity.InventoryUnit) error {
	query := `
		INSERT INTO inventory_units (id, order_id, line_item_id, variant_id, stock_item_id, stock_location_id, shipment_id, state, pending, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			stock_item_id = EXCLUDED.stock_item_id,
			stock_location_id = EXCLUDED.stock_location_id,
			shipment_id = EXCLUDED.shipment_id,
			state = EXCLUDED.state,
			pending = EXCLUDED.pending`
	for _, u := range units {
		if _, err := r.q.Exec(ctx, query,
			u.ID, u.OrderID, u.LineItemID, u.VariantID,
			nullable(u.StockItemID), nullable(u.StockLocationID), nullable(u.ShipmentID),
			string(u.State), u.Pending, u.CreatedAt,
		); err != nil {
			return fmt.Errorf("create inventory unit: %w", err)
		}
	}
	return nil
}

func (r *InventoryUnitRepo) Save(ctx context.Context, unit *entity.InventoryUnit) error {
	return r.CreateBatch(ctx, []*entity.InventoryUnit{unit})
}

func (r *InventoryUnitRepo) ListByOrder(ctx context.Context, orderID string) ([]*entity.InventoryUnit, error) {
	query := `SELECT ` + unitColumns + ` FROM inventory_units WHERE order_id = $1 ORDER BY created_at, id`
	return r.list(ctx, query, orderID)
}

func (r *InventoryUnitRepo) ListByShipment(ctx context.Context, shipmentID string) ([]*entity.InventoryUnit, error) {
	query := `SELECT ` + unitColumns + ` FROM inventory_units WHERE shipment_id = $1 ORDER BY created_at, id`
	return r.list(ctx, query, shipmentID)
}

// ListActiveByStockItem returns units still promised against a stock row,
// oldest first so receipts promote the longest-waiting backorders.
func (r *InventoryUnitRepo) ListActiveByStockItem(ctx context.Context, stockItemID string) ([]*entity.InventoryUnit, error) {
	query := `SELECT ` + unitColumns + ` FROM inventory_units
		WHERE stock_item_id = $1 AND state IN ('ON_HAND', 'BACKORDERED')
		ORDER BY created_at, id`
	return r.list(ctx, query, stockItemID)
}

func (r *InventoryUnitRepo) list(ctx context.Context, query string, arg any) ([]*entity.InventoryUnit, error) {
	rows, err := r.q.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list inventory units: %w", err)
	}
	defer rows.Close()

	var out []*entity.InventoryUnit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory unit: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func scanUnit(row pgx.Row) (*entity.InventoryUnit, error) {
	var u entity.InventoryUnit
	var state string
	err := row.Scan(
		&u.ID, &u.OrderID, &u.LineItemID, &u.VariantID,
		&u.StockItemID, &u.StockLocationID, &u.ShipmentID,
		&state, &u.Pending, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.State = entity.InventoryUnitState(state)
	return &u, nil
}

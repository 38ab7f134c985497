package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/fulfillment-api/internal/domain"
	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
	"github.com/jhoicas/fulfillment-api/internal/domain/repository"
)

var _ repository.ShipmentRepository = (*ShipmentRepo)(nil)

// ShipmentRepo persists shipments with their assigned inventory units.
type ShipmentRepo struct {
	q     Querier
	units *InventoryUnitRepo
}

func NewShipmentRepository(q Querier) *ShipmentRepo {
	return &ShipmentRepo{q: q, units: NewInventoryUnitRepository(q)}
}

const shipmentColumns = `id, order_id, stock_location_id, number, state, COALESCE(tracking_number, ''), cost_cents, picked_at, packed_at, shipped_at, delivered_at, created_at`

func (r *ShipmentRepo) Create(ctx context.Context, sh *entity.Shipment) error {
	query := `
		INSERT INTO shipments (id, order_id, stock_location_id, number, state, tracking_number, cost_cents, picked_at, packed_at, shipped_at, delivered_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			tracking_number = EXCLUDED.tracking_number,
			picked_at = EXCLUDED.picked_at,
			packed_at = EXCLUDED.packed_at,
			shipped_at = EXCLUDED.shipped_at,
			delivered_at = EXCLUDED.delivered_at`
	_, err := r.q.Exec(ctx, query,
		sh.ID, sh.OrderID, sh.StockLocationID, sh.Number, string(sh.State),
		nullable(sh.TrackingNumber), sh.CostCents,
		sh.PickedAt, sh.PackedAt, sh.ShippedAt, sh.DeliveredAt, sh.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save shipment: %w", err)
	}
	return nil
}

func (r *ShipmentRepo) Save(ctx context.Context, sh *entity.Shipment) error {
	return r.Create(ctx, sh)
}

func (r *ShipmentRepo) Get(ctx context.Context, id string) (*entity.Shipment, error) {
	return r.get(ctx, id, false)
}

func (r *ShipmentRepo) GetForUpdate(ctx context.Context, id string) (*entity.Shipment, error) {
	return r.get(ctx, id, true)
}

func (r *ShipmentRepo) get(ctx context.Context, id string, lock bool) (*entity.Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	sh, err := scanShipment(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: shipment %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get shipment: %w", err)
	}
	sh.Units, err = r.units.ListByShipment(ctx, id)
	if err != nil {
		return nil, err
	}
	return sh, nil
}

func (r *ShipmentRepo) ListByOrder(ctx context.Context, orderID string) ([]*entity.Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE order_id = $1 ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list shipments: %w", err)
	}
	defer rows.Close()

	var out []*entity.Shipment
	for rows.Next() {
		sh, err := scanShipment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shipment: %w", err)
		}
		out = append(out, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, sh := range out {
		if sh.Units, err = r.units.ListByShipment(ctx, sh.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func scanShipment(row pgx.Row) (*entity.Shipment, error) {
	var sh entity.Shipment
	var state string
	err := row.Scan(
		&sh.ID, &sh.OrderID, &sh.StockLocationID, &sh.Number, &state, &sh.TrackingNumber,
		&sh.CostCents, &sh.PickedAt, &sh.PackedAt, &sh.ShippedAt, &sh.DeliveredAt, &sh.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	sh.State = entity.ShipmentState(state)
	return &sh, nil
}

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

var _ repository.StockItemRepository = (*StockItemRepo)(nil)

// StockItemRepo is the PostgreSQL adapter for stock rows, usable with pool
// or tx.
type StockItemRepo struct {
	q Querier
}

func NewStockItemRepository(q Querier) *StockItemRepo {
	return &StockItemRepo{q: q}
}

const stockItemColumns = `id, variant_id, stock_location_id, sku, quantity_on_hand, quantity_reserved, backorderable, backorder_limit, version, updated_at`

// Create inserts the row and its opening movements.
func (r *StockItemRepo) Create(ctx context.Context, item *entity.StockItem) error {
	query := `
		INSERT INTO stock_items (` + stockItemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		item.ID, item.VariantID, item.StockLocationID, item.Sku,
		item.QuantityOnHand, item.QuantityReserved, item.Backorderable, item.BackorderLimit,
		item.Version, item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create stock item: %w", err)
	}
	return r.insertMovements(ctx, item)
}

func (r *StockItemRepo) Get(ctx context.Context, id string) (*entity.StockItem, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate locks the row (SELECT FOR UPDATE) for a read-check-decrement
// sequence.
func (r *StockItemRepo) GetForUpdate(ctx context.Context, id string) (*entity.StockItem, error) {
	return r.get(ctx, id, true)
}

func (r *StockItemRepo) get(ctx context.Context, id string, lock bool) (*entity.StockItem, error) {
	query := `SELECT ` + stockItemColumns + ` FROM stock_items WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	item, err := scanStockItem(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: stock item %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get stock item: %w", err)
	}
	return item, nil
}

// FindForVariantForUpdate locks and returns every stock row of a variant,
// ordered by id so concurrent reservations lock in the same order.
func (r *StockItemRepo) FindForVariantForUpdate(ctx context.Context, variantID string) ([]*entity.StockItem, error) {
	query := `SELECT ` + stockItemColumns + ` FROM stock_items WHERE variant_id = $1 ORDER BY id FOR UPDATE`
	rows, err := r.q.Query(ctx, query, variantID)
	if err != nil {
		return nil, fmt.Errorf("find stock for variant: %w", err)
	}
	defer rows.Close()

	var items []*entity.StockItem
	for rows.Next() {
		item, err := scanStockItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *StockItemRepo) FindByVariantAndLocation(ctx context.Context, variantID, locationID string) (*entity.StockItem, error) {
	query := `SELECT ` + stockItemColumns + ` FROM stock_items WHERE variant_id = $1 AND stock_location_id = $2`
	item, err := scanStockItem(r.q.QueryRow(ctx, query, variantID, locationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: stock for variant %s at %s", domain.ErrNotFound, variantID, locationID)
		}
		return nil, fmt.Errorf("find stock by variant and location: %w", err)
	}
	return item, nil
}

// Save persists counters under the row lock and appends pending movements.
// The version still bumps so CAS readers notice the write.
func (r *StockItemRepo) Save(ctx context.Context, item *entity.StockItem) error {
	query := `
		UPDATE stock_items
		SET quantity_on_hand = $2, quantity_reserved = $3, backorderable = $4,
		    backorder_limit = $5, version = version + 1, updated_at = $6
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		item.ID, item.QuantityOnHand, item.QuantityReserved,
		item.Backorderable, item.BackorderLimit, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save stock item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: stock item %s", domain.ErrNotFound, item.ID)
	}
	item.Version++
	return r.insertMovements(ctx, item)
}

// SaveWithVersion compare-and-swaps on item.Version; a stale read surfaces
// as domain.ErrVersionConflict.
func (r *StockItemRepo) SaveWithVersion(ctx context.Context, item *entity.StockItem) error {
	query := `
		UPDATE stock_items
		SET quantity_on_hand = $2, quantity_reserved = $3, backorderable = $4,
		    backorder_limit = $5, version = version + 1, updated_at = $6
		WHERE id = $1 AND version = $7`
	tag, err := r.q.Exec(ctx, query,
		item.ID, item.QuantityOnHand, item.QuantityReserved,
		item.Backorderable, item.BackorderLimit, item.UpdatedAt, item.Version,
	)
	if err != nil {
		return fmt.Errorf("save stock item (cas): %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}
	item.Version++
	return r.insertMovements(ctx, item)
}

func (r *StockItemRepo) insertMovements(ctx context.Context, item *entity.StockItem) error {
	if len(item.Movements) == 0 {
		return nil
	}
	query := `
		INSERT INTO stock_movements (id, stock_item_id, type, quantity, balance_before, balance_after, unit_cost, reference, reason, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	for _, mv := range item.Movements {
		if _, err := r.q.Exec(ctx, query,
			mv.ID, mv.StockItemID, string(mv.Type), mv.Quantity,
			mv.BalanceBefore, mv.BalanceAfter, mv.UnitCost,
			nullable(mv.Reference), nullable(mv.Reason), mv.OccurredAt,
		); err != nil {
			return fmt.Errorf("insert stock movement: %w", err)
		}
	}
	item.Movements = nil
	return nil
}

func scanStockItem(row pgx.Row) (*entity.StockItem, error) {
	var s entity.StockItem
	err := row.Scan(
		&s.ID, &s.VariantID, &s.StockLocationID, &s.Sku,
		&s.QuantityOnHand, &s.QuantityReserved, &s.Backorderable, &s.BackorderLimit,
		&s.Version, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

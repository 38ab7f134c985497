package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
	"github.com/jhoicas/fulfillment-api/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo reads and appends ledger rows. There is deliberately no
// update or delete path.
type StockMovementRepo struct {
	q Querier
}

func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

const movementColumns = `id, stock_item_id, type, quantity, balance_before, balance_after, unit_cost, COALESCE(reference, ''), COALESCE(reason, ''), occurred_at`

func (r *StockMovementRepo) Create(ctx context.Context, mv *entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (id, stock_item_id, type, quantity, balance_before, balance_after, unit_cost, reference, reason, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		mv.ID, mv.StockItemID, string(mv.Type), mv.Quantity,
		mv.BalanceBefore, mv.BalanceAfter, mv.UnitCost,
		nullable(mv.Reference), nullable(mv.Reason), mv.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("create stock movement: %w", err)
	}
	return nil
}

// ListByStockItem returns one page of the ledger of one stock row, newest
// first.
func (r *StockMovementRepo) ListByStockItem(ctx context.Context, stockItemID string, limit, offset int) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE stock_item_id = $1 ORDER BY occurred_at DESC, id DESC LIMIT $2 OFFSET $3`
	return r.list(ctx, query, stockItemID, limit, offset)
}

// ListByReference returns every movement carrying a reference (an order id,
// a transfer tag), across stock items.
func (r *StockMovementRepo) ListByReference(ctx context.Context, reference string) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE reference = $1 ORDER BY occurred_at, id`
	return r.list(ctx, query, reference)
}

func (r *StockMovementRepo) list(ctx context.Context, query string, args ...any) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()

	var out []*entity.StockMovement
	for rows.Next() {
		mv, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		out = append(out, mv)
	}
	return out, rows.Err()
}

func scanMovement(row pgx.Row) (*entity.StockMovement, error) {
	var m entity.StockMovement
	var typ string
	err := row.Scan(
		&m.ID, &m.StockItemID, &typ, &m.Quantity,
		&m.BalanceBefore, &m.BalanceAfter, &m.UnitCost,
		&m.Reference, &m.Reason, &m.OccurredAt,
	)
	if err != nil {
		return nil, err
	}
	m.Type = entity.StockMovementType(typ)
	return &m, nil
}

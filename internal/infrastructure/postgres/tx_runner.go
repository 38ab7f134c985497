package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/fulfillment-api/internal/application/ports"
)

var _ ports.TxRunner = (*TxRunner)(nil)

// TxRunner executes callbacks inside one PostgreSQL transaction with every
// repository bound to that transaction.
type TxRunner struct {
	pool *pgxpool.Pool
}

func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run begins a transaction, runs fn with tx-bound repositories and commits,
// rolling back on any error.
func (r *TxRunner) Run(ctx context.Context, fn func(repos ports.Repos) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	repos := NewRepos(tx)
	if err := fn(repos); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// NewRepos builds the repository bundle over a pool or transaction.
func NewRepos(q Querier) ports.Repos {
	return ports.Repos{
		Orders:     NewOrderRepository(q),
		StockItems: NewStockItemRepository(q),
		Movements:  NewStockMovementRepository(q),
		Units:      NewInventoryUnitRepository(q),
		Locations:  NewStockLocationRepository(q),
		Payments:   NewPaymentRepository(q),
		Shipments:  NewShipmentRepository(q),
		Variants:   NewVariantRepository(q),
		Outbox:     NewOutboxRepository(q),
	}
}

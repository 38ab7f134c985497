package ports

import (
	"context"

	"github.com/jhoicas/fulfillment-api/internal/domain/repository"
)

// Repos bundles the repositories bound to one transaction.
type Repos struct {
	Orders     repository.OrderRepository
	StockItems repository.StockItemRepository
	Movements  repository.StockMovementRepository
	Units      repository.InventoryUnitRepository
	Locations  repository.StockLocationRepository
	Payments   repository.PaymentRepository
	Shipments  repository.ShipmentRepository
	Variants   repository.VariantRepository
	Outbox     repository.OutboxRepository
}

// TxRunner executes fn inside one database transaction, passing
// repositories bound to that transaction. The transaction commits when fn
// returns nil and rolls back entirely otherwise, including on context
// cancellation. No partial ledger state is ever persisted.
type TxRunner interface {
	Run(ctx context.Context, fn func(r Repos) error) error
}

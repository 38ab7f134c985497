package repository

import (
	"context"

	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
)

// OrderRepository is the persistence port for the order aggregate. Get and
// GetForUpdate load the full aggregate (line items, units, payments,
// shipments); Save upserts the order row and all children.
type OrderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	Get(ctx context.Context, id string) (*entity.Order, error)
	// GetForUpdate locks the order row so concurrent callbacks (payment
	// capture vs cancellation) serialize on the aggregate.
	GetForUpdate(ctx context.Context, id string) (*entity.Order, error)
	Save(ctx context.Context, order *entity.Order) error
}

package repository

import (
	"context"

	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
)

// ShipmentRepository persists shipments. Get loads the shipment with its
// assigned inventory units so transitions can flip them in one operation.
type ShipmentRepository interface {
	Create(ctx context.Context, shipment *entity.Shipment) error
	Get(ctx context.Context, id string) (*entity.Shipment, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Shipment, error)
	ListByOrder(ctx context.Context, orderID string) ([]*entity.Shipment, error)
	Save(ctx context.Context, shipment *entity.Shipment) error
}

package repository

import (
	"context"

	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
)

// VariantRepository reads the catalog projection this engine snapshots
// prices and names from. Catalog writes happen in another system.
type VariantRepository interface {
	Get(ctx context.Context, id string) (*entity.Variant, error)
}

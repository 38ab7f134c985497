package repository

import (
	"context"

	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
)

// StockItemRepository is the persistence port for per (variant, location)
// stock records.
type StockItemRepository interface {
	Create(ctx context.Context, item *entity.StockItem) error
	Get(ctx context.Context, id string) (*entity.StockItem, error)
	// GetForUpdate locks the row (SELECT FOR UPDATE) for the duration of a
	// read-check-decrement sequence.
	GetForUpdate(ctx context.Context, id string) (*entity.StockItem, error)
	// FindForVariantForUpdate locks and returns all stock rows of a
	// variant across locations.
	FindForVariantForUpdate(ctx context.Context, variantID string) ([]*entity.StockItem, error)
	FindByVariantAndLocation(ctx context.Context, variantID, locationID string) (*entity.StockItem, error)
	// Save persists counters and appends any pending movements.
	Save(ctx context.Context, item *entity.StockItem) error
	// SaveWithVersion is the optimistic variant: it compare-and-swaps on
	// item.Version and returns domain.ErrVersionConflict on a stale read.
	SaveWithVersion(ctx context.Context, item *entity.StockItem) error
}

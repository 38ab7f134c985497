package repository

import (
	"context"

	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
)

// StockLocationRepository reads the fulfillment network.
type StockLocationRepository interface {
	Get(ctx context.Context, id string) (*entity.StockLocation, error)
	// ListFulfillable returns active fulfillable locations ordered by the
	// allocation preference: default first, then ascending priority.
	ListFulfillable(ctx context.Context) ([]*entity.StockLocation, error)
}

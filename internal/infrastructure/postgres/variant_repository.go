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

var _ repository.VariantRepository = (*VariantRepo)(nil)

// VariantRepo reads the catalog projection.
type VariantRepo struct {
	q Querier
}

func NewVariantRepository(q Querier) *VariantRepo {
	return &VariantRepo{q: q}
}

func (r *VariantRepo) Get(ctx context.Context, id string) (*entity.Variant, error) {
	query := `SELECT id, product_name, sku, price_cents, currency FROM variants WHERE id = $1`
	var v entity.Variant
	err := r.q.QueryRow(ctx, query, id).Scan(&v.ID, &v.ProductName, &v.Sku, &v.PriceCents, &v.Currency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: variant %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get variant: %w", err)
	}
	return &v, nil
}

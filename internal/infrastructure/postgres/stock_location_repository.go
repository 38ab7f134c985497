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

var _ repository.StockLocationRepository = (*StockLocationRepo)(nil)

// StockLocationRepo reads warehouse locations.
type StockLocationRepo struct {
	q Querier
}

func NewStockLocationRepository(q Querier) *StockLocationRepo {
	return &StockLocationRepo{q: q}
}

const locationColumns = `id, name, code, "default", priority, active, fulfillable, created_at`

func (r *StockLocationRepo) Get(ctx context.Context, id string) (*entity.StockLocation, error) {
	query := `SELECT ` + locationColumns + ` FROM stock_locations WHERE id = $1`
	loc, err := scanLocation(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: stock location %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get stock location: %w", err)
	}
	return loc, nil
}

// ListFulfillable returns active, fulfillable locations in planning order.
func (r *StockLocationRepo) ListFulfillable(ctx context.Context) ([]*entity.StockLocation, error) {
	query := `SELECT ` + locationColumns + ` FROM stock_locations
		WHERE active AND fulfillable
		ORDER BY "default" DESC, priority, id`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list fulfillable locations: %w", err)
	}
	defer rows.Close()

	var out []*entity.StockLocation
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock location: %w", err)
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

func scanLocation(row pgx.Row) (*entity.StockLocation, error) {
	var l entity.StockLocation
	err := row.Scan(&l.ID, &l.Name, &l.Code, &l.Default, &l.Priority, &l.Active, &l.Fulfillable, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/fulfillment-api/internal/application/ports"
	"github.com/jhoicas/fulfillment-api/internal/domain"
	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
	"github.com/jhoicas/fulfillment-api/internal/domain/repository"
)

// StockItemService covers the administrative surface of stock rows:
// creation, backorder policy and ledger reads.
type StockItemService struct {
	tx         ports.TxRunner
	stockItems repository.StockItemRepository
	movements  repository.StockMovementRepository
	variants   repository.VariantRepository
	locations  repository.StockLocationRepository
}

func NewStockItemService(
	tx ports.TxRunner,
	stockItems repository.StockItemRepository,
	movements repository.StockMovementRepository,
	variants repository.VariantRepository,
	locations repository.StockLocationRepository,
) *StockItemService {
	return &StockItemService{
		tx:         tx,
		stockItems: stockItems,
		movements:  movements,
		variants:   variants,
		locations:  locations,
	}
}

// CreateStockItemInput seeds a new (variant, location) stock row.
type CreateStockItemInput struct {
	VariantID       string
	StockLocationID string
	Sku             string
	InitialQuantity int
	UnitCost        decimal.Decimal
	Backorderable   bool
	BackorderLimit  int
}

// Create validates the variant and location exist, rejects duplicates per
// (variant, location) and writes the row with its opening receipt.
func (s *StockItemService) Create(ctx context.Context, input CreateStockItemInput) (*entity.StockItem, error) {
	if _, err := s.variants.Get(ctx, input.VariantID); err != nil {
		return nil, err
	}
	if _, err := s.locations.Get(ctx, input.StockLocationID); err != nil {
		return nil, err
	}

	var created *entity.StockItem
	err := s.tx.Run(ctx, func(r ports.Repos) error {
		existing, err := r.StockItems.FindByVariantAndLocation(ctx, input.VariantID, input.StockLocationID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if existing != nil {
			return domain.ErrDuplicate
		}

		item, err := entity.NewStockItem(input.VariantID, input.StockLocationID, input.Sku, input.InitialQuantity, input.UnitCost, time.Now().UTC())
		if err != nil {
			return err
		}
		item.SetBackorderPolicy(input.Backorderable, input.BackorderLimit)

		if err := r.StockItems.Create(ctx, item); err != nil {
			return err
		}
		if err := r.Outbox.Append(ctx, item.Drain()); err != nil {
			return err
		}
		created = item
		return nil
	})
	return created, err
}

// Get returns one stock row.
func (s *StockItemService) Get(ctx context.Context, id string) (*entity.StockItem, error) {
	return s.stockItems.Get(ctx, id)
}

// movementPageSize caps one ledger read.
const movementPageSize = 100

// ListMovements returns the ledger of one stock row, newest first.
func (s *StockItemService) ListMovements(ctx context.Context, stockItemID string) ([]*entity.StockMovement, error) {
	if _, err := s.stockItems.Get(ctx, stockItemID); err != nil {
		return nil, err
	}
	return s.movements.ListByStockItem(ctx, stockItemID, movementPageSize, 0)
}

package inventory_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fulfillment-api/internal/application/apptest"
	"github.com/jhoicas/fulfillment-api/internal/application/inventory"
	"github.com/jhoicas/fulfillment-api/internal/domain"
	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
)

func newStockItemService(store *apptest.Store, tx *apptest.TxRunner) *inventory.StockItemService {
	r := store.Repos()
	return inventory.NewStockItemService(tx, r.StockItems, r.Movements, r.Variants, r.Locations)
}

func TestCreateStockItem_WritesRowWithOpeningReceipt(t *testing.T) {
	store, tx := newFixture(t)
	svc := newStockItemService(store, tx)

	created, err := svc.Create(context.Background(), inventory.CreateStockItemInput{
		VariantID:       fixtureVariant.ID,
		StockLocationID: "loc-main",
		Sku:             "TS-BLUE-M",
		InitialQuantity: 7,
		UnitCost:        decimal.NewFromInt(12),
		Backorderable:   true,
		BackorderLimit:  5,
	})
	require.NoError(t, err)

	saved := store.StockItem(created.ID)
	assert.Equal(t, 7, saved.QuantityOnHand)
	assert.Equal(t, 0, saved.QuantityReserved)
	assert.True(t, saved.Backorderable)
	assert.Equal(t, 5, saved.BackorderLimit)

	movements := store.Movements(created.ID)
	require.Len(t, movements, 1)
	assert.Equal(t, entity.MovementReceipt, movements[0].Type)
	assert.Equal(t, 7, movements[0].Quantity)
	assert.Equal(t, 0, movements[0].BalanceBefore)
	assert.Equal(t, 7, movements[0].BalanceAfter)
}

func TestCreateStockItem_RejectsDuplicateRow(t *testing.T) {
	store, tx := newFixture(t)
	seedStock(t, store, "stock-1", fixtureVariant.ID, "loc-main", 5)
	svc := newStockItemService(store, tx)

	_, err := svc.Create(context.Background(), inventory.CreateStockItemInput{
		VariantID:       fixtureVariant.ID,
		StockLocationID: "loc-main",
		Sku:             "TS-BLUE-M",
		InitialQuantity: 3,
	})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestCreateStockItem_UnknownVariantOrLocation(t *testing.T) {
	store, tx := newFixture(t)
	svc := newStockItemService(store, tx)

	_, err := svc.Create(context.Background(), inventory.CreateStockItemInput{
		VariantID:       "missing",
		StockLocationID: "loc-main",
		InitialQuantity: 1,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Create(context.Background(), inventory.CreateStockItemInput{
		VariantID:       fixtureVariant.ID,
		StockLocationID: "missing",
		InitialQuantity: 1,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListMovements_NewestFirst(t *testing.T) {
	store, tx := newFixture(t)
	item := seedStock(t, store, "stock-1", fixtureVariant.ID, "loc-main", 10)
	svc := newStockItemService(store, tx)

	adjuster := inventory.NewAdjustStockUseCase(tx)
	_, err := adjuster.Adjust(context.Background(), inventory.AdjustStockInput{
		StockItemID: item.ID,
		Delta:       -4,
		Type:        entity.MovementSale,
		Reason:      "manual sale",
	})
	require.NoError(t, err)
	_, err = adjuster.Adjust(context.Background(), inventory.AdjustStockInput{
		StockItemID: item.ID,
		Delta:       2,
		Type:        entity.MovementReturn,
		Reason:      "customer return",
	})
	require.NoError(t, err)

	movements, err := svc.ListMovements(context.Background(), item.ID)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, entity.MovementReturn, movements[0].Type)
	assert.Equal(t, entity.MovementSale, movements[1].Type)

	// Pagination cuts the same newest-first ordering.
	page, err := store.Repos().Movements.ListByStockItem(context.Background(), item.ID, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, entity.MovementSale, page[0].Type)

	_, err = svc.ListMovements(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

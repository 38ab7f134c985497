package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fulfillment-api/internal/application/apptest"
	"github.com/jhoicas/fulfillment-api/internal/application/inventory"
	"github.com/jhoicas/fulfillment-api/internal/domain"
	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
)

var fixtureNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

var fixtureVariant = &entity.Variant{
	ID:          "variant-1",
	ProductName: "Blue T-Shirt",
	Sku:         "TS-BLUE-M",
	PriceCents:  5000,
	Currency:    "USD",
}

func newFixture(t *testing.T) (*apptest.Store, *apptest.TxRunner) {
	t.Helper()
	store := apptest.NewStore()
	store.SeedVariant(fixtureVariant)
	store.SeedLocation(&entity.StockLocation{
		ID: "loc-main", Name: "Main Warehouse", Default: true, Active: true, Fulfillable: true,
	})
	return store, apptest.NewTxRunner(store)
}

func seedStock(t *testing.T, store *apptest.Store, id, variantID, locationID string, qty int) *entity.StockItem {
	t.Helper()
	item, err := entity.NewStockItem(variantID, locationID, "SKU-"+variantID, qty, decimal.NewFromInt(10), fixtureNow)
	require.NoError(t, err)
	item.ID = id
	store.SeedStockItem(item)
	return item
}

// seedDeliveryOrder walks a cart to the Delivery state with one line item.
func seedDeliveryOrder(t *testing.T, store *apptest.Store, quantity int) *entity.Order {
	t.Helper()
	o, err := entity.NewOrder("USD", "buyer@example.com", fixtureNow)
	require.NoError(t, err)
	_, err = o.AddVariant(fixtureVariant, quantity, fixtureNow, nil)
	require.NoError(t, err)
	require.NoError(t, o.Next(fixtureNow))
	require.NoError(t, o.SetAddresses("ship-1", "bill-1", fixtureNow))
	require.NoError(t, o.Next(fixtureNow))
	require.NoError(t, o.SetShippingMethod("standard", 500, fixtureNow))
	store.SeedOrder(o)
	return o
}

func TestReserve_AllocatesUnitsAndDecrementsStock(t *testing.T) {
	store, tx := newFixture(t)
	seedStock(t, store, "stock-1", fixtureVariant.ID, "loc-main", 5)
	order := seedDeliveryOrder(t, store, 3)

	svc := inventory.NewReservationService(tx)
	require.NoError(t, svc.Reserve(context.Background(), order.ID))

	stock := store.StockItem("stock-1")
	assert.Equal(t, 2, stock.QuantityOnHand)
	assert.Equal(t, 3, stock.QuantityReserved)

	units := store.UnitsByOrder(order.ID)
	require.Len(t, units, 3)
	for _, u := range units {
		assert.Equal(t, entity.UnitOnHand, u.State)
		assert.Equal(t, "stock-1", u.StockItemID)
		assert.Equal(t, "loc-main", u.StockLocationID)
	}

	movements := store.Movements("stock-1")
	require.Len(t, movements, 1)
	mv := movements[0]
	assert.Equal(t, entity.MovementReservation, mv.Type)
	assert.Equal(t, -3, mv.Quantity)
	assert.Equal(t, 5, mv.BalanceBefore)
	assert.Equal(t, 2, mv.BalanceAfter)
	assert.Equal(t, order.ID, mv.Reference)
}

func TestReserve_SecondCallIsNoOp(t *testing.T) {
	store, tx := newFixture(t)
	seedStock(t, store, "stock-1", fixtureVariant.ID, "loc-main", 5)
	order := seedDeliveryOrder(t, store, 3)

	svc := inventory.NewReservationService(tx)
	require.NoError(t, svc.Reserve(context.Background(), order.ID))
	require.NoError(t, svc.Reserve(context.Background(), order.ID))

	assert.Len(t, store.UnitsByOrder(order.ID), 3)
	assert.Equal(t, 2, store.StockItem("stock-1").QuantityOnHand)
}

// Five on the shelf: the first order takes three, the second order's four
// no longer fit and must not partially land.
func TestReserve_SecondOrderFindsShelfDepleted(t *testing.T) {
	store, tx := newFixture(t)
	seedStock(t, store, "stock-1", fixtureVariant.ID, "loc-main", 5)
	first := seedDeliveryOrder(t, store, 3)
	second := seedDeliveryOrder(t, store, 4)

	svc := inventory.NewReservationService(tx)
	require.NoError(t, svc.Reserve(context.Background(), first.ID))

	err := svc.Reserve(context.Background(), second.ID)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	stock := store.StockItem("stock-1")
	assert.Equal(t, 2, stock.QuantityOnHand)
	assert.Equal(t, 3, stock.QuantityReserved)
	assert.Empty(t, store.UnitsByOrder(second.ID))
}

func TestReserve_InsufficientStockLeavesNothingBehind(t *testing.T) {
	store, tx := newFixture(t)
	seedStock(t, store, "stock-1", fixtureVariant.ID, "loc-main", 2)
	order := seedDeliveryOrder(t, store, 5)

	svc := inventory.NewReservationService(tx)
	err := svc.Reserve(context.Background(), order.ID)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	assert.Equal(t, 2, store.StockItem("stock-1").QuantityOnHand)
	assert.Empty(t, store.UnitsByOrder(order.ID))
	assert.Empty(t, store.Movements("stock-1"))
}

func TestReserve_SplitsAcrossLocations(t *testing.T) {
	store, tx := newFixture(t)
	store.SeedLocation(&entity.StockLocation{
		ID: "loc-east", Name: "East Hub", Priority: 1, Active: true, Fulfillable: true,
	})
	seedStock(t, store, "stock-main", fixtureVariant.ID, "loc-main", 2)
	seedStock(t, store, "stock-east", fixtureVariant.ID, "loc-east", 4)
	order := seedDeliveryOrder(t, store, 5)

	svc := inventory.NewReservationService(tx)
	require.NoError(t, svc.Reserve(context.Background(), order.ID))

	assert.Equal(t, 0, store.StockItem("stock-main").QuantityOnHand)
	assert.Equal(t, 1, store.StockItem("stock-east").QuantityOnHand)

	byLocation := make(map[string]int)
	for _, u := range store.UnitsByOrder(order.ID) {
		byLocation[u.StockLocationID]++
	}
	assert.Equal(t, 2, byLocation["loc-main"])
	assert.Equal(t, 3, byLocation["loc-east"])
}

func TestReserve_BackordersWhenPolicyAllows(t *testing.T) {
	store, tx := newFixture(t)
	item, err := entity.NewStockItem(fixtureVariant.ID, "loc-main", "SKU-1", 2, decimal.Zero, fixtureNow)
	require.NoError(t, err)
	item.ID = "stock-1"
	item.SetBackorderPolicy(true, 10)
	store.SeedStockItem(item)
	order := seedDeliveryOrder(t, store, 5)

	svc := inventory.NewReservationService(tx)
	require.NoError(t, svc.Reserve(context.Background(), order.ID))

	stock := store.StockItem("stock-1")
	assert.Equal(t, -3, stock.QuantityOnHand)
	assert.Equal(t, 5, stock.QuantityReserved)

	states := make(map[entity.InventoryUnitState]int)
	for _, u := range store.UnitsByOrder(order.ID) {
		states[u.State]++
	}
	assert.Equal(t, 2, states[entity.UnitOnHand])
	assert.Equal(t, 3, states[entity.UnitBackordered])
}

func TestRelease_RestoresReservedStock(t *testing.T) {
	store, tx := newFixture(t)
	seedStock(t, store, "stock-1", fixtureVariant.ID, "loc-main", 5)
	order := seedDeliveryOrder(t, store, 3)

	svc := inventory.NewReservationService(tx)
	require.NoError(t, svc.Reserve(context.Background(), order.ID))
	require.NoError(t, svc.Release(context.Background(), order.ID))

	stock := store.StockItem("stock-1")
	assert.Equal(t, 5, stock.QuantityOnHand)
	assert.Equal(t, 0, stock.QuantityReserved)
	for _, u := range store.UnitsByOrder(order.ID) {
		assert.Equal(t, entity.UnitCanceled, u.State)
	}
}

// Two concurrent reservations against the same shelf must never oversell:
// one wins, one fails, the balance stays non-negative.
func TestReserve_ConcurrentOrdersDoNotOversell(t *testing.T) {
	store, tx := newFixture(t)
	seedStock(t, store, "stock-1", fixtureVariant.ID, "loc-main", 5)
	first := seedDeliveryOrder(t, store, 3)
	second := seedDeliveryOrder(t, store, 3)

	svc := inventory.NewReservationService(tx)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, id := range []string{first.ID, second.ID} {
		wg.Add(1)
		go func(i int, orderID string) {
			defer wg.Done()
			errs[i] = svc.Reserve(context.Background(), orderID)
		}(i, id)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, domain.ErrInsufficientStock)
			failures++
		}
	}
	assert.Equal(t, 1, failures)
	assert.Equal(t, 2, store.StockItem("stock-1").QuantityOnHand)
	total := len(store.UnitsByOrder(first.ID)) + len(store.UnitsByOrder(second.ID))
	assert.Equal(t, 3, total)
}

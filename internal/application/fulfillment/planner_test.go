package fulfillment

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fulfillment-api/internal/domain"
	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
)

var planNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testLocation(id string, def bool, priority int) *entity.StockLocation {
	return &entity.StockLocation{
		ID:          id,
		Name:        id,
		Default:     def,
		Priority:    priority,
		Active:      true,
		Fulfillable: true,
	}
}

func testStock(t *testing.T, id, variantID, locationID string, qty int) *entity.StockItem {
	t.Helper()
	s, err := entity.NewStockItem(variantID, locationID, "SKU-"+variantID, qty, decimal.Zero, planNow)
	require.NoError(t, err)
	s.ID = id
	return s
}

func TestBuildPlan_SingleLocationCoversAll(t *testing.T) {
	locations := []*entity.StockLocation{testLocation("main", true, 0)}
	stocks := []*entity.StockItem{testStock(t, "s1", "v1", "main", 10)}

	plan, err := BuildPlan(locations, stocks, []Demand{{VariantID: "v1", LineItemID: "l1", Quantity: 4}})
	require.NoError(t, err)

	require.Len(t, plan.Allocations, 1)
	a := plan.Allocations[0]
	assert.Equal(t, "s1", a.StockItem.ID)
	assert.Equal(t, 4, a.Quantity)
	assert.False(t, a.Backordered)
}

// The preferred shelf is emptied before the next location contributes.
func TestBuildPlan_SplitsAcrossLocations(t *testing.T) {
	locations := []*entity.StockLocation{
		testLocation("main", true, 0),
		testLocation("east", false, 1),
	}
	stocks := []*entity.StockItem{
		testStock(t, "s-main", "v1", "main", 3),
		testStock(t, "s-east", "v1", "east", 5),
	}

	plan, err := BuildPlan(locations, stocks, []Demand{{VariantID: "v1", LineItemID: "l1", Quantity: 5}})
	require.NoError(t, err)

	require.Len(t, plan.Allocations, 2)
	assert.Equal(t, "s-main", plan.Allocations[0].StockItem.ID)
	assert.Equal(t, 3, plan.Allocations[0].Quantity)
	assert.Equal(t, "s-east", plan.Allocations[1].StockItem.ID)
	assert.Equal(t, 2, plan.Allocations[1].Quantity)

	byLoc := plan.ByLocation()
	assert.Len(t, byLoc["main"], 1)
	assert.Len(t, byLoc["east"], 1)
}

func TestBuildPlan_BackordersAgainstDefaultLocation(t *testing.T) {
	locations := []*entity.StockLocation{
		testLocation("main", true, 0),
		testLocation("east", false, 1),
	}
	main := testStock(t, "s-main", "v1", "main", 2)
	main.SetBackorderPolicy(true, 10)
	stocks := []*entity.StockItem{
		main,
		testStock(t, "s-east", "v1", "east", 1),
	}

	plan, err := BuildPlan(locations, stocks, []Demand{{VariantID: "v1", LineItemID: "l1", Quantity: 6}})
	require.NoError(t, err)

	require.Len(t, plan.Allocations, 3)
	last := plan.Allocations[2]
	assert.True(t, last.Backordered)
	assert.Equal(t, "s-main", last.StockItem.ID)
	assert.Equal(t, 3, last.Quantity)
}

func TestBuildPlan_FailsWithoutBackorderableRow(t *testing.T) {
	locations := []*entity.StockLocation{testLocation("main", true, 0)}
	stocks := []*entity.StockItem{testStock(t, "s1", "v1", "main", 2)}

	_, err := BuildPlan(locations, stocks, []Demand{{VariantID: "v1", LineItemID: "l1", Quantity: 5}})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestBuildPlan_IgnoresNonFulfillableLocations(t *testing.T) {
	inactive := testLocation("closed", false, 0)
	inactive.Active = false
	display := testLocation("showroom", false, 0)
	display.Fulfillable = false
	locations := []*entity.StockLocation{inactive, display, testLocation("main", true, 1)}
	stocks := []*entity.StockItem{
		testStock(t, "s-closed", "v1", "closed", 100),
		testStock(t, "s-show", "v1", "showroom", 100),
		testStock(t, "s-main", "v1", "main", 5),
	}

	plan, err := BuildPlan(locations, stocks, []Demand{{VariantID: "v1", LineItemID: "l1", Quantity: 5}})
	require.NoError(t, err)
	require.Len(t, plan.Allocations, 1)
	assert.Equal(t, "s-main", plan.Allocations[0].StockItem.ID)
}

// Two demand lines of the same variant must not claim the same physical
// units twice.
func TestBuildPlan_NoDoubleClaimAcrossLines(t *testing.T) {
	locations := []*entity.StockLocation{testLocation("main", true, 0)}
	stocks := []*entity.StockItem{testStock(t, "s1", "v1", "main", 5)}

	demands := []Demand{
		{VariantID: "v1", LineItemID: "l1", Quantity: 3},
		{VariantID: "v1", LineItemID: "l2", Quantity: 2},
	}
	plan, err := BuildPlan(locations, stocks, demands)
	require.NoError(t, err)

	total := 0
	for _, a := range plan.Allocations {
		total += a.Quantity
		assert.False(t, a.Backordered)
	}
	assert.Equal(t, 5, total)

	// A third line exceeding the shelf fails outright.
	demands = append(demands, Demand{VariantID: "v1", LineItemID: "l3", Quantity: 1})
	_, err = BuildPlan(locations, stocks, demands)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestBuildPlan_Deterministic(t *testing.T) {
	locations := []*entity.StockLocation{
		testLocation("b-loc", false, 1),
		testLocation("a-loc", true, 0),
		testLocation("c-loc", false, 1),
	}
	stocks := []*entity.StockItem{
		testStock(t, "s3", "v1", "c-loc", 4),
		testStock(t, "s1", "v1", "a-loc", 2),
		testStock(t, "s2", "v1", "b-loc", 4),
	}
	demands := []Demand{{VariantID: "v1", LineItemID: "l1", Quantity: 8}}

	first, err := BuildPlan(locations, stocks, demands)
	require.NoError(t, err)
	second, err := BuildPlan(locations, stocks, demands)
	require.NoError(t, err)

	require.Equal(t, len(first.Allocations), len(second.Allocations))
	for i := range first.Allocations {
		assert.Equal(t, first.Allocations[i].StockItem.ID, second.Allocations[i].StockItem.ID)
		assert.Equal(t, first.Allocations[i].Quantity, second.Allocations[i].Quantity)
	}
	// Default location first, then the tied-priority pair broken by id.
	assert.Equal(t, "s1", first.Allocations[0].StockItem.ID)
	assert.Equal(t, "s2", first.Allocations[1].StockItem.ID)
	assert.Equal(t, "s3", first.Allocations[2].StockItem.ID)
}

func TestBuildPlan_EmptyDemandFails(t *testing.T) {
	locations := []*entity.StockLocation{testLocation("main", true, 0)}

	_, err := BuildPlan(locations, nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

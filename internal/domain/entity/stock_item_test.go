package entity

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fulfillment-api/internal/domain"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestStockItem(t *testing.T, qty int) *StockItem {
	t.Helper()
	s, err := NewStockItem("variant-1", "loc-1", "SKU-1", qty, decimal.NewFromInt(10), testNow)
	require.NoError(t, err)
	return s
}

// Every balance change must leave a movement whose before/delta/after
// triplet is consistent, starting with the opening receipt.
func TestNewStockItem_OpeningReceipt(t *testing.T) {
	s := newTestStockItem(t, 5)

	require.Len(t, s.Movements, 1)
	mv := s.Movements[0]
	assert.Equal(t, MovementReceipt, mv.Type)
	assert.Equal(t, 5, mv.Quantity)
	assert.Equal(t, 0, mv.BalanceBefore)
	assert.Equal(t, 5, mv.BalanceAfter)
	assert.Equal(t, 5, s.QuantityOnHand)
}

func TestAdjustStock_LedgerConsistency(t *testing.T) {
	s := newTestStockItem(t, 10)

	deltas := []struct {
		delta int
		typ   StockMovementType
	}{
		{-3, MovementSale},
		{7, MovementReceipt},
		{-2, MovementAdjustment},
	}
	for _, d := range deltas {
		_, err := s.AdjustStock(d.delta, d.typ, decimal.Zero, "test", "", testNow)
		require.NoError(t, err)
	}

	balance := 0
	for _, mv := range s.Movements {
		assert.Equal(t, balance, mv.BalanceBefore)
		assert.Equal(t, mv.BalanceBefore+mv.Quantity, mv.BalanceAfter)
		balance = mv.BalanceAfter
	}
	assert.Equal(t, balance, s.QuantityOnHand)
	assert.Equal(t, 12, s.QuantityOnHand)
}

func TestAdjustStock_RejectsNegativeWithoutBackorder(t *testing.T) {
	s := newTestStockItem(t, 2)

	_, err := s.AdjustStock(-3, MovementSale, decimal.Zero, "", "", testNow)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	// Failed adjustment must not mutate anything.
	assert.Equal(t, 2, s.QuantityOnHand)
	assert.Len(t, s.Movements, 1)
}

func TestAdjustStock_BackorderLimit(t *testing.T) {
	s := newTestStockItem(t, 2)
	s.SetBackorderPolicy(true, 5)

	_, err := s.AdjustStock(-6, MovementSale, decimal.Zero, "", "", testNow)
	require.NoError(t, err)
	assert.Equal(t, -4, s.QuantityOnHand)

	_, err = s.AdjustStock(-2, MovementSale, decimal.Zero, "", "", testNow)
	assert.ErrorIs(t, err, domain.ErrBackorderLimitExceeded)
	assert.Equal(t, -4, s.QuantityOnHand)
}

// Reserving 3 of 5 must write a single reservation movement {-3, 5, 2} and
// leave 3 promised units.
func TestReserve_DecrementsOnHand(t *testing.T) {
	s := newTestStockItem(t, 5)

	units, err := s.Reserve(3, "order-1", "line-1", "variant-1", testNow)
	require.NoError(t, err)

	require.Len(t, units, 3)
	for _, u := range units {
		assert.Equal(t, UnitOnHand, u.State)
		assert.Equal(t, s.ID, u.StockItemID)
	}
	assert.Equal(t, 2, s.QuantityOnHand)
	assert.Equal(t, 3, s.QuantityReserved)

	mv := s.Movements[len(s.Movements)-1]
	assert.Equal(t, MovementReservation, mv.Type)
	assert.Equal(t, -3, mv.Quantity)
	assert.Equal(t, 5, mv.BalanceBefore)
	assert.Equal(t, 2, mv.BalanceAfter)
	assert.Equal(t, "order-1", mv.Reference)
}

func TestReserve_SplitsIntoBackorder(t *testing.T) {
	s := newTestStockItem(t, 2)
	s.SetBackorderPolicy(true, 10)

	units, err := s.Reserve(5, "order-1", "line-1", "variant-1", testNow)
	require.NoError(t, err)

	onHand, backordered := 0, 0
	for _, u := range units {
		switch u.State {
		case UnitOnHand:
			onHand++
		case UnitBackordered:
			backordered++
		}
	}
	assert.Equal(t, 2, onHand)
	assert.Equal(t, 3, backordered)
	assert.Equal(t, -3, s.QuantityOnHand)
	assert.Equal(t, 5, s.QuantityReserved)
}

func TestReserve_FailsWhenNotBackorderable(t *testing.T) {
	s := newTestStockItem(t, 2)

	_, err := s.Reserve(5, "order-1", "line-1", "variant-1", testNow)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 2, s.QuantityOnHand)
	assert.Equal(t, 0, s.QuantityReserved)
	assert.Empty(t, s.Units)
}

func TestRelease_CompensatesReservation(t *testing.T) {
	s := newTestStockItem(t, 5)
	_, err := s.Reserve(3, "order-1", "line-1", "variant-1", testNow)
	require.NoError(t, err)

	require.NoError(t, s.Release(3, "order-1", testNow))
	assert.Equal(t, 5, s.QuantityOnHand)
	assert.Equal(t, 0, s.QuantityReserved)

	mv := s.Movements[len(s.Movements)-1]
	assert.Equal(t, MovementRelease, mv.Type)
	assert.Equal(t, 3, mv.Quantity)
}

func TestRelease_MoreThanReservedFails(t *testing.T) {
	s := newTestStockItem(t, 5)
	_, err := s.Reserve(2, "order-1", "line-1", "variant-1", testNow)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Release(3, "order-1", testNow), domain.ErrConflict)
}

// A receipt promotes waiting backorders oldest first; the promise count
// stays untouched.
func TestReceipt_PromotesBackorders(t *testing.T) {
	s := newTestStockItem(t, 1)
	s.SetBackorderPolicy(true, 10)

	units, err := s.Reserve(4, "order-1", "line-1", "variant-1", testNow)
	require.NoError(t, err)
	assert.Equal(t, -3, s.QuantityOnHand)

	_, err = s.AdjustStock(2, MovementReceipt, decimal.NewFromInt(10), "restock", "", testNow.Add(time.Hour))
	require.NoError(t, err)

	promoted := 0
	for _, u := range units {
		if u.State == UnitOnHand {
			promoted++
		}
	}
	// 1 allocated at reservation time plus 2 promoted by the receipt.
	assert.Equal(t, 3, promoted)
	assert.Equal(t, -1, s.QuantityOnHand)
	assert.Equal(t, 4, s.QuantityReserved)
}

func TestConsumeShipped_DropsReservedOnly(t *testing.T) {
	s := newTestStockItem(t, 5)
	_, err := s.Reserve(3, "order-1", "line-1", "variant-1", testNow)
	require.NoError(t, err)

	s.ConsumeShipped(3)
	assert.Equal(t, 0, s.QuantityReserved)
	// Shipping must not touch the balance again.
	assert.Equal(t, 2, s.QuantityOnHand)
}

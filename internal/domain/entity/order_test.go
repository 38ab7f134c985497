package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fulfillment-api/internal/domain"
)

var testVariant = &Variant{
	ID:          "variant-1",
	ProductName: "Blue T-Shirt",
	Sku:         "TS-BLUE-M",
	PriceCents:  5000,
	Currency:    "USD",
}

func newTestOrder(t *testing.T) *Order {
	t.Helper()
	o, err := NewOrder("usd", "Buyer@Example.com", testNow)
	require.NoError(t, err)
	return o
}

// allocateUnits gives every line item its full complement of on-hand units,
// the shape reservation leaves behind.
func allocateUnits(t *testing.T, o *Order) {
	t.Helper()
	for _, li := range o.LineItems {
		for i := 0; i < li.Quantity; i++ {
			u := NewInventoryUnit(o.ID, li.ID, li.VariantID, testNow)
			require.NoError(t, u.Allocate("stock-1", "loc-1"))
			li.Units = append(li.Units, u)
		}
	}
}

func TestNewOrder_NormalizesInput(t *testing.T) {
	o := newTestOrder(t)

	assert.Equal(t, OrderCart, o.State)
	assert.Equal(t, "USD", o.Currency)
	assert.Equal(t, "buyer@example.com", o.Email)
	assert.NotEmpty(t, o.Number)
	require.Len(t, o.History, 1)
}

func TestOrder_HappyPathToComplete(t *testing.T) {
	o := newTestOrder(t)

	_, err := o.AddVariant(testVariant, 2, testNow, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), o.TotalCents)

	require.NoError(t, o.Next(testNow)) // CART -> ADDRESS
	assert.Equal(t, OrderAddress, o.State)

	require.NoError(t, o.SetAddresses("ship-1", "bill-1", testNow))
	require.NoError(t, o.Next(testNow)) // ADDRESS -> DELIVERY

	require.NoError(t, o.SetShippingMethod("standard", 500, testNow))
	assert.Equal(t, int64(10500), o.TotalCents)
	require.NoError(t, o.Next(testNow)) // DELIVERY -> PAYMENT

	p, err := NewPayment(o.ID, o.TotalCents, o.Currency, "manual", testNow)
	require.NoError(t, err)
	require.NoError(t, o.AddPayment(p))
	require.NoError(t, p.MarkAsCaptured("tx-1", testNow))

	allocateUnits(t, o)

	require.NoError(t, o.Next(testNow)) // PAYMENT -> CONFIRM
	require.NoError(t, o.Next(testNow)) // CONFIRM -> COMPLETE

	assert.Equal(t, OrderComplete, o.State)
	require.NotNil(t, o.CompletedAt)
	for _, u := range o.Units() {
		assert.False(t, u.Pending)
	}
	// Every hop plus the cart initialization is in the history.
	assert.Len(t, o.History, 6)
}

func TestNext_GuardsBlockEachState(t *testing.T) {
	o := newTestOrder(t)

	// Empty cart cannot start checkout.
	assert.ErrorIs(t, o.Next(testNow), domain.ErrEmptyCart)

	_, err := o.AddVariant(testVariant, 1, testNow, nil)
	require.NoError(t, err)
	require.NoError(t, o.Next(testNow))

	// Addresses missing.
	assert.ErrorIs(t, o.Next(testNow), domain.ErrAddressMissing)
	require.NoError(t, o.SetAddresses("ship-1", "bill-1", testNow))
	require.NoError(t, o.Next(testNow))

	// Shipping method missing.
	assert.ErrorIs(t, o.Next(testNow), domain.ErrShippingMethodMissing)
	require.NoError(t, o.SetShippingMethod("standard", 0, testNow))
	require.NoError(t, o.Next(testNow))

	// Payment does not cover the total.
	assert.ErrorIs(t, o.Next(testNow), domain.ErrInsufficientPayment)
	assert.Equal(t, OrderPayment, o.State)
}

func TestNext_ConfirmRequiresFullAllocation(t *testing.T) {
	o := newTestOrder(t)
	_, err := o.AddVariant(testVariant, 2, testNow, nil)
	require.NoError(t, err)
	require.NoError(t, o.SetAddresses("ship-1", "bill-1", testNow))
	require.NoError(t, o.SetShippingMethod("standard", 0, testNow))
	o.State = OrderConfirm

	// No units were reserved for the lines.
	assert.ErrorIs(t, o.Next(testNow), domain.ErrIncompleteAllocation)
	assert.Equal(t, OrderConfirm, o.State)
}

func TestNext_FromCompleteFails(t *testing.T) {
	o := newTestOrder(t)
	o.State = OrderComplete

	err := o.Next(testNow)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

// Two partial payments together cover the total.
func TestPaidTotal_SumsCompletedPayments(t *testing.T) {
	o := newTestOrder(t)
	_, err := o.AddVariant(testVariant, 2, testNow, nil)
	require.NoError(t, err)
	// Total 10000: 6000 captured, 4000 still pending.
	p1, err := NewPayment(o.ID, 6000, "USD", "manual", testNow)
	require.NoError(t, err)
	p2, err := NewPayment(o.ID, 4000, "USD", "manual", testNow)
	require.NoError(t, err)
	require.NoError(t, o.AddPayment(p1))
	require.NoError(t, o.AddPayment(p2))

	require.NoError(t, p1.MarkAsCaptured("tx-1", testNow))
	assert.Equal(t, int64(6000), o.PaidTotalCents())

	require.NoError(t, p2.MarkAsCaptured("tx-2", testNow))
	assert.Equal(t, int64(10000), o.PaidTotalCents())
}

func TestCapturePayment_IdempotentOnRetriedWebhook(t *testing.T) {
	o := newTestOrder(t)
	p, err := NewPayment(o.ID, 5000, "USD", "manual", testNow)
	require.NoError(t, err)
	require.NoError(t, o.AddPayment(p))

	require.NoError(t, o.CapturePayment(p.ID, "tx-1", testNow))
	require.NoError(t, o.CapturePayment(p.ID, "tx-1", testNow))
	assert.Equal(t, PaymentCompleted, p.State)
	assert.Equal(t, int64(5000), o.PaidTotalCents())

	assert.ErrorIs(t, o.CapturePayment("missing", "tx-2", testNow), domain.ErrPaymentNotFound)
}

func TestCancel_BeforeCompleteIsLegal(t *testing.T) {
	o := newTestOrder(t)
	_, err := o.AddVariant(testVariant, 1, testNow, nil)
	require.NoError(t, err)
	allocateUnits(t, o)

	require.NoError(t, o.Cancel("customer changed mind", testNow))
	assert.Equal(t, OrderCanceled, o.State)
	require.NotNil(t, o.CanceledAt)
	for _, u := range o.Units() {
		assert.Equal(t, UnitCanceled, u.State)
	}

	// Cancel again is a no-op.
	require.NoError(t, o.Cancel("again", testNow))
}

func TestCancel_CompletedOrderFails(t *testing.T) {
	o := newTestOrder(t)
	o.State = OrderComplete

	assert.ErrorIs(t, o.Cancel("too late", testNow), domain.ErrCannotCancelCompleted)
}

// A returned order is closed; it cannot flip into Canceled afterwards.
func TestCancel_ReturnedOrderFails(t *testing.T) {
	o := newTestOrder(t)
	_, err := o.AddVariant(testVariant, 1, testNow, nil)
	require.NoError(t, err)
	allocateUnits(t, o)
	o.State = OrderComplete
	for _, u := range o.Units() {
		require.NoError(t, u.Ship("shipment-1"))
	}
	require.NoError(t, o.Return("damaged", testNow))

	assert.ErrorIs(t, o.Cancel("too late", testNow), domain.ErrCannotCancelCompleted)
	assert.Equal(t, OrderReturned, o.State)
	for _, u := range o.Units() {
		assert.Equal(t, UnitReturned, u.State)
	}
}

func TestReturn_OnlyFromComplete(t *testing.T) {
	o := newTestOrder(t)
	_, err := o.AddVariant(testVariant, 1, testNow, nil)
	require.NoError(t, err)
	allocateUnits(t, o)

	assert.ErrorIs(t, o.Return("damaged", testNow), domain.ErrConflict)

	o.State = OrderComplete
	for _, u := range o.Units() {
		require.NoError(t, u.Ship("shipment-1"))
	}
	require.NoError(t, o.Return("damaged", testNow))
	assert.Equal(t, OrderReturned, o.State)
	for _, u := range o.Units() {
		assert.Equal(t, UnitReturned, u.State)
	}
}

func TestRecalculateTotals_HoldsInvariant(t *testing.T) {
	o := newTestOrder(t)
	_, err := o.AddVariant(testVariant, 2, testNow, nil)
	require.NoError(t, err)
	require.NoError(t, o.SetShippingMethod("standard", 500, testNow))

	o.AddAdjustment(NewOrderAdjustment(o.ID, "WELCOME10", -1000, testNow))

	assert.Equal(t, int64(10000), o.ItemTotalCents)
	assert.Equal(t, int64(-1000), o.AdjustmentTotalCents)
	assert.Equal(t, o.ItemTotalCents+o.ShipmentTotalCents+o.AdjustmentTotalCents, o.TotalCents)
	assert.Equal(t, int64(9500), o.TotalCents)
}

func TestRecalculateTotals_FlooredAtZero(t *testing.T) {
	o := newTestOrder(t)
	_, err := o.AddVariant(testVariant, 1, testNow, nil)
	require.NoError(t, err)

	o.AddAdjustment(NewOrderAdjustment(o.ID, "FULL_COMP", -99999, testNow))
	assert.Equal(t, int64(0), o.TotalCents)
}

func TestAddVariant_MergesSameVariant(t *testing.T) {
	o := newTestOrder(t)
	_, err := o.AddVariant(testVariant, 1, testNow, nil)
	require.NoError(t, err)
	_, err = o.AddVariant(testVariant, 2, testNow, nil)
	require.NoError(t, err)

	require.Len(t, o.LineItems, 1)
	assert.Equal(t, 3, o.LineItems[0].Quantity)
	assert.Equal(t, int64(15000), o.TotalCents)
}

func TestAddVariant_PriceOverride(t *testing.T) {
	o := newTestOrder(t)
	override := int64(4200)
	li, err := o.AddVariant(testVariant, 1, testNow, &override)
	require.NoError(t, err)

	assert.Equal(t, int64(4200), li.PriceCents)
	assert.Equal(t, int64(4200), o.TotalCents)
	// The override leaves an audit trail entry.
	assert.Greater(t, len(o.History), 1)
}

func TestAddVariant_AfterDeliveryFails(t *testing.T) {
	o := newTestOrder(t)
	o.State = OrderPayment

	_, err := o.AddVariant(testVariant, 1, testNow, nil)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

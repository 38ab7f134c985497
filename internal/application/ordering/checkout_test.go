package ordering_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fulfillment-api/internal/application/inventory"
	"github.com/jhoicas/fulfillment-api/internal/application/ordering"
	"github.com/jhoicas/fulfillment-api/internal/application/payment"
	"github.com/jhoicas/fulfillment-api/internal/domain"
	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
)

func TestPlace_ReservesCutsShipmentAndAuthorizes(t *testing.T) {
	store, tx := newFixture(t)
	seedStock(t, store, "stock-1", 5)
	order := seedDeliveryOrder(t, store, 3, 500)

	proc := &stubProcessor{}
	registry, settings := newRegistry(proc)
	uc := ordering.NewPlaceOrderUseCase(tx, inventory.NewReservationService(tx), registry, settings)

	placed, err := uc.Place(context.Background(), ordering.PlaceInput{
		OrderID: order.ID,
		Method:  payment.MethodManual,
	})
	require.NoError(t, err)

	assert.Equal(t, entity.OrderPayment, placed.State)

	// Stock moved and units exist.
	assert.Equal(t, 2, store.StockItem("stock-1").QuantityOnHand)
	units := store.UnitsByOrder(order.ID)
	require.Len(t, units, 3)

	// One ready shipment from the only location, holding every unit.
	saved := store.Order(order.ID)
	require.Len(t, saved.Shipments, 1)
	sh := saved.Shipments[0]
	assert.Equal(t, entity.ShipmentReady, sh.State)
	assert.Len(t, sh.Units, 3)
	for _, u := range units {
		assert.Equal(t, sh.ID, u.ShipmentID)
	}

	// The manual gateway authorizes without capturing.
	require.Len(t, saved.Payments, 1)
	pay := saved.Payments[0]
	assert.Equal(t, entity.PaymentAuthorized, pay.State)
	assert.Equal(t, int64(15500), pay.AmountCents)
	assert.NotEmpty(t, pay.ReferenceTransactionID)
}

func TestPlace_ImmediateCaptureCompletesOrder(t *testing.T) {
	store, tx := newFixture(t)
	seedStock(t, store, "stock-1", 5)
	order := seedDeliveryOrder(t, store, 2, 0)

	registry, settings := newRegistry(&stubProcessor{captureOnAuth: true})
	uc := ordering.NewPlaceOrderUseCase(tx, inventory.NewReservationService(tx), registry, settings)

	placed, err := uc.Place(context.Background(), ordering.PlaceInput{
		OrderID: order.ID,
		Method:  payment.MethodManual,
	})
	require.NoError(t, err)

	assert.Equal(t, entity.OrderComplete, placed.State)
	assert.Equal(t, int64(10000), placed.PaidTotalCents())

	saved := store.Order(order.ID)
	assert.Equal(t, entity.OrderComplete, saved.State)
	for _, u := range store.UnitsByOrder(order.ID) {
		assert.False(t, u.Pending)
	}
}

// A gateway decline rolls the whole placement back: no reservation, no
// shipment, no payment, order still in Delivery.
func TestPlace_GatewayDeclineRollsEverythingBack(t *testing.T) {
	store, tx := newFixture(t)
	seedStock(t, store, "stock-1", 5)
	order := seedDeliveryOrder(t, store, 3, 500)

	registry, settings := newRegistry(&stubProcessor{processErr: domain.ErrGatewayUnavailable})
	uc := ordering.NewPlaceOrderUseCase(tx, inventory.NewReservationService(tx), registry, settings)

	_, err := uc.Place(context.Background(), ordering.PlaceInput{
		OrderID: order.ID,
		Method:  payment.MethodManual,
	})
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)

	assert.Equal(t, 5, store.StockItem("stock-1").QuantityOnHand)
	assert.Empty(t, store.UnitsByOrder(order.ID))

	saved := store.Order(order.ID)
	assert.Equal(t, entity.OrderDelivery, saved.State)
	assert.Empty(t, saved.Payments)
	assert.Empty(t, saved.Shipments)
}

func TestPlace_InsufficientStockRollsBack(t *testing.T) {
	store, tx := newFixture(t)
	seedStock(t, store, "stock-1", 1)
	order := seedDeliveryOrder(t, store, 3, 0)

	registry, settings := newRegistry(&stubProcessor{})
	uc := ordering.NewPlaceOrderUseCase(tx, inventory.NewReservationService(tx), registry, settings)

	_, err := uc.Place(context.Background(), ordering.PlaceInput{
		OrderID: order.ID,
		Method:  payment.MethodManual,
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 1, store.StockItem("stock-1").QuantityOnHand)
	assert.Equal(t, entity.OrderDelivery, store.Order(order.ID).State)
}

func TestPlace_RequiresDeliveryState(t *testing.T) {
	store, tx := newFixture(t)
	o, err := entity.NewOrder("USD", "buyer@example.com", fixtureNow)
	require.NoError(t, err)
	store.SeedOrder(o)

	registry, settings := newRegistry(&stubProcessor{})
	uc := ordering.NewPlaceOrderUseCase(tx, inventory.NewReservationService(tx), registry, settings)

	_, err = uc.Place(context.Background(), ordering.PlaceInput{OrderID: o.ID, Method: payment.MethodManual})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestPlace_UnknownMethodFails(t *testing.T) {
	_, tx := newFixture(t)
	registry, settings := newRegistry(&stubProcessor{})
	uc := ordering.NewPlaceOrderUseCase(tx, inventory.NewReservationService(tx), registry, settings)

	_, err := uc.Place(context.Background(), ordering.PlaceInput{
		OrderID: "order-1",
		Method:  payment.MethodType("crypto"),
	})
	assert.ErrorIs(t, err, domain.ErrProcessorNotFound)
}

// A stale payment attempt left on the order is voided before the new one is
// opened.
func TestPlace_VoidsStalePaymentAttempt(t *testing.T) {
	store, tx := newFixture(t)
	seedStock(t, store, "stock-1", 5)
	order := seedDeliveryOrder(t, store, 1, 0)

	stale, err := entity.NewPayment(order.ID, 5000, "USD", string(payment.MethodManual), fixtureNow)
	require.NoError(t, err)
	require.NoError(t, order.AddPayment(stale))
	store.SeedOrder(order)

	registry, settings := newRegistry(&stubProcessor{})
	uc := ordering.NewPlaceOrderUseCase(tx, inventory.NewReservationService(tx), registry, settings)

	placed, err := uc.Place(context.Background(), ordering.PlaceInput{
		OrderID: order.ID,
		Method:  payment.MethodManual,
	})
	require.NoError(t, err)

	states := make(map[entity.PaymentState]int)
	for _, p := range placed.Payments {
		states[p.State]++
	}
	assert.Equal(t, 1, states[entity.PaymentVoid])
	assert.Equal(t, 1, states[entity.PaymentAuthorized])
	assert.Equal(t, entity.PaymentVoid, store.Payment(stale.ID).State)
}

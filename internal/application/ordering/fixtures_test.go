package ordering_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fulfillment-api/internal/application/apptest"
	"github.com/jhoicas/fulfillment-api/internal/application/payment"
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

func seedStock(t *testing.T, store *apptest.Store, id string, qty int) {
	t.Helper()
	item, err := entity.NewStockItem(fixtureVariant.ID, "loc-main", fixtureVariant.Sku, qty, decimal.NewFromInt(10), fixtureNow)
	require.NoError(t, err)
	item.ID = id
	store.SeedStockItem(item)
}

// seedDeliveryOrder walks a cart to the Delivery state: line item, addresses,
// shipping method.
func seedDeliveryOrder(t *testing.T, store *apptest.Store, quantity int, shippingCents int64) *entity.Order {
	t.Helper()
	o, err := entity.NewOrder("USD", "buyer@example.com", fixtureNow)
	require.NoError(t, err)
	_, err = o.AddVariant(fixtureVariant, quantity, fixtureNow, nil)
	require.NoError(t, err)
	require.NoError(t, o.Next(fixtureNow))
	require.NoError(t, o.SetAddresses("ship-1", "bill-1", fixtureNow))
	require.NoError(t, o.Next(fixtureNow))
	require.NoError(t, o.SetShippingMethod("standard", shippingCents, fixtureNow))
	store.SeedOrder(o)
	return o
}

// stubProcessor is a scriptable gateway for placement and refund tests.
type stubProcessor struct {
	captureOnAuth bool
	processErr    error
	refundErr     error
	refunded      []int64
}

func (p *stubProcessor) Process(_ context.Context, _ payment.Settings, pay *entity.Payment, _ int64, _ string) (payment.Authorization, error) {
	if p.processErr != nil {
		return payment.Authorization{}, p.processErr
	}
	return payment.Authorization{TransactionID: "tx-" + pay.ID[:8], Captured: p.captureOnAuth}, nil
}

func (p *stubProcessor) Refund(_ context.Context, _ payment.Settings, _ *entity.Payment, amountCents int64) error {
	if p.refundErr != nil {
		return p.refundErr
	}
	p.refunded = append(p.refunded, amountCents)
	return nil
}

func (p *stubProcessor) ProcessWebhook(_ context.Context, _ payment.Settings, _ []byte, _ string) (payment.WebhookEvent, error) {
	return payment.WebhookEvent{}, nil
}

func newRegistry(proc payment.Processor) (*payment.Registry, payment.Settings) {
	registry := payment.NewRegistry()
	registry.Register(payment.MethodManual, proc)
	return registry, payment.Settings{}
}

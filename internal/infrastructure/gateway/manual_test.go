package gateway_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fulfillment-api/internal/application/payment"
	"github.com/jhoicas/fulfillment-api/internal/domain"
	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
	"github.com/jhoicas/fulfillment-api/internal/infrastructure/gateway"
)

const testSecret = "super-secret"

func testSettings() payment.Settings {
	return payment.Settings{gateway.SettingWebhookSecret: testSecret}
}

func TestProcess_AuthorizesWithoutCapture(t *testing.T) {
	proc := gateway.NewManualProcessor()

	auth, err := proc.Process(context.Background(), testSettings(), nil, 10000, "USD")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(auth.TransactionID, "man_"))
	assert.False(t, auth.Captured)

	_, err = proc.Process(context.Background(), testSettings(), nil, 0, "USD")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRefund_GuardsBalance(t *testing.T) {
	proc := gateway.NewManualProcessor()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	p, err := entity.NewPayment("order-1", 10000, "USD", "manual", now)
	require.NoError(t, err)
	require.NoError(t, p.MarkAsCaptured("tx-1", now))

	assert.NoError(t, proc.Refund(context.Background(), testSettings(), p, 4000))
	assert.ErrorIs(t, proc.Refund(context.Background(), testSettings(), p, 10001), domain.ErrRefundExceedsBalance)
	assert.ErrorIs(t, proc.Refund(context.Background(), testSettings(), p, 0), domain.ErrRefundExceedsBalance)
}

func TestProcessWebhook_VerifiesSignature(t *testing.T) {
	proc := gateway.NewManualProcessor()
	payload := []byte(`{"type":"captured","transaction_id":"man_abc","amount_cents":10000}`)

	ev, err := proc.ProcessWebhook(context.Background(), testSettings(), payload, gateway.Sign(testSecret, payload))
	require.NoError(t, err)

	assert.Equal(t, payment.WebhookCaptured, ev.Type)
	assert.Equal(t, "man_abc", ev.TransactionID)
	assert.Equal(t, int64(10000), ev.AmountCents)
}

func TestProcessWebhook_RejectsBadSignature(t *testing.T) {
	proc := gateway.NewManualProcessor()
	payload := []byte(`{"type":"captured","transaction_id":"man_abc"}`)

	cases := []string{
		gateway.Sign("wrong-secret", payload),
		gateway.Sign(testSecret, []byte(`tampered`)),
		"not-even-hex!",
		"",
	}
	for _, sig := range cases {
		_, err := proc.ProcessWebhook(context.Background(), testSettings(), payload, sig)
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	}
}

func TestProcessWebhook_RequiresConfiguredSecret(t *testing.T) {
	proc := gateway.NewManualProcessor()
	payload := []byte(`{}`)

	_, err := proc.ProcessWebhook(context.Background(), payment.Settings{}, payload, gateway.Sign(testSecret, payload))
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
}

func TestProcessWebhook_MalformedPayload(t *testing.T) {
	proc := gateway.NewManualProcessor()
	payload := []byte(`{not json`)

	_, err := proc.ProcessWebhook(context.Background(), testSettings(), payload, gateway.Sign(testSecret, payload))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

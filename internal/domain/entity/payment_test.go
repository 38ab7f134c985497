package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fulfillment-api/internal/domain"
)

func newTestPayment(t *testing.T) *Payment {
	t.Helper()
	p, err := NewPayment("order-1", 10000, "usd", "manual", testNow)
	require.NoError(t, err)
	return p
}

func TestNewPayment_Validation(t *testing.T) {
	_, err := NewPayment("order-1", 0, "USD", "manual", testNow)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewPayment("order-1", 100, "", "manual", testNow)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	p := newTestPayment(t)
	assert.Equal(t, PaymentPending, p.State)
	assert.Equal(t, "USD", p.Currency)
}

func TestAuthorize_Idempotent(t *testing.T) {
	p := newTestPayment(t)

	require.NoError(t, p.MarkAsAuthorized("tx-1", testNow))
	assert.Equal(t, PaymentAuthorized, p.State)
	assert.Equal(t, "tx-1", p.ReferenceTransactionID)

	require.NoError(t, p.MarkAsAuthorized("tx-1", testNow))
	assert.Equal(t, PaymentAuthorized, p.State)
}

func TestCapture_RequiresTransactionID(t *testing.T) {
	p := newTestPayment(t)

	assert.ErrorIs(t, p.MarkAsCaptured("", testNow), domain.ErrTransactionRequired)
	assert.Equal(t, PaymentPending, p.State)

	require.NoError(t, p.MarkAsCaptured("tx-1", testNow))
	assert.Equal(t, PaymentCompleted, p.State)
	require.NotNil(t, p.CapturedAt)

	// Retried capture callback is a no-op.
	require.NoError(t, p.MarkAsCaptured("tx-1", testNow))
}

func TestCapture_FromAuthorizedKeepsTransaction(t *testing.T) {
	p := newTestPayment(t)
	require.NoError(t, p.MarkAsAuthorized("tx-1", testNow))

	require.NoError(t, p.MarkAsCaptured("", testNow))
	assert.Equal(t, PaymentCompleted, p.State)
	assert.Equal(t, "tx-1", p.ReferenceTransactionID)
}

func TestVoid_CapturedPaymentFails(t *testing.T) {
	p := newTestPayment(t)
	require.NoError(t, p.MarkAsCaptured("tx-1", testNow))

	assert.ErrorIs(t, p.Void(testNow), domain.ErrCannotVoidCaptured)
	assert.Equal(t, PaymentCompleted, p.State)
}

func TestVoid_PendingAndAuthorized(t *testing.T) {
	p := newTestPayment(t)
	require.NoError(t, p.Void(testNow))
	assert.Equal(t, PaymentVoid, p.State)
	// Idempotent.
	require.NoError(t, p.Void(testNow))

	p2 := newTestPayment(t)
	require.NoError(t, p2.MarkAsAuthorized("tx-1", testNow))
	require.NoError(t, p2.Void(testNow))
	assert.Equal(t, PaymentVoid, p2.State)
}

// Partial refunds accumulate; only a full refund flips the state.
func TestRefund_Accumulates(t *testing.T) {
	p := newTestPayment(t)
	require.NoError(t, p.MarkAsCaptured("tx-1", testNow))

	require.NoError(t, p.Refund(3000, "damaged item"))
	assert.Equal(t, PaymentCompleted, p.State)
	assert.Equal(t, int64(7000), p.RemainingBalanceCents())

	require.NoError(t, p.Refund(7000, "order canceled"))
	assert.Equal(t, PaymentRefunded, p.State)
	assert.Equal(t, int64(0), p.RemainingBalanceCents())
}

func TestRefund_ExceedsBalance(t *testing.T) {
	p := newTestPayment(t)
	require.NoError(t, p.MarkAsCaptured("tx-1", testNow))
	require.NoError(t, p.Refund(9000, "partial"))

	err := p.Refund(2000, "too much")
	assert.ErrorIs(t, err, domain.ErrRefundExceedsBalance)
	assert.Equal(t, int64(9000), p.RefundedAmountCents)
}

func TestRefund_UncapturedPaymentFails(t *testing.T) {
	p := newTestPayment(t)

	assert.ErrorIs(t, p.Refund(1000, "nope"), domain.ErrConflict)
}

func TestMarkAsFailed_RecordsReason(t *testing.T) {
	p := newTestPayment(t)

	require.NoError(t, p.MarkAsFailed("card declined"))
	assert.Equal(t, PaymentFailed, p.State)
	assert.Equal(t, "card declined", p.FailureReason)
}

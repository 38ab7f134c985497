package ordering

import (
	"context"
	"time"

	"github.com/jhoicas/fulfillment-api/internal/application/ports"
)

// CapturePaymentUseCase applies gateway capture confirmations to an order
// and auto-advances it while guards pass: a capture that covers the total
// carries the order from Payment through Confirm to Complete in one
// transaction. Replayed confirmations for the same transaction are no-ops.
type CapturePaymentUseCase struct {
	tx ports.TxRunner
}

func NewCapturePaymentUseCase(tx ports.TxRunner) *CapturePaymentUseCase {
	return &CapturePaymentUseCase{tx: tx}
}

// Capture completes the named payment of an order.
func (uc *CapturePaymentUseCase) Capture(ctx context.Context, orderID, paymentID, transactionID string) error {
	return uc.tx.Run(ctx, func(r ports.Repos) error {
		return uc.captureTx(ctx, r, orderID, paymentID, transactionID)
	})
}

// CaptureByTransaction resolves the payment from the gateway transaction
// id, the form webhooks arrive in.
func (uc *CapturePaymentUseCase) CaptureByTransaction(ctx context.Context, transactionID string) error {
	return uc.tx.Run(ctx, func(r ports.Repos) error {
		p, err := r.Payments.GetByTransactionID(ctx, transactionID)
		if err != nil {
			return err
		}
		return uc.captureTx(ctx, r, p.OrderID, p.ID, transactionID)
	})
}

func (uc *CapturePaymentUseCase) captureTx(ctx context.Context, r ports.Repos, orderID, paymentID, transactionID string) error {
	order, err := r.Orders.GetForUpdate(ctx, orderID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := order.CapturePayment(paymentID, transactionID, now); err != nil {
		return err
	}
	if err := advanceAfterCapture(order, now); err != nil {
		return err
	}

	if err := r.Orders.Save(ctx, order); err != nil {
		return err
	}
	return appendAggregateEvents(ctx, r, order)
}

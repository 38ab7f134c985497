package repository

import (
	"context"

	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
)

// PaymentRepository persists payment transactions. Payments are also
// reachable through the order aggregate; this port serves flows addressed
// by payment id (refunds, webhooks).
type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	Get(ctx context.Context, id string) (*entity.Payment, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*entity.Payment, error)
	Save(ctx context.Context, payment *entity.Payment) error
}

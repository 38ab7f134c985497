package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/fulfillment-api/internal/domain"
	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
	"github.com/jhoicas/fulfillment-api/internal/domain/repository"
)

var _ repository.PaymentRepository = (*PaymentRepo)(nil)

// PaymentRepo persists payment transactions.
type PaymentRepo struct {
	q Querier
}

func NewPaymentRepository(q Querier) *PaymentRepo {
	return &PaymentRepo{q: q}
}

const paymentColumns = `id, order_id, amount_cents, currency, state, method_type, COALESCE(reference_transaction_id, ''), refunded_amount_cents, COALESCE(failure_reason, ''), COALESCE(idempotency_key, ''), authorized_at, captured_at, voided_at, created_at`

func (r *PaymentRepo) Create(ctx context.Context, p *entity.Payment) error {
	query := `
		INSERT INTO payments (id, order_id, amount_cents, currency, state, method_type, reference_transaction_id, refunded_amount_cents, failure_reason, idempotency_key, authorized_at, captured_at, voided_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			reference_transaction_id = EXCLUDED.reference_transaction_id,
			refunded_amount_cents = EXCLUDED.refunded_amount_cents,
			failure_reason = EXCLUDED.failure_reason,
			authorized_at = EXCLUDED.authorized_at,
			captured_at = EXCLUDED.captured_at,
			voided_at = EXCLUDED.voided_at`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.OrderID, p.AmountCents, p.Currency, string(p.State), p.MethodType,
		nullable(p.ReferenceTransactionID), p.RefundedAmountCents,
		nullable(p.FailureReason), nullable(p.IdempotencyKey),
		p.AuthorizedAt, p.CapturedAt, p.VoidedAt, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save payment: %w", err)
	}
	return nil
}

func (r *PaymentRepo) Save(ctx context.Context, p *entity.Payment) error {
	return r.Create(ctx, p)
}

func (r *PaymentRepo) Get(ctx context.Context, id string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	p, err := scanPayment(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: payment %s", domain.ErrPaymentNotFound, id)
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

func (r *PaymentRepo) GetByTransactionID(ctx context.Context, transactionID string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE reference_transaction_id = $1`
	p, err := scanPayment(r.q.QueryRow(ctx, query, transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: transaction %s", domain.ErrPaymentNotFound, transactionID)
		}
		return nil, fmt.Errorf("get payment by transaction: %w", err)
	}
	return p, nil
}

// ListByOrder loads the payments of one order, oldest first.
func (r *PaymentRepo) ListByOrder(ctx context.Context, orderID string) ([]*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1 ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []*entity.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPayment(row pgx.Row) (*entity.Payment, error) {
	var p entity.Payment
	var state string
	err := row.Scan(
		&p.ID, &p.OrderID, &p.AmountCents, &p.Currency, &state, &p.MethodType,
		&p.ReferenceTransactionID, &p.RefundedAmountCents, &p.FailureReason, &p.IdempotencyKey,
		&p.AuthorizedAt, &p.CapturedAt, &p.VoidedAt, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.State = entity.PaymentState(state)
	return &p, nil
}

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

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo persists the order aggregate. Save upserts the order row and
// all children, so a use case mutates the aggregate in memory and saves
// once.
type OrderRepo struct {
	q         Querier
	units     *InventoryUnitRepo
	payments  *PaymentRepo
	shipments *ShipmentRepo
}

func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{
		q:         q,
		units:     NewInventoryUnitRepository(q),
		payments:  NewPaymentRepository(q),
		shipments: NewShipmentRepository(q),
	}
}

const orderColumns = `id, number, state, currency, COALESCE(email, ''), item_total_cents, shipment_total_cents, adjustment_total_cents, total_cents, COALESCE(ship_address_id, ''), COALESCE(bill_address_id, ''), COALESCE(shipping_method_id, ''), completed_at, canceled_at, created_at, updated_at`

func (r *OrderRepo) Create(ctx context.Context, o *entity.Order) error {
	query := `
		INSERT INTO orders (id, number, state, currency, email, item_total_cents, shipment_total_cents, adjustment_total_cents, total_cents, ship_address_id, bill_address_id, shipping_method_id, completed_at, canceled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.q.Exec(ctx, query,
		o.ID, o.Number, o.State.String(), o.Currency, nullable(o.Email),
		o.ItemTotalCents, o.ShipmentTotalCents, o.AdjustmentTotalCents, o.TotalCents,
		nullable(o.ShipAddressID), nullable(o.BillAddressID), nullable(o.ShippingMethodID),
		o.CompletedAt, o.CanceledAt, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create order: %w", err)
	}
	return r.saveChildren(ctx, o)
}

func (r *OrderRepo) Get(ctx context.Context, id string) (*entity.Order, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate locks the order row so concurrent callbacks (payment capture
// vs cancellation) serialize on the aggregate.
func (r *OrderRepo) GetForUpdate(ctx context.Context, id string) (*entity.Order, error) {
	return r.get(ctx, id, true)
}

func (r *OrderRepo) get(ctx context.Context, id string, lock bool) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	o, err := scanOrder(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: order %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if err := r.loadChildren(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Save upserts the order row and every child: line items, adjustments,
// units, payments, shipments, history.
func (r *OrderRepo) Save(ctx context.Context, o *entity.Order) error {
	query := `
		UPDATE orders SET
			state = $2, email = $3, item_total_cents = $4, shipment_total_cents = $5,
			adjustment_total_cents = $6, total_cents = $7, ship_address_id = $8,
			bill_address_id = $9, shipping_method_id = $10, completed_at = $11,
			canceled_at = $12, updated_at = $13
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		o.ID, o.State.String(), nullable(o.Email),
		o.ItemTotalCents, o.ShipmentTotalCents, o.AdjustmentTotalCents, o.TotalCents,
		nullable(o.ShipAddressID), nullable(o.BillAddressID), nullable(o.ShippingMethodID),
		o.CompletedAt, o.CanceledAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: order %s", domain.ErrNotFound, o.ID)
	}
	return r.saveChildren(ctx, o)
}

func (r *OrderRepo) saveChildren(ctx context.Context, o *entity.Order) error {
	lineQuery := `
		INSERT INTO line_items (id, order_id, variant_id, quantity, price_cents, captured_name, captured_sku, currency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET quantity = EXCLUDED.quantity, price_cents = EXCLUDED.price_cents`
	keep := make([]string, 0, len(o.LineItems))
	for _, li := range o.LineItems {
		keep = append(keep, li.ID)
		if _, err := r.q.Exec(ctx, lineQuery,
			li.ID, li.OrderID, li.VariantID, li.Quantity, li.PriceCents,
			li.CapturedName, li.CapturedSku, li.Currency, li.CreatedAt,
		); err != nil {
			return fmt.Errorf("save line item: %w", err)
		}
	}
	// Removed lines disappear from the aggregate; drop their rows too.
	if _, err := r.q.Exec(ctx,
		`DELETE FROM line_items WHERE order_id = $1 AND NOT (id = ANY($2))`,
		o.ID, keep,
	); err != nil {
		return fmt.Errorf("prune line items: %w", err)
	}

	adjQuery := `
		INSERT INTO adjustments (id, order_id, line_item_id, scope, label, amount_cents, eligible, promotion_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET amount_cents = EXCLUDED.amount_cents, eligible = EXCLUDED.eligible`
	saveAdjustment := func(a *entity.Adjustment) error {
		_, err := r.q.Exec(ctx, adjQuery,
			a.ID, a.OrderID, nullable(a.LineItemID), string(a.Scope), a.Label,
			a.AmountCents, a.Eligible, nullable(a.PromotionID), a.CreatedAt,
		)
		return err
	}
	for _, a := range o.Adjustments {
		if err := saveAdjustment(a); err != nil {
			return fmt.Errorf("save adjustment: %w", err)
		}
	}
	for _, li := range o.LineItems {
		for _, a := range li.Adjustments {
			if err := saveAdjustment(a); err != nil {
				return fmt.Errorf("save line adjustment: %w", err)
			}
		}
		if err := r.units.CreateBatch(ctx, li.Units); err != nil {
			return err
		}
	}

	for _, p := range o.Payments {
		if err := r.payments.Save(ctx, p); err != nil {
			return err
		}
	}
	for _, sh := range o.Shipments {
		if err := r.shipments.Save(ctx, sh); err != nil {
			return err
		}
	}

	historyQuery := `
		INSERT INTO order_history (id, order_id, from_state, to_state, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`
	for _, h := range o.History {
		if _, err := r.q.Exec(ctx, historyQuery,
			h.ID, h.OrderID, h.FromState.String(), h.ToState.String(), h.Description, h.CreatedAt,
		); err != nil {
			return fmt.Errorf("save order history: %w", err)
		}
	}
	return nil
}

func (r *OrderRepo) loadChildren(ctx context.Context, o *entity.Order) error {
	lineQuery := `
		SELECT id, order_id, variant_id, quantity, price_cents, captured_name, captured_sku, currency, created_at
		FROM line_items WHERE order_id = $1 ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, lineQuery, o.ID)
	if err != nil {
		return fmt.Errorf("load line items: %w", err)
	}
	lineByID := make(map[string]*entity.LineItem)
	for rows.Next() {
		var li entity.LineItem
		if err := rows.Scan(
			&li.ID, &li.OrderID, &li.VariantID, &li.Quantity, &li.PriceCents,
			&li.CapturedName, &li.CapturedSku, &li.Currency, &li.CreatedAt,
		); err != nil {
			rows.Close()
			return fmt.Errorf("scan line item: %w", err)
		}
		o.LineItems = append(o.LineItems, &li)
		lineByID[li.ID] = &li
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	adjQuery := `
		SELECT id, order_id, COALESCE(line_item_id, ''), scope, label, amount_cents, eligible, COALESCE(promotion_id, ''), created_at
		FROM adjustments WHERE order_id = $1 ORDER BY created_at, id`
	rows, err = r.q.Query(ctx, adjQuery, o.ID)
	if err != nil {
		return fmt.Errorf("load adjustments: %w", err)
	}
	for rows.Next() {
		var a entity.Adjustment
		var scope string
		if err := rows.Scan(
			&a.ID, &a.OrderID, &a.LineItemID, &scope, &a.Label,
			&a.AmountCents, &a.Eligible, &a.PromotionID, &a.CreatedAt,
		); err != nil {
			rows.Close()
			return fmt.Errorf("scan adjustment: %w", err)
		}
		a.Scope = entity.AdjustmentScope(scope)
		if li, ok := lineByID[a.LineItemID]; ok && a.Scope == entity.AdjustmentScopeLineItem {
			li.Adjustments = append(li.Adjustments, &a)
		} else {
			o.Adjustments = append(o.Adjustments, &a)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	units, err := r.units.ListByOrder(ctx, o.ID)
	if err != nil {
		return err
	}
	for _, u := range units {
		if li, ok := lineByID[u.LineItemID]; ok {
			li.Units = append(li.Units, u)
		}
	}

	if o.Payments, err = r.payments.ListByOrder(ctx, o.ID); err != nil {
		return err
	}
	if o.Shipments, err = r.shipments.ListByOrder(ctx, o.ID); err != nil {
		return err
	}

	historyQuery := `
		SELECT id, order_id, from_state, to_state, description, created_at
		FROM order_history WHERE order_id = $1 ORDER BY created_at, id`
	rows, err = r.q.Query(ctx, historyQuery, o.ID)
	if err != nil {
		return fmt.Errorf("load order history: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var h entity.OrderHistory
		var from, to string
		if err := rows.Scan(&h.ID, &h.OrderID, &from, &to, &h.Description, &h.CreatedAt); err != nil {
			return fmt.Errorf("scan order history: %w", err)
		}
		if h.FromState, err = entity.ParseOrderState(from); err != nil {
			return err
		}
		if h.ToState, err = entity.ParseOrderState(to); err != nil {
			return err
		}
		o.History = append(o.History, &h)
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (*entity.Order, error) {
	var o entity.Order
	var state string
	err := row.Scan(
		&o.ID, &o.Number, &state, &o.Currency, &o.Email,
		&o.ItemTotalCents, &o.ShipmentTotalCents, &o.AdjustmentTotalCents, &o.TotalCents,
		&o.ShipAddressID, &o.BillAddressID, &o.ShippingMethodID,
		&o.CompletedAt, &o.CanceledAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if o.State, err = entity.ParseOrderState(state); err != nil {
		return nil, err
	}
	return &o, nil
}

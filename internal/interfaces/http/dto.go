package http

import (
	"time"

	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Requests.

type CreateOrderRequest struct {
	Currency string `json:"currency"`
	Email    string `json:"email"`
}

type AddLineItemRequest struct {
	VariantID          string `json:"variant_id"`
	Quantity           int    `json:"quantity"`
	PriceCentsOverride *int64 `json:"price_cents_override,omitempty"`
}

type SetAddressesRequest struct {
	ShipAddressID string `json:"ship_address_id"`
	BillAddressID string `json:"bill_address_id"`
}

type SetShippingMethodRequest struct {
	ShippingMethodID string `json:"shipping_method_id"`
	CostCents        int64  `json:"cost_cents"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

type PlaceOrderRequest struct {
	Method         string `json:"method"`
	IdempotencyKey string `json:"idempotency_key"`
}

type RefundRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Reason      string `json:"reason"`
}

type ShipRequest struct {
	TrackingNumber string `json:"tracking_number"`
}

type CreateStockItemRequest struct {
	VariantID       string `json:"variant_id"`
	StockLocationID string `json:"stock_location_id"`
	Sku             string `json:"sku"`
	InitialQuantity int    `json:"initial_quantity"`
	UnitCost        string `json:"unit_cost"`
	Backorderable   bool   `json:"backorderable"`
	BackorderLimit  int    `json:"backorder_limit"`
}

type AdjustStockRequest struct {
	Delta     int    `json:"delta"`
	Type      string `json:"type"`
	UnitCost  string `json:"unit_cost"`
	Reason    string `json:"reason"`
	Reference string `json:"reference"`
}

type TransferRequest struct {
	VariantID      string `json:"variant_id"`
	FromLocationID string `json:"from_location_id"`
	ToLocationID   string `json:"to_location_id"`
	Quantity       int    `json:"quantity"`
	Reason         string `json:"reason"`
}

// Responses.

type OrderResponse struct {
	ID                   string             `json:"id"`
	Number               string             `json:"number"`
	State                string             `json:"state"`
	Currency             string             `json:"currency"`
	Email                string             `json:"email,omitempty"`
	ItemTotalCents       int64              `json:"item_total_cents"`
	ShipmentTotalCents   int64              `json:"shipment_total_cents"`
	AdjustmentTotalCents int64              `json:"adjustment_total_cents"`
	TotalCents           int64              `json:"total_cents"`
	PaidTotalCents       int64              `json:"paid_total_cents"`
	LineItems            []LineItemResponse `json:"line_items"`
	Payments             []PaymentResponse  `json:"payments,omitempty"`
	Shipments            []ShipmentResponse `json:"shipments,omitempty"`
	CompletedAt          *time.Time         `json:"completed_at,omitempty"`
	CanceledAt           *time.Time         `json:"canceled_at,omitempty"`
	CreatedAt            time.Time          `json:"created_at"`
}

type LineItemResponse struct {
	ID         string `json:"id"`
	VariantID  string `json:"variant_id"`
	Name       string `json:"name"`
	Sku        string `json:"sku"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
	TotalCents int64  `json:"total_cents"`
}

type PaymentResponse struct {
	ID                  string `json:"id"`
	State               string `json:"state"`
	MethodType          string `json:"method_type"`
	AmountCents         int64  `json:"amount_cents"`
	RefundedAmountCents int64  `json:"refunded_amount_cents"`
	TransactionID       string `json:"transaction_id,omitempty"`
}

type ShipmentResponse struct {
	ID              string `json:"id"`
	Number          string `json:"number"`
	State           string `json:"state"`
	StockLocationID string `json:"stock_location_id"`
	TrackingNumber  string `json:"tracking_number,omitempty"`
	UnitCount       int    `json:"unit_count"`
}

type StockItemResponse struct {
	ID               string `json:"id"`
	VariantID        string `json:"variant_id"`
	StockLocationID  string `json:"stock_location_id"`
	Sku              string `json:"sku"`
	QuantityOnHand   int    `json:"quantity_on_hand"`
	QuantityReserved int    `json:"quantity_reserved"`
	Backorderable    bool   `json:"backorderable"`
	BackorderLimit   int    `json:"backorder_limit"`
}

type MovementResponse struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Quantity      int       `json:"quantity"`
	BalanceBefore int       `json:"balance_before"`
	BalanceAfter  int       `json:"balance_after"`
	UnitCost      string    `json:"unit_cost"`
	Reference     string    `json:"reference,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func toOrderResponse(o *entity.Order) OrderResponse {
	out := OrderResponse{
		ID:                   o.ID,
		Number:               o.Number,
		State:                o.State.String(),
		Currency:             o.Currency,
		Email:                o.Email,
		ItemTotalCents:       o.ItemTotalCents,
		ShipmentTotalCents:   o.ShipmentTotalCents,
		AdjustmentTotalCents: o.AdjustmentTotalCents,
		TotalCents:           o.TotalCents,
		PaidTotalCents:       o.PaidTotalCents(),
		CompletedAt:          o.CompletedAt,
		CanceledAt:           o.CanceledAt,
		CreatedAt:            o.CreatedAt,
	}
	for _, li := range o.LineItems {
		out.LineItems = append(out.LineItems, LineItemResponse{
			ID:         li.ID,
			VariantID:  li.VariantID,
			Name:       li.CapturedName,
			Sku:        li.CapturedSku,
			Quantity:   li.Quantity,
			PriceCents: li.PriceCents,
			TotalCents: li.TotalCents(),
		})
	}
	for _, p := range o.Payments {
		out.Payments = append(out.Payments, toPaymentResponse(p))
	}
	for _, sh := range o.Shipments {
		out.Shipments = append(out.Shipments, toShipmentResponse(sh))
	}
	return out
}

func toPaymentResponse(p *entity.Payment) PaymentResponse {
	return PaymentResponse{
		ID:                  p.ID,
		State:               string(p.State),
		MethodType:          p.MethodType,
		AmountCents:         p.AmountCents,
		RefundedAmountCents: p.RefundedAmountCents,
		TransactionID:       p.ReferenceTransactionID,
	}
}

func toShipmentResponse(sh *entity.Shipment) ShipmentResponse {
	return ShipmentResponse{
		ID:              sh.ID,
		Number:          sh.Number,
		State:           string(sh.State),
		StockLocationID: sh.StockLocationID,
		TrackingNumber:  sh.TrackingNumber,
		UnitCount:       len(sh.Units),
	}
}

func toStockItemResponse(s *entity.StockItem) StockItemResponse {
	return StockItemResponse{
		ID:               s.ID,
		VariantID:        s.VariantID,
		StockLocationID:  s.StockLocationID,
		Sku:              s.Sku,
		QuantityOnHand:   s.QuantityOnHand,
		QuantityReserved: s.QuantityReserved,
		Backorderable:    s.Backorderable,
		BackorderLimit:   s.BackorderLimit,
	}
}

func toMovementResponse(m *entity.StockMovement) MovementResponse {
	return MovementResponse{
		ID:            m.ID,
		Type:          string(m.Type),
		Quantity:      m.Quantity,
		BalanceBefore: m.BalanceBefore,
		BalanceAfter:  m.BalanceAfter,
		UnitCost:      m.UnitCost.String(),
		Reference:     m.Reference,
		Reason:        m.Reason,
		OccurredAt:    m.OccurredAt,
	}
}

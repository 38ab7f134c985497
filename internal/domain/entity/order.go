package entity

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/fulfillment-api/internal/domain"
	"github.com/jhoicas/fulfillment-api/internal/domain/event"
)

// OrderState is the canonical order lifecycle. The checkout states are
// ordered so guards can compare positions; Canceled and Returned are
// terminal branches.
type OrderState int

const (
	OrderCart OrderState = iota
	OrderAddress
	OrderDelivery
	OrderPayment
	OrderConfirm
	OrderComplete
	OrderCanceled
	OrderReturned
)

func (s OrderState) String() string {
	switch s {
	case OrderCart:
		return "CART"
	case OrderAddress:
		return "ADDRESS"
	case OrderDelivery:
		return "DELIVERY"
	case OrderPayment:
		return "PAYMENT"
	case OrderConfirm:
		return "CONFIRM"
	case OrderComplete:
		return "COMPLETE"
	case OrderCanceled:
		return "CANCELED"
	case OrderReturned:
		return "RETURNED"
	}
	return "UNKNOWN"
}

// ParseOrderState maps the stored representation back to the enum.
func ParseOrderState(s string) (OrderState, error) {
	for st := OrderCart; st <= OrderReturned; st++ {
		if st.String() == s {
			return st, nil
		}
	}
	return OrderCart, fmt.Errorf("%w: unknown order state %q", domain.ErrInvalidInput, s)
}

// Order is the aggregate root binding line items, payments, shipments and
// the transition history. TotalCents == ItemTotal + ShipmentTotal +
// AdjustmentTotal holds after any mutation of children.
type Order struct {
	event.Recorder

	ID       string
	Number   string
	State    OrderState
	Currency string
	Email    string

	ItemTotalCents       int64
	ShipmentTotalCents   int64
	AdjustmentTotalCents int64
	TotalCents           int64

	ShipAddressID    string
	BillAddressID    string
	ShippingMethodID string

	CompletedAt *time.Time
	CanceledAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	LineItems   []*LineItem
	Adjustments []*Adjustment
	Payments    []*Payment
	Shipments   []*Shipment
	History     []*OrderHistory
}

// NewOrder creates an order in the Cart state.
func NewOrder(currency, email string, now time.Time) (*Order, error) {
	if currency == "" {
		return nil, fmt.Errorf("%w: currency required", domain.ErrInvalidInput)
	}
	o := &Order{
		ID:        uuid.New().String(),
		Number:    fmt.Sprintf("R%s%04d", now.Format("20060102"), rand.Intn(9000)+1000),
		State:     OrderCart,
		Currency:  strings.ToUpper(currency),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	o.addHistory(OrderCart, OrderCart, "cart initialized", now)
	o.Record(event.New(event.OrderCreated, o.ID, map[string]any{
		"order_id": o.ID,
		"number":   o.Number,
	}))
	return o, nil
}

// AddVariant adds quantity units of a variant, snapshotting price and name.
// Legal only while the order has not passed Delivery. Inventory units are
// created later, when the reservation runs.
func (o *Order) AddVariant(variant *Variant, quantity int, now time.Time, overridePriceCents *int64) (*LineItem, error) {
	if o.State > OrderDelivery {
		return nil, domain.TransitionError("order", o.State.String(), "add items")
	}
	if variant == nil {
		return nil, fmt.Errorf("%w: variant required", domain.ErrInvalidInput)
	}
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", domain.ErrInvalidInput)
	}

	var item *LineItem
	for _, li := range o.LineItems {
		if li.VariantID == variant.ID {
			item = li
			break
		}
	}
	if item == nil {
		created, err := NewLineItem(o.ID, variant, quantity, o.Currency, now, overridePriceCents)
		if err != nil {
			return nil, err
		}
		item = created
		o.LineItems = append(o.LineItems, item)
	} else {
		item.Quantity += quantity
	}

	if overridePriceCents != nil {
		o.addHistory(o.State, o.State, fmt.Sprintf("price override applied to %s: %d cents", item.CapturedName, *overridePriceCents), now)
	}

	o.RecalculateTotals()
	o.UpdatedAt = now
	o.Record(event.New(event.OrderUpdated, o.ID, map[string]any{
		"order_id":   o.ID,
		"variant_id": variant.ID,
		"quantity":   quantity,
	}))
	return item, nil
}

// RemoveLineItem drops a line and its pending units.
func (o *Order) RemoveLineItem(lineItemID string, now time.Time) error {
	if o.State > OrderDelivery {
		return domain.TransitionError("order", o.State.String(), "remove items")
	}
	for i, li := range o.LineItems {
		if li.ID == lineItemID {
			li.Units = nil
			o.LineItems = append(o.LineItems[:i], o.LineItems[i+1:]...)
			o.RecalculateTotals()
			o.UpdatedAt = now
			return nil
		}
	}
	return fmt.Errorf("%w: line item %s", domain.ErrNotFound, lineItemID)
}

// SetAddresses records the shipping destination and billing address.
func (o *Order) SetAddresses(shipAddressID, billAddressID string, now time.Time) error {
	if o.State > OrderAddress {
		return domain.TransitionError("order", o.State.String(), "set addresses")
	}
	if shipAddressID == "" || billAddressID == "" {
		return domain.ErrAddressMissing
	}
	o.ShipAddressID = shipAddressID
	o.BillAddressID = billAddressID
	o.UpdatedAt = now
	return nil
}

// SetShippingMethod assigns a delivery method and its cost in minor units.
func (o *Order) SetShippingMethod(shippingMethodID string, costCents int64, now time.Time) error {
	if o.State > OrderDelivery {
		return domain.TransitionError("order", o.State.String(), "set shipping method")
	}
	if shippingMethodID == "" {
		return domain.ErrShippingMethodMissing
	}
	o.ShippingMethodID = shippingMethodID
	o.ShipmentTotalCents = costCents
	o.RecalculateTotals()
	o.UpdatedAt = now
	return nil
}

// AddAdjustment attaches an opaque signed amount and recomputes totals.
func (o *Order) AddAdjustment(adj *Adjustment) {
	o.Adjustments = append(o.Adjustments, adj)
	o.RecalculateTotals()
}

// AddPayment links a payment attempt to the order.
func (o *Order) AddPayment(p *Payment) error {
	if p == nil {
		return fmt.Errorf("%w: payment required", domain.ErrInvalidInput)
	}
	o.Payments = append(o.Payments, p)
	return nil
}

// AddShipment links a shipment created by fulfillment planning.
func (o *Order) AddShipment(sh *Shipment) error {
	if sh == nil {
		return fmt.Errorf("%w: shipment required", domain.ErrInvalidInput)
	}
	if o.State < OrderDelivery {
		return domain.TransitionError("order", o.State.String(), "add shipment")
	}
	o.Shipments = append(o.Shipments, sh)
	return nil
}

// Next advances exactly one state forward when the current state's exit
// guard passes. The state is untouched on failure.
func (o *Order) Next(now time.Time) error {
	switch o.State {
	case OrderCart:
		if len(o.LineItems) == 0 {
			return domain.ErrEmptyCart
		}
		return o.transitionTo(OrderAddress, "checkout started", now)
	case OrderAddress:
		if o.ShipAddressID == "" || o.BillAddressID == "" {
			return domain.ErrAddressMissing
		}
		return o.transitionTo(OrderDelivery, "addresses confirmed", now)
	case OrderDelivery:
		if len(o.LineItems) == 0 {
			return domain.ErrEmptyCart
		}
		if o.ShipAddressID == "" {
			return domain.ErrAddressMissing
		}
		if o.ShippingMethodID == "" {
			return domain.ErrShippingMethodMissing
		}
		return o.transitionTo(OrderPayment, "delivery confirmed", now)
	case OrderPayment:
		if o.PaidTotalCents() < o.TotalCents {
			return fmt.Errorf("%w: paid %d of %d", domain.ErrInsufficientPayment, o.PaidTotalCents(), o.TotalCents)
		}
		return o.transitionTo(OrderConfirm, "payment covered", now)
	case OrderConfirm:
		return o.complete(now)
	default:
		return domain.TransitionError("order", o.State.String(), "advance")
	}
}

func (o *Order) transitionTo(to OrderState, reason string, now time.Time) error {
	from := o.State
	o.State = to
	o.UpdatedAt = now
	o.addHistory(from, to, reason, now)
	o.Record(event.New(event.OrderStateChanged, o.ID, map[string]any{
		"order_id": o.ID,
		"from":     from.String(),
		"to":       to.String(),
		"reason":   reason,
	}))
	return nil
}

// complete finalizes the order. Every unit must have a determined physical
// state, then all units are committed.
func (o *Order) complete(now time.Time) error {
	for _, li := range o.LineItems {
		determined := 0
		for _, u := range li.Units {
			switch u.State {
			case UnitOnHand, UnitBackordered, UnitShipped:
				determined++
			}
		}
		if determined < li.Quantity {
			return domain.ErrIncompleteAllocation
		}
	}
	for _, li := range o.LineItems {
		for _, u := range li.Units {
			u.Finalize()
		}
	}
	from := o.State
	o.State = OrderComplete
	o.CompletedAt = &now
	o.UpdatedAt = now
	o.addHistory(from, OrderComplete, "order finalized and committed to fulfillment", now)
	o.Record(event.New(event.OrderCompleted, o.ID, map[string]any{
		"order_id":    o.ID,
		"total_cents": o.TotalCents,
	}))
	return nil
}

// Cancel is legal from any state before Complete. Completed and returned
// orders are closed and stay that way. Compensations (releasing
// reservations, refunding payments) are driven by handlers of the raised
// event, not by the state machine itself.
func (o *Order) Cancel(reason string, now time.Time) error {
	switch o.State {
	case OrderComplete, OrderReturned:
		return domain.ErrCannotCancelCompleted
	case OrderCanceled:
		return nil
	}
	from := o.State
	o.State = OrderCanceled
	o.CanceledAt = &now
	o.UpdatedAt = now
	for _, li := range o.LineItems {
		for _, u := range li.Units {
			if u.State != UnitShipped {
				_ = u.Cancel()
			}
		}
	}
	if reason == "" {
		reason = "not specified"
	}
	o.addHistory(from, OrderCanceled, "order canceled: "+reason, now)
	o.Record(event.New(event.OrderCanceled, o.ID, map[string]any{
		"order_id": o.ID,
		"reason":   reason,
	}))
	return nil
}

// Return closes a completed order whose goods came back. Restocking is a
// separate Return-typed ledger receipt, outside the state machine.
func (o *Order) Return(reason string, now time.Time) error {
	if o.State != OrderComplete {
		return domain.TransitionError("order", o.State.String(), "return")
	}
	from := o.State
	o.State = OrderReturned
	o.UpdatedAt = now
	for _, li := range o.LineItems {
		for _, u := range li.Units {
			if u.State == UnitShipped {
				_ = u.Return()
			}
		}
	}
	o.addHistory(from, OrderReturned, "order returned: "+reason, now)
	o.Record(event.New(event.OrderReturned, o.ID, map[string]any{
		"order_id": o.ID,
		"reason":   reason,
	}))
	return nil
}

// CapturePayment completes the matching child payment. It does not advance
// the order state; the capture event handler decides on auto-advancement.
// Calling it again for an already-completed payment with the same
// transaction id is a no-op, so retried webhooks cannot double-count.
func (o *Order) CapturePayment(paymentID, transactionID string, now time.Time) error {
	for _, p := range o.Payments {
		if p.ID != paymentID {
			continue
		}
		if p.State == PaymentCompleted && (transactionID == "" || p.ReferenceTransactionID == transactionID) {
			return nil
		}
		return p.MarkAsCaptured(transactionID, now)
	}
	return domain.ErrPaymentNotFound
}

// PaidTotalCents sums completed payments. Each payment counts once no
// matter how many capture callbacks arrived for it.
func (o *Order) PaidTotalCents() int64 {
	var total int64
	for _, p := range o.Payments {
		if p.State == PaymentCompleted || p.State == PaymentRefunded {
			total += p.AmountCents
		}
	}
	return total
}

// RecalculateTotals re-derives the financial invariant from children:
// TotalCents = ItemTotal + ShipmentTotal + AdjustmentTotal, floored at 0.
func (o *Order) RecalculateTotals() {
	var items int64
	for _, li := range o.LineItems {
		items += li.TotalCents()
	}
	var adjustments int64
	for _, a := range o.Adjustments {
		if a.Eligible {
			adjustments += a.AmountCents
		}
	}
	o.ItemTotalCents = items
	o.AdjustmentTotalCents = adjustments
	o.TotalCents = items + adjustments + o.ShipmentTotalCents
	if o.TotalCents < 0 {
		o.TotalCents = 0
	}
}

// Units flattens the inventory units of all line items.
func (o *Order) Units() []*InventoryUnit {
	var out []*InventoryUnit
	for _, li := range o.LineItems {
		out = append(out, li.Units...)
	}
	return out
}

// HasActiveReservation reports whether any unit is already allocated or
// backordered, used to keep checkout idempotent on retries.
func (o *Order) HasActiveReservation() bool {
	for _, u := range o.Units() {
		if u.State == UnitOnHand || u.State == UnitBackordered {
			return true
		}
	}
	return false
}

func (o *Order) addHistory(from, to OrderState, description string, now time.Time) {
	o.History = append(o.History, newOrderHistory(o.ID, from, to, description, now))
}

package entity

import (
	"time"

	"github.com/google/uuid"
)

// AdjustmentScope says whether an adjustment applies to the whole order or
// to one line item.
type AdjustmentScope string

const (
	AdjustmentScopeOrder    AdjustmentScope = "ORDER"
	AdjustmentScopeLineItem AdjustmentScope = "LINE_ITEM"
)

// Adjustment is an opaque signed amount already computed upstream
// (promotion, tax, manual discount). The engine only sums eligible ones
// into the totals.
type Adjustment struct {
	ID          string
	OrderID     string
	LineItemID  string // empty for order-scope adjustments
	Scope       AdjustmentScope
	Label       string
	AmountCents int64
	Eligible    bool
	PromotionID string
	CreatedAt   time.Time
}

// NewOrderAdjustment creates an order-scope adjustment.
func NewOrderAdjustment(orderID, label string, amountCents int64, now time.Time) *Adjustment {
	return &Adjustment{
		ID:          uuid.New().String(),
		OrderID:     orderID,
		Scope:       AdjustmentScopeOrder,
		Label:       label,
		AmountCents: amountCents,
		Eligible:    true,
		CreatedAt:   now,
	}
}

// NewLineItemAdjustment creates a line-scope adjustment.
func NewLineItemAdjustment(orderID, lineItemID, label string, amountCents int64, now time.Time) *Adjustment {
	return &Adjustment{
		ID:          uuid.New().String(),
		OrderID:     orderID,
		LineItemID:  lineItemID,
		Scope:       AdjustmentScopeLineItem,
		Label:       label,
		AmountCents: amountCents,
		Eligible:    true,
		CreatedAt:   now,
	}
}

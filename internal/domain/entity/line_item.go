package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/fulfillment-api/internal/domain"
)

// LineItem is an immutable price/name snapshot of a variant at the moment
// it was added to an order. Later catalog edits cannot retroactively alter
// historical orders. Once reservation has run, Quantity equals the number
// of InventoryUnits.
type LineItem struct {
	ID           string
	OrderID      string
	VariantID    string
	Quantity     int
	PriceCents   int64
	CapturedName string
	CapturedSku  string
	Currency     string
	CreatedAt    time.Time

	Adjustments []*Adjustment
	Units       []*InventoryUnit
}

// NewLineItem snapshots the variant. overridePriceCents replaces the
// catalog price when an admin priced the line manually.
func NewLineItem(orderID string, variant *Variant, quantity int, currency string, now time.Time, overridePriceCents *int64) (*LineItem, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", domain.ErrInvalidInput)
	}
	price := variant.PriceCents
	if overridePriceCents != nil {
		price = *overridePriceCents
	}
	if price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", domain.ErrInvalidInput)
	}
	return &LineItem{
		ID:           uuid.New().String(),
		OrderID:      orderID,
		VariantID:    variant.ID,
		Quantity:     quantity,
		PriceCents:   price,
		CapturedName: variant.ProductName,
		CapturedSku:  variant.Sku,
		Currency:     currency,
		CreatedAt:    now,
	}, nil
}

// TotalCents is the snapshot price times quantity plus eligible line-scope
// adjustments.
func (li *LineItem) TotalCents() int64 {
	total := li.PriceCents * int64(li.Quantity)
	for _, a := range li.Adjustments {
		if a.Eligible {
			total += a.AmountCents
		}
	}
	return total
}

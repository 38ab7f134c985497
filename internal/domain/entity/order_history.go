package entity

import (
	"time"

	"github.com/google/uuid"
)

// OrderHistory is one append-only entry in the order's transition log.
type OrderHistory struct {
	ID          string
	OrderID     string
	FromState   OrderState
	ToState     OrderState
	Description string
	CreatedAt   time.Time
}

func newOrderHistory(orderID string, from, to OrderState, description string, now time.Time) *OrderHistory {
	return &OrderHistory{
		ID:          uuid.New().String(),
		OrderID:     orderID,
		FromState:   from,
		ToState:     to,
		Description: description,
		CreatedAt:   now,
	}
}

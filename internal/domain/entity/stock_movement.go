package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockMovementType classifies a ledger row.
type StockMovementType string

const (
	MovementReceipt     StockMovementType = "RECEIPT"
	MovementSale        StockMovementType = "SALE"
	MovementAdjustment  StockMovementType = "ADJUSTMENT"
	MovementTransferIn  StockMovementType = "TRANSFER_IN"
	MovementTransferOut StockMovementType = "TRANSFER_OUT"
	MovementReservation StockMovementType = "RESERVATION"
	MovementRelease     StockMovementType = "RELEASE"
	MovementReturn      StockMovementType = "RETURN"
)

// StockMovement is one append-only ledger row. Never mutated or deleted
// after creation; the sequence of movements is the source of truth for how
// a stock balance was reached.
type StockMovement struct {
	ID            string
	StockItemID   string
	Type          StockMovementType
	Quantity      int // signed delta
	BalanceBefore int
	BalanceAfter  int
	UnitCost      decimal.Decimal
	Reference     string // order id, transfer id, audit note id
	Reason        string
	OccurredAt    time.Time
	CreatedBy     string
}

// newStockMovement computes BalanceAfter from the before/delta pair so the
// invariant BalanceAfter == BalanceBefore + Quantity holds at construction.
func newStockMovement(stockItemID string, typ StockMovementType, quantity, balanceBefore int, unitCost decimal.Decimal, reference, reason string, now time.Time) *StockMovement {
	return &StockMovement{
		ID:            uuid.New().String(),
		StockItemID:   stockItemID,
		Type:          typ,
		Quantity:      quantity,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceBefore + quantity,
		UnitCost:      unitCost,
		Reference:     reference,
		Reason:        reason,
		OccurredAt:    now,
	}
}

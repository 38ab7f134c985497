package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/fulfillment-api/internal/domain"
)

// InventoryUnitState tracks the allocation lifecycle of one physical unit.
type InventoryUnitState string

const (
	UnitPending     InventoryUnitState = "PENDING"
	UnitOnHand      InventoryUnitState = "ON_HAND"
	UnitBackordered InventoryUnitState = "BACKORDERED"
	UnitShipped     InventoryUnitState = "SHIPPED"
	UnitReturned    InventoryUnitState = "RETURNED"
	UnitCanceled    InventoryUnitState = "CANCELED"
)

// InventoryUnit represents exactly one physical unit of one line item.
// Created in bulk by reservation; its stock and shipment links are set
// later by allocation and fulfillment planning.
type InventoryUnit struct {
	ID              string
	OrderID         string
	LineItemID      string
	VariantID       string
	StockItemID     string // empty until allocated
	StockLocationID string // empty until allocated
	ShipmentID      string // empty until assigned to a shipment
	State           InventoryUnitState

	// Pending marks units reserved in the store but not yet committed by
	// order completion.
	Pending   bool
	CreatedAt time.Time
}

// NewInventoryUnit creates one tracking unit for a line item.
func NewInventoryUnit(orderID, lineItemID, variantID string, now time.Time) *InventoryUnit {
	return &InventoryUnit{
		ID:         uuid.New().String(),
		OrderID:    orderID,
		LineItemID: lineItemID,
		VariantID:  variantID,
		State:      UnitPending,
		Pending:    true,
		CreatedAt:  now,
	}
}

// Allocate earmarks physical stock from a specific location for this unit.
func (u *InventoryUnit) Allocate(stockItemID, stockLocationID string) error {
	if u.State != UnitPending && u.State != UnitBackordered {
		return domain.TransitionError("inventory unit", string(u.State), "allocate")
	}
	u.StockItemID = stockItemID
	u.StockLocationID = stockLocationID
	u.State = UnitOnHand
	return nil
}

// Backorder records the unit as promised but awaiting replenishment.
func (u *InventoryUnit) Backorder(stockItemID, stockLocationID string) error {
	if u.State != UnitPending && u.State != UnitCanceled {
		return domain.TransitionError("inventory unit", string(u.State), "backorder")
	}
	u.StockItemID = stockItemID
	u.StockLocationID = stockLocationID
	u.State = UnitBackordered
	return nil
}

// Promote flips a backordered unit to on-hand once stock has arrived.
func (u *InventoryUnit) Promote() error {
	if u.State != UnitBackordered {
		return domain.TransitionError("inventory unit", string(u.State), "promote")
	}
	u.State = UnitOnHand
	return nil
}

// AssignToShipment links the unit to a shipment for the pick/pack workflow.
func (u *InventoryUnit) AssignToShipment(shipmentID string) error {
	if u.State == UnitShipped || u.State == UnitCanceled {
		return domain.TransitionError("inventory unit", string(u.State), "assign to shipment")
	}
	u.ShipmentID = shipmentID
	return nil
}

// Ship marks the unit as physically gone. Stock was already decremented at
// reservation time; this only records custody.
func (u *InventoryUnit) Ship(shipmentID string) error {
	if u.State != UnitOnHand {
		return domain.TransitionError("inventory unit", string(u.State), "ship")
	}
	u.ShipmentID = shipmentID
	u.State = UnitShipped
	u.Pending = false
	return nil
}

// Return records a shipped unit coming back.
func (u *InventoryUnit) Return() error {
	if u.State != UnitShipped {
		return domain.TransitionError("inventory unit", string(u.State), "return")
	}
	u.State = UnitReturned
	return nil
}

// Cancel releases the unit. Legal from any state except shipped.
func (u *InventoryUnit) Cancel() error {
	if u.State == UnitShipped {
		return domain.ErrAlreadyShipped
	}
	u.State = UnitCanceled
	return nil
}

// Finalize commits the unit once the order completes.
func (u *InventoryUnit) Finalize() {
	u.Pending = false
}

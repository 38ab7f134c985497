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

// ShipmentState is the warehouse lifecycle of one package.
type ShipmentState string

const (
	ShipmentPending   ShipmentState = "PENDING"
	ShipmentReady     ShipmentState = "READY"
	ShipmentPicked    ShipmentState = "PICKED"
	ShipmentPacked    ShipmentState = "PACKED"
	ShipmentShipped   ShipmentState = "SHIPPED"
	ShipmentDelivered ShipmentState = "DELIVERED"
	ShipmentCanceled  ShipmentState = "CANCELED"
)

// Shipment groups a subset of an order's inventory units leaving from one
// stock location. Transitions only mark logistics progress; stock was
// already decremented at reservation time.
type Shipment struct {
	event.Recorder

	ID              string
	OrderID         string
	StockLocationID string
	Number          string
	State           ShipmentState
	TrackingNumber  string
	CostCents       int64

	PickedAt    *time.Time
	PackedAt    *time.Time
	ShippedAt   *time.Time
	DeliveredAt *time.Time
	CreatedAt   time.Time

	Units []*InventoryUnit
}

// NewShipment creates a pending shipment from one location.
func NewShipment(orderID, stockLocationID string, costCents int64, now time.Time) (*Shipment, error) {
	if orderID == "" || stockLocationID == "" {
		return nil, fmt.Errorf("%w: order and stock location required", domain.ErrInvalidInput)
	}
	sh := &Shipment{
		ID:              uuid.New().String(),
		OrderID:         orderID,
		StockLocationID: stockLocationID,
		Number:          fmt.Sprintf("SH%s%04d", now.Format("20060102"), rand.Intn(9000)+1000),
		State:           ShipmentPending,
		CostCents:       costCents,
		CreatedAt:       now,
	}
	sh.Record(event.New(event.ShipmentCreated, sh.OrderID, map[string]any{
		"shipment_id":       sh.ID,
		"stock_location_id": sh.StockLocationID,
	}))
	return sh, nil
}

// MarkAsReady flags the shipment as eligible for warehouse work.
func (sh *Shipment) MarkAsReady() {
	if sh.State == ShipmentPending {
		sh.State = ShipmentReady
	}
}

// MarkAsPicked records that items came off the shelf.
func (sh *Shipment) MarkAsPicked(now time.Time) error {
	if sh.State != ShipmentPending && sh.State != ShipmentReady {
		return domain.TransitionError("shipment", string(sh.State), "pick")
	}
	sh.State = ShipmentPicked
	sh.PickedAt = &now
	sh.Record(event.New(event.ShipmentPicked, sh.OrderID, map[string]any{"shipment_id": sh.ID}))
	return nil
}

// MarkAsPacked records that items are boxed.
func (sh *Shipment) MarkAsPacked(now time.Time) error {
	if sh.State != ShipmentPicked {
		return domain.TransitionError("shipment", string(sh.State), "pack")
	}
	sh.State = ShipmentPacked
	sh.PackedAt = &now
	sh.Record(event.New(event.ShipmentPacked, sh.OrderID, map[string]any{"shipment_id": sh.ID}))
	return nil
}

// Ship hands the package to the carrier. Requires a tracking number and a
// packed (or at least picked) shipment; flips the contained units.
func (sh *Shipment) Ship(trackingNumber string, now time.Time) error {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return domain.ErrTrackingNumberRequired
	}
	if sh.State != ShipmentPacked && sh.State != ShipmentPicked {
		return domain.TransitionError("shipment", string(sh.State), "ship")
	}
	sh.State = ShipmentShipped
	sh.ShippedAt = &now
	sh.TrackingNumber = trackingNumber
	for _, u := range sh.Units {
		if err := u.Ship(sh.ID); err != nil {
			return err
		}
	}
	sh.Record(event.New(event.ShipmentShipped, sh.OrderID, map[string]any{
		"shipment_id":     sh.ID,
		"tracking_number": trackingNumber,
	}))
	return nil
}

// Deliver closes the shipment.
func (sh *Shipment) Deliver(now time.Time) error {
	if sh.State != ShipmentShipped {
		return domain.TransitionError("shipment", string(sh.State), "deliver")
	}
	sh.State = ShipmentDelivered
	sh.DeliveredAt = &now
	sh.Record(event.New(event.ShipmentDelivered, sh.OrderID, map[string]any{"shipment_id": sh.ID}))
	return nil
}

// Cancel aborts the shipment. Fails once items have left the building.
func (sh *Shipment) Cancel() error {
	if sh.State == ShipmentShipped || sh.State == ShipmentDelivered {
		return domain.ErrAlreadyShipped
	}
	if sh.State == ShipmentCanceled {
		return nil
	}
	sh.State = ShipmentCanceled
	for _, u := range sh.Units {
		if err := u.Cancel(); err != nil {
			return err
		}
	}
	sh.Record(event.New(event.ShipmentCanceled, sh.OrderID, map[string]any{"shipment_id": sh.ID}))
	return nil
}

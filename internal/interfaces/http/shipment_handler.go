package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/fulfillment-api/internal/application/shipping"
	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
)

// ShipmentHandler serves the warehouse workflow.
type ShipmentHandler struct {
	uc *shipping.ShipmentUseCase
}

func NewShipmentHandler(uc *shipping.ShipmentUseCase) *ShipmentHandler {
	return &ShipmentHandler{uc: uc}
}

func (h *ShipmentHandler) Pick(c *fiber.Ctx) error {
	return h.respond(c)(h.uc.Pick(c.Context(), c.Params("id")))
}

func (h *ShipmentHandler) Pack(c *fiber.Ctx) error {
	return h.respond(c)(h.uc.Pack(c.Context(), c.Params("id")))
}

func (h *ShipmentHandler) Ship(c *fiber.Ctx) error {
	var in ShipRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "INVALID_BODY", Message: "invalid request body"})
	}
	return h.respond(c)(h.uc.Ship(c.Context(), c.Params("id"), in.TrackingNumber))
}

func (h *ShipmentHandler) Deliver(c *fiber.Ctx) error {
	return h.respond(c)(h.uc.Deliver(c.Context(), c.Params("id")))
}

func (h *ShipmentHandler) Cancel(c *fiber.Ctx) error {
	return h.respond(c)(h.uc.Cancel(c.Context(), c.Params("id")))
}

func (h *ShipmentHandler) respond(c *fiber.Ctx) func(*entity.Shipment, error) error {
	return func(sh *entity.Shipment, err error) error {
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(toShipmentResponse(sh))
	}
}

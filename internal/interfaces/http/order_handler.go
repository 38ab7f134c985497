package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/fulfillment-api/internal/application/ordering"
	"github.com/jhoicas/fulfillment-api/internal/application/payment"
)

// OrderHandler serves the order lifecycle: cart building, advancement,
// placement, cancellation and returns.
type OrderHandler struct {
	cart    *ordering.CartUseCase
	place   *ordering.PlaceOrderUseCase
	cancel  *ordering.CancelOrderUseCase
	returns *ordering.ReturnOrderUseCase
}

func NewOrderHandler(
	cart *ordering.CartUseCase,
	place *ordering.PlaceOrderUseCase,
	cancel *ordering.CancelOrderUseCase,
	returns *ordering.ReturnOrderUseCase,
) *OrderHandler {
	return &OrderHandler{cart: cart, place: place, cancel: cancel, returns: returns}
}

func (h *OrderHandler) Create(c *fiber.Ctx) error {
	var in CreateOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "INVALID_BODY", Message: "invalid request body"})
	}
	order, err := h.cart.Create(c.Context(), in.Currency, in.Email)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toOrderResponse(order))
}

func (h *OrderHandler) Get(c *fiber.Ctx) error {
	order, err := h.cart.Get(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toOrderResponse(order))
}

func (h *OrderHandler) AddLineItem(c *fiber.Ctx) error {
	var in AddLineItemRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "INVALID_BODY", Message: "invalid request body"})
	}
	order, err := h.cart.AddLineItem(c.Context(), c.Params("id"), in.VariantID, in.Quantity, in.PriceCentsOverride)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toOrderResponse(order))
}

func (h *OrderHandler) RemoveLineItem(c *fiber.Ctx) error {
	order, err := h.cart.RemoveLineItem(c.Context(), c.Params("id"), c.Params("lineItemId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toOrderResponse(order))
}

func (h *OrderHandler) SetAddresses(c *fiber.Ctx) error {
	var in SetAddressesRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "INVALID_BODY", Message: "invalid request body"})
	}
	order, err := h.cart.SetAddresses(c.Context(), c.Params("id"), in.ShipAddressID, in.BillAddressID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toOrderResponse(order))
}

func (h *OrderHandler) SetShippingMethod(c *fiber.Ctx) error {
	var in SetShippingMethodRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "INVALID_BODY", Message: "invalid request body"})
	}
	order, err := h.cart.SetShippingMethod(c.Context(), c.Params("id"), in.ShippingMethodID, in.CostCents)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toOrderResponse(order))
}

func (h *OrderHandler) Next(c *fiber.Ctx) error {
	order, err := h.cart.Next(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toOrderResponse(order))
}

func (h *OrderHandler) Place(c *fiber.Ctx) error {
	var in PlaceOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "INVALID_BODY", Message: "invalid request body"})
	}
	method, err := payment.ParseMethodType(in.Method)
	if err != nil {
		return respondError(c, err)
	}
	order, err := h.place.Place(c.Context(), ordering.PlaceInput{
		OrderID:        c.Params("id"),
		Method:         method,
		IdempotencyKey: in.IdempotencyKey,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toOrderResponse(order))
}

func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	var in CancelOrderRequest
	_ = c.BodyParser(&in) // reason is optional
	order, err := h.cancel.Cancel(c.Context(), c.Params("id"), in.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toOrderResponse(order))
}

func (h *OrderHandler) Return(c *fiber.Ctx) error {
	var in CancelOrderRequest
	_ = c.BodyParser(&in)
	order, err := h.returns.Return(c.Context(), c.Params("id"), in.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toOrderResponse(order))
}

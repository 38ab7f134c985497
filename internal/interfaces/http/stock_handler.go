package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/fulfillment-api/internal/application/inventory"
	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
)

// StockHandler serves the admin stock surface.
type StockHandler struct {
	items    *inventory.StockItemService
	adjust   *inventory.AdjustStockUseCase
	transfer *inventory.TransferUseCase
}

func NewStockHandler(
	items *inventory.StockItemService,
	adjust *inventory.AdjustStockUseCase,
	transfer *inventory.TransferUseCase,
) *StockHandler {
	return &StockHandler{items: items, adjust: adjust, transfer: transfer}
}

func (h *StockHandler) Create(c *fiber.Ctx) error {
	var in CreateStockItemRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "INVALID_BODY", Message: "invalid request body"})
	}
	unitCost, err := parseCost(in.UnitCost)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "VALIDATION", Message: "invalid unit_cost"})
	}
	item, err := h.items.Create(c.Context(), inventory.CreateStockItemInput{
		VariantID:       in.VariantID,
		StockLocationID: in.StockLocationID,
		Sku:             in.Sku,
		InitialQuantity: in.InitialQuantity,
		UnitCost:        unitCost,
		Backorderable:   in.Backorderable,
		BackorderLimit:  in.BackorderLimit,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toStockItemResponse(item))
}

func (h *StockHandler) Get(c *fiber.Ctx) error {
	item, err := h.items.Get(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toStockItemResponse(item))
}

func (h *StockHandler) Adjust(c *fiber.Ctx) error {
	var in AdjustStockRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "INVALID_BODY", Message: "invalid request body"})
	}
	unitCost, err := parseCost(in.UnitCost)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "VALIDATION", Message: "invalid unit_cost"})
	}
	mv, err := h.adjust.Adjust(c.Context(), inventory.AdjustStockInput{
		StockItemID: c.Params("id"),
		Delta:       in.Delta,
		Type:        entity.StockMovementType(in.Type),
		UnitCost:    unitCost,
		Reason:      in.Reason,
		Reference:   in.Reference,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(mv))
}

func (h *StockHandler) Transfer(c *fiber.Ctx) error {
	var in TransferRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "INVALID_BODY", Message: "invalid request body"})
	}
	err := h.transfer.Transfer(c.Context(), inventory.TransferInput{
		VariantID:      in.VariantID,
		FromLocationID: in.FromLocationID,
		ToLocationID:   in.ToLocationID,
		Quantity:       in.Quantity,
		Reason:         in.Reason,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "transferred"})
}

func (h *StockHandler) Movements(c *fiber.Ctx) error {
	movements, err := h.items.ListMovements(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	out := make([]MovementResponse, 0, len(movements))
	for _, m := range movements {
		out = append(out, toMovementResponse(m))
	}
	return c.JSON(out)
}

func parseCost(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/fulfillment-api/internal/domain"
)

// respondError maps domain sentinels to HTTP codes. Unknown errors are 500
// with the message withheld.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrPaymentNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Code: "DUPLICATE", Message: err.Error()})
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrInvalidSignature):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Code: "UNAUTHORIZED", Message: err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{Code: "FORBIDDEN", Message: err.Error()})
	case errors.Is(err, domain.ErrInsufficientStock):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: err.Error()})
	case errors.Is(err, domain.ErrBackorderLimitExceeded):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Code: "BACKORDER_LIMIT", Message: err.Error()})
	case errors.Is(err, domain.ErrVersionConflict):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Code: "VERSION_CONFLICT", Message: err.Error()})
	case errors.Is(err, domain.ErrRefundExceedsBalance):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{Code: "REFUND_EXCEEDS_BALANCE", Message: err.Error()})
	case errors.Is(err, domain.ErrInsufficientPayment):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{Code: "INSUFFICIENT_PAYMENT", Message: err.Error()})
	case errors.Is(err, domain.ErrAlreadyShipped),
		errors.Is(err, domain.ErrCannotCancelCompleted),
		errors.Is(err, domain.ErrCannotVoidCaptured),
		errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Code: "ILLEGAL_TRANSITION", Message: err.Error()})
	case errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrAddressMissing),
		errors.Is(err, domain.ErrShippingMethodMissing),
		errors.Is(err, domain.ErrIncompleteAllocation),
		errors.Is(err, domain.ErrTrackingNumberRequired),
		errors.Is(err, domain.ErrTransactionRequired):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{Code: "GUARD_FAILED", Message: err.Error()})
	case errors.Is(err, domain.ErrProcessorNotFound):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "UNKNOWN_METHOD", Message: err.Error()})
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Code: "GATEWAY_UNAVAILABLE", Message: err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Code: "INTERNAL", Message: "internal error"})
}

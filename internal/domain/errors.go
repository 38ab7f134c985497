package domain

import (
	"errors"
	"fmt"
)

// Domain errors (no external dependencies). Business-rule violations are
// returned, never panicked; callers match with errors.Is.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrDuplicate    = errors.New("duplicate resource")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("access denied")
	ErrConflict     = errors.New("conflict with current state")

	// Stock ledger.
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrBackorderLimitExceeded = errors.New("backorder limit exceeded")
	ErrVersionConflict        = errors.New("stock item version conflict")

	// Order state machine.
	ErrEmptyCart              = errors.New("order has no line items")
	ErrAddressMissing         = errors.New("shipping or billing address missing")
	ErrShippingMethodMissing  = errors.New("shipping method not selected")
	ErrInsufficientPayment    = errors.New("captured payments do not cover order total")
	ErrIncompleteAllocation   = errors.New("not every inventory unit has a determined state")
	ErrCannotCancelCompleted  = errors.New("completed orders cannot be canceled")
	ErrPaymentNotFound        = errors.New("payment not found on order")

	// Payments.
	ErrRefundExceedsBalance = errors.New("refund exceeds remaining balance")
	ErrCannotVoidCaptured   = errors.New("captured payments cannot be voided")
	ErrTransactionRequired  = errors.New("gateway transaction id required")
	ErrProcessorNotFound    = errors.New("no payment processor registered for method type")
	ErrGatewayUnavailable   = errors.New("payment gateway unavailable")
	ErrInvalidSignature     = errors.New("webhook signature mismatch")

	// Shipments.
	ErrAlreadyShipped         = errors.New("shipment already handed to carrier")
	ErrTrackingNumberRequired = errors.New("tracking number required")
)

// TransitionError wraps ErrConflict with the illegal transition that was
// attempted, so callers can log the exact guard that failed.
func TransitionError(entity, from, attempted string) error {
	return fmt.Errorf("%w: %s cannot %s from %s", ErrConflict, entity, attempted, from)
}

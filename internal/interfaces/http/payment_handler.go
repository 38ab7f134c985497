package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/fulfillment-api/internal/application/payment"
)

// PaymentHandler serves gateway webhooks and refunds.
type PaymentHandler struct {
	webhook *payment.WebhookUseCase
	refund  *payment.RefundUseCase
}

func NewPaymentHandler(webhook *payment.WebhookUseCase, refund *payment.RefundUseCase) *PaymentHandler {
	return &PaymentHandler{webhook: webhook, refund: refund}
}

// Webhook receives gateway notifications. The raw body is verified against
// the X-Signature header before anything is parsed.
func (h *PaymentHandler) Webhook(c *fiber.Ctx) error {
	method := c.Query("method", string(payment.MethodManual))
	parsed, err := payment.ParseMethodType(method)
	if err != nil {
		return respondError(c, err)
	}
	signature := c.Get("X-Signature")
	if err := h.webhook.Handle(c.Context(), parsed, c.Body(), signature); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"status": "processed"})
}

func (h *PaymentHandler) Refund(c *fiber.Ctx) error {
	var in RefundRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "INVALID_BODY", Message: "invalid request body"})
	}
	p, err := h.refund.Refund(c.Context(), c.Params("id"), in.AmountCents, in.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toPaymentResponse(p))
}

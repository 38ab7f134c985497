package payment

import (
	"context"
	"fmt"

	"github.com/jhoicas/fulfillment-api/internal/domain"
	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
)

// MethodType is the closed set of supported payment methods. Gateways are
// selected by method type; an unknown type never reaches a processor.
type MethodType string

const (
	MethodManual       MethodType = "manual"
	MethodCreditCard   MethodType = "credit_card"
	MethodBankTransfer MethodType = "bank_transfer"
)

// ParseMethodType rejects anything outside the closed set.
func ParseMethodType(s string) (MethodType, error) {
	switch MethodType(s) {
	case MethodManual, MethodCreditCard, MethodBankTransfer:
		return MethodType(s), nil
	}
	return "", fmt.Errorf("%w: unknown payment method %q", domain.ErrProcessorNotFound, s)
}

// Settings carries per-gateway configuration (credentials, endpoints,
// webhook secrets). Processors read only the keys they know.
type Settings map[string]string

// Authorization is the gateway's answer to a Process call.
type Authorization struct {
	TransactionID string
	// Captured reports gateways that capture immediately on authorize.
	Captured bool
}

// WebhookEvent is a verified, normalized gateway notification.
type WebhookEvent struct {
	Type          string
	TransactionID string
	AmountCents   int64
}

// Webhook event types emitted by ProcessWebhook.
const (
	WebhookCaptured = "captured"
	WebhookFailed   = "failed"
	WebhookRefunded = "refunded"
)

// Processor is the provider-facing contract. Implementations live in
// infrastructure; the ordering and payment use cases only see this
// interface.
type Processor interface {
	Process(ctx context.Context, settings Settings, p *entity.Payment, amountCents int64, currency string) (Authorization, error)
	Refund(ctx context.Context, settings Settings, p *entity.Payment, amountCents int64) error
	ProcessWebhook(ctx context.Context, settings Settings, payload []byte, signature string) (WebhookEvent, error)
}

// Registry resolves processors by method type.
type Registry struct {
	processors map[MethodType]Processor
}

func NewRegistry() *Registry {
	return &Registry{processors: make(map[MethodType]Processor)}
}

// Register installs a processor for a method type, replacing any previous
// registration.
func (r *Registry) Register(method MethodType, p Processor) {
	r.processors[method] = p
}

// Resolve returns the processor for a method type or
// domain.ErrProcessorNotFound.
func (r *Registry) Resolve(method MethodType) (Processor, error) {
	p, ok := r.processors[method]
	if !ok {
		return nil, fmt.Errorf("%w: no processor for method %q", domain.ErrProcessorNotFound, method)
	}
	return p, nil
}

package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/fulfillment-api/internal/application/payment"
	"github.com/jhoicas/fulfillment-api/internal/domain"
	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
)

// SettingWebhookSecret is the settings key carrying the shared HMAC secret.
const SettingWebhookSecret = "webhook_secret"

var _ payment.Processor = (*ManualProcessor)(nil)

// ManualProcessor is the offline gateway: authorization always succeeds
// with a generated transaction id, capture arrives later as a webhook when
// an operator confirms the funds (bank transfer, cash on delivery).
type ManualProcessor struct{}

func NewManualProcessor() *ManualProcessor {
	return &ManualProcessor{}
}

// Process authorizes without capturing.
func (g *ManualProcessor) Process(_ context.Context, _ payment.Settings, _ *entity.Payment, amountCents int64, _ string) (payment.Authorization, error) {
	if amountCents < 1 {
		return payment.Authorization{}, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput)
	}
	return payment.Authorization{
		TransactionID: "man_" + uuid.New().String(),
		Captured:      false,
	}, nil
}

// Refund is bookkeeping only: there is no remote party to move money back.
func (g *ManualProcessor) Refund(_ context.Context, _ payment.Settings, p *entity.Payment, amountCents int64) error {
	if amountCents < 1 || amountCents > p.RemainingBalanceCents() {
		return domain.ErrRefundExceedsBalance
	}
	return nil
}

// webhookBody is the operator confirmation payload.
type webhookBody struct {
	Type          string `json:"type"`
	TransactionID string `json:"transaction_id"`
	AmountCents   int64  `json:"amount_cents"`
}

// ProcessWebhook verifies the HMAC-SHA256 signature over the raw body and
// decodes the event. A bad signature fails with ErrInvalidSignature before
// the payload is even parsed.
func (g *ManualProcessor) ProcessWebhook(_ context.Context, settings payment.Settings, payload []byte, signature string) (payment.WebhookEvent, error) {
	secret := settings[SettingWebhookSecret]
	if secret == "" {
		return payment.WebhookEvent{}, fmt.Errorf("%w: webhook secret not configured", domain.ErrGatewayUnavailable)
	}
	if !verifySignature(secret, payload, signature) {
		return payment.WebhookEvent{}, domain.ErrInvalidSignature
	}

	var body webhookBody
	if err := json.Unmarshal(payload, &body); err != nil {
		return payment.WebhookEvent{}, fmt.Errorf("%w: malformed webhook payload", domain.ErrInvalidInput)
	}
	return payment.WebhookEvent{
		Type:          body.Type,
		TransactionID: body.TransactionID,
		AmountCents:   body.AmountCents,
	}, nil
}

// Sign computes the hex HMAC-SHA256 of payload, the signature operators
// (and tests) attach to webhook requests.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func verifySignature(secret string, payload []byte, signature string) bool {
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), expected)
}

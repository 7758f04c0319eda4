package paystack

import "time"

// Transaction statuses reported by the gateway.
const (
	TxnStatusSuccess   = "success"
	TxnStatusFailed    = "failed"
	TxnStatusAbandoned = "abandoned"
)

// InitializeRequest is the body for POST /transaction/initialize.
type InitializeRequest struct {
	Email       string `json:"email"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	Reference   string `json:"reference"`
	CallbackURL string `json:"callback_url,omitempty"`
}

// InitializeResult carries the checkout handle returned by the gateway.
type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// VerifyResult is the transaction state reported by GET /transaction/verify.
type VerifyResult struct {
	Status      string     `json:"status"`
	Reference   string     `json:"reference"`
	AmountMinor int64      `json:"amount"`
	Currency    string     `json:"currency"`
	GatewayID   int64      `json:"id"`
	PaidAt      *time.Time `json:"paid_at"`
}

// Succeeded reports whether the gateway settled the charge.
func (v VerifyResult) Succeeded() bool {
	return v.Status == TxnStatusSuccess
}

type apiEnvelope[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// WebhookEvent is the body Paystack posts to the webhook endpoint.
type WebhookEvent struct {
	Event string           `json:"event"`
	Data  WebhookEventData `json:"data"`
}

// WebhookEventData is the subset of charge fields the webhook handler reads.
type WebhookEventData struct {
	ID          int64  `json:"id"`
	Reference   string `json:"reference"`
	Status      string `json:"status"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
}

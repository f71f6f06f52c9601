package paystack

import (
	"encoding/json"
	"time"

	"github.com/kofiasante/kasuwa-backend/pkg/money"
)

// InitializeParams are the inputs for creating a hosted checkout transaction.
type InitializeParams struct {
	Email       string
	Amount      money.Money
	Reference   string
	CallbackURL string
}

// InitializeResult carries the hosted payment page handles.
type InitializeResult struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// VerifyResult is the gateway's view of a transaction. Amount is what the
// gateway claims was charged; callers must cross-check it against their own
// records before trusting it.
type VerifyResult struct {
	Status    string
	Reference string
	Amount    money.Money
	Currency  string
	Channel   string
	PaidAt    *time.Time
	GatewayID int64
}

// Succeeded reports whether the gateway settled the charge.
func (v VerifyResult) Succeeded() bool {
	return v.Status == "success"
}

// WebhookEvent is the envelope delivered to the webhook endpoint.
type WebhookEvent struct {
	Event string          `json:"event"`
	Data  WebhookData     `json:"data"`
	Raw   json.RawMessage `json:"-"`
}

// WebhookData is the transaction payload inside a charge event.
type WebhookData struct {
	ID        int64  `json:"id"`
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Channel   string `json:"channel"`
	PaidAt    string `json:"paid_at"`
}

const (
	// EventChargeSuccess is emitted when a charge settles.
	EventChargeSuccess = "charge.success"
)

type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type verifyData struct {
	ID        int64  `json:"id"`
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Channel   string `json:"channel"`
	PaidAt    string `json:"paid_at"`
}

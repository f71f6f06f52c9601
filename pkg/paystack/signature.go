package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"

	pkgerrors "github.com/kofiasante/kasuwa-backend/pkg/errors"
)

// SignatureHeader is the HTTP header carrying the webhook signature.
const SignatureHeader = "X-Paystack-Signature"

// ComputeSignature returns the hex HMAC-SHA512 of body under the secret key.
func ComputeSignature(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidateWebhookSignature checks the signature against the raw request body.
// The body must be the exact bytes received; re-serialized JSON will not match.
func ValidateWebhookSignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := ComputeSignature(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ParseWebhookEvent validates the signature and decodes the event envelope.
func ParseWebhookEvent(secret string, body []byte, signature string) (*WebhookEvent, error) {
	if !ValidateWebhookSignature(secret, body, signature) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")
	}
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decoding webhook payload")
	}
	event.Raw = body
	return &event, nil
}

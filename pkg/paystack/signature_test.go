package paystack

import (
	"testing"

	pkgerrors "github.com/kofiasante/kasuwa-backend/pkg/errors"
)

const webhookBody = `{"event":"charge.success","data":{"id":1,"status":"success","reference":"KPAY-abc","amount":4000,"currency":"GHS","channel":"card","paid_at":"2026-08-30T10:00:00Z"}}`

func TestValidateWebhookSignature(t *testing.T) {
	secret := "sk_test_secret"
	body := []byte(webhookBody)
	signature := ComputeSignature(secret, body)

	if !ValidateWebhookSignature(secret, body, signature) {
		t.Fatal("expected signature to validate")
	}
	if ValidateWebhookSignature(secret, body, signature+"00") {
		t.Fatal("tampered signature should fail")
	}
	if ValidateWebhookSignature(secret, append(body, ' '), signature) {
		t.Fatal("tampered body should fail")
	}
	if ValidateWebhookSignature("other-secret", body, signature) {
		t.Fatal("wrong secret should fail")
	}
	if ValidateWebhookSignature(secret, body, "") {
		t.Fatal("empty signature should fail")
	}
}

func TestParseWebhookEvent(t *testing.T) {
	secret := "sk_test_secret"
	body := []byte(webhookBody)

	event, err := ParseWebhookEvent(secret, body, ComputeSignature(secret, body))
	if err != nil {
		t.Fatalf("parse webhook: %v", err)
	}
	if event.Event != EventChargeSuccess {
		t.Fatalf("unexpected event %q", event.Event)
	}
	if event.Data.Reference != "KPAY-abc" {
		t.Fatalf("unexpected reference %q", event.Data.Reference)
	}
	if event.Data.Amount != 4000 {
		t.Fatalf("unexpected amount %d", event.Data.Amount)
	}
}

func TestParseWebhookEventRejectsBadSignature(t *testing.T) {
	_, err := ParseWebhookEvent("sk_test_secret", []byte(webhookBody), "deadbeef")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

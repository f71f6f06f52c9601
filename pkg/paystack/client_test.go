package paystack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kofiasante/kasuwa-backend/pkg/config"
	pkgerrors "github.com/kofiasante/kasuwa-backend/pkg/errors"
	"github.com/kofiasante/kasuwa-backend/pkg/logger"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(config.PaystackConfig{
		SecretKey:      "sk_test_secret",
		BaseURL:        baseURL,
		RequestTimeout: 2 * time.Second,
		MaxRetries:     2,
	}, logger.New(logger.Options{ServiceName: "paystack-test"}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestInitializeTransaction(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/transaction/initialize" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["amount"] != float64(250000) {
			t.Fatalf("expected amount 250000, got %v", body["amount"])
		}
		if body["currency"] != "GHS" {
			t.Fatalf("expected GHS currency, got %v", body["currency"])
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Authorization URL created",
			"data": map[string]any{
				"authorization_url": "https://checkout.paystack.com/abc123",
				"access_code":       "abc123",
				"reference":         body["reference"],
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result, err := client.InitializeTransaction(context.Background(), InitializeParams{
		Email:     "ama@example.com",
		Amount:    250000,
		Reference: "KPAY-test-1",
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if result.AuthorizationURL != "https://checkout.paystack.com/abc123" {
		t.Fatalf("unexpected authorization url %q", result.AuthorizationURL)
	}
	if result.Reference != "KPAY-test-1" {
		t.Fatalf("unexpected reference %q", result.Reference)
	}
	if gotAuth != "Bearer sk_test_secret" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
}

func TestInitializeTransactionValidation(t *testing.T) {
	client := newTestClient(t, "http://localhost:1")

	tests := []struct {
		name   string
		params InitializeParams
	}{
		{"missing email", InitializeParams{Amount: 100, Reference: "r"}},
		{"zero amount", InitializeParams{Email: "a@b.com", Reference: "r"}},
		{"missing reference", InitializeParams{Email: "a@b.com", Amount: 100}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := client.InitializeTransaction(context.Background(), tc.params)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestVerifyTransactionRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data": map[string]any{
				"id":        12345,
				"status":    "success",
				"reference": "KPAY-test-2",
				"amount":    4000,
				"currency":  "GHS",
				"channel":   "mobile_money",
				"paid_at":   "2026-08-30T10:00:00Z",
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result, err := client.VerifyTransaction(context.Background(), "KPAY-test-2")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
	if !result.Succeeded() {
		t.Fatalf("expected success status, got %q", result.Status)
	}
	if result.Amount != 4000 {
		t.Fatalf("unexpected amount %d", result.Amount)
	}
	if result.PaidAt == nil {
		t.Fatal("expected paid_at to parse")
	}
}

func TestVerifyTransactionDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  false,
			"message": "Transaction reference not found",
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.VerifyTransaction(context.Background(), "missing-ref")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("4xx should not retry, got %d calls", calls.Load())
	}
}

func TestNewClientRequiresSecret(t *testing.T) {
	_, err := NewClient(config.PaystackConfig{}, logger.New(logger.Options{ServiceName: "t"}))
	if err == nil {
		t.Fatal("expected error for missing secret key")
	}
}

package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/kofiasante/kasuwa-backend/pkg/config"
	pkgerrors "github.com/kofiasante/kasuwa-backend/pkg/errors"
	"github.com/kofiasante/kasuwa-backend/pkg/logger"
	"github.com/kofiasante/kasuwa-backend/pkg/money"
)

const (
	defaultTimeout     = 15 * time.Second
	defaultMaxRetries  = 3
	initialBackoff     = 250 * time.Millisecond
	maxResponseBodyLen = 1 << 20
)

var (
	errSecretKeyRequired = errors.New("paystack secret key is required")
	errLoggerRequired    = errors.New("paystack logger is required")
)

// Client wraps the Paystack REST API with auth, timeouts, bounded retries and
// error mapping. Transport failures and 5xx responses are retried; 4xx
// responses are not.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	secretKey   string
	callbackURL string
	maxRetries  int
	logger      *logger.Logger
}

// NewClient initializes the Paystack wrapper and validates the credentials.
func NewClient(cfg config.PaystackConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		return nil, errSecretKeyRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.paystack.co"
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		secretKey:   secretKey,
		callbackURL: strings.TrimSpace(cfg.CallbackURL),
		maxRetries:  maxRetries,
		logger:      logg,
	}, nil
}

// SecretKey returns the configured API secret, which also signs webhooks.
func (c *Client) SecretKey() string {
	if c == nil {
		return ""
	}
	return c.secretKey
}

// InitializeTransaction creates a hosted checkout session for the given amount.
func (c *Client) InitializeTransaction(ctx context.Context, params InitializeParams) (*InitializeResult, error) {
	if strings.TrimSpace(params.Email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if params.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if strings.TrimSpace(params.Reference) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}

	body := map[string]any{
		"email":     params.Email,
		"amount":    params.Amount.MinorUnits(),
		"reference": params.Reference,
		"currency":  "GHS",
	}
	callback := params.CallbackURL
	if callback == "" {
		callback = c.callbackURL
	}
	if callback != "" {
		body["callback_url"] = callback
	}

	var data initializeData
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", body, &data); err != nil {
		return nil, err
	}
	return &InitializeResult{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Reference:        data.Reference,
	}, nil
}

// VerifyTransaction fetches the gateway's settlement state for a reference.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*VerifyResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}

	var data verifyData
	path := "/transaction/verify/" + url.PathEscape(reference)
	if err := c.do(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}

	result := &VerifyResult{
		Status:    data.Status,
		Reference: data.Reference,
		Amount:    money.Money(data.Amount),
		Currency:  data.Currency,
		Channel:   data.Channel,
		GatewayID: data.ID,
	}
	if data.PaidAt != "" {
		if paidAt, err := time.Parse(time.RFC3339, data.PaidAt); err == nil {
			result.PaidAt = &paidAt
		}
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding gateway request")
		}
		payload = encoded
	}

	backoff := retry.WithMaxRetries(uint64(c.maxRetries), retry.NewExponential(initialBackoff))

	var envelope apiEnvelope
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building gateway request")
		}
		req.Header.Set("Authorization", "Bearer "+c.secretKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway unreachable"))
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyLen))
		if err != nil {
			return retry.RetryableError(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading gateway response"))
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			return retry.RetryableError(pkgerrors.New(
				pkgerrors.CodeDependency,
				fmt.Sprintf("payment gateway returned %d", resp.StatusCode),
			))
		}
		if resp.StatusCode >= http.StatusBadRequest {
			return gatewayRejection(resp.StatusCode, raw)
		}

		if err := json.Unmarshal(raw, &envelope); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding gateway response")
		}
		if !envelope.Status {
			return pkgerrors.New(pkgerrors.CodeDependency, "payment gateway rejected the request").
				WithDetails(map[string]any{"message": envelope.Message})
		}
		return nil
	})
	if err != nil {
		return err
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding gateway payload")
		}
	}
	return nil
}

func gatewayRejection(status int, raw []byte) error {
	var envelope apiEnvelope
	message := "payment gateway rejected the request"
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Message != "" {
		message = envelope.Message
	}
	if status == http.StatusNotFound {
		return pkgerrors.New(pkgerrors.CodeNotFound, message)
	}
	return pkgerrors.New(pkgerrors.CodeDependency, message).
		WithDetails(map[string]any{"status": status})
}

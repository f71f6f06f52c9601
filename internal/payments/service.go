package payments

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kofiasante/kasuwa-backend/pkg/db/models"
	"github.com/kofiasante/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kofiasante/kasuwa-backend/pkg/errors"
	"github.com/kofiasante/kasuwa-backend/pkg/logger"
	"github.com/kofiasante/kasuwa-backend/pkg/metrics"
	"github.com/kofiasante/kasuwa-backend/pkg/money"
	"github.com/kofiasante/kasuwa-backend/pkg/outbox"
	"github.com/kofiasante/kasuwa-backend/pkg/outbox/payloads"
	"github.com/kofiasante/kasuwa-backend/pkg/paystack"
)

const webhookDedupeTTL = 48 * time.Hour

type gateway interface {
	InitializeTransaction(ctx context.Context, params paystack.InitializeParams) (*paystack.InitializeResult, error)
	VerifyTransaction(ctx context.Context, reference string) (*paystack.VerifyResult, error)
	SecretKey() string
}

type orderSettler interface {
	MarkPaid(ctx context.Context, checkoutID uuid.UUID, paymentRef string, paidAt time.Time) error
}

type checkoutReader interface {
	FindByCheckoutID(ctx context.Context, checkoutID uuid.UUID) ([]models.Order, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type dedupeStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service drives the gateway handshake: initialize, verify, webhook.
type Service interface {
	Initialize(ctx context.Context, input InitializeInput) (*PaymentDTO, error)
	Verify(ctx context.Context, reference string) (*PaymentDTO, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) error
}

// InitializeInput is the validated initialize payload.
type InitializeInput struct {
	CheckoutID  uuid.UUID
	Email       string
	CallbackURL string
}

// PaymentDTO is the payment payload returned to clients.
type PaymentDTO struct {
	ID               uuid.UUID           `json:"id"`
	CheckoutID       uuid.UUID           `json:"checkout_id"`
	Reference        string              `json:"reference"`
	AmountCents      int64               `json:"amount_cents"`
	Status           enums.PaymentStatus `json:"status"`
	AuthorizationURL *string             `json:"authorization_url,omitempty"`
	Channel          *string             `json:"channel,omitempty"`
	PaidAt           *time.Time          `json:"paid_at,omitempty"`
}

type service struct {
	repo    *Repository
	orders  checkoutReader
	settler orderSettler
	gateway gateway
	tx      txRunner
	dedupe  dedupeStore
	outbox  outboxPublisher
	metrics *metrics.OrderMetrics
	logg    *logger.Logger
}

// NewService builds the payments service.
func NewService(
	repo *Repository,
	ordersRepo checkoutReader,
	settler orderSettler,
	gw gateway,
	tx txRunner,
	dedupe dedupeStore,
	publisher outboxPublisher,
	m *metrics.OrderMetrics,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if settler == nil {
		return nil, fmt.Errorf("order settler required")
	}
	if gw == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if dedupe == nil {
		return nil, fmt.Errorf("dedupe store required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		orders:  ordersRepo,
		settler: settler,
		gateway: gw,
		tx:      tx,
		dedupe:  dedupe,
		outbox:  publisher,
		metrics: m,
		logg:    logg,
	}, nil
}

// Initialize opens a gateway transaction covering every pending order in the
// checkout. Only pending checkouts can start paying.
func (s *service) Initialize(ctx context.Context, input InitializeInput) (*PaymentDTO, error) {
	if input.CheckoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout id required")
	}
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}

	rows, err := s.orders.FindByCheckoutID(ctx, input.CheckoutID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no orders for checkout")
	}

	var amount money.Money
	for _, order := range rows {
		if order.Status != enums.OrderStatusPending {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout is no longer payable").
				WithDetails(map[string]any{"order_number": order.OrderNumber, "status": order.Status})
		}
		amount = amount.Add(order.TotalCents)
	}

	reference, err := newPaymentReference()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "assign payment reference")
	}

	payment, err := s.repo.Create(ctx, &models.Payment{
		CheckoutID:  input.CheckoutID,
		Reference:   reference,
		Email:       email,
		AmountCents: amount,
		Status:      enums.PaymentStatusInitialized,
	})
	if err != nil {
		return nil, err
	}

	result, err := s.gateway.InitializeTransaction(ctx, paystack.InitializeParams{
		Email:       email,
		Amount:      amount,
		Reference:   reference,
		CallbackURL: input.CallbackURL,
	})
	if err != nil {
		s.metrics.IncGatewayCall("initialize", "error")
		return nil, err
	}
	s.metrics.IncGatewayCall("initialize", "ok")

	if err := s.repo.Update(ctx, payment.ID, map[string]any{
		"authorization_url": result.AuthorizationURL,
	}); err != nil {
		return nil, err
	}
	payment.AuthorizationURL = &result.AuthorizationURL
	return toPaymentDTO(payment), nil
}

// Verify asks the gateway for the transaction outcome and settles the orders
// when the charge succeeded. The gateway-reported amount is cross-checked
// against our own total; a mismatch never settles.
func (s *service) Verify(ctx context.Context, reference string) (*PaymentDTO, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference required")
	}

	payment, err := s.repo.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if payment.Status == enums.PaymentStatusSucceeded {
		return toPaymentDTO(payment), nil
	}

	result, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		s.metrics.IncGatewayCall("verify", "error")
		return nil, err
	}
	s.metrics.IncGatewayCall("verify", "ok")

	if !result.Succeeded() {
		status := enums.PaymentStatusFailed
		if result.Status == "abandoned" {
			status = enums.PaymentStatusAbandoned
		}
		if err := s.repo.Update(ctx, payment.ID, map[string]any{
			"status":         status,
			"failure_reason": result.Status,
		}); err != nil {
			return nil, err
		}
		payment.Status = status
		return toPaymentDTO(payment), nil
	}

	paidAt := time.Now()
	if result.PaidAt != nil {
		paidAt = *result.PaidAt
	}
	if err := s.settle(ctx, payment, result.Amount, result.Channel, paidAt); err != nil {
		return nil, err
	}

	fresh, err := s.repo.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	return toPaymentDTO(fresh), nil
}

// HandleWebhook authenticates and settles gateway callbacks. Returns
// CodeUnauthorized for bad signatures; any other failure after the signature
// validates should still be answered 200 by the controller so the gateway
// stops retrying — the verify path can always reconcile later.
func (s *service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	event, err := paystack.ParseWebhookEvent(s.gateway.SecretKey(), body, signature)
	if err != nil {
		return err
	}
	if event.Event != paystack.EventChargeSuccess {
		s.logg.Info(s.logg.WithField(ctx, "event", event.Event), "ignoring webhook event")
		return nil
	}

	dedupeKey := s.dedupe.IdempotencyKey("webhook", event.Data.Reference)
	firstDelivery, err := s.dedupe.SetNX(ctx, dedupeKey, time.Now().Unix(), webhookDedupeTTL)
	if err != nil {
		// Redis being down must not drop the settlement; the ledger's own
		// idempotency absorbs the replay.
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "webhook dedupe unavailable")
	} else if !firstDelivery {
		return nil
	}

	payment, err := s.repo.FindByReference(ctx, event.Data.Reference)
	if err != nil {
		return err
	}
	if payment.Status == enums.PaymentStatusSucceeded {
		return nil
	}

	paidAt := time.Now()
	if ts, perr := time.Parse(time.RFC3339, event.Data.PaidAt); perr == nil {
		paidAt = ts
	}
	return s.settle(ctx, payment, money.Money(event.Data.Amount), event.Data.Channel, paidAt)
}

// settle cross-checks the reported amount and runs the shared success path.
// The order transitions land first (MarkPaid is idempotent, so a crash in
// between is healed by the next verify or webhook replay), then the payment
// row and its outbox event commit together.
func (s *service) settle(ctx context.Context, payment *models.Payment, reportedAmount money.Money, channel string, paidAt time.Time) error {
	if reportedAmount.Cmp(payment.AmountCents) != 0 {
		s.logg.Error(s.logg.WithFields(ctx, map[string]any{
			"reference": payment.Reference,
			"expected":  payment.AmountCents.MinorUnits(),
			"reported":  reportedAmount.MinorUnits(),
		}), "gateway amount mismatch", nil)
		return pkgerrors.New(pkgerrors.CodeValidation, "reported amount does not match the checkout total").
			WithDetails(map[string]any{"reference": payment.Reference})
	}

	if err := s.settler.MarkPaid(ctx, payment.CheckoutID, payment.Reference, paidAt); err != nil {
		return err
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Update(ctx, payment.ID, map[string]any{
			"status":  enums.PaymentStatusSucceeded,
			"channel": channel,
			"paid_at": paidAt,
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentSucceeded,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Data: payloads.PaymentSettledEvent{
				CheckoutID:  payment.CheckoutID,
				Reference:   payment.Reference,
				AmountCents: int64(payment.AmountCents),
				Channel:     channel,
				PaidAt:      paidAt,
			},
		})
	})
}

func toPaymentDTO(m *models.Payment) *PaymentDTO {
	return &PaymentDTO{
		ID:               m.ID,
		CheckoutID:       m.CheckoutID,
		Reference:        m.Reference,
		AmountCents:      int64(m.AmountCents),
		Status:           m.Status,
		AuthorizationURL: m.AuthorizationURL,
		Channel:          m.Channel,
		PaidAt:           m.PaidAt,
	}
}

func newPaymentReference() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "KPAY-" + hex.EncodeToString(buf), nil
}

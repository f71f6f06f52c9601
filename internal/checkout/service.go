package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kofiasante/kasuwa-backend/internal/cart"
	"github.com/kofiasante/kasuwa-backend/internal/orders"
	"github.com/kofiasante/kasuwa-backend/pkg/config"
	"github.com/kofiasante/kasuwa-backend/pkg/db/models"
	"github.com/kofiasante/kasuwa-backend/pkg/delivery"
	"github.com/kofiasante/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kofiasante/kasuwa-backend/pkg/errors"
	"github.com/kofiasante/kasuwa-backend/pkg/metrics"
	"github.com/kofiasante/kasuwa-backend/pkg/money"
	"github.com/kofiasante/kasuwa-backend/pkg/outbox"
	"github.com/kofiasante/kasuwa-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindActiveByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service executes checkout orchestration: cart lines in, pending orders out.
type Service interface {
	Execute(ctx context.Context, input CheckoutInput) (*CheckoutResult, error)
}

// CheckoutInput captures the validated checkout payload. BuyerID is nil for
// guest checkouts, which then must carry lines inline instead of a cart.
type CheckoutInput struct {
	BuyerID          *uuid.UUID
	BuyerEmail       string
	DeliveryLocation string
	GuestLines       []GuestLine
}

// GuestLine is one product+quantity pair for checkouts without an account.
type GuestLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// CheckoutResult reports the fan-out: one order per cart line plus the
// payment amount the gateway should collect.
type CheckoutResult struct {
	CheckoutID       uuid.UUID         `json:"checkout_id"`
	Orders           []orders.OrderDTO `json:"orders"`
	AmountCents      int64             `json:"amount_cents"`
	DeliveryTier     delivery.Tier     `json:"delivery_tier"`
	DeliveryFeeCents int64             `json:"delivery_fee_cents"`
	ExpiresAt        time.Time         `json:"expires_at"`
}

type service struct {
	tx          txRunner
	cartRepo    *cart.Repository
	ordersRepo  orders.Repository
	products    productLoader
	reservation Reserver
	outbox      outboxPublisher
	metrics     *metrics.OrderMetrics
	cfg         config.OrdersConfig
}

// NewService builds the checkout service.
func NewService(
	tx txRunner,
	cartRepo *cart.Repository,
	ordersRepo orders.Repository,
	products productLoader,
	reservation Reserver,
	publisher outboxPublisher,
	m *metrics.OrderMetrics,
	cfg config.OrdersConfig,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if reservation == nil {
		reservation = NewReserver()
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		tx:          tx,
		cartRepo:    cartRepo,
		ordersRepo:  ordersRepo,
		products:    products,
		reservation: reservation,
		outbox:      publisher,
		metrics:     m,
		cfg:         cfg,
	}, nil
}

type checkoutLine struct {
	productID uuid.UUID
	quantity  int
}

func (s *service) Execute(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	email := strings.TrimSpace(strings.ToLower(input.BuyerEmail))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer email required")
	}

	tier, fee, err := delivery.Quote(input.DeliveryLocation)
	if err != nil {
		return nil, err
	}

	var result *CheckoutResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		lines, err := s.collectLines(ctx, tx, input)
		if err != nil {
			return err
		}

		checkoutID := uuid.New()
		expiresAt := time.Now().Add(s.cfg.PendingPaymentTTL)
		created := make([]orders.OrderDTO, 0, len(lines))
		var amount money.Money

		ordersRepo := s.ordersRepo.WithTx(tx)
		for _, line := range lines {
			// Reprice from the live row; the cart snapshot is display-only.
			product, err := s.products.FindActiveByID(ctx, line.productID)
			if err != nil {
				return err
			}
			if err := s.reservation.Reserve(ctx, tx, product.ID, line.quantity); err != nil {
				return err
			}

			unitPrice := product.EffectivePrice()
			subtotal, err := unitPrice.MulQty(line.quantity)
			if err != nil {
				return err
			}
			total := subtotal.Add(fee)

			orderNumber, err := NewOrderNumber()
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "assign order number")
			}

			order := models.Order{
				OrderNumber:      orderNumber,
				CheckoutID:       checkoutID,
				BuyerID:          input.BuyerID,
				BuyerEmail:       email,
				SellerID:         product.SellerID,
				ProductID:        product.ID,
				ProductName:      product.Name,
				Quantity:         line.quantity,
				UnitPriceCents:   unitPrice,
				SubtotalCents:    subtotal,
				DeliveryFeeCents: fee,
				TotalCents:       total,
				DeliveryLocation: strings.TrimSpace(input.DeliveryLocation),
				DeliveryTier:     tier,
				Status:           enums.OrderStatusPending,
				EscrowStatus:     enums.EscrowStatusNone,
				ExpiresAt:        &expiresAt,
			}
			row, err := ordersRepo.Create(ctx, &order)
			if err != nil {
				return err
			}

			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   row.ID,
				Data: payloads.OrderCreatedEvent{
					CheckoutID:  checkoutID,
					OrderID:     row.ID,
					OrderNumber: row.OrderNumber,
					SellerID:    row.SellerID,
					TotalCents:  int64(row.TotalCents),
				},
			}); err != nil {
				return err
			}

			s.metrics.IncOrderCreated(string(tier))
			created = append(created, orders.ToOrderDTO(*row))
			amount = amount.Add(total)
		}

		if input.BuyerID != nil {
			if err := s.cartRepo.WithTx(tx).Clear(ctx, *input.BuyerID); err != nil {
				return err
			}
		}

		result = &CheckoutResult{
			CheckoutID:       checkoutID,
			Orders:           created,
			AmountCents:      int64(amount),
			DeliveryTier:     tier,
			DeliveryFeeCents: int64(fee),
			ExpiresAt:        expiresAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// collectLines resolves what is being bought: the buyer's cart for account
// checkouts, the inline lines for guests.
func (s *service) collectLines(ctx context.Context, tx *gorm.DB, input CheckoutInput) ([]checkoutLine, error) {
	if input.BuyerID != nil {
		items, err := s.cartRepo.WithTx(tx).ListByBuyer(ctx, *input.BuyerID)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
		}
		lines := make([]checkoutLine, len(items))
		for i, item := range items {
			lines[i] = checkoutLine{productID: item.ProductID, quantity: item.Quantity}
		}
		return lines, nil
	}

	if len(input.GuestLines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout requires at least one line")
	}
	lines := make([]checkoutLine, len(input.GuestLines))
	for i, line := range input.GuestLines {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		lines[i] = checkoutLine{productID: line.ProductID, quantity: line.Quantity}
	}
	return lines, nil
}

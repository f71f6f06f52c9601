package checkout

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kofiasante/kasuwa-backend/internal/cart"
	"github.com/kofiasante/kasuwa-backend/internal/orders"
	product "github.com/kofiasante/kasuwa-backend/internal/products"
	"github.com/kofiasante/kasuwa-backend/pkg/config"
	"github.com/kofiasante/kasuwa-backend/pkg/db/models"
	"github.com/kofiasante/kasuwa-backend/pkg/delivery"
	"github.com/kofiasante/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kofiasante/kasuwa-backend/pkg/errors"
	"github.com/kofiasante/kasuwa-backend/pkg/money"
	"github.com/kofiasante/kasuwa-backend/pkg/outbox"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (g gormTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.Transaction(fn)
}

type recordingOutbox struct {
	mu     sync.Mutex
	events []outbox.DomainEvent
}

func (r *recordingOutbox) Emit(_ context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if tx == nil {
		panic("emit outside transaction")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func newCheckoutTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// File-backed DB: the service reads products over a second connection
	// while the checkout transaction is open, which sqlite's shared-cache
	// in-memory mode rejects with "table is locked".
	dsn := "file:" + filepath.Join(t.TempDir(), "checkout.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	ddl := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  category TEXT,
  price_cents INTEGER NOT NULL,
  sale_price_cents INTEGER,
  currency TEXT NOT NULL DEFAULT 'GHS',
  stock_qty INTEGER NOT NULL DEFAULT 0 CHECK (stock_qty >= 0),
  image_url TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_cart_buyer_product ON cart_items(buyer_id, product_id);
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  checkout_id TEXT NOT NULL,
  buyer_id TEXT,
  buyer_email TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  subtotal_cents INTEGER NOT NULL,
  delivery_fee_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL,
  delivery_location TEXT NOT NULL,
  delivery_tier TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  escrow_status TEXT NOT NULL DEFAULT 'none',
  payment_ref TEXT,
  tracking_number TEXT,
  proof_of_delivery TEXT,
  cancel_reason TEXT,
  dispute_reason TEXT,
  paid_at DATETIME,
  shipped_at DATETIME,
  delivered_at DATETIME,
  completed_at DATETIME,
  cancelled_at DATETIME,
  expires_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	if err := db.Exec(ddl).Error; err != nil {
		t.Fatalf("create tables: %v", err)
	}
	return db
}

type checkoutFixture struct {
	db       *gorm.DB
	svc      Service
	cartRepo *cart.Repository
	prodRepo *product.Repository
	outbox   *recordingOutbox
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	db := newCheckoutTestDB(t)
	cartRepo := cart.NewRepository(db)
	prodRepo := product.NewRepository(db)
	publisher := &recordingOutbox{}
	svc, err := NewService(
		gormTxRunner{db: db},
		cartRepo,
		orders.NewRepository(db),
		prodRepo,
		NewReserver(),
		publisher,
		nil,
		config.OrdersConfig{PendingPaymentTTL: 24 * time.Hour},
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &checkoutFixture{db: db, svc: svc, cartRepo: cartRepo, prodRepo: prodRepo, outbox: publisher}
}

func (f *checkoutFixture) seedProduct(t *testing.T, price int64, stock int) *models.Product {
	t.Helper()
	row := &models.Product{
		ID:         uuid.New(),
		SellerID:   uuid.New(),
		Name:       "Adinkra Cloth",
		PriceCents: money.Money(price),
		Currency:   "GHS",
		StockQty:   stock,
		IsActive:   true,
	}
	created, err := f.prodRepo.Create(context.Background(), row)
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return created
}

func (f *checkoutFixture) seedCartLine(t *testing.T, buyerID uuid.UUID, p *models.Product, qty int) {
	t.Helper()
	_, err := f.cartRepo.Upsert(context.Background(), &models.CartItem{
		BuyerID:        buyerID,
		ProductID:      p.ID,
		Quantity:       qty,
		UnitPriceCents: p.PriceCents,
	})
	if err != nil {
		t.Fatalf("seed cart line: %v", err)
	}
}

func TestExecuteFansOutCartAndClearsIt(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	buyerID := uuid.New()

	first := f.seedProduct(t, 5000, 10)
	second := f.seedProduct(t, 2000, 10)
	f.seedCartLine(t, buyerID, first, 2)
	f.seedCartLine(t, buyerID, second, 1)

	result, err := f.svc.Execute(ctx, CheckoutInput{
		BuyerID:          &buyerID,
		BuyerEmail:       "Ama@Example.com",
		DeliveryLocation: "Sunyani",
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if len(result.Orders) != 2 {
		t.Fatalf("orders = %d, want 2 (one per cart line)", len(result.Orders))
	}
	if result.DeliveryTier != delivery.TierRegional {
		t.Fatalf("tier = %s, want regional", result.DeliveryTier)
	}
	// (5000*2 + 2500) + (2000*1 + 2500)
	if result.AmountCents != 17_000 {
		t.Fatalf("amount = %d, want 17000", result.AmountCents)
	}
	for _, order := range result.Orders {
		if order.Status != enums.OrderStatusPending {
			t.Fatalf("status = %s, want pending", order.Status)
		}
		if order.CheckoutID != result.CheckoutID {
			t.Fatal("orders must share the checkout id")
		}
		if len(order.OrderNumber) != 11 || order.OrderNumber[:3] != "KM-" {
			t.Fatalf("unexpected order number %q", order.OrderNumber)
		}
	}

	cartLeft, err := f.cartRepo.ListByBuyer(ctx, buyerID)
	if err != nil {
		t.Fatalf("list cart: %v", err)
	}
	if len(cartLeft) != 0 {
		t.Fatalf("cart lines left = %d, want 0", len(cartLeft))
	}

	var remaining models.Product
	if err := f.db.First(&remaining, "id = ?", first.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if remaining.StockQty != 8 {
		t.Fatalf("stock = %d, want 8 after reserving 2", remaining.StockQty)
	}

	if len(f.outbox.events) != 2 {
		t.Fatalf("outbox events = %d, want 2", len(f.outbox.events))
	}
	if f.outbox.events[0].EventType != enums.EventOrderCreated {
		t.Fatalf("event type = %s", f.outbox.events[0].EventType)
	}
}

func TestExecuteLargeQuantityKeepsIntegerMath(t *testing.T) {
	f := newCheckoutFixture(t)
	buyerID := uuid.New()
	p := f.seedProduct(t, 9_999_99, 2000)
	f.seedCartLine(t, buyerID, p, 1000)

	result, err := f.svc.Execute(context.Background(), CheckoutInput{
		BuyerID:          &buyerID,
		BuyerEmail:       "bulk@example.com",
		DeliveryLocation: "Osu, Accra",
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	// 999999 * 1000, Accra ships free.
	if result.AmountCents != 999_999_000 {
		t.Fatalf("amount = %d, want 999999000", result.AmountCents)
	}
	if result.DeliveryFeeCents != 0 {
		t.Fatalf("fee = %d, want 0 for Accra", result.DeliveryFeeCents)
	}
}

func TestExecuteAllOrNothingOnInsufficientStock(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	buyerID := uuid.New()

	plenty := f.seedProduct(t, 3000, 100)
	scarce := f.seedProduct(t, 4000, 1)
	f.seedCartLine(t, buyerID, plenty, 5)
	f.seedCartLine(t, buyerID, scarce, 3)

	_, err := f.svc.Execute(ctx, CheckoutInput{
		BuyerID:          &buyerID,
		BuyerEmail:       "ama@example.com",
		DeliveryLocation: "Nandom",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	// Rollback: the first line's reservation must not stick.
	var p models.Product
	if err := f.db.First(&p, "id = ?", plenty.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if p.StockQty != 100 {
		t.Fatalf("stock = %d, want 100 after rollback", p.StockQty)
	}

	var count int64
	if err := f.db.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if count != 0 {
		t.Fatalf("orders = %d, want 0", count)
	}
}

func TestExecuteLastUnitGoesToOneBuyer(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, 8000, 1)

	buyers := []uuid.UUID{uuid.New(), uuid.New()}
	for _, buyerID := range buyers {
		f.seedCartLine(t, buyerID, p, 1)
	}

	var won, lost int
	for _, buyerID := range buyers {
		id := buyerID
		_, err := f.svc.Execute(ctx, CheckoutInput{
			BuyerID:          &id,
			BuyerEmail:       "race@example.com",
			DeliveryLocation: "Tamale",
		})
		switch {
		case err == nil:
			won++
		case pkgerrors.As(err) != nil && pkgerrors.As(err).Code() == pkgerrors.CodeInsufficientStock:
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if won != 1 || lost != 1 {
		t.Fatalf("won=%d lost=%d, want exactly one of each", won, lost)
	}
}

func TestExecuteGuestCheckout(t *testing.T) {
	f := newCheckoutFixture(t)
	p := f.seedProduct(t, 1500, 5)

	result, err := f.svc.Execute(context.Background(), CheckoutInput{
		BuyerEmail:       "guest@example.com",
		DeliveryLocation: "Akosombo",
		GuestLines:       []GuestLine{{ProductID: p.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.DeliveryTier != delivery.TierRemote {
		t.Fatalf("tier = %s, want remote", result.DeliveryTier)
	}
	// 1500*2 + 4000 remote fee
	if result.AmountCents != 7000 {
		t.Fatalf("amount = %d, want 7000", result.AmountCents)
	}

	var order models.Order
	if err := f.db.First(&order, "checkout_id = ?", result.CheckoutID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if order.BuyerID != nil {
		t.Fatal("guest orders must not carry a buyer id")
	}
}

func TestExecuteEmptyLocationRejected(t *testing.T) {
	f := newCheckoutFixture(t)
	buyerID := uuid.New()
	p := f.seedProduct(t, 1500, 5)
	f.seedCartLine(t, buyerID, p, 1)

	_, err := f.svc.Execute(context.Background(), CheckoutInput{
		BuyerID:          &buyerID,
		BuyerEmail:       "a@b.com",
		DeliveryLocation: "   ",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

package checkout

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kofiasante/kasuwa-backend/pkg/db/models"
	pkgerrors "github.com/kofiasante/kasuwa-backend/pkg/errors"
)

func TestReserveDecrementsStock(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, 1000, 5)
	reserver := NewReserver()

	err := f.db.Transaction(func(tx *gorm.DB) error {
		return reserver.Reserve(ctx, tx, p.ID, 3)
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	var row models.Product
	if err := f.db.First(&row, "id = ?", p.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if row.StockQty != 2 {
		t.Fatalf("stock = %d, want 2", row.StockQty)
	}
}

func TestReserveRejectsOverdraw(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, 1000, 2)
	reserver := NewReserver()

	err := f.db.Transaction(func(tx *gorm.DB) error {
		return reserver.Reserve(ctx, tx, p.ID, 3)
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	var row models.Product
	if err := f.db.First(&row, "id = ?", p.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if row.StockQty != 2 {
		t.Fatalf("stock = %d, want untouched 2", row.StockQty)
	}
}

func TestReserveIgnoresInactiveProducts(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, 1000, 5)
	if err := f.db.Model(&models.Product{}).Where("id = ?", p.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	err := f.db.Transaction(func(tx *gorm.DB) error {
		return NewReserver().Reserve(ctx, tx, p.ID, 1)
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock for inactive product, got %v", err)
	}
}

func TestRestoreReturnsStock(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, 1000, 5)
	reserver := NewReserver()

	err := f.db.Transaction(func(tx *gorm.DB) error {
		if err := reserver.Reserve(ctx, tx, p.ID, 4); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	err = f.db.Transaction(func(tx *gorm.DB) error {
		return reserver.Restore(ctx, tx, p.ID, 4)
	})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	var row models.Product
	if err := f.db.First(&row, "id = ?", p.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if row.StockQty != 5 {
		t.Fatalf("stock = %d, want 5", row.StockQty)
	}
}

func TestRestoreUnknownProduct(t *testing.T) {
	f := newCheckoutFixture(t)
	err := f.db.Transaction(func(tx *gorm.DB) error {
		return NewReserver().Restore(context.Background(), tx, uuid.New(), 1)
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNewOrderNumberShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		n, err := NewOrderNumber()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(n) != 11 || n[:3] != "KM-" {
			t.Fatalf("unexpected shape %q", n)
		}
		for _, r := range n[3:] {
			if r == '0' || r == 'O' || r == '1' || r == 'I' || r == 'L' {
				t.Fatalf("ambiguous character in %q", n)
			}
		}
		if seen[n] {
			t.Fatalf("duplicate number %q in 200 draws", n)
		}
		seen[n] = true
	}
}

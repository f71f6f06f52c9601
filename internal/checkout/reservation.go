package checkout

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/kofiasante/kasuwa-backend/pkg/errors"
)

// Reserver decrements and restores product stock. Reserve is a conditional
// update so two concurrent checkouts can never both claim the last unit.
type Reserver interface {
	Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
	Restore(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

type reserver struct{}

// NewReserver builds the stock reserver.
func NewReserver() Reserver {
	return reserver{}
}

// Reserve takes qty units off the product's stock. The decrement carries the
// stock check in its WHERE clause, so an unaffected row means another buyer
// got there first.
func (reserver) Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	res := tx.WithContext(ctx).Exec(
		"UPDATE products SET stock_qty = stock_qty - ? WHERE id = ? AND is_active = ? AND stock_qty >= ?",
		qty, productID, true, qty,
	)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for product").
			WithDetails(map[string]any{"product_id": productID, "requested": qty})
	}
	return nil
}

// Restore puts qty units back, used when an order is cancelled or expires
// before payment.
func (reserver) Restore(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	res := tx.WithContext(ctx).Exec(
		"UPDATE products SET stock_qty = stock_qty + ? WHERE id = ?",
		qty, productID,
	)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "restore stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

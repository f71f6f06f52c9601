package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kofiasante/kasuwa-backend/pkg/db/models"
	pkgerrors "github.com/kofiasante/kasuwa-backend/pkg/errors"
)

// Repository manages persistent cart lines, one per buyer+product pair.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided DB handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Upsert inserts the cart line or, when the buyer already carries the
// product, replaces the quantity and refreshed price snapshot.
func (r *Repository) Upsert(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "buyer_id"}, {Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "unit_price_cents", "updated_at"}),
	}).Create(item).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert cart item")
	}
	return item, nil
}

// ListByBuyer returns the buyer's lines, oldest first.
func (r *Repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart items")
	}
	return items, nil
}

// FindByIDAndBuyer loads one line scoped to the buyer.
func (r *Repository) FindByIDAndBuyer(ctx context.Context, id, buyerID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.WithContext(ctx).
		First(&item, "id = ? AND buyer_id = ?", id, buyerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}
	return &item, nil
}

// Delete removes one line scoped to the buyer.
func (r *Repository) Delete(ctx context.Context, id, buyerID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND buyer_id = ?", id, buyerID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "delete cart item")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return nil
}

// Clear removes every line for the buyer, typically after checkout.
func (r *Repository) Clear(ctx context.Context, buyerID uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Delete(&models.CartItem{}).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kofiasante/kasuwa-backend/pkg/money"
)

// CartItem is a buyer's saved line: one product plus a quantity. The unit
// price is snapshotted at add time so the cart view is stable, but checkout
// always reprices from the live product row.
type CartItem struct {
	ID             uuid.UUID   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID        uuid.UUID   `gorm:"column:buyer_id;type:uuid;not null;uniqueIndex:idx_cart_buyer_product"`
	ProductID      uuid.UUID   `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_cart_buyer_product"`
	Quantity       int         `gorm:"column:quantity;not null"`
	UnitPriceCents money.Money `gorm:"column:unit_price_cents;not null"`
	CreatedAt      time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

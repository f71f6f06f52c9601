package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kofiasante/kasuwa-backend/pkg/money"
)

// Product represents a seller listing. StockQty is the single source of truth
// for availability; checkout reserves stock with a conditional decrement so the
// column never goes negative.
type Product struct {
	ID             uuid.UUID   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID       uuid.UUID   `gorm:"column:seller_id;type:uuid;not null;index"`
	Name           string      `gorm:"column:name;not null"`
	Description    *string     `gorm:"column:description"`
	Category       *string     `gorm:"column:category;index"`
	PriceCents     money.Money `gorm:"column:price_cents;not null"`
	SalePriceCents *int64      `gorm:"column:sale_price_cents"`
	Currency       string      `gorm:"column:currency;type:text;not null;default:'GHS'"`
	StockQty       int         `gorm:"column:stock_qty;not null;default:0"`
	ImageURL       *string     `gorm:"column:image_url"`
	IsActive       bool        `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectivePrice returns the sale price when set, otherwise the list price.
func (p Product) EffectivePrice() money.Money {
	if p.SalePriceCents != nil && *p.SalePriceCents > 0 {
		return money.Money(*p.SalePriceCents)
	}
	return p.PriceCents
}

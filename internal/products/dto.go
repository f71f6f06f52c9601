package product

import (
	"time"

	"github.com/google/uuid"

	"github.com/kofiasante/kasuwa-backend/pkg/db/models"
)

// ProductDTO is the listing payload returned to clients.
type ProductDTO struct {
	ID             uuid.UUID `json:"id"`
	SellerID       uuid.UUID `json:"seller_id"`
	Name           string    `json:"name"`
	Description    *string   `json:"description,omitempty"`
	Category       *string   `json:"category,omitempty"`
	PriceCents     int64     `json:"price_cents"`
	SalePriceCents *int64    `json:"sale_price_cents,omitempty"`
	Currency       string    `json:"currency"`
	StockQty       int       `json:"stock_qty"`
	ImageURL       *string   `json:"image_url,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ProductListResult is a cursor page of listings.
type ProductListResult struct {
	Items      []ProductDTO `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

func toProductDTO(m models.Product) ProductDTO {
	return ProductDTO{
		ID:             m.ID,
		SellerID:       m.SellerID,
		Name:           m.Name,
		Description:    m.Description,
		Category:       m.Category,
		PriceCents:     int64(m.PriceCents),
		SalePriceCents: m.SalePriceCents,
		Currency:       m.Currency,
		StockQty:       m.StockQty,
		ImageURL:       m.ImageURL,
		IsActive:       m.IsActive,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

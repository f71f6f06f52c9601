package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kofiasante/kasuwa-backend/pkg/db/models"
	pkgerrors "github.com/kofiasante/kasuwa-backend/pkg/errors"
)

const maxLineQuantity = 10_000

type productLoader interface {
	FindActiveByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service exposes cart operations for authenticated buyers.
type Service interface {
	AddItem(ctx context.Context, buyerID uuid.UUID, input AddItemInput) (*CartDTO, error)
	GetCart(ctx context.Context, buyerID uuid.UUID) (*CartDTO, error)
	RemoveItem(ctx context.Context, buyerID, itemID uuid.UUID) (*CartDTO, error)
	ClearCart(ctx context.Context, buyerID uuid.UUID) error
}

// AddItemInput is the validated add-to-cart payload.
type AddItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CartLineDTO is one cart line with its price snapshot.
type CartLineDTO struct {
	ID             uuid.UUID `json:"id"`
	ProductID      uuid.UUID `json:"product_id"`
	ProductName    string    `json:"product_name"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	LineTotalCents int64     `json:"line_total_cents"`
	AddedAt        time.Time `json:"added_at"`
}

// CartDTO is the buyer's full cart view.
type CartDTO struct {
	Items         []CartLineDTO `json:"items"`
	SubtotalCents int64         `json:"subtotal_cents"`
}

type service struct {
	repo     *Repository
	products productLoader
}

// NewService builds the cart service.
func NewService(repo *Repository, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{repo: repo, products: products}, nil
}

func (s *service) AddItem(ctx context.Context, buyerID uuid.UUID, input AddItemInput) (*CartDTO, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.Quantity <= 0 || input.Quantity > maxLineQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity out of range")
	}

	product, err := s.products.FindActiveByID(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if product.StockQty < input.Quantity {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for product").
			WithDetails(map[string]any{"product_id": product.ID, "available": product.StockQty})
	}

	item := models.CartItem{
		BuyerID:        buyerID,
		ProductID:      product.ID,
		Quantity:       input.Quantity,
		UnitPriceCents: product.EffectivePrice(),
	}
	if _, err := s.repo.Upsert(ctx, &item); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, buyerID)
}

func (s *service) GetCart(ctx context.Context, buyerID uuid.UUID) (*CartDTO, error) {
	items, err := s.repo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	dto := CartDTO{Items: make([]CartLineDTO, 0, len(items))}
	for _, item := range items {
		name := ""
		if product, err := s.products.FindActiveByID(ctx, item.ProductID); err == nil {
			name = product.Name
		}
		line := CartLineDTO{
			ID:             item.ID,
			ProductID:      item.ProductID,
			ProductName:    name,
			Quantity:       item.Quantity,
			UnitPriceCents: int64(item.UnitPriceCents),
			LineTotalCents: int64(item.UnitPriceCents) * int64(item.Quantity),
			AddedAt:        item.CreatedAt,
		}
		dto.Items = append(dto.Items, line)
		dto.SubtotalCents += line.LineTotalCents
	}
	return &dto, nil
}

func (s *service) RemoveItem(ctx context.Context, buyerID, itemID uuid.UUID) (*CartDTO, error) {
	if err := s.repo.Delete(ctx, itemID, buyerID); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, buyerID)
}

func (s *service) ClearCart(ctx context.Context, buyerID uuid.UUID) error {
	return s.repo.Clear(ctx, buyerID)
}

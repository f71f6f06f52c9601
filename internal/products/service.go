package product

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kofiasante/kasuwa-backend/pkg/db/models"
	pkgerrors "github.com/kofiasante/kasuwa-backend/pkg/errors"
	"github.com/kofiasante/kasuwa-backend/pkg/money"
)

// Service exposes catalog operations for the public browse surface and
// seller product management.
type Service interface {
	CreateProduct(ctx context.Context, sellerID uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, sellerID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
}

// CreateProductInput holds the validated payload to create a listing.
type CreateProductInput struct {
	Name           string
	Description    *string
	Category       *string
	PriceCents     int64
	SalePriceCents *int64
	StockQty       int
	ImageURL       *string
}

// UpdateProductInput holds optional mutation values for a listing.
type UpdateProductInput struct {
	Name           *string
	Description    *string
	Category       *string
	PriceCents     *int64
	SalePriceCents *int64
	StockQty       *int
	ImageURL       *string
	IsActive       *bool
}

type service struct {
	repo *Repository
}

// NewService constructs a product service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateProduct(ctx context.Context, sellerID uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if err := validateListing(input.Name, input.PriceCents, input.SalePriceCents, input.StockQty); err != nil {
		return nil, err
	}

	row := models.Product{
		SellerID:       sellerID,
		Name:           strings.TrimSpace(input.Name),
		Description:    input.Description,
		Category:       input.Category,
		PriceCents:     money.Money(input.PriceCents),
		SalePriceCents: input.SalePriceCents,
		Currency:       "GHS",
		StockQty:       input.StockQty,
		ImageURL:       input.ImageURL,
		IsActive:       true,
	}
	created, err := s.repo.Create(ctx, &row)
	if err != nil {
		return nil, err
	}
	dto := toProductDTO(*created)
	return &dto, nil
}

func (s *service) UpdateProduct(ctx context.Context, sellerID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another seller")
	}

	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.Category != nil {
		product.Category = input.Category
	}
	if input.PriceCents != nil {
		product.PriceCents = money.Money(*input.PriceCents)
	}
	if input.SalePriceCents != nil {
		if *input.SalePriceCents <= 0 {
			product.SalePriceCents = nil
		} else {
			product.SalePriceCents = input.SalePriceCents
		}
	}
	if input.StockQty != nil {
		product.StockQty = *input.StockQty
	}
	if input.ImageURL != nil {
		product.ImageURL = input.ImageURL
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if err := validateListing(product.Name, int64(product.PriceCents), product.SalePriceCents, product.StockQty); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		return nil, err
	}
	dto := toProductDTO(*updated)
	return &dto, nil
}

func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindActiveByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	dto := toProductDTO(*product)
	return &dto, nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	rows, next, err := s.repo.List(ctx, input)
	if err != nil {
		return nil, err
	}
	items := make([]ProductDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, toProductDTO(row))
	}
	return &ProductListResult{Items: items, NextCursor: next}, nil
}

func validateListing(name string, priceCents int64, salePriceCents *int64, stockQty int) error {
	if strings.TrimSpace(name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if priceCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if salePriceCents != nil && *salePriceCents > 0 && *salePriceCents >= priceCents {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale price must undercut the list price")
	}
	if stockQty < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock quantity cannot be negative")
	}
	return nil
}

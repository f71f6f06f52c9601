package product

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kofiasante/kasuwa-backend/pkg/db/models"
	pkgerrors "github.com/kofiasante/kasuwa-backend/pkg/errors"
	"github.com/kofiasante/kasuwa-backend/pkg/pagination"
)

// ProductListFilters describe the filter knobs for the browse endpoint.
type ProductListFilters struct {
	Category      *string `json:"category,omitempty"`
	PriceMinCents *int64  `json:"price_min_cents,omitempty"`
	PriceMaxCents *int64  `json:"price_max_cents,omitempty"`
	OnSale        *bool   `json:"on_sale,omitempty"`
	Query         string  `json:"q,omitempty"`
}

// ListProductsInput captures pagination and filter inputs for browsing.
type ListProductsInput struct {
	SellerID   *uuid.UUID
	Filters    ProductListFilters
	Pagination pagination.Params
}

// Repository wires together product persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads the product row.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return &product, nil
}

// FindActiveByID loads the product only when it is still listed.
func (r *Repository) FindActiveByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

// Create inserts a new product row.
func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return product, nil
}

// Update saves the full product row.
func (r *Repository) Update(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return product, nil
}

// List returns a cursor page of active products, newest first.
func (r *Repository) List(ctx context.Context, input ListProductsInput) ([]models.Product, string, error) {
	limit := pagination.NormalizeLimit(input.Pagination.Limit)

	query := r.db.WithContext(ctx).Model(&models.Product{}).Where("is_active = ?", true)
	if input.SellerID != nil {
		query = query.Where("seller_id = ?", *input.SellerID)
	}
	query = applyFilters(query, input.Filters)

	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid pagination cursor")
	}
	if cursor != nil {
		query = query.Where(
			"(created_at, id) < (?, ?)",
			cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Product
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(input.Pagination.Limit)).
		Find(&rows).Error; err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}

func applyFilters(query *gorm.DB, filters ProductListFilters) *gorm.DB {
	if filters.Category != nil && *filters.Category != "" {
		query = query.Where("category = ?", *filters.Category)
	}
	if filters.PriceMinCents != nil {
		query = query.Where("price_cents >= ?", *filters.PriceMinCents)
	}
	if filters.PriceMaxCents != nil {
		query = query.Where("price_cents <= ?", *filters.PriceMaxCents)
	}
	if filters.OnSale != nil && *filters.OnSale {
		query = query.Where("sale_price_cents IS NOT NULL AND sale_price_cents > 0")
	}
	if q := strings.TrimSpace(filters.Query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(name) LIKE ?", pattern)
	}
	return query
}

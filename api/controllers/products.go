package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kofiasante/kasuwa-backend/api/middleware"
	"github.com/kofiasante/kasuwa-backend/api/responses"
	"github.com/kofiasante/kasuwa-backend/api/validators"
	productsvc "github.com/kofiasante/kasuwa-backend/internal/products"
	pkgerrors "github.com/kofiasante/kasuwa-backend/pkg/errors"
	"github.com/kofiasante/kasuwa-backend/pkg/logger"
	"github.com/kofiasante/kasuwa-backend/pkg/pagination"
)

type createProductRequest struct {
	Name           string  `json:"name" validate:"required"`
	Description    *string `json:"description,omitempty"`
	Category       *string `json:"category,omitempty"`
	PriceCents     int64   `json:"price_cents" validate:"required,gt=0"`
	SalePriceCents *int64  `json:"sale_price_cents,omitempty" validate:"omitempty,gt=0"`
	StockQty       int     `json:"stock_qty" validate:"min=0"`
	ImageURL       *string `json:"image_url,omitempty"`
}

type updateProductRequest struct {
	Name           *string `json:"name,omitempty"`
	Description    *string `json:"description,omitempty"`
	Category       *string `json:"category,omitempty"`
	PriceCents     *int64  `json:"price_cents,omitempty" validate:"omitempty,gt=0"`
	SalePriceCents *int64  `json:"sale_price_cents,omitempty"`
	StockQty       *int    `json:"stock_qty,omitempty" validate:"omitempty,min=0"`
	ImageURL       *string `json:"image_url,omitempty"`
	IsActive       *bool   `json:"is_active,omitempty"`
}

// CreateProduct handles listing creation for sellers.
func CreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID := middleware.UserUUIDFromContext(r.Context())
		if sellerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), sellerID, productsvc.CreateProductInput{
			Name:           payload.Name,
			Description:    payload.Description,
			Category:       payload.Category,
			PriceCents:     payload.PriceCents,
			SalePriceCents: payload.SalePriceCents,
			StockQty:       payload.StockQty,
			ImageURL:       payload.ImageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// UpdateProduct handles listing mutation for the owning seller.
func UpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID := middleware.UserUUIDFromContext(r.Context())
		if sellerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		productID, err := uuid.Parse(chi.URLParam(r, "productID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), sellerID, productID, productsvc.UpdateProductInput{
			Name:           payload.Name,
			Description:    payload.Description,
			Category:       payload.Category,
			PriceCents:     payload.PriceCents,
			SalePriceCents: payload.SalePriceCents,
			StockQty:       payload.StockQty,
			ImageURL:       payload.ImageURL,
			IsActive:       payload.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// GetProduct returns one active listing.
func GetProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := uuid.Parse(chi.URLParam(r, "productID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		product, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// ListProducts is the public catalog browse endpoint.
func ListProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, err := listInputFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListProducts(r.Context(), *input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// ListSellerProducts returns the authenticated seller's own listings,
// active or not.
func ListSellerProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID := middleware.UserUUIDFromContext(r.Context())
		if sellerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		input, err := listInputFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.SellerID = &sellerID

		result, err := svc.ListProducts(r.Context(), *input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func listInputFromQuery(r *http.Request) (*productsvc.ListProductsInput, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return nil, err
	}
	priceMin, err := validators.ParseQueryMoney(r, "price_min")
	if err != nil {
		return nil, err
	}
	priceMax, err := validators.ParseQueryMoney(r, "price_max")
	if err != nil {
		return nil, err
	}
	onSale, err := validators.ParseQueryBool(r, "on_sale")
	if err != nil {
		return nil, err
	}

	input := productsvc.ListProductsInput{
		Filters: productsvc.ProductListFilters{
			PriceMinCents: priceMin,
			PriceMaxCents: priceMax,
			OnSale:        onSale,
			Query:         strings.TrimSpace(r.URL.Query().Get("q")),
		},
		Pagination: pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		},
	}
	if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
		input.Filters.Category = &category
	}
	return &input, nil
}

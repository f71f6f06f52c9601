package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kofiasante/kasuwa-backend/api/middleware"
	"github.com/kofiasante/kasuwa-backend/api/responses"
	"github.com/kofiasante/kasuwa-backend/api/validators"
	checkoutsvc "github.com/kofiasante/kasuwa-backend/internal/checkout"
	ordersvc "github.com/kofiasante/kasuwa-backend/internal/orders"
	"github.com/kofiasante/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kofiasante/kasuwa-backend/pkg/errors"
	"github.com/kofiasante/kasuwa-backend/pkg/logger"
	"github.com/kofiasante/kasuwa-backend/pkg/pagination"
)

type checkoutRequest struct {
	Email            string             `json:"email" validate:"required,email"`
	DeliveryLocation string             `json:"delivery_location" validate:"required"`
	Items            []checkoutLineBody `json:"items,omitempty" validate:"omitempty,dive"`
}

type checkoutLineBody struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type shipOrderRequest struct {
	Status         string `json:"status" validate:"required,oneof=shipped delivered"`
	TrackingNumber string `json:"tracking_number,omitempty"`
}

type confirmReceiptRequest struct {
	Proof string `json:"proof" validate:"required"`
}

type orderReasonRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type resolveDisputeRequest struct {
	Note string `json:"note" validate:"required"`
}

// Checkout turns the buyer's cart (or inline guest lines) into orders with
// reserved stock. Payment follows as a separate initialize call.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := checkoutsvc.CheckoutInput{
			BuyerEmail:       payload.Email,
			DeliveryLocation: payload.DeliveryLocation,
		}
		if buyerID := middleware.UserUUIDFromContext(r.Context()); buyerID != uuid.Nil {
			input.BuyerID = &buyerID
		} else {
			for _, line := range payload.Items {
				productID, err := uuid.Parse(line.ProductID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
					return
				}
				input.GuestLines = append(input.GuestLines, checkoutsvc.GuestLine{
					ProductID: productID,
					Quantity:  line.Quantity,
				})
			}
		}

		result, err := svc.Execute(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// GetOrder looks an order up by number. Anonymous callers get the redacted
// tracking view; the buyer, seller and admins see the full order.
func GetOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))

		var viewer *ordersvc.Viewer
		if userID := middleware.UserUUIDFromContext(r.Context()); userID != uuid.Nil {
			viewer = &ordersvc.Viewer{
				UserID: userID,
				Role:   middleware.RoleFromContext(r.Context()),
			}
		}

		order, err := svc.GetOrder(r.Context(), orderNumber, viewer)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// ListMyOrders returns the authenticated buyer's order history.
func ListMyOrders(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID := middleware.UserUUIDFromContext(r.Context())
		if buyerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		params, err := paginationFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListBuyerOrders(r.Context(), buyerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// ListSellerOrders returns orders on the authenticated seller's listings.
func ListSellerOrders(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID := middleware.UserUUIDFromContext(r.Context())
		if sellerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		params, err := paginationFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListSellerOrders(r.Context(), sellerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// UpdateOrderStatus lets the seller mark an order shipped or delivered.
func UpdateOrderStatus(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID := middleware.UserUUIDFromContext(r.Context())
		if sellerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}
		orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))

		var payload shipOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var (
			order *ordersvc.OrderDTO
			err   error
		)
		switch enums.OrderStatus(payload.Status) {
		case enums.OrderStatusShipped:
			order, err = svc.MarkShipped(r.Context(), sellerID, orderNumber, payload.TrackingNumber)
		case enums.OrderStatusDelivered:
			order, err = svc.MarkDelivered(r.Context(), sellerID, orderNumber)
		default:
			err = pkgerrors.New(pkgerrors.CodeValidation, "status must be shipped or delivered")
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// ConfirmDelivery records the buyer's receipt confirmation and releases the
// escrow to the seller.
func ConfirmDelivery(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID := middleware.UserUUIDFromContext(r.Context())
		if buyerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}
		orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))

		var payload confirmReceiptRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ConfirmReceipt(r.Context(), buyerID, orderNumber, payload.Proof)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// CancelOrder cancels a not-yet-shipped order, refunding held escrow.
func CancelOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID := middleware.UserUUIDFromContext(r.Context())
		if buyerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}
		orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))

		var payload orderReasonRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Cancel(r.Context(), buyerID, orderNumber, payload.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// DisputeOrder opens a dispute on a shipped or delivered order.
func DisputeOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID := middleware.UserUUIDFromContext(r.Context())
		if buyerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}
		orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))

		var payload orderReasonRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ReportDispute(r.Context(), buyerID, orderNumber, payload.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// ResolveDispute refunds a disputed order. Admin only.
func ResolveDispute(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))

		var payload resolveDisputeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ResolveDisputeWithRefund(r.Context(), orderNumber, payload.Note)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

func paginationFromQuery(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kofiasante/kasuwa-backend/api/responses"
	"github.com/kofiasante/kasuwa-backend/api/validators"
	paymentsvc "github.com/kofiasante/kasuwa-backend/internal/payments"
	pkgerrors "github.com/kofiasante/kasuwa-backend/pkg/errors"
	"github.com/kofiasante/kasuwa-backend/pkg/logger"
)

type initializePaymentRequest struct {
	CheckoutID  string `json:"checkout_id" validate:"required,uuid"`
	Email       string `json:"email" validate:"required,email"`
	CallbackURL string `json:"callback_url,omitempty" validate:"omitempty,url"`
}

// InitializePayment opens a gateway transaction for a pending checkout.
// Guests pay too, so this endpoint takes the checkout id rather than an
// authenticated buyer.
func InitializePayment(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload initializePaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		checkoutID, err := uuid.Parse(payload.CheckoutID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid checkout id"))
			return
		}

		payment, err := svc.Initialize(r.Context(), paymentsvc.InitializeInput{
			CheckoutID:  checkoutID,
			Email:       payload.Email,
			CallbackURL: payload.CallbackURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, payment)
	}
}

// VerifyPayment asks the gateway for the charge outcome and settles on
// success. Safe to call repeatedly.
func VerifyPayment(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reference := strings.TrimSpace(chi.URLParam(r, "reference"))
		if reference == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "reference required"))
			return
		}

		payment, err := svc.Verify(r.Context(), reference)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, payment)
	}
}

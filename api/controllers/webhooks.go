package controllers

import (
	"io"
	"net/http"

	"github.com/kofiasante/kasuwa-backend/api/responses"
	paymentsvc "github.com/kofiasante/kasuwa-backend/internal/payments"
	pkgerrors "github.com/kofiasante/kasuwa-backend/pkg/errors"
	"github.com/kofiasante/kasuwa-backend/pkg/logger"
	"github.com/kofiasante/kasuwa-backend/pkg/paystack"
)

// PaystackWebhook receives gateway callbacks. Only a bad signature earns a
// non-2xx answer; every failure after the signature validates is acknowledged
// with 200 so the gateway stops retrying, and the verify path reconciles.
func PaystackWebhook(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		body, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get(paystack.SignatureHeader)
		if err := svc.HandleWebhook(ctx, body, signature); err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeUnauthorized {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			if logg != nil {
				logg.Error(ctx, "webhook processing failed", err)
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "received"})
	}
}

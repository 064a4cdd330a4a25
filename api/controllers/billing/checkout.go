package billing

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/soko-labs/sokolist-backend/api/middleware"
	"github.com/soko-labs/sokolist-backend/api/responses"
	"github.com/soko-labs/sokolist-backend/api/validators"
	"github.com/soko-labs/sokolist-backend/internal/payments"
	pkgerrors "github.com/soko-labs/sokolist-backend/pkg/errors"
	"github.com/soko-labs/sokolist-backend/pkg/logger"
)

// Checkout starts a subscription payment and hands the client the gateway's
// hosted payment page.
func Checkout(svc *payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := payments.CheckoutParams{UserID: userID, PlanSlug: payload.PlanSlug}
		if payload.PlanID != nil {
			params.PlanID = *payload.PlanID
		}

		result, err := svc.Checkout(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// The payment page contract predates the envelope and is consumed
		// by mobile clients as-is.
		responses.WriteJSON(w, http.StatusOK, checkoutResponse{
			Success:    true,
			PaymentURL: result.PaymentURL,
			Reference:  result.Reference,
			IsDemo:     result.IsDemo,
		})
	}
}

type checkoutRequest struct {
	PlanID   *uuid.UUID `json:"plan_id,omitempty"`
	PlanSlug string     `json:"plan_slug,omitempty" validate:"required_without=PlanID,omitempty,min=2,max=64"`
}

type checkoutResponse struct {
	Success    bool   `json:"success"`
	PaymentURL string `json:"paymentUrl"`
	Reference  string `json:"reference"`
	IsDemo     bool   `json:"isDemo"`
}

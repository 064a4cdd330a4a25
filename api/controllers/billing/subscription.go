package billing

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/soko-labs/sokolist-backend/api/middleware"
	"github.com/soko-labs/sokolist-backend/api/responses"
	"github.com/soko-labs/sokolist-backend/internal/payments"
	"github.com/soko-labs/sokolist-backend/internal/subscriptions"
	"github.com/soko-labs/sokolist-backend/pkg/db/models"
	pkgerrors "github.com/soko-labs/sokolist-backend/pkg/errors"
	"github.com/soko-labs/sokolist-backend/pkg/logger"
)

// Subscription returns the caller's current subscription state.
func Subscription(svc *subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscriptions service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		sub, err := svc.Current(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if sub == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no subscription"))
			return
		}

		responses.WriteSuccess(w, newSubscriptionResponse(sub))
	}
}

// CancelSubscription terminates the caller's active subscription and pauses
// their published listings.
func CancelSubscription(svc *payments.Service, logg *logger.Logger) http.HandlerFunc {
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

		sub, err := svc.CancelSubscription(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newSubscriptionResponse(sub))
	}
}

type subscriptionResponse struct {
	ID                 uuid.UUID  `json:"id"`
	PlanID             uuid.UUID  `json:"plan_id"`
	Status             string     `json:"status"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	NextPaymentDue     *time.Time `json:"next_payment_due,omitempty"`
	GraceUntil         *time.Time `json:"grace_until,omitempty"`
}

func newSubscriptionResponse(sub *models.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:                 sub.ID,
		PlanID:             sub.PlanID,
		Status:             string(sub.Status),
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		NextPaymentDue:     sub.NextPaymentDue,
		GraceUntil:         sub.GraceUntil,
	}
}

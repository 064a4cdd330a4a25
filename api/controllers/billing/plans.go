package billing

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/soko-labs/sokolist-backend/api/responses"
	billingsvc "github.com/soko-labs/sokolist-backend/internal/billing"
	"github.com/soko-labs/sokolist-backend/pkg/db/models"
	pkgerrors "github.com/soko-labs/sokolist-backend/pkg/errors"
	"github.com/soko-labs/sokolist-backend/pkg/logger"
)

// Plans lists the subscription plans available at checkout.
func Plans(svc *billingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		plans, err := svc.ListPlans(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]planResponse, 0, len(plans))
		for _, plan := range plans {
			out = append(out, newPlanResponse(plan))
		}
		responses.WriteSuccess(w, out)
	}
}

type planResponse struct {
	ID                uuid.UUID `json:"id"`
	Slug              string    `json:"slug"`
	Name              string    `json:"name"`
	MonthlyPriceCents int64     `json:"monthly_price_cents"`
	DisplayPrice      string    `json:"display_price"`
	CurrencyCode      string    `json:"currency_code"`
	MaxActiveListings int       `json:"max_active_listings"`
	Features          []string  `json:"features"`
	IsDefault         bool      `json:"is_default"`
}

func newPlanResponse(plan models.Plan) planResponse {
	return planResponse{
		ID:                plan.ID,
		Slug:              plan.Slug,
		Name:              plan.Name,
		MonthlyPriceCents: plan.MonthlyPriceCents,
		DisplayPrice:      plan.DisplayPrice().StringFixed(2),
		CurrencyCode:      plan.CurrencyCode,
		MaxActiveListings: plan.MaxActiveListings,
		Features:          []string(plan.Features),
		IsDefault:         plan.IsDefault,
	}
}

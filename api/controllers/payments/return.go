package payments

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/soko-labs/sokolist-backend/api/responses"
	paymentsvc "github.com/soko-labs/sokolist-backend/internal/payments"
	"github.com/soko-labs/sokolist-backend/pkg/enums"
	pkgerrors "github.com/soko-labs/sokolist-backend/pkg/errors"
	"github.com/soko-labs/sokolist-backend/pkg/gateway"
	"github.com/soko-labs/sokolist-backend/pkg/logger"
)

// Return handles the browser coming back from the gateway's payment page.
// The response is always a redirect to the configured result page; the
// reconciliation outcome travels in its query string because this endpoint
// is a navigation target, not an API.
func Return(svc *paymentsvc.Service, gw gateway.Client, resultURL string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		q := r.URL.Query()
		reference := strings.TrimSpace(q.Get("reference"))
		if reference == "" {
			redirect(w, r, resultURL, "error", "missing_reference")
			return
		}

		ctx := logg.WithReference(r.Context(), reference)

		// The demo query parameters are only honored when the server itself
		// runs without gateway credentials. A live deployment ignores them
		// and re-queries the gateway, so a crafted redirect cannot spoof a
		// paid outcome.
		var hint *gateway.PaymentStatus
		if gw.DemoMode() && q.Get("demo") == "true" && q.Get("status") == "paid" {
			hint = &gateway.PaymentStatus{Outcome: enums.OutcomePaid}
		}

		result, err := svc.Reconcile(ctx, reference, "return", hint)
		if err != nil {
			logg.Error(ctx, "return reconciliation failed", err)
			redirect(w, r, resultURL, "error", errorReason(err))
			return
		}

		switch result.Outcome {
		case enums.OutcomePaid:
			redirect(w, r, resultURL, "success", "payment_completed")
		case enums.OutcomePending, enums.OutcomeUnknown:
			redirect(w, r, resultURL, "pending", "payment_processing")
		default:
			redirect(w, r, resultURL, "error", "payment_"+string(result.Outcome))
		}
	}
}

func errorReason(err error) string {
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		return "unknown_reference"
	case pkgerrors.IsCode(err, pkgerrors.CodeDependency):
		return "gateway_unavailable"
	default:
		return "reconciliation_failed"
	}
}

func redirect(w http.ResponseWriter, r *http.Request, base, key, value string) {
	target, err := url.Parse(base)
	if err != nil {
		http.Error(w, "invalid result url", http.StatusInternalServerError)
		return
	}
	q := target.Query()
	q.Set(key, value)
	target.RawQuery = q.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

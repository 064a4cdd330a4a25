package webhooks

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/soko-labs/sokolist-backend/api/responses"
	"github.com/soko-labs/sokolist-backend/internal/payments"
	whgateway "github.com/soko-labs/sokolist-backend/internal/webhooks/gateway"
	pkgerrors "github.com/soko-labs/sokolist-backend/pkg/errors"
	"github.com/soko-labs/sokolist-backend/pkg/gateway"
	"github.com/soko-labs/sokolist-backend/pkg/logger"
	"github.com/soko-labs/sokolist-backend/pkg/metrics"
)

// GatewayWebhookPath is the exact path the signature covers. The gateway
// signs method + path + timestamp + body, so the route and this constant
// must stay in lockstep.
const GatewayWebhookPath = "/api/v1/webhooks/gateway"

const maxWebhookBody = 1 << 20

type gatewayEvent struct {
	Reference             string `json:"reference"`
	Status                string `json:"status"`
	ProviderTransactionID string `json:"provider_transaction_id"`
}

// Gateway ingests payment status webhooks. The handler acknowledges
// redeliveries of already-settled references with a 200 so the provider stops
// retrying; a failed reconciliation answers 500 and relies on redelivery.
func Gateway(svc *payments.Service, codec *gateway.SignatureCodec, guard *whgateway.IdempotencyGuard, m *metrics.PaymentMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || codec == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook handler unavailable"))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading webhook body"))
			return
		}

		if !codec.Verify(r.Method, GatewayWebhookPath, r.Header, body) {
			m.IncSignatureFailure()
			logg.Warn(r.Context(), "webhook signature rejected")
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid signature"))
			return
		}

		var event gatewayEvent
		if err := json.Unmarshal(body, &event); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload"))
			return
		}
		event.Reference = strings.TrimSpace(event.Reference)
		if event.Reference == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "reference is required"))
			return
		}

		ctx := logg.WithReference(r.Context(), event.Reference)

		if !guard.CheckAndMark(ctx, event.Reference, event.Status) {
			logg.Info(ctx, "webhook redelivery short-circuited")
			responses.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
			return
		}

		if _, err := svc.Reconcile(ctx, event.Reference, "webhook", nil); err != nil {
			guard.Release(ctx, event.Reference, event.Status)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
	}
}

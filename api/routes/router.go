package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/soko-labs/sokolist-backend/api/controllers"
	billingcontrollers "github.com/soko-labs/sokolist-backend/api/controllers/billing"
	paymentcontrollers "github.com/soko-labs/sokolist-backend/api/controllers/payments"
	webhookcontrollers "github.com/soko-labs/sokolist-backend/api/controllers/webhooks"
	"github.com/soko-labs/sokolist-backend/api/middleware"
	billingsvc "github.com/soko-labs/sokolist-backend/internal/billing"
	paymentsvc "github.com/soko-labs/sokolist-backend/internal/payments"
	subscriptionsvc "github.com/soko-labs/sokolist-backend/internal/subscriptions"
	whgateway "github.com/soko-labs/sokolist-backend/internal/webhooks/gateway"
	"github.com/soko-labs/sokolist-backend/pkg/config"
	"github.com/soko-labs/sokolist-backend/pkg/gateway"
	"github.com/soko-labs/sokolist-backend/pkg/logger"
	"github.com/soko-labs/sokolist-backend/pkg/metrics"
)

type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DBPinger      controllers.Pinger
	RedisPinger   controllers.Pinger
	Gateway       gateway.Client
	Payments      *paymentsvc.Service
	Billing       *billingsvc.Service
	Subscriptions *subscriptionsvc.Service
	WebhookGuard  *whgateway.IdempotencyGuard
	Metrics       *metrics.PaymentMetrics
	Registry      *prometheus.Registry
}

func NewRouter(deps Deps) http.Handler {
	cfg, logg := deps.Config, deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DBPinger, deps.RedisPinger))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhooks/gateway", webhookcontrollers.Gateway(deps.Payments, deps.Gateway.Codec(), deps.WebhookGuard, deps.Metrics, logg))
		r.Get("/payments/return", paymentcontrollers.Return(deps.Payments, deps.Gateway, cfg.Billing.ResultURL, logg))
		r.Get("/billing/plans", billingcontrollers.Plans(deps.Billing, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Post("/billing/checkout", billingcontrollers.Checkout(deps.Payments, logg))
			r.Get("/billing/subscription", billingcontrollers.Subscription(deps.Subscriptions, logg))
			r.Delete("/billing/subscription", billingcontrollers.CancelSubscription(deps.Payments, logg))
		})
	})

	return r
}

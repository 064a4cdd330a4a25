package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/soko-labs/sokolist-backend/api/controllers"
	"github.com/soko-labs/sokolist-backend/api/routes"
	billingsvc "github.com/soko-labs/sokolist-backend/internal/billing"
	"github.com/soko-labs/sokolist-backend/internal/listings"
	"github.com/soko-labs/sokolist-backend/internal/notifications"
	paymentsvc "github.com/soko-labs/sokolist-backend/internal/payments"
	subscriptionsvc "github.com/soko-labs/sokolist-backend/internal/subscriptions"
	whgateway "github.com/soko-labs/sokolist-backend/internal/webhooks/gateway"
	"github.com/soko-labs/sokolist-backend/pkg/config"
	"github.com/soko-labs/sokolist-backend/pkg/db"
	"github.com/soko-labs/sokolist-backend/pkg/gateway"
	"github.com/soko-labs/sokolist-backend/pkg/logger"
	"github.com/soko-labs/sokolist-backend/pkg/metrics"
	"github.com/soko-labs/sokolist-backend/pkg/migrate"
	"github.com/soko-labs/sokolist-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := context.Background()

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(ctx, "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(ctx, "redis not configured, webhook dedup fast path disabled")
	}

	gatewayClient, err := gateway.NewClient(ctx, cfg.Gateway, logg)
	if err != nil {
		logg.Error(ctx, "failed to create gateway client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	paymentMetrics := metrics.NewPaymentMetrics(registry)

	billingService, err := billingsvc.NewService(billingsvc.ServiceParams{
		Repo: billingsvc.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(ctx, "failed to create billing service", err)
		os.Exit(1)
	}

	listingService, err := listings.NewService(listings.ServiceParams{
		Repo:   listings.NewRepository(dbClient.DB()),
		Logger: logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create listings service", err)
		os.Exit(1)
	}

	subscriptionService := subscriptionsvc.NewService(
		subscriptionsvc.NewRepository(dbClient.DB()),
		logg,
		cfg.Billing.SubscriptionPeriod,
	)

	var guardStore redis.IdempotencyStore
	if redisClient != nil {
		guardStore = redisClient
	}
	webhookGuard := whgateway.NewIdempotencyGuard(guardStore, cfg.Billing.WebhookDedupTTL, logg)

	paymentService, err := paymentsvc.NewService(paymentsvc.ServiceParams{
		Tx:       dbClient,
		Ledger:   paymentsvc.NewLedger(dbClient.DB()),
		Subs:     subscriptionService,
		Listings: listingService,
		Plans:    billingService,
		Gateway:  gatewayClient,
		Notifier: notifications.NewLogNotifier(logg),
		Metrics:  paymentMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create payments service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	var redisPinger controllers.Pinger
	if redisClient != nil {
		redisPinger = redisClient
	}

	router := routes.NewRouter(routes.Deps{
		Config:        cfg,
		Logger:        logg,
		DBPinger:      dbClient,
		RedisPinger:   redisPinger,
		Gateway:       gatewayClient,
		Payments:      paymentService,
		Billing:       billingService,
		Subscriptions: subscriptionService,
		WebhookGuard:  webhookGuard,
		Metrics:       paymentMetrics,
		Registry:      registry,
	})

	ctx = logg.WithFields(ctx, map[string]any{
		"env":       cfg.App.Env,
		"addr":      addr,
		"demo_mode": gatewayClient.DemoMode(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropsaas/shopify-bridge/api/routes"
	"github.com/dropsaas/shopify-bridge/internal/auth"
	"github.com/dropsaas/shopify-bridge/internal/dashboard"
	"github.com/dropsaas/shopify-bridge/internal/orders"
	"github.com/dropsaas/shopify-bridge/internal/products"
	"github.com/dropsaas/shopify-bridge/internal/relay"
	"github.com/dropsaas/shopify-bridge/internal/sessions"
	"github.com/dropsaas/shopify-bridge/internal/tenants"
	"github.com/dropsaas/shopify-bridge/pkg/config"
	"github.com/dropsaas/shopify-bridge/pkg/db"
	"github.com/dropsaas/shopify-bridge/pkg/logger"
	"github.com/dropsaas/shopify-bridge/pkg/metrics"
	"github.com/dropsaas/shopify-bridge/pkg/migrate"
	"github.com/dropsaas/shopify-bridge/pkg/outbox"
	"github.com/dropsaas/shopify-bridge/pkg/redis"
	"github.com/dropsaas/shopify-bridge/pkg/security"
	"github.com/dropsaas/shopify-bridge/pkg/shopify"
)

const shutdownTimeout = 15 * time.Second

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
		Environment: cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	key, err := cfg.Security.EncryptionKey()
	if err != nil {
		logg.Error(context.Background(), "invalid token encryption key", err)
		os.Exit(1)
	}
	cipher, err := security.NewTokenCipher(key)
	if err != nil {
		logg.Error(context.Background(), "failed to create token cipher", err)
		os.Exit(1)
	}
	if key == nil {
		logg.Warn(context.Background(), "token encryption key not set; credentials are stored in plaintext")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	webhookMetrics := metrics.NewWebhookMetrics(registry)

	tenantRepo := tenants.NewRepository(dbClient.DB())
	resolver, err := tenants.NewResolver(tenantRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create tenant resolver", err)
		os.Exit(1)
	}
	orderRepo := orders.NewRepository(dbClient.DB())
	productRepo := products.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg, cfg.FeatureFlags.EmitDomainEvents)

	webhookService, err := newWebhookService(cfg, logg, webhookDeps{
		DB:       dbClient,
		Keys:     redisClient,
		Resolver: resolver,
		Tenants:  tenantRepo,
		Orders:   orderRepo,
		Products: productRepo,
		Outbox:   outboxService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	sessionStore, err := sessions.NewStore(sessions.StoreParams{
		DB:      dbClient,
		Tenants: tenantRepo,
		Cipher:  cipher,
		Logger:  logg,
		Outbox:  outboxService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create session store", err)
		os.Exit(1)
	}

	shopifyApp := shopify.NewApp(shopify.AppConfig{
		APIKey:      cfg.Shopify.APIKey,
		APISecret:   cfg.Shopify.APISecret,
		Scopes:      cfg.Shopify.Scopes,
		RedirectURL: cfg.App.URL("/auth/callback"),
		APIVersion:  cfg.Shopify.APIVersion,
	})

	installService, err := auth.NewService(auth.ServiceParams{
		App:            shopifyApp,
		States:         redisClient,
		Sessions:       sessionStore,
		Scopes:         cfg.Shopify.Scopes,
		WebhookAddress: cfg.App.URL("/webhooks/shopify"),
		WebhookTopics:  cfg.Shopify.WebhookTopics,
		StateTTL:       cfg.Shopify.StateTTL,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	connectionService, err := auth.NewConnectionService(resolver)
	if err != nil {
		logg.Error(context.Background(), "failed to create connection service", err)
		os.Exit(1)
	}

	dashboardService, err := dashboard.NewService(dashboard.ServiceParams{
		Tenants:     resolver,
		Credentials: tenantRepo,
		Products:    productRepo,
		Cipher:      cipher,
		Shopify:     shopifyApp,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dashboard service", err)
		os.Exit(1)
	}

	deps := routes.Dependencies{
		DB:             dbClient,
		Redis:          redisClient,
		Verifier:       shopify.NewVerifier(cfg.Shopify.APISecret, cfg.Internal.ServiceSecret),
		Webhooks:       webhookService,
		WebhookMetrics: webhookMetrics,
		Install:        installService,
		Connection:     connectionService,
		Dashboard:      dashboardService,
		Metrics:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
	if cfg.Relay.Enabled() {
		forwarder, err := relay.NewForwarder(cfg.Relay, cfg.Internal.ServiceSecret)
		if err != nil {
			logg.Error(context.Background(), "failed to create relay forwarder", err)
			os.Exit(1)
		}
		deps.Relay = forwarder
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":           cfg.App.Env,
		"addr":          addr,
		"relay_enabled": cfg.Relay.Enabled(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}

package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropsaas/shopify-bridge/api/controllers"
	webhookcontrollers "github.com/dropsaas/shopify-bridge/api/controllers/webhooks"
	"github.com/dropsaas/shopify-bridge/api/middleware"
	"github.com/dropsaas/shopify-bridge/internal/auth"
	"github.com/dropsaas/shopify-bridge/internal/relay"
	pkgAuth "github.com/dropsaas/shopify-bridge/pkg/auth"
	"github.com/dropsaas/shopify-bridge/pkg/config"
	"github.com/dropsaas/shopify-bridge/pkg/db"
	"github.com/dropsaas/shopify-bridge/pkg/logger"
	"github.com/dropsaas/shopify-bridge/pkg/metrics"
	"github.com/dropsaas/shopify-bridge/pkg/shopify"
)

const (
	apiRateLimitWindow     = time.Minute
	apiRateLimitPerIP      = 120
	installRateLimitPerIP  = 30
	webhookShopifyBasePath = "/webhooks/shopify"
)

type redisStore interface {
	Ping(ctx context.Context) error
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type relayForwarder interface {
	Forward(ctx context.Context, d relay.Delivery) (relay.Response, error)
}

type connectionService interface {
	Status(ctx context.Context, shop string) (*auth.ConnectionStatus, error)
}

// Dependencies are the services the router mounts. Relay may be nil.
type Dependencies struct {
	DB             db.Pinger
	Redis          redisStore
	Verifier       *shopify.Verifier
	Webhooks       webhookcontrollers.ShopifyWebhookService
	WebhookMetrics *metrics.WebhookMetrics
	Relay          relayForwarder
	Install        auth.Service
	Connection     connectionService
	Dashboard      controllers.DashboardService
	Metrics        http.Handler
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	apiPolicy := middleware.NewRateLimitPolicy("api", apiRateLimitWindow, apiRateLimitPerIP)
	installPolicy := middleware.NewRateLimitPolicy("install", apiRateLimitWindow, installRateLimitPerIP)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	metricsHandler := deps.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route(webhookShopifyBasePath, func(r chi.Router) {
		handler := webhookcontrollers.ShopifyWebhook(deps.Webhooks, deps.Verifier, deps.WebhookMetrics, cfg.Webhooks.MaxBodyBytes, logg)
		r.Post("/", handler)
		r.Post("/orders", handler)
		r.Post("/products", handler)
		r.Post("/app/uninstalled", handler)

		if cfg.Relay.Enabled() && deps.Relay != nil {
			r.Post("/relay", webhookcontrollers.ShopifyRelay(deps.Relay, deps.Verifier, deps.WebhookMetrics, cfg.Webhooks.MaxBodyBytes, logg))
		}
	})

	r.Route("/auth", func(r chi.Router) {
		r.With(middleware.RateLimit(installPolicy, deps.Redis, logg)).Get("/install", controllers.OAuthInstall(deps.Install, logg))
		r.Get("/callback", controllers.OAuthCallback(deps.Install, logg))
	})

	r.Route("/app", func(r chi.Router) {
		r.Use(middleware.SessionToken(pkgAuth.Keys{APIKey: cfg.Shopify.APIKey, APISecret: cfg.Shopify.APISecret}, logg))
		r.Get("/connection", controllers.AppConnection(deps.Connection, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.CORS(cfg.CORS))
		r.Use(middleware.RateLimit(apiPolicy, deps.Redis, logg))

		r.Get("/ping", controllers.PublicPing())
		r.Get("/products", controllers.DashboardProducts(deps.Dashboard, logg))
		r.Get("/store-credentials", controllers.DashboardStoreCredentials(deps.Dashboard, logg))
		r.Get("/validate-key", controllers.DashboardValidateKey(deps.Dashboard, logg))
		r.Get("/shop-info", controllers.DashboardShopInfo(deps.Dashboard, logg))
		if cfg.FeatureFlags.DebugRoutes {
			r.Get("/debug", controllers.DashboardDebug(cfg.Shopify.APIKey != "", cfg.DB.DSN != ""))
		}
	})

	return r
}

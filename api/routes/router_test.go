package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropsaas/shopify-bridge/internal/auth"
	"github.com/dropsaas/shopify-bridge/internal/dashboard"
	"github.com/dropsaas/shopify-bridge/internal/products"
	"github.com/dropsaas/shopify-bridge/internal/relay"
	shopifywebhook "github.com/dropsaas/shopify-bridge/internal/webhooks/shopify"
	pkgAuth "github.com/dropsaas/shopify-bridge/pkg/auth"
	"github.com/dropsaas/shopify-bridge/pkg/config"
	"github.com/dropsaas/shopify-bridge/pkg/enums"
	"github.com/dropsaas/shopify-bridge/pkg/pagination"
	"github.com/dropsaas/shopify-bridge/pkg/shopify"
)

const (
	testAPIKey    = "api-key"
	testAPISecret = "api-secret"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubRedis struct{ stubPinger }

func (stubRedis) FixedWindowAllow(context.Context, string, int64, time.Duration) (bool, int64, error) {
	return true, 1, nil
}

type stubWebhooks struct{ topics []string }

func (s *stubWebhooks) HandleEvent(_ context.Context, e shopifywebhook.Event) (shopifywebhook.Result, error) {
	s.topics = append(s.topics, e.Topic)
	return shopifywebhook.Result{Outcome: enums.OutcomeProcessed}, nil
}

type stubRelay struct{ calls int }

func (s *stubRelay) Forward(context.Context, relay.Delivery) (relay.Response, error) {
	s.calls++
	return relay.Response{StatusCode: http.StatusOK}, nil
}

type stubInstall struct{}

func (stubInstall) Begin(_ context.Context, shop string) (string, error) {
	return "https://" + shop + "/admin/oauth/authorize", nil
}

func (stubInstall) Complete(context.Context, *url.URL) (*auth.InstallResult, error) {
	return &auth.InstallResult{RedirectURL: "https://acme.myshopify.com/admin/apps/" + testAPIKey}, nil
}

type stubConnection struct{}

func (stubConnection) Status(_ context.Context, shop string) (*auth.ConnectionStatus, error) {
	return &auth.ConnectionStatus{Status: auth.ConnectionPending, ShopName: shopify.ShortID(shop)}, nil
}

type stubDashboard struct{}

func (stubDashboard) ListProducts(_ context.Context, _ string, p pagination.Params) ([]products.ProductDTO, pagination.Page, error) {
	return []products.ProductDTO{}, p.PageOf(0), nil
}

func (stubDashboard) StoreCredentials(context.Context, string, string) (*dashboard.CredentialsDTO, error) {
	return &dashboard.CredentialsDTO{}, nil
}

func (stubDashboard) ValidateKey(context.Context, string) (*dashboard.ValidateKeyResult, error) {
	return &dashboard.ValidateKeyResult{Valid: true}, nil
}

func (stubDashboard) ShopInfo(context.Context, string) (*shopify.ShopInfo, error) {
	return &shopify.ShopInfo{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:      config.AppConfig{Env: "dev"},
		Shopify:  config.ShopifyConfig{APIKey: testAPIKey, APISecret: testAPISecret},
		Webhooks: config.WebhookConfig{MaxBodyBytes: 1 << 20},
		CORS:     config.CORSConfig{AllowedOrigins: []string{"*"}},
	}
}

func testDeps() (Dependencies, *stubWebhooks, *stubRelay) {
	hooks := &stubWebhooks{}
	fwd := &stubRelay{}
	return Dependencies{
		DB:         stubPinger{},
		Redis:      stubRedis{},
		Verifier:   shopify.NewVerifier(testAPISecret, ""),
		Webhooks:   hooks,
		Relay:      fwd,
		Install:    stubInstall{},
		Connection: stubConnection{},
		Dashboard:  stubDashboard{},
	}, hooks, fwd
}

func signedWebhook(path, topic, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(shopify.HeaderTopic, topic)
	req.Header.Set(shopify.HeaderShopDomain, "acme.myshopify.com")
	req.Header.Set(shopify.HeaderWebhookID, "wh-1")
	req.Header.Set(shopify.HeaderHmac, shopify.Sign([]byte(body), testAPISecret))
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterHealthAndMetrics(t *testing.T) {
	deps, _, _ := testDeps()
	router := NewRouter(testConfig(), nil, deps)

	assert.Equal(t, http.StatusOK, serve(router, httptest.NewRequest(http.MethodGet, "/health/live", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(router, httptest.NewRequest(http.MethodGet, "/health/ready", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(router, httptest.NewRequest(http.MethodGet, "/metrics", nil)).Code)
}

func TestRouterWebhookAliases(t *testing.T) {
	deps, hooks, _ := testDeps()
	router := NewRouter(testConfig(), nil, deps)

	for _, path := range []string{"/webhooks/shopify", "/webhooks/shopify/orders", "/webhooks/shopify/products", "/webhooks/shopify/app/uninstalled"} {
		rec := serve(router, signedWebhook(path, "orders/create", `{"id":1}`))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
	assert.Len(t, hooks.topics, 4)
}

func TestRouterMountsRelayOnlyWhenConfigured(t *testing.T) {
	deps, _, fwd := testDeps()

	router := NewRouter(testConfig(), nil, deps)
	rec := serve(router, signedWebhook("/webhooks/shopify/relay", "orders/create", `{"id":1}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, fwd.calls)

	cfg := testConfig()
	cfg.Relay.TargetURL = "https://tier2.example.com/webhooks/shopify"
	router = NewRouter(cfg, nil, deps)
	rec = serve(router, signedWebhook("/webhooks/shopify/relay", "orders/create", `{"id":1}`))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, fwd.calls)
}

func TestRouterOAuthInstallRedirects(t *testing.T) {
	deps, _, _ := testDeps()
	router := NewRouter(testConfig(), nil, deps)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/auth/install?shop=acme.myshopify.com", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://acme.myshopify.com/admin/oauth/authorize", rec.Header().Get("Location"))

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/auth/callback?shop=acme.myshopify.com&code=c&state=s", nil))
	require.Equal(t, http.StatusFound, rec.Code)
}

func TestRouterAppConnectionRequiresSessionToken(t *testing.T) {
	deps, _, _ := testDeps()
	router := NewRouter(testConfig(), nil, deps)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/app/connection", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := pkgAuth.MintSessionToken(pkgAuth.Keys{APIKey: testAPIKey, APISecret: testAPISecret}, time.Now(), pkgAuth.SessionTokenPayload{Shop: "acme.myshopify.com"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/app/connection", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = serve(router, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"pending"`)
}

func TestRouterReadAPIAndDebugFlag(t *testing.T) {
	deps, _, _ := testDeps()

	router := NewRouter(testConfig(), nil, deps)
	assert.Equal(t, http.StatusOK, serve(router, httptest.NewRequest(http.MethodGet, "/api/products?api_key=k", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(router, httptest.NewRequest(http.MethodGet, "/api/validate-key?api_key=k", nil)).Code)
	assert.Equal(t, http.StatusNotFound, serve(router, httptest.NewRequest(http.MethodGet, "/api/debug", nil)).Code)

	cfg := testConfig()
	cfg.FeatureFlags.DebugRoutes = true
	router = NewRouter(cfg, nil, deps)
	assert.Equal(t, http.StatusOK, serve(router, httptest.NewRequest(http.MethodGet, "/api/debug", nil)).Code)
}

func TestRouterAppliesCORSToReadAPI(t *testing.T) {
	deps, _, _ := testDeps()
	router := NewRouter(testConfig(), nil, deps)

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	rec := serve(router, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

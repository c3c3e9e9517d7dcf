package shopify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"go.uber.org/multierr"
)

// AppConfig describes the partner app.
type AppConfig struct {
	APIKey      string
	APISecret   string
	Scopes      string
	RedirectURL string
	APIVersion  string
}

// App wraps go-shopify for the OAuth handshake and admin API calls.
type App struct {
	app        goshopify.App
	apiVersion string
	httpClient *http.Client
}

// ShopInfo is the subset of shop details exposed to dashboards.
type ShopInfo struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Domain          string `json:"domain"`
	MyshopifyDomain string `json:"myshopify_domain"`
	PlanName        string `json:"plan_name"`
	Currency        string `json:"currency"`
}

func NewApp(cfg AppConfig) *App {
	return &App{
		app: goshopify.App{
			ApiKey:      cfg.APIKey,
			ApiSecret:   cfg.APISecret,
			RedirectUrl: cfg.RedirectURL,
			Scope:       cfg.Scopes,
		},
		apiVersion: cfg.APIVersion,
	}
}

func (a *App) APIKey() string { return a.app.ApiKey }

// AuthorizeURL builds the install redirect for shop.
func (a *App) AuthorizeURL(shop, state string) string {
	q := url.Values{}
	q.Set("client_id", a.app.ApiKey)
	q.Set("scope", strings.ReplaceAll(a.app.Scope, " ", ""))
	q.Set("redirect_uri", a.app.RedirectUrl)
	q.Set("state", state)
	return fmt.Sprintf("https://%s/admin/oauth/authorize?%s", shop, q.Encode())
}

// VerifyCallback checks the hmac query parameter of an OAuth callback.
func (a *App) VerifyCallback(u *url.URL) (bool, error) {
	return a.app.VerifyAuthorizationURL(u)
}

// ExchangeCode trades the authorization code for an offline access token.
func (a *App) ExchangeCode(ctx context.Context, shop, code string) (string, error) {
	token, err := a.app.GetAccessToken(ctx, shop, code)
	if err != nil {
		return "", fmt.Errorf("exchange oauth code: %w", err)
	}
	return token, nil
}

// AdminClient returns an admin API client authenticated with token.
func (a *App) AdminClient(shop, token string) (*goshopify.Client, error) {
	var opts []goshopify.Option
	if a.apiVersion != "" {
		opts = append(opts, goshopify.WithVersion(a.apiVersion))
	}
	if a.httpClient != nil {
		opts = append(opts, goshopify.WithHTTPClient(a.httpClient))
	}
	client, err := goshopify.NewClient(a.app, shop, token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create admin client: %w", err)
	}
	return client, nil
}

// GrantedScopes lists the access scopes the merchant actually approved for
// token, comma separated in the order Shopify returns them.
func (a *App) GrantedScopes(ctx context.Context, shop, token string) (string, error) {
	client, err := a.AdminClient(shop, token)
	if err != nil {
		return "", err
	}
	scopes, err := client.AccessScopes.List(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("list access scopes: %w", err)
	}
	handles := make([]string, 0, len(scopes))
	for _, scope := range scopes {
		if scope.Handle != "" {
			handles = append(handles, scope.Handle)
		}
	}
	return strings.Join(handles, ","), nil
}

// RegisterWebhooks subscribes address to every topic. All topics are
// attempted; failures are combined.
func (a *App) RegisterWebhooks(ctx context.Context, shop, token, address string, topics []string) error {
	client, err := a.AdminClient(shop, token)
	if err != nil {
		return err
	}
	var errs error
	for _, topic := range topics {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			continue
		}
		_, createErr := client.Webhook.Create(ctx, goshopify.Webhook{
			Topic:   topic,
			Address: address,
			Format:  "json",
		})
		if createErr != nil {
			errs = multierr.Append(errs, fmt.Errorf("register %s: %w", topic, createErr))
		}
	}
	return errs
}

// ShopInfo fetches the shop resource with token.
func (a *App) ShopInfo(ctx context.Context, shop, token string) (*ShopInfo, error) {
	client, err := a.AdminClient(shop, token)
	if err != nil {
		return nil, err
	}
	s, err := client.Shop.Get(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("get shop: %w", err)
	}
	return &ShopInfo{
		Name:            s.Name,
		Email:           s.Email,
		Domain:          s.Domain,
		MyshopifyDomain: s.MyshopifyDomain,
		PlanName:        s.PlanName,
		Currency:        s.Currency,
	}, nil
}

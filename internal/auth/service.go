package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dropsaas/shopify-bridge/internal/sessions"
	pkgerrors "github.com/dropsaas/shopify-bridge/pkg/errors"
	"github.com/dropsaas/shopify-bridge/pkg/logger"
	"github.com/dropsaas/shopify-bridge/pkg/redis"
	"github.com/dropsaas/shopify-bridge/pkg/security"
	"github.com/dropsaas/shopify-bridge/pkg/shopify"
)

const defaultStateTTL = 10 * time.Minute

// Service drives the Shopify OAuth install handshake.
type Service interface {
	Begin(ctx context.Context, rawShop string) (string, error)
	Complete(ctx context.Context, callback *url.URL) (*InstallResult, error)
}

type shopifyApp interface {
	APIKey() string
	AuthorizeURL(shop, state string) string
	VerifyCallback(u *url.URL) (bool, error)
	ExchangeCode(ctx context.Context, shop, code string) (string, error)
	GrantedScopes(ctx context.Context, shop, token string) (string, error)
	RegisterWebhooks(ctx context.Context, shop, token, address string, topics []string) error
}

type stateStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	GetDel(ctx context.Context, key string) (string, error)
	OAuthStateKey(state string) string
}

type sessionSaver interface {
	StoreSession(ctx context.Context, session sessions.Session) (bool, error)
}

// ServiceParams bundles the dependencies of the install flow.
type ServiceParams struct {
	App            shopifyApp
	States         stateStore
	Sessions       sessionSaver
	Scopes         string
	WebhookAddress string
	WebhookTopics  []string
	StateTTL       time.Duration
	Logger         *logger.Logger
}

type service struct {
	app            shopifyApp
	states         stateStore
	sessions       sessionSaver
	scopes         string
	webhookAddress string
	topics         []string
	stateTTL       time.Duration
	logg           *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.App == nil {
		return nil, fmt.Errorf("shopify app is required")
	}
	if params.States == nil {
		return nil, fmt.Errorf("state store is required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	ttl := params.StateTTL
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	return &service{
		app:            params.App,
		states:         params.States,
		sessions:       params.Sessions,
		scopes:         params.Scopes,
		webhookAddress: params.WebhookAddress,
		topics:         params.WebhookTopics,
		stateTTL:       ttl,
		logg:           params.Logger,
	}, nil
}

// Begin stores a single-use state for shop and returns the authorize URL.
func (s *service) Begin(ctx context.Context, rawShop string) (string, error) {
	shop := shopify.NormalizeShopDomain(rawShop)
	if !shopify.IsValidShopDomain(shop) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid shop domain").
			WithDetails(map[string]any{"shop": rawShop})
	}
	state, err := security.NewState()
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate oauth state")
	}
	if err := s.states.Set(ctx, s.states.OAuthStateKey(state), shop, s.stateTTL); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store oauth state")
	}
	return s.app.AuthorizeURL(shop, state), nil
}

// Complete verifies the callback, exchanges the code and persists the
// offline session. Persistence and webhook registration failures are logged
// and do not fail the install.
func (s *service) Complete(ctx context.Context, callback *url.URL) (*InstallResult, error) {
	if callback == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "callback url is required")
	}
	query := callback.Query()
	shop := shopify.NormalizeShopDomain(query.Get("shop"))
	code := strings.TrimSpace(query.Get("code"))
	state := strings.TrimSpace(query.Get("state"))
	if !shopify.IsValidShopDomain(shop) || code == "" || state == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop, code and state are required")
	}

	ok, err := s.app.VerifyCallback(callback)
	if err != nil || !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid oauth callback signature")
	}

	expectedShop, err := s.states.GetDel(ctx, s.states.OAuthStateKey(state))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown or expired oauth state")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load oauth state")
	}
	if !security.EqualSecret(expectedShop, shop) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "oauth state does not match shop")
	}

	token, err := s.app.ExchangeCode(ctx, shop, code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "exchange oauth code")
	}

	logCtx := ctx
	if s.logg != nil {
		logCtx = s.logg.WithShopDomain(ctx, shop)
	}

	// merchants can decline optional scopes, so store what was granted
	scope, err := s.app.GrantedScopes(ctx, shop, token)
	if err != nil || scope == "" {
		if err != nil {
			s.logError(logCtx, "list granted scopes", err)
		}
		scope = s.scopes
	}

	result := &InstallResult{
		Shop:        shop,
		RedirectURL: fmt.Sprintf("https://%s/admin/apps/%s", shop, s.app.APIKey()),
	}
	stored, err := s.sessions.StoreSession(ctx, sessions.Session{
		ID:          shopify.OfflineSessionID(shop),
		Shop:        shop,
		State:       state,
		AccessToken: token,
		Scope:       scope,
	})
	if err != nil {
		s.logError(logCtx, "persist offline session", err)
	}
	result.SessionStored = stored

	if s.webhookAddress != "" && len(s.topics) > 0 {
		if err := s.app.RegisterWebhooks(ctx, shop, token, s.webhookAddress, s.topics); err != nil {
			s.logError(logCtx, "register webhooks", err)
		} else {
			result.WebhooksRegistered = true
		}
	}

	if s.logg != nil {
		s.logg.Info(logCtx, "shopify app installed")
	}
	return result, nil
}

func (s *service) logError(ctx context.Context, msg string, err error) {
	if s.logg != nil {
		s.logg.Error(ctx, msg, err)
	}
}

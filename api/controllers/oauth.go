package controllers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dropsaas/shopify-bridge/api/responses"
	"github.com/dropsaas/shopify-bridge/api/validators"
	"github.com/dropsaas/shopify-bridge/internal/auth"
	pkgerrors "github.com/dropsaas/shopify-bridge/pkg/errors"
	"github.com/dropsaas/shopify-bridge/pkg/logger"
)

type installService interface {
	Begin(ctx context.Context, rawShop string) (string, error)
	Complete(ctx context.Context, callback *url.URL) (*auth.InstallResult, error)
}

// OAuthInstall starts the install flow and redirects to Shopify's consent screen.
func OAuthInstall(svc installService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		shop, err := validators.ParseShopDomain(r, "shop")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		target, err := svc.Begin(ctx, shop)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.Redirect(w, r, target)
	}
}

// OAuthCallback completes the install and sends the merchant back into the admin.
func OAuthCallback(svc installService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		result, err := svc.Complete(ctx, r.URL)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			logCtx := logg.WithFields(ctx, map[string]any{
				"shop_domain":         result.Shop,
				"session_stored":      result.SessionStored,
				"webhooks_registered": result.WebhooksRegistered,
			})
			logg.Info(logCtx, "oauth.install_completed")
		}
		responses.Redirect(w, r, result.RedirectURL)
	}
}

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/dropsaas/shopify-bridge/api/responses"
	pkgAuth "github.com/dropsaas/shopify-bridge/pkg/auth"
	pkgerrors "github.com/dropsaas/shopify-bridge/pkg/errors"
	"github.com/dropsaas/shopify-bridge/pkg/logger"
	"github.com/dropsaas/shopify-bridge/pkg/shopify"
)

// SessionToken validates an App Bridge session token and seeds the request
// context with the shop it was issued for.
func SessionToken(keys pkgAuth.Keys, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(shopify.HeaderAuthorization))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session token"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session token"))
				return
			}

			claims, err := pkgAuth.ParseSessionToken(keys, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid session token"))
				return
			}

			shop := shopify.NormalizeShopDomain(claims.Shop())
			if !shopify.IsValidShopDomain(shop) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session token names an invalid shop"))
				return
			}

			ctx := context.WithValue(r.Context(), ctxShop, shop)
			if claims.SessionID != "" {
				ctx = context.WithValue(ctx, ctxSessionID, claims.SessionID)
			}
			if logg != nil {
				ctx = logg.WithShopDomain(ctx, shop)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

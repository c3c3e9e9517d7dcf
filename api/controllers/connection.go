package controllers

import (
	"context"
	"net/http"

	"github.com/dropsaas/shopify-bridge/api/middleware"
	"github.com/dropsaas/shopify-bridge/api/responses"
	"github.com/dropsaas/shopify-bridge/internal/auth"
	pkgerrors "github.com/dropsaas/shopify-bridge/pkg/errors"
	"github.com/dropsaas/shopify-bridge/pkg/logger"
)

type connectionService interface {
	Status(ctx context.Context, shop string) (*auth.ConnectionStatus, error)
}

// AppConnection reports whether the session token's shop has a linked tenant.
func AppConnection(svc connectionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "connection service unavailable"))
			return
		}

		shop := middleware.ShopFromContext(ctx)
		if shop == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing shop context"))
			return
		}

		status, err := svc.Status(ctx, shop)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/dropsaas/shopify-bridge/api/responses"
	"github.com/dropsaas/shopify-bridge/api/validators"
	"github.com/dropsaas/shopify-bridge/internal/dashboard"
	"github.com/dropsaas/shopify-bridge/internal/products"
	pkgerrors "github.com/dropsaas/shopify-bridge/pkg/errors"
	"github.com/dropsaas/shopify-bridge/pkg/logger"
	"github.com/dropsaas/shopify-bridge/pkg/pagination"
	"github.com/dropsaas/shopify-bridge/pkg/shopify"
)

type DashboardService interface {
	ListProducts(ctx context.Context, apiKey string, params pagination.Params) ([]products.ProductDTO, pagination.Page, error)
	StoreCredentials(ctx context.Context, storeID, apiKey string) (*dashboard.CredentialsDTO, error)
	ValidateKey(ctx context.Context, apiKey string) (*dashboard.ValidateKeyResult, error)
	ShopInfo(ctx context.Context, apiKey string) (*shopify.ShopInfo, error)
}

func DashboardProducts(svc DashboardService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dashboard service unavailable"))
			return
		}

		apiKey, err := validators.RequireQuery(r, "api_key")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		items, page, err := svc.ListProducts(ctx, apiKey, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WritePage(w, items, page)
	}
}

// DashboardStoreCredentials accepts either store_id or api_key; store_id wins
// when both are present.
func DashboardStoreCredentials(svc DashboardService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dashboard service unavailable"))
			return
		}

		storeID := validators.QueryString(r, "store_id")
		apiKey := validators.QueryString(r, "api_key")
		if storeID == "" && apiKey == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "store_id or api_key is required"))
			return
		}

		creds, err := svc.StoreCredentials(ctx, storeID, apiKey)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		responses.WriteSuccess(w, creds)
	}
}

func DashboardValidateKey(svc DashboardService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dashboard service unavailable"))
			return
		}

		apiKey, err := validators.RequireQuery(r, "api_key")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.ValidateKey(ctx, apiKey)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func DashboardShopInfo(svc DashboardService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dashboard service unavailable"))
			return
		}

		apiKey, err := validators.RequireQuery(r, "api_key")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		info, err := svc.ShopInfo(ctx, apiKey)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, info)
	}
}

// DashboardDebug reports configuration presence without exposing values.
func DashboardDebug(hasShopifyKey, hasDatabase bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, dashboard.DebugStatus{
			Status:        "ok",
			HasShopifyKey: hasShopifyKey,
			HasDatabase:   hasDatabase,
			Timestamp:     time.Now().UTC(),
		})
	}
}

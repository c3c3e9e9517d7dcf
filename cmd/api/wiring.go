package main

import (
	"fmt"

	"github.com/dropsaas/shopify-bridge/internal/orders"
	"github.com/dropsaas/shopify-bridge/internal/products"
	"github.com/dropsaas/shopify-bridge/internal/tenants"
	shopifywebhook "github.com/dropsaas/shopify-bridge/internal/webhooks/shopify"
	"github.com/dropsaas/shopify-bridge/pkg/config"
	"github.com/dropsaas/shopify-bridge/pkg/db"
	"github.com/dropsaas/shopify-bridge/pkg/logger"
	"github.com/dropsaas/shopify-bridge/pkg/outbox"
	"github.com/dropsaas/shopify-bridge/pkg/redis"
)

type webhookDeps struct {
	DB       *db.Client
	Keys     redis.IdempotencyStore
	Resolver *tenants.Resolver
	Tenants  *tenants.Repository
	Orders   orders.Repository
	Products products.Repository
	Outbox   outbox.Emitter
}

func newWebhookService(cfg *config.Config, logg *logger.Logger, deps webhookDeps) (*shopifywebhook.Service, error) {
	guard, err := shopifywebhook.NewDeliveryGuard(deps.Keys, cfg.Webhooks.DedupeTTL)
	if err != nil {
		return nil, fmt.Errorf("delivery guard: %w", err)
	}
	return shopifywebhook.NewService(shopifywebhook.ServiceParams{
		TransactionRunner: deps.DB,
		Tenants:           deps.Resolver,
		Credentials:       deps.Tenants,
		Orders:            deps.Orders,
		Products:          deps.Products,
		Outbox:            deps.Outbox,
		Guard:             guard,
		Logger:            logg,
	})
}

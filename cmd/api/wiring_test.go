package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropsaas/shopify-bridge/internal/orders"
	"github.com/dropsaas/shopify-bridge/internal/products"
	"github.com/dropsaas/shopify-bridge/internal/tenants"
	shopifywebhook "github.com/dropsaas/shopify-bridge/internal/webhooks/shopify"
	"github.com/dropsaas/shopify-bridge/pkg/config"
	"github.com/dropsaas/shopify-bridge/pkg/db/dbtest"
	"github.com/dropsaas/shopify-bridge/pkg/enums"
	"github.com/dropsaas/shopify-bridge/pkg/outbox"
)

type keyStore struct{ keys map[string]bool }

func (k *keyStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if k.keys[key] {
		return false, nil
	}
	k.keys[key] = true
	return true, nil
}

func (k *keyStore) WebhookKey(shop, webhookID string) string { return shop + ":" + webhookID }

func (k *keyStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(k.keys, key)
	}
	return nil
}

func webhookTestDeps(t *testing.T, keys *keyStore) webhookDeps {
	t.Helper()
	client := dbtest.Client(t)
	repo := tenants.NewRepository(client.DB())
	resolver, err := tenants.NewResolver(repo)
	require.NoError(t, err)
	return webhookDeps{
		DB:       client,
		Keys:     keys,
		Resolver: resolver,
		Tenants:  repo,
		Orders:   orders.NewRepository(client.DB()),
		Products: products.NewRepository(client.DB()),
		Outbox:   outbox.NewService(outbox.NewRepository(client.DB()), nil, false),
	}
}

func TestNewWebhookServiceWiresDeliveryGuard(t *testing.T) {
	keys := &keyStore{keys: map[string]bool{}}
	cfg := &config.Config{Webhooks: config.WebhookConfig{DedupeTTL: time.Hour}}

	svc, err := newWebhookService(cfg, nil, webhookTestDeps(t, keys))
	require.NoError(t, err)

	evt := shopifywebhook.Event{
		Topic:      "orders/create",
		ShopDomain: "unknown.myshopify.com",
		WebhookID:  "wh-1",
		Payload:    []byte(`{"id":1}`),
	}
	first, err := svc.HandleEvent(context.Background(), evt)
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeTenantMissing, first.Outcome)

	second, err := svc.HandleEvent(context.Background(), evt)
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeDuplicate, second.Outcome)
}

func TestNewWebhookServiceRejectsNegativeTTL(t *testing.T) {
	cfg := &config.Config{Webhooks: config.WebhookConfig{DedupeTTL: -time.Second}}

	_, err := newWebhookService(cfg, nil, webhookTestDeps(t, &keyStore{keys: map[string]bool{}}))
	require.Error(t, err)
}

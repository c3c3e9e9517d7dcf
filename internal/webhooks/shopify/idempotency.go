package shopifywebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropsaas/shopify-bridge/pkg/redis"
)

// DeliveryGuard drops repeated deliveries of the same X-Shopify-Webhook-Id.
type DeliveryGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

func NewDeliveryGuard(store redis.IdempotencyStore, ttl time.Duration) (*DeliveryGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &DeliveryGuard{store: store, ttl: ttl}, nil
}

// CheckAndMark reports whether the delivery was already seen, marking it otherwise.
func (g *DeliveryGuard) CheckAndMark(ctx context.Context, shop, webhookID string) (bool, error) {
	if webhookID == "" {
		return false, errors.New("webhook id is required")
	}
	set, err := g.store.SetNX(ctx, g.store.WebhookKey(shop, webhookID), "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Release forgets a delivery so Shopify's retry is processed.
func (g *DeliveryGuard) Release(ctx context.Context, shop, webhookID string) error {
	if webhookID == "" {
		return errors.New("webhook id is required")
	}
	return g.store.Del(ctx, g.store.WebhookKey(shop, webhookID))
}

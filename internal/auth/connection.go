package auth

import (
	"context"
	"fmt"

	"github.com/dropsaas/shopify-bridge/pkg/db/models"
	pkgerrors "github.com/dropsaas/shopify-bridge/pkg/errors"
	"github.com/dropsaas/shopify-bridge/pkg/shopify"
)

type tenantResolver interface {
	Resolve(ctx context.Context, shopDomain string) (*models.Store, error)
}

// ConnectionService reports whether an embedded shop is linked to a tenant.
type ConnectionService struct {
	tenants tenantResolver
}

func NewConnectionService(tenants tenantResolver) (*ConnectionService, error) {
	if tenants == nil {
		return nil, fmt.Errorf("tenant resolver is required")
	}
	return &ConnectionService{tenants: tenants}, nil
}

func (c *ConnectionService) Status(ctx context.Context, shop string) (*ConnectionStatus, error) {
	shop = shopify.NormalizeShopDomain(shop)
	if shop == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop is required")
	}
	store, err := c.tenants.Resolve(ctx, shop)
	if err != nil {
		return nil, err
	}
	if store == nil || !store.Installed() {
		return &ConnectionStatus{
			Status:   ConnectionPending,
			ShopName: shopify.ShortID(shop),
			Message:  "store record is being created; reload once the install completes",
		}, nil
	}
	status := &ConnectionStatus{
		Status:   ConnectionConnected,
		ShopName: store.Name,
		StoreID:  store.StoreID,
	}
	if store.UserID != nil {
		id := store.UserID.String()
		status.UserID = &id
	}
	return status, nil
}

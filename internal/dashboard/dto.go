package dashboard

import (
	"time"

	"github.com/dropsaas/shopify-bridge/internal/tenants"
)

// CredentialsDTO is the decrypted offline credential handed to dashboards.
type CredentialsDTO struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken *string    `json:"refresh_token"`
	Scopes       string     `json:"scopes"`
	ExpiresAt    *time.Time `json:"expires_at"`
	ShopDomain   string     `json:"shop_domain"`
	StoreID      string     `json:"store_id"`
}

type ValidateKeyResult struct {
	Valid bool              `json:"valid"`
	Store *tenants.StoreDTO `json:"store"`
}

type DebugStatus struct {
	Status        string    `json:"status"`
	HasShopifyKey bool      `json:"has_shopify_key"`
	HasDatabase   bool      `json:"has_database"`
	Timestamp     time.Time `json:"timestamp"`
}

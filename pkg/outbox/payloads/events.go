package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShopifyOrderCreatedEvent is emitted once per newly captured order.
type ShopifyOrderCreatedEvent struct {
	OrderID        uuid.UUID           `json:"order_id"`
	StoreID        uuid.UUID           `json:"store_id"`
	ShopifyOrderID string              `json:"shopify_order_id"`
	OrderNumber    string              `json:"order_number"`
	CustomerEmail  string              `json:"customer_email,omitempty"`
	TotalPrice     decimal.NullDecimal `json:"total_price"`
	Currency       string              `json:"currency,omitempty"`
	OrderDate      string              `json:"order_date"`
}

// ShopifyProductCapturedEvent reports a product saved while research mode is on.
type ShopifyProductCapturedEvent struct {
	ProductID        uuid.UUID `json:"product_id"`
	StoreID          uuid.UUID `json:"store_id"`
	ShopifyProductID string    `json:"shopify_product_id"`
	ProductName      string    `json:"product_name"`
	Handle           string    `json:"handle,omitempty"`
}

// ShopifyProductUpdatedEvent reports a refreshed research product.
type ShopifyProductUpdatedEvent struct {
	StoreID          uuid.UUID `json:"store_id"`
	ShopifyProductID string    `json:"shopify_product_id"`
	ProductName      string    `json:"product_name"`
	Handle           string    `json:"handle,omitempty"`
}

// ShopifyAppUninstalledEvent is emitted when a shop removes the app.
type ShopifyAppUninstalledEvent struct {
	StoreID            uuid.UUID `json:"store_id"`
	ShopDomain         string    `json:"shop_domain"`
	UninstalledAt      time.Time `json:"uninstalled_at"`
	CredentialsCleared bool      `json:"credentials_cleared"`
}

// ShopifyAppInstalledEvent is emitted after a completed OAuth install.
type ShopifyAppInstalledEvent struct {
	StoreID     uuid.UUID `json:"store_id"`
	ShopDomain  string    `json:"shop_domain"`
	Scopes      string    `json:"scopes"`
	InstalledAt time.Time `json:"installed_at"`
}

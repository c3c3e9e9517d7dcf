package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dropsaas/shopify-bridge/pkg/db/models"
)

// Repository defines persistence operations for the orders and shipment tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// InsertIfAbsent inserts the order unless (store_id, shopify_id) exists.
	InsertIfAbsent(ctx context.Context, order *models.Order) (bool, error)
	CreateShipment(ctx context.Context, orderID uuid.UUID) (*models.OrderShipment, error)
	// EnsureShipment creates the shipment when missing and reports whether it did.
	EnsureShipment(ctx context.Context, orderID uuid.UUID) (bool, error)
	FindByShopifyID(ctx context.Context, storeID uuid.UUID, shopifyID string) (*models.Order, error)
	ListWithoutShipment(ctx context.Context, limit int) ([]models.Order, error)
}

package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dropsaas/shopify-bridge/pkg/db/models"
	"github.com/dropsaas/shopify-bridge/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) InsertIfAbsent(ctx context.Context, order *models.Order) (bool, error) {
	if order.InternalStatus == "" {
		order.InternalStatus = enums.OrderStatusPending
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "store_id"}, {Name: "shopify_id"}},
			DoNothing: true,
		}).
		Create(order)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) CreateShipment(ctx context.Context, orderID uuid.UUID) (*models.OrderShipment, error) {
	shipment := &models.OrderShipment{OrderID: orderID, Status: enums.ShipmentStatusUnfulfilled}
	if err := r.db.WithContext(ctx).Create(shipment).Error; err != nil {
		return nil, err
	}
	return shipment, nil
}

func (r *repository) EnsureShipment(ctx context.Context, orderID uuid.UUID) (bool, error) {
	shipment := &models.OrderShipment{OrderID: orderID, Status: enums.ShipmentStatusUnfulfilled}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}},
			DoNothing: true,
		}).
		Create(shipment)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) FindByShopifyID(ctx context.Context, storeID uuid.UUID, shopifyID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND shopify_id = ?", storeID, shopifyID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListWithoutShipment returns the oldest orders that have no shipment row.
func (r *repository) ListWithoutShipment(ctx context.Context, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("NOT EXISTS (SELECT 1 FROM order_shipments s WHERE s.order_id = orders.id)").
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

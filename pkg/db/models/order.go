package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dropsaas/shopify-bridge/pkg/enums"
)

// Order mirrors a Shopify order for dashboard fulfilment. OrderDate and
// OrderTime are UTC strings (2006-01-02 and 15:04).
type Order struct {
	ID                uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	StoreID           uuid.UUID                 `gorm:"column:store_id;type:uuid;not null;uniqueIndex:orders_store_shopify_key,priority:1"`
	UserID            *uuid.UUID                `gorm:"column:user_id;type:uuid"`
	OrderNumber       string                    `gorm:"column:order_number;not null"`
	ShopifyID         string                    `gorm:"column:shopify_id;not null;uniqueIndex:orders_store_shopify_key,priority:2"`
	CustomerEmail     *string                   `gorm:"column:customer_email"`
	CustomerFirstName *string                   `gorm:"column:customer_first_name"`
	CustomerLastName  *string                   `gorm:"column:customer_last_name"`
	OrderDate         string                    `gorm:"column:order_date;not null"`
	OrderTime         string                    `gorm:"column:order_time;not null"`
	InternalStatus    enums.OrderInternalStatus `gorm:"column:internal_status;not null;default:'Pending'"`
	TotalPrice        decimal.NullDecimal       `gorm:"column:total_price;type:numeric(12,2)"`
	Currency          *string                   `gorm:"column:currency"`
	CreatedAt         time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(_ *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderShipment is created together with its order.
type OrderShipment struct {
	ID        uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID            `gorm:"column:order_id;type:uuid;not null;uniqueIndex:order_shipments_order_id_key"`
	Status    enums.ShipmentStatus `gorm:"column:status;not null;default:'Unfulfilled'"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (OrderShipment) TableName() string { return "order_shipments" }

func (s *OrderShipment) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

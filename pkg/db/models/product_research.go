package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dropsaas/shopify-bridge/pkg/enums"
)

// ProductResearch is a Shopify product captured while research mode is on.
type ProductResearch struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	StoreID      uuid.UUID           `gorm:"column:store_id;type:uuid;not null;uniqueIndex:product_research_store_shopify_key,priority:1"`
	UserID       *uuid.UUID          `gorm:"column:user_id;type:uuid"`
	ProductName  string              `gorm:"column:product_name;not null"`
	ShopifyID    string              `gorm:"column:shopify_id;not null;uniqueIndex:product_research_store_shopify_key,priority:2"`
	Handle       string              `gorm:"column:handle;not null;default:''"`
	Status       enums.ProductStatus `gorm:"column:status;not null;default:'Editing'"`
	FindingDate  time.Time           `gorm:"column:finding_date;type:date;not null"`
	MainImageURL *string             `gorm:"column:main_image_url"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (ProductResearch) TableName() string { return "product_research" }

func (p *ProductResearch) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

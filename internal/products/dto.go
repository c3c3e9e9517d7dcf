package products

import (
	"time"

	"github.com/google/uuid"

	"github.com/dropsaas/shopify-bridge/pkg/db/models"
	"github.com/dropsaas/shopify-bridge/pkg/enums"
)

// ProductDTO is the dashboard view of a research product.
type ProductDTO struct {
	ID           uuid.UUID           `json:"id"`
	StoreID      uuid.UUID           `json:"store_id"`
	UserID       *uuid.UUID          `json:"user_id"`
	ProductName  string              `json:"product_name"`
	ShopifyID    string              `json:"shopify_id"`
	Handle       string              `json:"handle"`
	Status       enums.ProductStatus `json:"status"`
	FindingDate  string              `json:"finding_date"`
	MainImageURL *string             `json:"main_image_url"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

func FromModel(m models.ProductResearch) ProductDTO {
	return ProductDTO{
		ID:           m.ID,
		StoreID:      m.StoreID,
		UserID:       m.UserID,
		ProductName:  m.ProductName,
		ShopifyID:    m.ShopifyID,
		Handle:       m.Handle,
		Status:       m.Status,
		FindingDate:  m.FindingDate.UTC().Format("2006-01-02"),
		MainImageURL: m.MainImageURL,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func FromModels(rows []models.ProductResearch) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}

package products

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dropsaas/shopify-bridge/pkg/db/models"
	"github.com/dropsaas/shopify-bridge/pkg/enums"
	"github.com/dropsaas/shopify-bridge/pkg/pagination"
)

// Repository persists research products captured from Shopify.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	InsertIfAbsent(ctx context.Context, product *models.ProductResearch) (bool, error)
	UpdateDetails(ctx context.Context, storeID uuid.UUID, shopifyID string, details Details) (int64, error)
	FindByShopifyID(ctx context.Context, storeID uuid.UUID, shopifyID string) (*models.ProductResearch, error)
	ListByStore(ctx context.Context, storeID uuid.UUID, params pagination.Params) ([]models.ProductResearch, int64, error)
}

// Details are the platform-owned fields refreshed on products/update.
type Details struct {
	Name     string
	Handle   string
	ImageURL *string
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) InsertIfAbsent(ctx context.Context, product *models.ProductResearch) (bool, error) {
	if strings.TrimSpace(string(product.Status)) == "" {
		product.Status = enums.ProductStatusEditing
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "store_id"}, {Name: "shopify_id"}},
			DoNothing: true,
		}).
		Create(product)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UpdateDetails never touches status or finding_date.
func (r *repository) UpdateDetails(ctx context.Context, storeID uuid.UUID, shopifyID string, details Details) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ProductResearch{}).
		Where("store_id = ? AND shopify_id = ?", storeID, shopifyID).
		Updates(map[string]any{
			"product_name":   details.Name,
			"handle":         details.Handle,
			"main_image_url": details.ImageURL,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) FindByShopifyID(ctx context.Context, storeID uuid.UUID, shopifyID string) (*models.ProductResearch, error) {
	var product models.ProductResearch
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND shopify_id = ?", storeID, shopifyID).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) ListByStore(ctx context.Context, storeID uuid.UUID, params pagination.Params) ([]models.ProductResearch, int64, error) {
	params = params.Normalize()
	base := r.db.WithContext(ctx).Model(&models.ProductResearch{}).Where("store_id = ?", storeID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.ProductResearch
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("finding_date DESC").
		Order("created_at DESC").
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

package tenants

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dropsaas/shopify-bridge/internal/repo"
	"github.com/dropsaas/shopify-bridge/pkg/db/models"
)

// Repository handles tenant (stores) and credential persistence.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to tenant operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// FindByShortID loads the tenant whose store_id equals shortID.
func (r *Repository) FindByShortID(ctx context.Context, shortID string) (*models.Store, error) {
	return r.first(ctx, "store_id = ?", shortID)
}

// FindByDomain loads the tenant by its full shop domain.
func (r *Repository) FindByDomain(ctx context.Context, shopDomain string) (*models.Store, error) {
	return r.first(ctx, "shop_domain = ?", shopDomain)
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *Repository) FindByAPIKey(ctx context.Context, apiKey string) (*models.Store, error) {
	return r.first(ctx, "api_key = ?", apiKey)
}

func (r *Repository) first(ctx context.Context, query string, arg any) (*models.Store, error) {
	var store models.Store
	if err := r.DB(ctx).Where(query, arg).Order("created_at ASC").First(&store).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

// UpsertInput describes an install or re-install of a shop.
type UpsertInput struct {
	ShopDomain  string
	ShortID     string
	Scopes      string
	InstalledAt time.Time
}

// UpsertByDomain inserts the tenant or refreshes scopes and install state on
// an existing row. The name defaults to the short id and is never overwritten.
func (r *Repository) UpsertByDomain(ctx context.Context, tx *gorm.DB, in UpsertInput) (*models.Store, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	if in.ShopDomain == "" || in.ShortID == "" {
		return nil, fmt.Errorf("shop domain and short id are required")
	}
	installedAt := in.InstalledAt.UTC()
	store := models.Store{
		StoreID:     in.ShortID,
		ShopDomain:  in.ShopDomain,
		Name:        in.ShortID,
		Scopes:      in.Scopes,
		InstalledAt: &installedAt,
	}
	err := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "shop_domain"}},
		DoUpdates: clause.Assignments(map[string]any{
			"scopes":         in.Scopes,
			"installed_at":   installedAt,
			"uninstalled_at": nil,
			"updated_at":     installedAt,
		}),
	}).Create(&store).Error
	if err != nil {
		return nil, err
	}

	var saved models.Store
	if err := tx.WithContext(ctx).Where("shop_domain = ?", in.ShopDomain).First(&saved).Error; err != nil {
		return nil, err
	}
	return &saved, nil
}

// MarkUninstalled stamps uninstalled_at on the tenant.
func (r *Repository) MarkUninstalled(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, at time.Time) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	return tx.WithContext(ctx).Model(&models.Store{}).
		Where("id = ?", storeID).
		Updates(map[string]any{
			"uninstalled_at": at.UTC(),
			"updated_at":     at.UTC(),
		}).Error
}

// FindCredential loads the credential row of a tenant.
func (r *Repository) FindCredential(ctx context.Context, storeID uuid.UUID) (*models.StoreCredential, error) {
	var cred models.StoreCredential
	if err := r.DB(ctx).Where("store_id = ?", storeID).First(&cred).Error; err != nil {
		return nil, err
	}
	return &cred, nil
}

// CredentialInput is the sealed credential written on install.
type CredentialInput struct {
	StoreID     uuid.UUID
	AccessToken string
	Scopes      string
	ExpiresAt   *time.Time
}

// UpsertCredential writes the single credential row of a tenant.
func (r *Repository) UpsertCredential(ctx context.Context, tx *gorm.DB, in CredentialInput) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	token := in.AccessToken
	cred := models.StoreCredential{
		StoreID:     in.StoreID,
		AccessToken: &token,
		Scopes:      in.Scopes,
		ExpiresAt:   in.ExpiresAt,
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "store_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"access_token":  token,
			"refresh_token": nil,
			"scopes":        in.Scopes,
			"expires_at":    in.ExpiresAt,
			"updated_at":    time.Now().UTC(),
		}),
	}).Create(&cred).Error
}

// ClearCredential nulls the token columns and reports whether a row existed.
func (r *Repository) ClearCredential(ctx context.Context, tx *gorm.DB, storeID uuid.UUID) (bool, error) {
	if tx == nil {
		return false, gorm.ErrInvalidTransaction
	}
	res := tx.WithContext(ctx).Model(&models.StoreCredential{}).
		Where("store_id = ?", storeID).
		Updates(map[string]any{
			"access_token":  nil,
			"refresh_token": nil,
			"expires_at":    nil,
			"updated_at":    time.Now().UTC(),
		})
	return res.RowsAffected > 0, res.Error
}

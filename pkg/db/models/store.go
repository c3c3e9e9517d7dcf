package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dropsaas/shopify-bridge/pkg/security"
)

// Store is the tenant record for one installed shop.
type Store struct {
	ID                  uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	StoreID             string     `gorm:"column:store_id;not null;uniqueIndex:stores_store_id_key"`
	ShopDomain          string     `gorm:"column:shop_domain;not null;uniqueIndex:stores_shop_domain_key"`
	Name                string     `gorm:"column:name;not null"`
	UserID              *uuid.UUID `gorm:"column:user_id;type:uuid"`
	APIKey              string     `gorm:"column:api_key;not null;uniqueIndex:stores_api_key_key"`
	ResearchModeEnabled bool       `gorm:"column:research_mode_enabled;not null;default:false"`
	Scopes              string     `gorm:"column:scopes;not null;default:''"`
	InstalledAt         *time.Time `gorm:"column:installed_at"`
	UninstalledAt       *time.Time `gorm:"column:uninstalled_at"`
	CreatedAt           time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Store) TableName() string { return "stores" }

// BeforeCreate assigns the identifiers the datastore would otherwise default.
func (s *Store) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.APIKey == "" {
		key, err := security.NewAPIKey()
		if err != nil {
			return err
		}
		s.APIKey = key
	}
	return nil
}

// Installed reports whether the shop currently has the app installed.
func (s *Store) Installed() bool {
	return s != nil && s.UninstalledAt == nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StoreCredential holds the offline access token for a store. Token columns
// are nulled on uninstall rather than deleted.
type StoreCredential struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	StoreID      uuid.UUID  `gorm:"column:store_id;type:uuid;not null;uniqueIndex:store_credentials_store_id_key"`
	AccessToken  *string    `gorm:"column:access_token"`
	RefreshToken *string    `gorm:"column:refresh_token"`
	Scopes       string     `gorm:"column:scopes;not null;default:''"`
	ExpiresAt    *time.Time `gorm:"column:expires_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (StoreCredential) TableName() string { return "store_credentials" }

func (c *StoreCredential) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// HasToken reports whether an access token is present.
func (c *StoreCredential) HasToken() bool {
	return c != nil && c.AccessToken != nil && *c.AccessToken != ""
}

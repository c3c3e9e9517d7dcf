package tenants

import (
	"github.com/google/uuid"

	"github.com/dropsaas/shopify-bridge/pkg/db/models"
)

// StoreDTO exposes safe tenant data in API responses.
type StoreDTO struct {
	ID                  uuid.UUID  `json:"id"`
	Name                string     `json:"name"`
	StoreID             string     `json:"store_id"`
	UserID              *uuid.UUID `json:"user_id"`
	ResearchModeEnabled bool       `json:"research_mode_enabled"`
}

// FromModel maps the persisted store into a DTO.
func FromModel(m *models.Store) *StoreDTO {
	if m == nil {
		return nil
	}
	return &StoreDTO{
		ID:                  m.ID,
		Name:                m.Name,
		StoreID:             m.StoreID,
		UserID:              m.UserID,
		ResearchModeEnabled: m.ResearchModeEnabled,
	}
}

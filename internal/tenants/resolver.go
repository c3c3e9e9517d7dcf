package tenants

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dropsaas/shopify-bridge/pkg/db"
	"github.com/dropsaas/shopify-bridge/pkg/db/models"
	pkgerrors "github.com/dropsaas/shopify-bridge/pkg/errors"
	"github.com/dropsaas/shopify-bridge/pkg/shopify"
)

type storeFinder interface {
	FindByShortID(ctx context.Context, shortID string) (*models.Store, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
	FindByAPIKey(ctx context.Context, apiKey string) (*models.Store, error)
}

// Resolver maps platform identifiers and API keys onto tenant rows.
type Resolver struct {
	repo storeFinder
}

func NewResolver(repo storeFinder) (*Resolver, error) {
	if repo == nil {
		return nil, fmt.Errorf("store repository required")
	}
	return &Resolver{repo: repo}, nil
}

// Resolve returns the tenant for a shop domain, matching on the short id.
// A missing tenant is (nil, nil): webhook callers acknowledge it.
func (r *Resolver) Resolve(ctx context.Context, shopDomain string) (*models.Store, error) {
	shortID := shopify.ShortID(shopDomain)
	if shortID == "" {
		return nil, nil
	}
	store, err := r.repo.FindByShortID(ctx, shortID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve tenant")
	}
	return store, nil
}

// ResolveAPIKey loads the tenant owning apiKey. Unknown keys are unauthorized.
func (r *Resolver) ResolveAPIKey(ctx context.Context, apiKey string) (*models.Store, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "api_key is required")
	}
	store, err := r.repo.FindByAPIKey(ctx, apiKey)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid api key")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup api key")
	}
	return store, nil
}

// ResolveID loads the tenant by internal id. Unknown ids are not found.
func (r *Resolver) ResolveID(ctx context.Context, rawID string) (*models.Store, error) {
	id, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store_id must be a uuid")
	}
	store, err := r.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup store")
	}
	return store, nil
}

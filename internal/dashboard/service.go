// Package dashboard serves the API-key authenticated reads used by the
// external research dashboard.
package dashboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dropsaas/shopify-bridge/internal/products"
	"github.com/dropsaas/shopify-bridge/internal/tenants"
	"github.com/dropsaas/shopify-bridge/pkg/db"
	"github.com/dropsaas/shopify-bridge/pkg/db/models"
	pkgerrors "github.com/dropsaas/shopify-bridge/pkg/errors"
	"github.com/dropsaas/shopify-bridge/pkg/pagination"
	"github.com/dropsaas/shopify-bridge/pkg/security"
	"github.com/dropsaas/shopify-bridge/pkg/shopify"
)

type tenantResolver interface {
	ResolveAPIKey(ctx context.Context, apiKey string) (*models.Store, error)
	ResolveID(ctx context.Context, rawID string) (*models.Store, error)
}

type credentialFinder interface {
	FindCredential(ctx context.Context, storeID uuid.UUID) (*models.StoreCredential, error)
}

type productLister interface {
	ListByStore(ctx context.Context, storeID uuid.UUID, params pagination.Params) ([]models.ProductResearch, int64, error)
}

type shopInfoFetcher interface {
	ShopInfo(ctx context.Context, shop, token string) (*shopify.ShopInfo, error)
}

type ServiceParams struct {
	Tenants     tenantResolver
	Credentials credentialFinder
	Products    productLister
	Cipher      security.TokenCipher
	Shopify     shopInfoFetcher
}

type Service struct {
	tenants     tenantResolver
	credentials credentialFinder
	products    productLister
	cipher      security.TokenCipher
	shopify     shopInfoFetcher
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Tenants == nil {
		return nil, fmt.Errorf("tenant resolver is required")
	}
	if params.Credentials == nil {
		return nil, fmt.Errorf("credential repository is required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("products repository is required")
	}
	cipher := params.Cipher
	if cipher == nil {
		var err error
		if cipher, err = security.NewTokenCipher(nil); err != nil {
			return nil, err
		}
	}
	return &Service{
		tenants:     params.Tenants,
		credentials: params.Credentials,
		products:    params.Products,
		cipher:      cipher,
		shopify:     params.Shopify,
	}, nil
}

// ListProducts pages through the research products of the key's tenant,
// newest finding first.
func (s *Service) ListProducts(ctx context.Context, apiKey string, params pagination.Params) ([]products.ProductDTO, pagination.Page, error) {
	store, err := s.tenants.ResolveAPIKey(ctx, apiKey)
	if err != nil {
		return nil, pagination.Page{}, err
	}
	params = params.Normalize()
	rows, total, err := s.products.ListByStore(ctx, store.ID, params)
	if err != nil {
		return nil, pagination.Page{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	return products.FromModels(rows), params.PageOf(total), nil
}

// StoreCredentials resolves the tenant by internal id or API key, in that
// order, and returns its decrypted credential.
func (s *Service) StoreCredentials(ctx context.Context, storeID, apiKey string) (*CredentialsDTO, error) {
	store, err := s.resolveEither(ctx, storeID, apiKey)
	if err != nil {
		return nil, err
	}
	cred, token, err := s.openCredential(ctx, store)
	if err != nil {
		return nil, err
	}
	return &CredentialsDTO{
		AccessToken:  token,
		RefreshToken: cred.RefreshToken,
		Scopes:       cred.Scopes,
		ExpiresAt:    cred.ExpiresAt,
		ShopDomain:   store.ShopDomain,
		StoreID:      store.StoreID,
	}, nil
}

func (s *Service) ValidateKey(ctx context.Context, apiKey string) (*ValidateKeyResult, error) {
	store, err := s.tenants.ResolveAPIKey(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return &ValidateKeyResult{Valid: true, Store: tenants.FromModel(store)}, nil
}

// ShopInfo fetches live shop details with the tenant's offline token.
func (s *Service) ShopInfo(ctx context.Context, apiKey string) (*shopify.ShopInfo, error) {
	if s.shopify == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "shopify client unavailable")
	}
	store, err := s.tenants.ResolveAPIKey(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	_, token, err := s.openCredential(ctx, store)
	if err != nil {
		return nil, err
	}
	info, err := s.shopify.ShopInfo(ctx, store.ShopDomain, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch shop info")
	}
	return info, nil
}

func (s *Service) resolveEither(ctx context.Context, storeID, apiKey string) (*models.Store, error) {
	storeID = strings.TrimSpace(storeID)
	apiKey = strings.TrimSpace(apiKey)
	switch {
	case storeID != "":
		return s.tenants.ResolveID(ctx, storeID)
	case apiKey != "":
		store, err := s.tenants.ResolveAPIKey(ctx, apiKey)
		if pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return store, err
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store_id or api_key is required")
	}
}

func (s *Service) openCredential(ctx context.Context, store *models.Store) (*models.StoreCredential, string, error) {
	cred, err := s.credentials.FindCredential(ctx, store.ID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, "", pkgerrors.New(pkgerrors.CodeNotFound, "credentials not found")
		}
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load credentials")
	}
	if !cred.HasToken() {
		return nil, "", pkgerrors.New(pkgerrors.CodeNotFound, "credentials revoked")
	}
	token, err := s.cipher.Open(*cred.AccessToken)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "open access token")
	}
	return cred, token, nil
}

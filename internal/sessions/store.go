package sessions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dropsaas/shopify-bridge/internal/tenants"
	"github.com/dropsaas/shopify-bridge/pkg/db"
	"github.com/dropsaas/shopify-bridge/pkg/db/models"
	"github.com/dropsaas/shopify-bridge/pkg/enums"
	pkgerrors "github.com/dropsaas/shopify-bridge/pkg/errors"
	"github.com/dropsaas/shopify-bridge/pkg/logger"
	"github.com/dropsaas/shopify-bridge/pkg/outbox"
	"github.com/dropsaas/shopify-bridge/pkg/outbox/payloads"
	"github.com/dropsaas/shopify-bridge/pkg/security"
	"github.com/dropsaas/shopify-bridge/pkg/shopify"
)

// Session is an OAuth session as the app framework sees it. Only offline
// sessions are persisted, rebuilt from the tenant and credential rows.
type Session struct {
	ID          string     `json:"id"`
	Shop        string     `json:"shop"`
	State       string     `json:"state"`
	IsOnline    bool       `json:"isOnline"`
	AccessToken string     `json:"accessToken,omitempty"`
	Scope       string     `json:"scope,omitempty"`
	Expires     *time.Time `json:"expires,omitempty"`
}

type tenantStore interface {
	FindByDomain(ctx context.Context, shopDomain string) (*models.Store, error)
	UpsertByDomain(ctx context.Context, tx *gorm.DB, in tenants.UpsertInput) (*models.Store, error)
	FindCredential(ctx context.Context, storeID uuid.UUID) (*models.StoreCredential, error)
	UpsertCredential(ctx context.Context, tx *gorm.DB, in tenants.CredentialInput) error
}

type StoreParams struct {
	DB      db.TxRunner
	Tenants tenantStore
	Cipher  security.TokenCipher
	Logger  *logger.Logger
	// Outbox, when set, records shopify_app_installed with every stored session.
	Outbox outbox.Emitter
}

// Store persists offline sessions into stores + store_credentials.
type Store struct {
	db      db.TxRunner
	tenants tenantStore
	cipher  security.TokenCipher
	logg    *logger.Logger
	outbox  outbox.Emitter
	now     func() time.Time
}

func NewStore(params StoreParams) (*Store, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Tenants == nil {
		return nil, fmt.Errorf("tenant repository required")
	}
	cipher := params.Cipher
	if cipher == nil {
		var err error
		if cipher, err = security.NewTokenCipher(nil); err != nil {
			return nil, err
		}
	}
	return &Store{
		db:      params.DB,
		tenants: params.Tenants,
		cipher:  cipher,
		logg:    params.Logger,
		outbox:  params.Outbox,
		now:     time.Now,
	}, nil
}

// StoreSession persists an offline session with a token. Anything else is
// ignored and reported as not stored.
func (s *Store) StoreSession(ctx context.Context, session Session) (bool, error) {
	if session.IsOnline || strings.TrimSpace(session.AccessToken) == "" {
		return false, nil
	}
	shop := shopify.NormalizeShopDomain(session.Shop)
	if shop == "" {
		if parsed, ok := shopify.ShopFromOfflineSessionID(session.ID); ok {
			shop = parsed
		}
	}
	if shop == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "session shop is required")
	}

	sealed, err := s.cipher.Seal(session.AccessToken)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "seal access token")
	}

	var storeID uuid.UUID
	installedAt := s.now().UTC()
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		store, err := s.tenants.UpsertByDomain(ctx, tx, tenants.UpsertInput{
			ShopDomain:  shop,
			ShortID:     shopify.ShortID(shop),
			Scopes:      session.Scope,
			InstalledAt: installedAt,
		})
		if err != nil {
			return fmt.Errorf("upsert store: %w", err)
		}
		storeID = store.ID
		if err := s.tenants.UpsertCredential(ctx, tx, tenants.CredentialInput{
			StoreID:     store.ID,
			AccessToken: sealed,
			Scopes:      session.Scope,
			ExpiresAt:   session.Expires,
		}); err != nil {
			return fmt.Errorf("upsert credential: %w", err)
		}
		if s.outbox == nil {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventShopifyAppInstalled,
			AggregateType: enums.AggregateStore,
			AggregateID:   store.ID,
			Source:        &outbox.SourceRef{ShopDomain: shop, StoreID: store.ID.String()},
			OccurredAt:    installedAt,
			Data: payloads.ShopifyAppInstalledEvent{
				StoreID:     store.ID,
				ShopDomain:  shop,
				Scopes:      session.Scope,
				InstalledAt: installedAt,
			},
		})
	})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store session")
	}

	if s.logg != nil {
		logCtx := s.logg.WithStoreID(s.logg.WithShopDomain(ctx, shop), storeID.String())
		s.logg.Info(logCtx, "offline session stored")
	}
	return true, nil
}

// LoadSession rebuilds an offline session. Online ids, unknown shops and
// revoked credentials all load as nil.
func (s *Store) LoadSession(ctx context.Context, id string) (*Session, error) {
	shop, ok := shopify.ShopFromOfflineSessionID(id)
	if !ok {
		return nil, nil
	}

	store, err := s.tenants.FindByDomain(ctx, shop)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load store")
	}
	cred, err := s.tenants.FindCredential(ctx, store.ID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load credential")
	}
	if !cred.HasToken() {
		return nil, nil
	}

	token, err := s.cipher.Open(*cred.AccessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "open access token")
	}

	return &Session{
		ID:          id,
		Shop:        shop,
		State:       "",
		IsOnline:    false,
		AccessToken: token,
		Scope:       cred.Scopes,
		Expires:     cred.ExpiresAt,
	}, nil
}

// DeleteSession accepts and ignores the request; revocation happens on uninstall.
func (s *Store) DeleteSession(_ context.Context, _ string) (bool, error) {
	return true, nil
}

// DeleteSessions accepts and ignores the request.
func (s *Store) DeleteSessions(_ context.Context, _ []string) (bool, error) {
	return true, nil
}

// FindSessionsByShop returns the shop's offline session, if any.
func (s *Store) FindSessionsByShop(ctx context.Context, shop string) ([]Session, error) {
	session, err := s.LoadSession(ctx, shopify.OfflineSessionID(shopify.NormalizeShopDomain(shop)))
	if err != nil {
		return nil, err
	}
	if session == nil {
		return []Session{}, nil
	}
	return []Session{*session}, nil
}

package tenants

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dropsaas/shopify-bridge/pkg/db"
	"github.com/dropsaas/shopify-bridge/pkg/db/dbtest"
	"github.com/dropsaas/shopify-bridge/pkg/db/models"
)

func TestUpsertByDomainInsertsThenRefreshes(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	first := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)

	var created *models.Store
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		created, err = repo.UpsertByDomain(ctx, tx, UpsertInput{
			ShopDomain:  "acme.myshopify.com",
			ShortID:     "acme",
			Scopes:      "read_orders",
			InstalledAt: first,
		})
		return err
	}))
	assert.Equal(t, "acme", created.StoreID)
	assert.Equal(t, "acme", created.Name)
	assert.NotEmpty(t, created.APIKey)

	require.NoError(t, conn.Model(&models.Store{}).Where("id = ?", created.ID).
		Updates(map[string]any{"name": "Acme Co", "uninstalled_at": first}).Error)

	var again *models.Store
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		again, err = repo.UpsertByDomain(ctx, tx, UpsertInput{
			ShopDomain:  "acme.myshopify.com",
			ShortID:     "acme",
			Scopes:      "read_orders,read_products",
			InstalledAt: first.Add(time.Hour),
		})
		return err
	}))
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, created.APIKey, again.APIKey)
	assert.Equal(t, "Acme Co", again.Name, "name is kept on conflict")
	assert.Equal(t, "read_orders,read_products", again.Scopes)
	assert.Nil(t, again.UninstalledAt)

	var count int64
	require.NoError(t, conn.Model(&models.Store{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUpsertByDomainRequiresTransaction(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	_, err := repo.UpsertByDomain(context.Background(), nil, UpsertInput{ShopDomain: "a.myshopify.com", ShortID: "a"})
	assert.ErrorIs(t, err, gorm.ErrInvalidTransaction)
}

func TestCredentialUpsertAndClear(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	store := seedStore(t, conn, "acme", false)

	require.NoError(t, repo.UpsertCredential(ctx, conn, CredentialInput{StoreID: store.ID, AccessToken: "shpat_1", Scopes: "read_orders"}))
	require.NoError(t, repo.UpsertCredential(ctx, conn, CredentialInput{StoreID: store.ID, AccessToken: "shpat_2", Scopes: "read_orders,read_products"}))

	cred, err := repo.FindCredential(ctx, store.ID)
	require.NoError(t, err)
	require.True(t, cred.HasToken())
	assert.Equal(t, "shpat_2", *cred.AccessToken)
	assert.Equal(t, "read_orders,read_products", cred.Scopes)

	cleared, err := repo.ClearCredential(ctx, conn, store.ID)
	require.NoError(t, err)
	assert.True(t, cleared)

	cred, err = repo.FindCredential(ctx, store.ID)
	require.NoError(t, err)
	assert.False(t, cred.HasToken())
	assert.Nil(t, cred.RefreshToken)
	assert.Nil(t, cred.ExpiresAt)

	var count int64
	require.NoError(t, conn.Model(&models.StoreCredential{}).Count(&count).Error)
	assert.EqualValues(t, 1, count, "credential row is kept")
}

func TestMarkUninstalled(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	store := seedStore(t, conn, "acme", false)

	require.NoError(t, repo.MarkUninstalled(context.Background(), conn, store.ID, time.Now()))

	got, err := repo.FindByDomain(context.Background(), store.ShopDomain)
	require.NoError(t, err)
	assert.False(t, got.Installed())
}

func TestFindersReturnNotFound(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	_, err := repo.FindByShortID(context.Background(), "missing")
	assert.True(t, db.IsNotFound(err))
}

func seedStore(t *testing.T, conn *gorm.DB, shortID string, research bool) *models.Store {
	t.Helper()
	store := &models.Store{
		StoreID:             shortID,
		ShopDomain:          shortID + ".myshopify.com",
		Name:                shortID,
		ResearchModeEnabled: research,
	}
	require.NoError(t, conn.Create(store).Error)
	return store
}

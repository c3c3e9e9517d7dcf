package products

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropsaas/shopify-bridge/pkg/db/dbtest"
	"github.com/dropsaas/shopify-bridge/pkg/db/models"
	"github.com/dropsaas/shopify-bridge/pkg/enums"
	"github.com/dropsaas/shopify-bridge/pkg/pagination"
)

func newProduct(storeID uuid.UUID, shopifyID string, found time.Time) *models.ProductResearch {
	return &models.ProductResearch{
		StoreID:     storeID,
		ShopifyID:   shopifyID,
		ProductName: "Snowboard " + shopifyID,
		Handle:      "snowboard-" + shopifyID,
		FindingDate: found,
	}
}

func TestInsertIfAbsentDefaultsStatus(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	storeID := uuid.New()
	today := time.Now().UTC().Truncate(24 * time.Hour)

	inserted, err := repo.InsertIfAbsent(ctx, newProduct(storeID, "632910392", today))
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.InsertIfAbsent(ctx, newProduct(storeID, "632910392", today))
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := repo.FindByShopifyID(ctx, storeID, "632910392")
	require.NoError(t, err)
	assert.Equal(t, enums.ProductStatusEditing, got.Status)
}

func TestUpdateDetailsKeepsStatus(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	storeID := uuid.New()

	product := newProduct(storeID, "1", time.Now().UTC())
	product.Status = enums.ProductStatusTesting
	_, err := repo.InsertIfAbsent(ctx, product)
	require.NoError(t, err)

	img := "https://cdn.example.com/new.png"
	n, err := repo.UpdateDetails(ctx, storeID, "1", Details{Name: "Renamed", Handle: "renamed", ImageURL: &img})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := repo.FindByShopifyID(ctx, storeID, "1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.ProductName)
	assert.Equal(t, "renamed", got.Handle)
	require.NotNil(t, got.MainImageURL)
	assert.Equal(t, img, *got.MainImageURL)
	assert.Equal(t, enums.ProductStatusTesting, got.Status)

	n, err = repo.UpdateDetails(ctx, storeID, "missing", Details{Name: "x"})
	require.NoError(t, err)
	assert.Zero(t, n)

	var count int64
	require.NoError(t, conn.Model(&models.ProductResearch{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestListByStorePaginates(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	storeID := uuid.New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_, err := repo.InsertIfAbsent(ctx, newProduct(storeID, fmt.Sprint(i), base.AddDate(0, 0, i)))
		require.NoError(t, err)
	}
	_, err := repo.InsertIfAbsent(ctx, newProduct(uuid.New(), "other", base))
	require.NoError(t, err)

	rows, total, err := repo.ListByStore(ctx, storeID, pagination.Params{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, rows, 2)
	assert.Equal(t, "3", rows[0].ShopifyID)
	assert.Equal(t, "2", rows[1].ShopifyID)

	dtos := FromModels(rows)
	assert.Equal(t, "2024-01-04", dtos[0].FindingDate)
}

package cron

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropsaas/shopify-bridge/internal/orders"
	"github.com/dropsaas/shopify-bridge/pkg/db/dbtest"
	"github.com/dropsaas/shopify-bridge/pkg/db/models"
	"github.com/dropsaas/shopify-bridge/pkg/enums"
	"github.com/dropsaas/shopify-bridge/pkg/logger"
)

func TestShipmentReconcileJobRepairsOrphans(t *testing.T) {
	client := dbtest.Client(t)
	conn := client.DB()
	repo := orders.NewRepository(conn)
	ctx := context.Background()
	storeID := uuid.New()

	for _, id := range []string{"1", "2", "3"} {
		order := &models.Order{StoreID: storeID, ShopifyID: id, OrderNumber: id, OrderDate: "2024-01-15", OrderTime: "14:30"}
		_, err := repo.InsertIfAbsent(ctx, order)
		require.NoError(t, err)
		if id == "1" {
			_, err = repo.CreateShipment(ctx, order.ID)
			require.NoError(t, err)
		}
	}

	job, err := NewShipmentReconcileJob(ShipmentReconcileJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		DB:     client,
		Orders: repo,
	})
	require.NoError(t, err)
	assert.Equal(t, "shipment-reconcile", job.Name())

	require.NoError(t, job.Run(ctx))

	var shipments []models.OrderShipment
	require.NoError(t, conn.Find(&shipments).Error)
	assert.Len(t, shipments, 3)
	for _, s := range shipments {
		assert.Equal(t, enums.ShipmentStatusUnfulfilled, s.Status)
	}

	orphans, err := repo.ListWithoutShipment(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, orphans)

	require.NoError(t, job.Run(ctx))
	require.NoError(t, conn.Find(&shipments).Error)
	assert.Len(t, shipments, 3)
}

func TestShipmentReconcileJobRequiresDependencies(t *testing.T) {
	_, err := NewShipmentReconcileJob(ShipmentReconcileJobParams{})
	assert.Error(t, err)
}

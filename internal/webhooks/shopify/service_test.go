package shopifywebhook

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dropsaas/shopify-bridge/internal/orders"
	"github.com/dropsaas/shopify-bridge/internal/products"
	"github.com/dropsaas/shopify-bridge/internal/tenants"
	"github.com/dropsaas/shopify-bridge/pkg/db"
	"github.com/dropsaas/shopify-bridge/pkg/db/dbtest"
	"github.com/dropsaas/shopify-bridge/pkg/db/models"
	"github.com/dropsaas/shopify-bridge/pkg/enums"
	pkgerrors "github.com/dropsaas/shopify-bridge/pkg/errors"
	"github.com/dropsaas/shopify-bridge/pkg/outbox"
)

const shop = "acme.myshopify.com"

type memoryStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{keys: map[string]bool{}}
}

func (m *memoryStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memoryStore) WebhookKey(shop, webhookID string) string {
	return "webhook:" + shop + ":" + webhookID
}

func (m *memoryStore) Del(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

type failingRunner struct{ err error }

func (f failingRunner) WithTx(context.Context, func(tx *gorm.DB) error) error { return f.err }

// cancelingRunner mimics Shopify hanging up while the transaction is open.
type cancelingRunner struct{ cancel context.CancelFunc }

func (c cancelingRunner) WithTx(ctx context.Context, _ func(tx *gorm.DB) error) error {
	c.cancel()
	return ctx.Err()
}

type harness struct {
	client  *db.Client
	conn    *gorm.DB
	service *Service
	keys    *memoryStore
}

func newHarness(t *testing.T, runner db.TxRunner) *harness {
	t.Helper()
	client := dbtest.Client(t)
	conn := client.DB()
	if runner == nil {
		runner = client
	}
	tenantRepo := tenants.NewRepository(conn)
	resolver, err := tenants.NewResolver(tenantRepo)
	require.NoError(t, err)
	keys := newMemoryStore()
	guard, err := NewDeliveryGuard(keys, time.Hour)
	require.NoError(t, err)

	service, err := NewService(ServiceParams{
		TransactionRunner: runner,
		Tenants:           resolver,
		Credentials:       tenantRepo,
		Orders:            orders.NewRepository(conn),
		Products:          products.NewRepository(conn),
		Outbox:            outbox.NewService(outbox.NewRepository(conn), nil, true),
		Guard:             guard,
	})
	require.NoError(t, err)
	return &harness{client: client, conn: conn, service: service, keys: keys}
}

func (h *harness) seedStore(t *testing.T, research bool) *models.Store {
	t.Helper()
	userID := uuid.New()
	store := &models.Store{
		StoreID:             "acme",
		ShopDomain:          shop,
		Name:                "Acme",
		UserID:              &userID,
		ResearchModeEnabled: research,
	}
	require.NoError(t, h.conn.Create(store).Error)
	return store
}

func (h *harness) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.conn.Model(model).Count(&n).Error)
	return n
}

func event(topic, body string) Event {
	return Event{
		Topic:      topic,
		ShopDomain: shop,
		WebhookID:  uuid.NewString(),
		Payload:    []byte(body),
		ReceivedAt: time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC),
	}
}

const orderBody = `{
	"id": 820982911946154508,
	"order_number": 1001,
	"created_at": "2024-01-15T14:30:00Z",
	"email": "jane@example.com",
	"customer": {"email": "", "first_name": "Jane"},
	"billing_address": {"first_name": "Ignored", "last_name": "Doe"},
	"total_price": "199.99",
	"currency": "USD"
}`

func TestOrderCreatedWritesOrderShipmentAndEvent(t *testing.T) {
	h := newHarness(t, nil)
	store := h.seedStore(t, false)

	result, err := h.service.HandleEvent(context.Background(), event("orders/create", orderBody))
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeProcessed, result.Outcome)
	require.NotNil(t, result.StoreID)
	assert.Equal(t, store.ID, *result.StoreID)

	var order models.Order
	require.NoError(t, h.conn.Where("shopify_id = ?", "820982911946154508").First(&order).Error)
	assert.Equal(t, "2024-01-15", order.OrderDate)
	assert.Equal(t, "14:30", order.OrderTime)
	assert.Equal(t, "1001", order.OrderNumber)
	assert.Equal(t, enums.OrderStatusPending, order.InternalStatus)
	require.NotNil(t, order.CustomerEmail)
	assert.Equal(t, "jane@example.com", *order.CustomerEmail)
	require.NotNil(t, order.CustomerFirstName)
	assert.Equal(t, "Jane", *order.CustomerFirstName)
	require.NotNil(t, order.CustomerLastName)
	assert.Equal(t, "Doe", *order.CustomerLastName)
	assert.Equal(t, store.UserID, order.UserID)
	require.True(t, order.TotalPrice.Valid)
	assert.Equal(t, "199.99", order.TotalPrice.Decimal.StringFixed(2))

	var shipment models.OrderShipment
	require.NoError(t, h.conn.Where("order_id = ?", order.ID).First(&shipment).Error)
	assert.Equal(t, enums.ShipmentStatusUnfulfilled, shipment.Status)

	var evt models.OutboxEvent
	require.NoError(t, h.conn.First(&evt).Error)
	assert.Equal(t, enums.EventShopifyOrderCreated, evt.EventType)
	assert.Equal(t, order.ID, evt.AggregateID)
}

func TestOrderCreatedRedeliveryIsDuplicate(t *testing.T) {
	h := newHarness(t, nil)
	h.seedStore(t, false)
	ctx := context.Background()

	_, err := h.service.HandleEvent(ctx, event("ORDERS_CREATE", orderBody))
	require.NoError(t, err)

	result, err := h.service.HandleEvent(ctx, event("orders/create", orderBody))
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeDuplicate, result.Outcome)
	assert.EqualValues(t, 1, h.count(t, &models.Order{}))
	assert.EqualValues(t, 1, h.count(t, &models.OrderShipment{}))
	assert.EqualValues(t, 1, h.count(t, &models.OutboxEvent{}))
}

func TestSameDeliveryIsDroppedByGuard(t *testing.T) {
	h := newHarness(t, nil)
	h.seedStore(t, false)
	ctx := context.Background()
	evt := event("orders/create", orderBody)

	_, err := h.service.HandleEvent(ctx, evt)
	require.NoError(t, err)
	result, err := h.service.HandleEvent(ctx, evt)
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeDuplicate, result.Outcome)
	assert.Empty(t, result.Detail)
}

func TestOrderCreatedFallsBackToReceiveTime(t *testing.T) {
	h := newHarness(t, nil)
	h.seedStore(t, false)

	_, err := h.service.HandleEvent(context.Background(), event("orders/create", `{"id": 5, "name": "#1002", "created_at": "yesterday"}`))
	require.NoError(t, err)

	var order models.Order
	require.NoError(t, h.conn.First(&order).Error)
	assert.Equal(t, "2024-02-01", order.OrderDate)
	assert.Equal(t, "08:00", order.OrderTime)
	assert.Equal(t, "1002", order.OrderNumber)
	assert.Nil(t, order.CustomerEmail)
	assert.False(t, order.TotalPrice.Valid)
}

func TestOrderCreatedRejectsInvalidPayload(t *testing.T) {
	h := newHarness(t, nil)
	h.seedStore(t, false)
	evt := event("orders/create", `{"order_number": 1}`)

	_, err := h.service.HandleEvent(context.Background(), evt)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	assert.EqualValues(t, 0, h.count(t, &models.Order{}))
	assert.True(t, h.keys.keys[h.keys.WebhookKey(shop, evt.WebhookID)], "validation failures keep the dedupe key")
}

func TestInternalFailureReleasesDeliveryKey(t *testing.T) {
	h := newHarness(t, failingRunner{err: errors.New("connection reset")})
	h.seedStore(t, false)
	evt := event("orders/create", orderBody)

	_, err := h.service.HandleEvent(context.Background(), evt)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInternal))
	assert.Empty(t, h.keys.keys)
}

func TestCanceledRequestStillReleasesDeliveryKey(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newHarness(t, cancelingRunner{cancel: cancel})
	h.seedStore(t, false)
	evt := event("orders/create", orderBody)

	_, err := h.service.HandleEvent(ctx, evt)
	require.Error(t, err)
	assert.Empty(t, h.keys.keys, "a hung-up delivery must not block the retry")

	h.service.tx = h.client
	result, err := h.service.HandleEvent(context.Background(), evt)
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeProcessed, result.Outcome)
	assert.EqualValues(t, 1, h.count(t, &models.Order{}))
}

func TestOrderUpdatedIsAcknowledgedOnly(t *testing.T) {
	h := newHarness(t, nil)
	h.seedStore(t, false)

	result, err := h.service.HandleEvent(context.Background(), event("orders/updated", orderBody))
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeSkipped, result.Outcome)
	assert.EqualValues(t, 0, h.count(t, &models.Order{}))
}

func TestProductCreatedRespectsResearchMode(t *testing.T) {
	h := newHarness(t, nil)
	h.seedStore(t, false)

	result, err := h.service.HandleEvent(context.Background(), event("products/create", `{"id": 632910392, "title": "Board"}`))
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeSkipped, result.Outcome)
	assert.EqualValues(t, 0, h.count(t, &models.ProductResearch{}))
}

func TestProductCreateThenUpdateKeepsStatus(t *testing.T) {
	h := newHarness(t, nil)
	store := h.seedStore(t, true)
	ctx := context.Background()

	result, err := h.service.HandleEvent(ctx, event("products/create", `{"id": 632910392, "title": "Board", "handle": "board", "images": [{"src": "https://cdn.example.com/a.png"}]}`))
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeProcessed, result.Outcome)

	result, err = h.service.HandleEvent(ctx, event("products/update", `{"id": 632910392, "title": "Board v2", "handle": "board-v2", "image": {"src": "https://cdn.example.com/b.png"}}`))
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeProcessed, result.Outcome)

	var rows []models.ProductResearch
	require.NoError(t, h.conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "Board v2", rows[0].ProductName)
	assert.Equal(t, "board-v2", rows[0].Handle)
	assert.Equal(t, enums.ProductStatusEditing, rows[0].Status)
	assert.Equal(t, store.ID, rows[0].StoreID)
	require.NotNil(t, rows[0].MainImageURL)
	assert.Equal(t, "https://cdn.example.com/b.png", *rows[0].MainImageURL)
	assert.Equal(t, "2024-02-01", rows[0].FindingDate.UTC().Format("2006-01-02"))
	assert.EqualValues(t, 2, h.count(t, &models.OutboxEvent{}))
}

func TestProductUpdateForUnknownProductIsSkipped(t *testing.T) {
	h := newHarness(t, nil)
	h.seedStore(t, true)

	result, err := h.service.HandleEvent(context.Background(), event("products/update", `{"id": 42, "title": "Never captured"}`))
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeSkipped, result.Outcome)
	assert.EqualValues(t, 0, h.count(t, &models.ProductResearch{}))
	assert.EqualValues(t, 0, h.count(t, &models.OutboxEvent{}))
}

func TestAppUninstalledClearsCredentials(t *testing.T) {
	h := newHarness(t, nil)
	store := h.seedStore(t, false)
	token := "shpat_123"
	require.NoError(t, h.conn.Create(&models.StoreCredential{StoreID: store.ID, AccessToken: &token, Scopes: "read_orders"}).Error)

	result, err := h.service.HandleEvent(context.Background(), event("app/uninstalled", `{"id": 1, "domain": "acme.myshopify.com"}`))
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeProcessed, result.Outcome)

	var cred models.StoreCredential
	require.NoError(t, h.conn.Where("store_id = ?", store.ID).First(&cred).Error)
	assert.Nil(t, cred.AccessToken)

	var reloaded models.Store
	require.NoError(t, h.conn.First(&reloaded, "id = ?", store.ID).Error)
	require.NotNil(t, reloaded.UninstalledAt)
	assert.EqualValues(t, 1, h.count(t, &models.Store{}))
}

func TestUnknownTenantAndTopic(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	result, err := h.service.HandleEvent(ctx, event("orders/create", orderBody))
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeTenantMissing, result.Outcome)
	assert.EqualValues(t, 0, h.count(t, &models.Order{}))

	result, err = h.service.HandleEvent(ctx, event("customers/create", `{}`))
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeUnhandled, result.Outcome)
	assert.False(t, h.service.CanHandle("customers/create"))
	assert.True(t, h.service.CanHandle("PRODUCTS_UPDATE"))
}

func TestHandleEventRequiresTopicAndShop(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.service.HandleEvent(context.Background(), Event{ShopDomain: shop})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = h.service.HandleEvent(context.Background(), Event{Topic: "orders/create"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

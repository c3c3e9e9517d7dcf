package shopifywebhook

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dropsaas/shopify-bridge/internal/orders"
	"github.com/dropsaas/shopify-bridge/internal/products"
	"github.com/dropsaas/shopify-bridge/pkg/db"
	"github.com/dropsaas/shopify-bridge/pkg/db/models"
	"github.com/dropsaas/shopify-bridge/pkg/enums"
	pkgerrors "github.com/dropsaas/shopify-bridge/pkg/errors"
	"github.com/dropsaas/shopify-bridge/pkg/logger"
	"github.com/dropsaas/shopify-bridge/pkg/outbox"
	"github.com/dropsaas/shopify-bridge/pkg/outbox/payloads"
)

const releaseTimeout = 2 * time.Second

// Event is a verified webhook delivery.
type Event struct {
	Topic      string
	ShopDomain string
	WebhookID  string
	APIVersion string
	Payload    []byte
	ReceivedAt time.Time
}

type Result struct {
	Outcome enums.WebhookOutcome `json:"outcome"`
	StoreID *uuid.UUID           `json:"store_id,omitempty"`
	Detail  string               `json:"detail,omitempty"`
}

type tenantResolver interface {
	Resolve(ctx context.Context, shopDomain string) (*models.Store, error)
}

type credentialRevoker interface {
	ClearCredential(ctx context.Context, tx *gorm.DB, storeID uuid.UUID) (bool, error)
	MarkUninstalled(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, at time.Time) error
}

type ServiceParams struct {
	TransactionRunner db.TxRunner
	Tenants           tenantResolver
	Credentials       credentialRevoker
	Orders            orders.Repository
	Products          products.Repository
	Outbox            outbox.Emitter
	Guard             *DeliveryGuard
	Logger            *logger.Logger
}

type handlerFunc func(ctx context.Context, store *models.Store, event Event) (Result, error)

// Service normalizes Shopify webhooks into tenant rows.
type Service struct {
	tx          db.TxRunner
	tenants     tenantResolver
	credentials credentialRevoker
	orders      orders.Repository
	products    products.Repository
	outbox      outbox.Emitter
	guard       *DeliveryGuard
	logg        *logger.Logger
	handlers    map[enums.WebhookTopic]handlerFunc
	now         func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Tenants == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tenant resolver required")
	}
	if params.Credentials == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "credential repository required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "products repository required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter required")
	}
	s := &Service{
		tx:          params.TransactionRunner,
		tenants:     params.Tenants,
		credentials: params.Credentials,
		orders:      params.Orders,
		products:    params.Products,
		outbox:      params.Outbox,
		guard:       params.Guard,
		logg:        params.Logger,
		now:         time.Now,
	}
	s.handlers = map[enums.WebhookTopic]handlerFunc{
		enums.TopicOrdersCreate:   s.handleOrderCreated,
		enums.TopicOrdersUpdated:  s.handleOrderUpdated,
		enums.TopicProductsCreate: s.handleProductCreated,
		enums.TopicProductsUpdate: s.handleProductUpdated,
		enums.TopicAppUninstalled: s.handleAppUninstalled,
	}
	return s, nil
}

// CanHandle reports whether the topic maps to a handler.
func (s *Service) CanHandle(topic string) bool {
	_, ok := s.handlers[enums.NormalizeWebhookTopic(topic)]
	return ok
}

// HandleEvent dedupes the delivery, resolves the tenant and runs the topic
// handler. Only internal failures release the dedupe key.
func (s *Service) HandleEvent(ctx context.Context, event Event) (Result, error) {
	topic := enums.NormalizeWebhookTopic(event.Topic)
	if topic == "" {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "webhook topic is required")
	}
	if event.ShopDomain == "" {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "shop domain is required")
	}
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = s.now().UTC()
	}
	if s.logg != nil {
		ctx = s.logg.WithWebhook(ctx, topic.String(), event.ShopDomain, event.WebhookID)
	}

	handler, ok := s.handlers[topic]
	if !ok {
		s.info(ctx, "unhandled webhook topic acknowledged")
		return Result{Outcome: enums.OutcomeUnhandled}, nil
	}

	if s.guard != nil && event.WebhookID != "" {
		seen, err := s.guard.CheckAndMark(ctx, event.ShopDomain, event.WebhookID)
		if err != nil {
			// redis outages fall through to datastore uniqueness
			s.warn(ctx, "webhook dedupe unavailable: "+err.Error())
		} else if seen {
			s.info(ctx, "duplicate webhook delivery ignored")
			return Result{Outcome: enums.OutcomeDuplicate}, nil
		}
	}

	result, err := s.dispatch(ctx, handler, event)
	if err != nil && !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		s.release(ctx, event)
	}
	return result, err
}

func (s *Service) dispatch(ctx context.Context, handler handlerFunc, event Event) (Result, error) {
	store, err := s.tenants.Resolve(ctx, event.ShopDomain)
	if err != nil {
		return Result{}, err
	}
	if store == nil {
		s.warn(ctx, "webhook for unknown tenant acknowledged")
		return Result{Outcome: enums.OutcomeTenantMissing}, nil
	}
	if s.logg != nil {
		ctx = s.logg.WithStoreID(ctx, store.ID.String())
	}
	result, err := handler(ctx, store, event)
	if err != nil {
		return Result{}, err
	}
	if result.StoreID == nil {
		id := store.ID
		result.StoreID = &id
	}
	return result, nil
}

// release runs detached from the request: Shopify hangs up after ~5s, and a
// key left behind would answer the retry as a duplicate for the whole TTL.
func (s *Service) release(ctx context.Context, event Event) {
	if s.guard == nil || event.WebhookID == "" {
		return
	}
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := s.guard.Release(releaseCtx, event.ShopDomain, event.WebhookID); err != nil && s.logg != nil {
		s.logg.Error(releaseCtx, "release webhook dedupe key", err)
	}
}

func (s *Service) handleOrderCreated(ctx context.Context, store *models.Store, event Event) (Result, error) {
	var payload orderPayload
	if err := decodePayload(event.Payload, &payload); err != nil {
		return Result{}, err
	}
	placed := payload.placedAt(event.ReceivedAt)
	order := &models.Order{
		StoreID:           store.ID,
		UserID:            store.UserID,
		OrderNumber:       payload.orderNumber(),
		ShopifyID:         payload.ID.String(),
		CustomerEmail:     payload.customerEmail(),
		CustomerFirstName: payload.customerFirstName(),
		CustomerLastName:  payload.customerLastName(),
		OrderDate:         placed.Format("2006-01-02"),
		OrderTime:         placed.Format("15:04"),
		InternalStatus:    enums.OrderStatusPending,
		TotalPrice:        payload.totalPrice(),
		Currency:          nonEmpty(payload.Currency),
	}

	inserted := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		ok, err := repo.InsertIfAbsent(ctx, order)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		inserted = true
		if _, err := repo.CreateShipment(ctx, order.ID); err != nil {
			return err
		}
		data := payloads.ShopifyOrderCreatedEvent{
			OrderID:        order.ID,
			StoreID:        store.ID,
			ShopifyOrderID: order.ShopifyID,
			OrderNumber:    order.OrderNumber,
			TotalPrice:     order.TotalPrice,
			OrderDate:      order.OrderDate,
		}
		if order.CustomerEmail != nil {
			data.CustomerEmail = *order.CustomerEmail
		}
		if order.Currency != nil {
			data.Currency = *order.Currency
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventShopifyOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Source:        sourceOf(store, event),
			Data:          data,
		})
	})
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist order")
	}
	if !inserted {
		s.info(ctx, "order already captured")
		return Result{Outcome: enums.OutcomeDuplicate, Detail: "order already captured"}, nil
	}
	s.info(ctx, "order captured")
	return Result{Outcome: enums.OutcomeProcessed}, nil
}

func (s *Service) handleOrderUpdated(ctx context.Context, _ *models.Store, _ Event) (Result, error) {
	s.info(ctx, "order update acknowledged without changes")
	return Result{Outcome: enums.OutcomeSkipped, Detail: "order updates are not applied"}, nil
}

func (s *Service) handleProductCreated(ctx context.Context, store *models.Store, event Event) (Result, error) {
	if !store.ResearchModeEnabled {
		s.info(ctx, "research mode disabled; product skipped")
		return Result{Outcome: enums.OutcomeSkipped, Detail: "research mode disabled"}, nil
	}
	var payload productPayload
	if err := decodePayload(event.Payload, &payload); err != nil {
		return Result{}, err
	}
	now := event.ReceivedAt.UTC()
	product := &models.ProductResearch{
		StoreID:      store.ID,
		UserID:       store.UserID,
		ProductName:  payload.Title,
		ShopifyID:    payload.ID.String(),
		Handle:       payload.Handle,
		Status:       enums.ProductStatusEditing,
		FindingDate:  time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		MainImageURL: payload.imageURL(),
	}

	inserted := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.products.WithTx(tx).InsertIfAbsent(ctx, product)
		if err != nil || !ok {
			return err
		}
		inserted = true
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventShopifyProductCaptured,
			AggregateType: enums.AggregateProduct,
			AggregateID:   product.ID,
			Source:        sourceOf(store, event),
			Data: payloads.ShopifyProductCapturedEvent{
				ProductID:        product.ID,
				StoreID:          store.ID,
				ShopifyProductID: product.ShopifyID,
				ProductName:      product.ProductName,
				Handle:           product.Handle,
			},
		})
	})
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist product")
	}
	if !inserted {
		return Result{Outcome: enums.OutcomeDuplicate, Detail: "product already captured"}, nil
	}
	s.info(ctx, "product captured")
	return Result{Outcome: enums.OutcomeProcessed}, nil
}

func (s *Service) handleProductUpdated(ctx context.Context, store *models.Store, event Event) (Result, error) {
	var payload productPayload
	if err := decodePayload(event.Payload, &payload); err != nil {
		return Result{}, err
	}
	shopifyID := payload.ID.String()
	details := products.Details{
		Name:     payload.Title,
		Handle:   payload.Handle,
		ImageURL: payload.imageURL(),
	}

	var updated int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := s.products.WithTx(tx).UpdateDetails(ctx, store.ID, shopifyID, details)
		if err != nil || n == 0 {
			return err
		}
		updated = n
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventShopifyProductUpdated,
			AggregateType: enums.AggregateStore,
			AggregateID:   store.ID,
			Source:        sourceOf(store, event),
			Data: payloads.ShopifyProductUpdatedEvent{
				StoreID:          store.ID,
				ShopifyProductID: shopifyID,
				ProductName:      details.Name,
				Handle:           details.Handle,
			},
		})
	})
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update product")
	}
	if updated == 0 {
		s.info(ctx, "product update for uncaptured product skipped")
		return Result{Outcome: enums.OutcomeSkipped, Detail: "product not captured"}, nil
	}
	return Result{Outcome: enums.OutcomeProcessed}, nil
}

func (s *Service) handleAppUninstalled(ctx context.Context, store *models.Store, event Event) (Result, error) {
	at := event.ReceivedAt.UTC()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cleared, err := s.credentials.ClearCredential(ctx, tx, store.ID)
		if err != nil {
			return err
		}
		if err := s.credentials.MarkUninstalled(ctx, tx, store.ID, at); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventShopifyAppUninstalled,
			AggregateType: enums.AggregateStore,
			AggregateID:   store.ID,
			Source:        sourceOf(store, event),
			Data: payloads.ShopifyAppUninstalledEvent{
				StoreID:            store.ID,
				ShopDomain:         store.ShopDomain,
				UninstalledAt:      at,
				CredentialsCleared: cleared,
			},
		})
	})
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke credentials")
	}
	s.info(ctx, "app uninstalled; credentials revoked")
	return Result{Outcome: enums.OutcomeProcessed}, nil
}

func sourceOf(store *models.Store, event Event) *outbox.SourceRef {
	return &outbox.SourceRef{
		ShopDomain: event.ShopDomain,
		StoreID:    store.ID.String(),
		Topic:      enums.NormalizeWebhookTopic(event.Topic).String(),
		WebhookID:  event.WebhookID,
	}
}

func (s *Service) info(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Info(ctx, msg)
	}
}

func (s *Service) warn(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Warn(ctx, msg)
	}
}


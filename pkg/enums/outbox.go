package enums

import "fmt"

// OutboxAggregateType names the row an outbox event describes.
type OutboxAggregateType string

const (
	AggregateStore   OutboxAggregateType = "store"
	AggregateOrder   OutboxAggregateType = "order"
	AggregateProduct OutboxAggregateType = "product"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateStore,
	AggregateOrder,
	AggregateProduct,
}

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType is the event name published to the events topic.
type OutboxEventType string

const (
	EventShopifyOrderCreated    OutboxEventType = "shopify_order_created"
	EventShopifyProductCaptured OutboxEventType = "shopify_product_captured"
	EventShopifyProductUpdated  OutboxEventType = "shopify_product_updated"
	EventShopifyAppUninstalled  OutboxEventType = "shopify_app_uninstalled"
	EventShopifyAppInstalled    OutboxEventType = "shopify_app_installed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventShopifyOrderCreated,
	EventShopifyProductCaptured,
	EventShopifyProductUpdated,
	EventShopifyAppUninstalled,
	EventShopifyAppInstalled,
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

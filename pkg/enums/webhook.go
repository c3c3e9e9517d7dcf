package enums

import "strings"

// WebhookTopic is a Shopify webhook topic in header form (orders/create).
type WebhookTopic string

const (
	TopicOrdersCreate   WebhookTopic = "orders/create"
	TopicOrdersUpdated  WebhookTopic = "orders/updated"
	TopicProductsCreate WebhookTopic = "products/create"
	TopicProductsUpdate WebhookTopic = "products/update"
	TopicAppUninstalled WebhookTopic = "app/uninstalled"
)

// NormalizeWebhookTopic accepts both the header form and the GraphQL enum
// form (ORDERS_CREATE) and returns the header form.
func NormalizeWebhookTopic(raw string) WebhookTopic {
	topic := strings.ToLower(strings.TrimSpace(raw))
	if topic == "" {
		return ""
	}
	if !strings.Contains(topic, "/") {
		if resource, action, ok := strings.Cut(topic, "_"); ok {
			topic = resource + "/" + action
		}
	}
	return WebhookTopic(topic)
}

var handledWebhookTopics = []WebhookTopic{
	TopicOrdersCreate,
	TopicOrdersUpdated,
	TopicProductsCreate,
	TopicProductsUpdate,
	TopicAppUninstalled,
}

// IsHandled reports whether the bridge has a handler for the topic.
func (t WebhookTopic) IsHandled() bool {
	for _, candidate := range handledWebhookTopics {
		if t == candidate {
			return true
		}
	}
	return false
}

func (t WebhookTopic) String() string {
	return string(t)
}

// WebhookOutcome is reported back to Shopify and recorded in metrics.
type WebhookOutcome string

const (
	OutcomeProcessed     WebhookOutcome = "processed"
	OutcomeDuplicate     WebhookOutcome = "duplicate"
	OutcomeSkipped       WebhookOutcome = "skipped"
	OutcomeUnhandled     WebhookOutcome = "unhandled"
	OutcomeTenantMissing WebhookOutcome = "tenant_missing"
	OutcomeRejected      WebhookOutcome = "rejected"
	OutcomeFailed        WebhookOutcome = "failed"
	OutcomeRelayed       WebhookOutcome = "relayed"
)

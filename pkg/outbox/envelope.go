package outbox

import (
	"encoding/json"
	"time"
)

// SourceRef identifies the shop and delivery that produced the event.
type SourceRef struct {
	ShopDomain string `json:"shopDomain"`
	StoreID    string `json:"storeId,omitempty"`
	Topic      string `json:"topic,omitempty"`
	WebhookID  string `json:"webhookId,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Source     *SourceRef      `json:"source,omitempty"`
	Data       json.RawMessage `json:"data"`
}

package main

import (
	"encoding/json"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/dropsaas/shopify-bridge/pkg/db/models"
	"github.com/dropsaas/shopify-bridge/pkg/enums"
	"github.com/dropsaas/shopify-bridge/pkg/outbox"
	"github.com/dropsaas/shopify-bridge/pkg/outbox/registry"
)

// delivery is one outbox row on its way to Pub/Sub, together with the
// Shopify source recorded in its envelope.
type delivery struct {
	event    models.OutboxEvent
	envelope outbox.PayloadEnvelope
	topic    string
}

func newDelivery(event models.OutboxEvent, resolved *registry.ResolvedEvent) delivery {
	return delivery{
		event:    event,
		envelope: resolved.Envelope,
		topic:    resolved.Descriptor.Topic,
	}
}

// storedDelivery is used when the registry rejects a row. The envelope is
// decoded best effort so the dead letter still names the shop.
func storedDelivery(event models.OutboxEvent) delivery {
	d := delivery{event: event}
	_ = json.Unmarshal(event.Payload, &d.envelope)
	return d
}

func (d delivery) source() outbox.SourceRef {
	if d.envelope.Source == nil {
		return outbox.SourceRef{}
	}
	return *d.envelope.Source
}

// message carries the stored envelope as-is. Attributes let subscribers
// filter by shop and webhook topic without decoding the body.
func (d delivery) message() *gcppubsub.Message {
	attrs := map[string]string{
		"event_id":       d.envelope.EventID,
		"event_type":     string(d.event.EventType),
		"aggregate_type": string(d.event.AggregateType),
		"aggregate_id":   d.event.AggregateID.String(),
		"created_at":     d.event.CreatedAt.Format(time.RFC3339Nano),
	}
	src := d.source()
	setIfPresent(attrs, "shop_domain", src.ShopDomain)
	setIfPresent(attrs, "store_id", src.StoreID)
	setIfPresent(attrs, "shopify_topic", src.Topic)
	setIfPresent(attrs, "webhook_id", src.WebhookID)

	return &gcppubsub.Message{Data: d.event.Payload, Attributes: attrs}
}

func setIfPresent(attrs map[string]string, key, value string) {
	if value != "" {
		attrs[key] = value
	}
}

func (d delivery) logFields(batchSize int) map[string]any {
	fields := map[string]any{
		"outbox_id":      d.event.ID.String(),
		"event_type":     d.event.EventType,
		"aggregate_type": d.event.AggregateType,
		"aggregate_id":   d.event.AggregateID.String(),
		"batch_size":     batchSize,
		"attempt_count":  d.event.AttemptCount,
	}
	if d.envelope.EventID != "" {
		fields["event_id"] = d.envelope.EventID
		fields["occurred_at"] = d.envelope.OccurredAt.Format(time.RFC3339Nano)
	}
	src := d.source()
	if src.ShopDomain != "" {
		fields["shop_domain"] = src.ShopDomain
	}
	if src.Topic != "" {
		fields["shopify_topic"] = src.Topic
	}
	if d.topic != "" {
		fields["topic"] = d.topic
	}
	if d.event.LastError != nil {
		fields["last_error"] = *d.event.LastError
	}
	return fields
}

func (d delivery) dlqEntry(reason enums.OutboxDLQErrorReason, cause error) models.OutboxDLQ {
	msg := cause.Error()
	return models.OutboxDLQ{
		EventID:       d.event.ID,
		EventType:     d.event.EventType,
		AggregateType: d.event.AggregateType,
		AggregateID:   d.event.AggregateID,
		Payload:       d.event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  d.event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
}

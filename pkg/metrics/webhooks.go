package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dropsaas/shopify-bridge/pkg/enums"
)

// Topic labels used when the header value is not a handled topic.
const (
	TopicUnauthenticated = "unauthenticated"
	TopicOther           = "other"
)

// WebhookMetrics counts inbound deliveries by topic and outcome.
type WebhookMetrics struct {
	received *prometheus.CounterVec
	duration *prometheus.HistogramVec
	relayed  *prometheus.CounterVec
}

func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhooks_received_total",
		Help:      "Webhook deliveries by topic and outcome.",
	}, []string{"topic", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "webhook_handle_duration_seconds",
		Help:      "Time spent handling a webhook delivery.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"topic"})
	relayed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_relay_total",
		Help:      "Relay forwards by result.",
	}, []string{"result"})
	reg.MustRegister(received, duration, relayed)
	return &WebhookMetrics{received: received, duration: duration, relayed: relayed}
}

// Observe records one handled delivery. Topics outside the handled set are
// folded into "other" so the label set stays bounded.
func (m *WebhookMetrics) Observe(topic, outcome string, elapsed time.Duration) {
	if m == nil || m.received == nil {
		return
	}
	topic = topicLabel(topic)
	m.received.WithLabelValues(topic, normalizeLabel(outcome)).Inc()
	m.duration.WithLabelValues(topic).Observe(elapsed.Seconds())
}

// IncRelay records a relay forward; ok is false when the target failed.
func (m *WebhookMetrics) IncRelay(ok bool) {
	if m == nil || m.relayed == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.relayed.WithLabelValues(result).Inc()
}

func topicLabel(raw string) string {
	switch raw {
	case "":
		return "unknown"
	case TopicUnauthenticated, TopicOther:
		return raw
	}
	if topic := enums.NormalizeWebhookTopic(raw); topic.IsHandled() {
		return topic.String()
	}
	return TopicOther
}

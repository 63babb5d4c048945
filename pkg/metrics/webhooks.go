package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebhookMetrics records outcomes for inbound webhook deliveries.
type WebhookMetrics struct {
	received  *prometheus.CounterVec
	duplicate *prometheus.CounterVec
	rejected  *prometheus.CounterVec
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_received",
		Help: "Webhook deliveries accepted for processing.",
	}, []string{"topic"})
	duplicate := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_duplicate",
		Help: "Webhook deliveries skipped as duplicates.",
	}, []string{"topic"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_rejected",
		Help: "Webhook deliveries rejected for an invalid signature.",
	}, []string{"topic"})
	reg.MustRegister(received, duplicate, rejected)
	return &WebhookMetrics{
		received:  received,
		duplicate: duplicate,
		rejected:  rejected,
	}
}

// IncReceived increments the accepted counter for the topic.
func (w *WebhookMetrics) IncReceived(topic string) {
	if w == nil || w.received == nil {
		return
	}
	w.received.WithLabelValues(normalizeLabel(topic)).Inc()
}

// IncDuplicate increments the duplicate counter for the topic.
func (w *WebhookMetrics) IncDuplicate(topic string) {
	if w == nil || w.duplicate == nil {
		return
	}
	w.duplicate.WithLabelValues(normalizeLabel(topic)).Inc()
}

// IncRejected increments the rejected counter for the topic.
func (w *WebhookMetrics) IncRejected(topic string) {
	if w == nil || w.rejected == nil {
		return
	}
	w.rejected.WithLabelValues(normalizeLabel(topic)).Inc()
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DeliveryMetrics records notification delivery outcomes per channel.
type DeliveryMetrics struct {
	duration *prometheus.HistogramVec
	sent     *prometheus.CounterVec
	failed   *prometheus.CounterVec
	skipped  *prometheus.CounterVec
}

// NewDeliveryMetrics registers the delivery metrics on the provided registerer.
func NewDeliveryMetrics(reg prometheus.Registerer) *DeliveryMetrics {
	if reg == nil {
		return &DeliveryMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notification_delivery_seconds",
		Help:    "Duration of notification delivery attempts in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"channel"})
	sent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_sent",
		Help: "Notifications delivered successfully.",
	}, []string{"channel", "event"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_failed",
		Help: "Notifications that exhausted retries or hit a permanent failure.",
	}, []string{"channel", "event"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_skipped",
		Help: "Notifications skipped by the duplicate-send guard.",
	}, []string{"channel", "event"})
	reg.MustRegister(duration, sent, failed, skipped)
	return &DeliveryMetrics{
		duration: duration,
		sent:     sent,
		failed:   failed,
		skipped:  skipped,
	}
}

// ObserveDuration records a delivery attempt duration for the channel.
func (d *DeliveryMetrics) ObserveDuration(channel string, duration time.Duration) {
	if d == nil || d.duration == nil {
		return
	}
	d.duration.WithLabelValues(normalizeLabel(channel)).Observe(duration.Seconds())
}

// IncSent increments the sent counter.
func (d *DeliveryMetrics) IncSent(channel, event string) {
	if d == nil || d.sent == nil {
		return
	}
	d.sent.WithLabelValues(normalizeLabel(channel), normalizeLabel(event)).Inc()
}

// IncFailed increments the failed counter.
func (d *DeliveryMetrics) IncFailed(channel, event string) {
	if d == nil || d.failed == nil {
		return
	}
	d.failed.WithLabelValues(normalizeLabel(channel), normalizeLabel(event)).Inc()
}

// IncSkipped increments the skipped counter.
func (d *DeliveryMetrics) IncSkipped(channel, event string) {
	if d == nil || d.skipped == nil {
		return
	}
	d.skipped.WithLabelValues(normalizeLabel(channel), normalizeLabel(event)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

// Package metrics exposes Prometheus counters and histograms for the three
// periodic subsystems: collection, detection, and notification.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns one Prometheus registry and the metric families every
// subsystem reports into. It is safe for concurrent use: the underlying
// prometheus vectors are already mutex-protected.
type Collector struct {
	registry *prometheus.Registry

	venueRequestDuration *prometheus.HistogramVec
	venueRequestErrors   *prometheus.CounterVec

	collectionCycles     *prometheus.CounterVec
	collectionQuoteCount *prometheus.CounterVec

	detectionCycles       prometheus.Counter
	opportunitiesFound    *prometheus.CounterVec
	detectionCycleSeconds prometheus.Histogram

	notificationsSent    prometheus.Counter
	notificationsDropped *prometheus.CounterVec
}

// NewCollector registers every metric family against a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		venueRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "arbmon",
			Subsystem: "exchange",
			Name:      "request_duration_seconds",
			Help:      "Latency of per-venue HTTP calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"venue", "op"}),
		venueRequestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbmon",
			Subsystem: "exchange",
			Name:      "request_errors_total",
			Help:      "Per-venue HTTP call failures by error kind.",
		}, []string{"venue", "kind"}),
		collectionCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbmon",
			Subsystem: "collection",
			Name:      "cycles_total",
			Help:      "Collection job runs per venue, labeled by outcome.",
		}, []string{"venue", "outcome"}),
		collectionQuoteCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbmon",
			Subsystem: "collection",
			Name:      "quotes_collected_total",
			Help:      "Quotes successfully collected per venue.",
		}, []string{"venue"}),
		detectionCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arbmon",
			Subsystem: "detection",
			Name:      "cycles_total",
			Help:      "Detection engine cycles run.",
		}),
		opportunitiesFound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbmon",
			Subsystem: "detection",
			Name:      "opportunities_found_total",
			Help:      "Arbitrage candidates found per strategy kind.",
		}, []string{"kind"}),
		detectionCycleSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "arbmon",
			Subsystem: "detection",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one detection engine cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
		notificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arbmon",
			Subsystem: "notify",
			Name:      "sent_total",
			Help:      "Webhook sends that succeeded.",
		}),
		notificationsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbmon",
			Subsystem: "notify",
			Name:      "dropped_total",
			Help:      "Gate decisions that dropped a candidate, by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		c.venueRequestDuration,
		c.venueRequestErrors,
		c.collectionCycles,
		c.collectionQuoteCount,
		c.detectionCycles,
		c.opportunitiesFound,
		c.detectionCycleSeconds,
		c.notificationsSent,
		c.notificationsDropped,
	)

	return c
}

// Handler serves the registry in the Prometheus text exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveVenueRequest records one adapter HTTP call's latency and, on
// failure, the taxonomy kind of the error.
func (c *Collector) ObserveVenueRequest(venue, op string, d time.Duration, errKind string) {
	c.venueRequestDuration.WithLabelValues(venue, op).Observe(d.Seconds())
	if errKind != "" {
		c.venueRequestErrors.WithLabelValues(venue, errKind).Inc()
	}
}

// ObserveCollectionCycle records one venue's collection job outcome.
func (c *Collector) ObserveCollectionCycle(venue string, quotesCollected int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.collectionCycles.WithLabelValues(venue, outcome).Inc()
	c.collectionQuoteCount.WithLabelValues(venue).Add(float64(quotesCollected))
}

// ObserveDetectionCycle records one full RunCycle and the candidates found
// per strategy kind.
func (c *Collector) ObserveDetectionCycle(d time.Duration, byKind map[string]int) {
	c.detectionCycles.Inc()
	c.detectionCycleSeconds.Observe(d.Seconds())
	for kind, n := range byKind {
		c.opportunitiesFound.WithLabelValues(kind).Add(float64(n))
	}
}

// ObserveNotificationSent records a successful webhook send.
func (c *Collector) ObserveNotificationSent() {
	c.notificationsSent.Inc()
}

// ObserveNotificationDropped records a gate decision that suppressed a
// candidate, labeled by the step that dropped it (e.g. "cooldown", "cap",
// "threshold", "quiet_hours", "disabled").
func (c *Collector) ObserveNotificationDropped(reason string) {
	c.notificationsDropped.WithLabelValues(reason).Inc()
}

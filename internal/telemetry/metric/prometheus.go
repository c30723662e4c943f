// Package metric provides Prometheus metrics for zonemesh.
//
// It exposes metrics in Prometheus format for monitoring message traffic,
// call latencies, membership views and synchronization progress.
package metric

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "zonemesh"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	// Messaging metrics
	MessagesSent    *prometheus.CounterVec
	MessageFailures *prometheus.CounterVec
	CallDuration    *prometheus.HistogramVec
	PendingCalls    prometheus.Gauge

	// Membership metrics
	ViewID      prometheus.Gauge
	ViewMembers prometheus.Gauge

	// Synchronization metrics
	SyncState    prometheus.Gauge
	SyncAttempts *prometheus.CounterVec
}

var (
	global     *Registry
	globalOnce sync.Once
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		global = NewRegistry()
	})
	return global
}

// Discard returns a registry that is never exposed. Components fall back to
// it when no registry is configured.
func Discard() *Registry {
	return newRegistry(prometheus.NewRegistry())
}

// NewRegistry creates a new metrics registry with Go runtime and process
// collectors registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return newRegistry(reg)
}

func newRegistry(reg *prometheus.Registry) *Registry {
	f := promauto.With(reg)
	return &Registry{
		registry: reg,
		MessagesSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Messages handed to the transport, by messaging pattern.",
		}, []string{"pattern"}),
		MessageFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "message_failures_total",
			Help:      "Failed sends and calls, by messaging pattern and failure kind.",
		}, []string{"pattern", "kind"}),
		CallDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Latency of synchronous calls, by messaging pattern.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 16),
		}, []string{"pattern"}),
		PendingCalls: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_calls",
			Help:      "Synchronous calls awaiting a reply.",
		}),
		ViewID: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "view",
			Name:      "id",
			Help:      "Identifier of the latest membership view.",
		}),
		ViewMembers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "view",
			Name:      "members",
			Help:      "Number of members in the latest membership view.",
		}),
		SyncState: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "updated",
			Help:      "1 once the runtime received its configuration from the controller.",
		}),
		SyncAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "attempts_total",
			Help:      "Synchronization attempts, by result.",
		}, []string{"result"}),
	}
}

// Register adds a custom collector to the registry.
func (r *Registry) Register(c prometheus.Collector) error {
	return r.registry.Register(c)
}

// Gatherer exposes the underlying registry for inspection.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns an HTTP handler serving this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// RecordSent counts one message handed to the transport.
func (r *Registry) RecordSent(pattern string) {
	r.MessagesSent.WithLabelValues(pattern).Inc()
}

// RecordFailure counts one failed send or call.
func (r *Registry) RecordFailure(pattern, kind string) {
	r.MessageFailures.WithLabelValues(pattern, kind).Inc()
}

// ObserveCall records the latency of a synchronous call in seconds.
func (r *Registry) ObserveCall(pattern string, seconds float64) {
	r.CallDuration.WithLabelValues(pattern).Observe(seconds)
}

// ObserveView records the latest view.
func (r *Registry) ObserveView(id uint64, members int) {
	r.ViewID.Set(float64(id))
	r.ViewMembers.Set(float64(members))
}

// SetUpdated records the synchronization state.
func (r *Registry) SetUpdated(updated bool) {
	if updated {
		r.SyncState.Set(1)
		return
	}
	r.SyncState.Set(0)
}

// RecordSyncAttempt counts one synchronization attempt.
func (r *Registry) RecordSyncAttempt(result string) {
	r.SyncAttempts.WithLabelValues(result).Inc()
}

// Handler returns an HTTP handler for the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

// Package metric provides Prometheus metrics for zonemesh.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: Registry, typed helpers and the HTTP handler
//   - collector.go: View collector reporting per-zone membership
//
// Metrics include:
//
//   - Message send counters and failure counters by kind
//   - Request/response latency histograms
//   - View id and member gauges
//   - Synchronization state and attempt counters
//
// Metrics are exposed at /metrics in Prometheus format.
package metric

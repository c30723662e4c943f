// Package httpserver provides the operations HTTP endpoint of a zonemesh node.
//
// It serves on the metrics address using stdlib net/http:
//
//   - Probes: /health, /ready
//   - Prometheus metrics: /metrics
//   - Membership: /v1/view
//   - Controller only: /v1/deployments, /v1/deployments/{zone},
//     /v1/zones/{zone}/metadata
//
// Every route passes through the RequestID, Recover and AccessLog
// middlewares.
package httpserver

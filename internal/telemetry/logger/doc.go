// Package logger provides structured logging for zonemesh.
//
// This package wraps log/slog:
//
//   - logger.go: handler configuration, dynamic level and the process default
//   - context.go: context propagation of the runtime name and call ids
//   - redact.go: masking of credentials in keys and URL values
//
// Components receive a *slog.Logger obtained with Slog so they log through
// the same handler, level and redaction rules as the rest of the process.
package logger

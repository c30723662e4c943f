// Package handler provides the HTTP handlers of the zonemesh operations
// endpoint: probes, the membership view and the controller's deployment
// and zone metadata API.
package handler

// Package node assembles a zonemesh runtime from its configuration.
//
// A Node owns the transport, dispatcher, router and event bus of one
// runtime, plus either the synchronization coordinator (participants) or
// the controller service (controllers), and the operations HTTP endpoint.
// Start publishes JoinDomain; Stop publishes RuntimeStop and releases
// everything in reverse order.
package node

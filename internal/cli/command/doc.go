// Package command defines the zonemesh command line.
//
// The participant and controller commands run a node in the foreground.
// The status, health and deployments commands are thin clients of a node's
// operations endpoint.
package command

// Package connection talks to the operations endpoint of a running node.
//
// Every JSON response of the endpoint is wrapped in an envelope carrying a
// code, a message and the request id. The client unwraps the envelope and
// turns error codes into Go errors.
package connection

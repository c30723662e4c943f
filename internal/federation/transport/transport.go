// Package transport defines the group channel the federation layer runs on.
//
// A Transport owns membership and point-to-point delivery of opaque frames.
// It reports every new membership view and every inbound frame to the
// Receiver given at Connect time, on goroutines it manages. Implementations
// live in the gossip (hashicorp/memberlist) and inproc (single process)
// sub-packages.
package transport

import (
	"context"

	"github.com/yndnr/zonemesh-go/internal/federation/view"
)

// Receiver consumes transport notifications. Both methods may be called
// concurrently with each other and with Transport methods; neither may block
// for long.
type Receiver interface {
	// ViewAccepted is called with each new view, in increasing id order.
	ViewAccepted(v *view.View)
	// Receive is called with each inbound frame. The slice is owned by
	// the receiver.
	Receive(data []byte)
}

// Transport is a connected group channel.
type Transport interface {
	// Connect joins the group and starts delivering to r.
	Connect(ctx context.Context, r Receiver) error
	// Disconnect leaves the group and releases all resources.
	Disconnect() error
	// LocalName returns the name this runtime is known by in views.
	LocalName() string
	// Send delivers data to the named member. It fails with
	// domain.ErrDestinationUnavailable if the member is unknown and with
	// domain.ErrMessaging on other transport failures.
	Send(to string, data []byte) error
}

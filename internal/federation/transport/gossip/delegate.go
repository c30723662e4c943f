package gossip

import (
	"fmt"
	"net"
	"slices"

	"github.com/hashicorp/memberlist"
)

// eventDelegate implements memberlist.EventDelegate.
type eventDelegate struct {
	t *Transport
}

// NotifyJoin is called when a node joins.
func (e *eventDelegate) NotifyJoin(node *memberlist.Node) {
	e.t.logger.Info("node joined",
		"node_id", node.Name,
		"gossip_addr", net.JoinHostPort(node.Addr.String(), fmt.Sprintf("%d", node.Port)))
	e.t.nodeJoined(node)
}

// NotifyLeave is called when a node leaves or is declared dead.
func (e *eventDelegate) NotifyLeave(node *memberlist.Node) {
	e.t.logger.Info("node left",
		"node_id", node.Name,
		"addr", node.Addr.String())
	e.t.nodeLeft(node)
}

// NotifyUpdate is called when a node's metadata changes.
func (e *eventDelegate) NotifyUpdate(node *memberlist.Node) {
	e.t.logger.Debug("node updated",
		"node_id", node.Name,
		"addr", node.Addr.String())
	e.t.nodeUpdated(node)
}

// delegate carries node metadata and user messages.
type delegate struct {
	t *Transport
}

// NodeMeta returns the local join time (well under the 512 byte limit).
func (d *delegate) NodeMeta(limit int) []byte {
	b := d.t.localMeta().encode()
	if len(b) > limit {
		return nil
	}
	return b
}

// NotifyMsg receives a frame. memberlist reuses buf after return.
func (d *delegate) NotifyMsg(buf []byte) {
	d.t.deliver(slices.Clone(buf))
}

// GetBroadcasts is not used; frames are sent point to point.
func (d *delegate) GetBroadcasts(overhead, limit int) [][]byte {
	return nil
}

// LocalState is not used.
func (d *delegate) LocalState(join bool) []byte {
	return nil
}

// MergeRemoteState is not used.
func (d *delegate) MergeRemoteState(buf []byte, join bool) {
}

// Package inproc provides a Transport whose members all live in the same
// process. Members join a shared Hub; seniority is join order.
package inproc

import (
	"context"
	"slices"
	"sync"

	"github.com/yndnr/zonemesh-go/internal/core/domain"
	"github.com/yndnr/zonemesh-go/internal/federation/transport"
	"github.com/yndnr/zonemesh-go/internal/federation/view"
)

// Hub is the shared medium of in-process transports.
type Hub struct {
	lock      sync.Mutex
	revision  uint64
	members   []*Transport
	muted     map[string]bool
	holdViews bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		muted: make(map[string]bool),
	}
}

// NewTransport creates a transport named name attached to the hub.
func (h *Hub) NewTransport(name string) *Transport {
	return &Transport{hub: h, name: name}
}

// Mute silently drops every frame addressed to name while muted is true.
// The member stays in the view, which models a runtime that stopped
// answering without being suspected yet.
func (h *Hub) Mute(name string, muted bool) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.muted[name] = muted
}

// HoldViews stops view delivery while held is true. Members still join and
// leave; the accumulated view is delivered when the hold is released.
func (h *Hub) HoldViews(held bool) {
	h.lock.Lock()
	h.holdViews = held
	if !held {
		h.signalUpdatedLocked()
	}
	h.lock.Unlock()
}

// Names returns the current member names in seniority order.
func (h *Hub) Names() []string {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.namesLocked()
}

func (h *Hub) namesLocked() []string {
	names := make([]string, len(h.members))
	for i, m := range h.members {
		names[i] = m.name
	}
	return names
}

func (h *Hub) signalUpdatedLocked() {
	h.revision++
	if h.holdViews {
		return
	}
	v := view.New(h.revision, h.namesLocked()...)
	for _, m := range h.members {
		m.enqueue(func(r transport.Receiver) { r.ViewAccepted(v) })
	}
}

func (h *Hub) join(t *Transport) error {
	h.lock.Lock()
	defer h.lock.Unlock()
	for _, m := range h.members {
		if m.name == t.name {
			return domain.ErrInvalidArgument.WithDetailsf("member %s already joined", t.name)
		}
	}
	h.members = append(h.members, t)
	h.signalUpdatedLocked()
	return nil
}

func (h *Hub) leave(t *Transport) bool {
	h.lock.Lock()
	defer h.lock.Unlock()
	idx := slices.Index(h.members, t)
	if idx == -1 {
		return false
	}
	h.members = slices.Delete(h.members, idx, idx+1)
	h.signalUpdatedLocked()
	return true
}

func (h *Hub) deliver(to string, data []byte) error {
	h.lock.Lock()
	defer h.lock.Unlock()
	for _, m := range h.members {
		if m.name != to {
			continue
		}
		if h.muted[to] {
			return nil
		}
		frame := slices.Clone(data)
		m.enqueue(func(r transport.Receiver) { r.Receive(frame) })
		return nil
	}
	return domain.ErrDestinationUnavailable.WithDetails(to)
}

// Transport is one member of a Hub.
type Transport struct {
	hub  *Hub
	name string

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []func(transport.Receiver)
	receiver transport.Receiver
	running  bool
	done     chan struct{}
}

var _ transport.Transport = (*Transport)(nil)

// Connect implements transport.Transport.
func (t *Transport) Connect(_ context.Context, r transport.Receiver) error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return domain.ErrMessaging.WithDetailsf("%s already connected", t.name)
	}
	if t.cond == nil {
		t.cond = sync.NewCond(&t.mu)
	}
	t.receiver = r
	t.running = true
	t.queue = nil
	t.done = make(chan struct{})
	t.mu.Unlock()

	go t.loop()

	if err := t.hub.join(t); err != nil {
		t.stop()
		return err
	}
	return nil
}

// Disconnect implements transport.Transport.
func (t *Transport) Disconnect() error {
	t.hub.leave(t)
	t.stop()
	return nil
}

// LocalName implements transport.Transport.
func (t *Transport) LocalName() string {
	return t.name
}

// Send implements transport.Transport.
func (t *Transport) Send(to string, data []byte) error {
	t.mu.Lock()
	running := t.running
	t.mu.Unlock()
	if !running {
		return domain.ErrMessaging.WithDetailsf("%s is not connected", t.name)
	}
	return t.hub.deliver(to, data)
}

func (t *Transport) stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	done := t.done
	t.cond.Broadcast()
	t.mu.Unlock()
	<-done
}

func (t *Transport) enqueue(fn func(transport.Receiver)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.queue = append(t.queue, fn)
	t.cond.Signal()
}

// loop delivers notifications one at a time so views arrive in order.
func (t *Transport) loop() {
	defer close(t.done)
	for {
		t.mu.Lock()
		for t.running && len(t.queue) == 0 {
			t.cond.Wait()
		}
		if !t.running {
			t.mu.Unlock()
			return
		}
		fn := t.queue[0]
		t.queue = t.queue[1:]
		r := t.receiver
		t.mu.Unlock()

		fn(r)
	}
}

// Package event provides the runtime lifecycle event bus.
//
// Listeners subscribe to one event type and receive a Subscription handle;
// closing the handle removes the listener. Publish delivers synchronously in
// subscription order on the publisher's goroutine.
package event

import (
	"context"
	"sync"
)

// Type identifies an event kind.
type Type string

// Lifecycle event types.
const (
	TypeJoinDomain  Type = "join.domain"
	TypeRuntimeStop Type = "runtime.stop"
)

// Event is a lifecycle notification.
type Event interface {
	EventType() Type
}

// JoinDomain is published once the runtime should connect to the domain.
type JoinDomain struct{}

// EventType implements Event.
func (JoinDomain) EventType() Type { return TypeJoinDomain }

// RuntimeStop is published when the runtime shuts down.
type RuntimeStop struct{}

// EventType implements Event.
func (RuntimeStop) EventType() Type { return TypeRuntimeStop }

// Listener receives events of the type it subscribed to.
type Listener func(ctx context.Context, e Event)

type entry struct {
	id       uint64
	listener Listener
}

// Service is a synchronous publish/subscribe bus.
type Service struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[Type][]entry
}

// NewService creates an empty event service.
func NewService() *Service {
	return &Service{
		listeners: make(map[Type][]entry),
	}
}

// Subscription is returned by Subscribe. Close is idempotent.
type Subscription struct {
	service *Service
	typ     Type
	id      uint64
	once    sync.Once
}

// Close removes the listener.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.service.remove(s.typ, s.id)
	})
}

// Subscribe registers l for events of type t.
func (s *Service) Subscribe(t Type, l Listener) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.listeners[t] = append(s.listeners[t], entry{id: s.nextID, listener: l})
	return &Subscription{service: s, typ: t, id: s.nextID}
}

// Publish delivers e to every listener subscribed to its type.
func (s *Service) Publish(ctx context.Context, e Event) {
	s.mu.RLock()
	entries := make([]entry, len(s.listeners[e.EventType()]))
	copy(entries, s.listeners[e.EventType()])
	s.mu.RUnlock()

	for _, en := range entries {
		en.listener(ctx, e)
	}
}

// Count returns the number of listeners for t.
func (s *Service) Count(t Type) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners[t])
}

func (s *Service) remove(t Type, id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.listeners[t]
	for i, en := range entries {
		if en.id == id {
			s.listeners[t] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

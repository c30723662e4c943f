// Package dispatch layers request/response messaging on top of a transport.
//
// The Dispatcher keeps the latest membership view as an atomically swapped
// snapshot, fans view changes out to membership listeners, correlates
// synchronous calls with their replies and hands inbound one-way messages
// and requests to the configured handlers. Frames addressed to the local
// runtime never touch the transport.
package dispatch

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/zonemesh-go/internal/core/domain"
	"github.com/yndnr/zonemesh-go/internal/federation/transport"
	"github.com/yndnr/zonemesh-go/internal/federation/view"
	"github.com/yndnr/zonemesh-go/internal/telemetry/logger"
	"github.com/yndnr/zonemesh-go/internal/telemetry/metric"
	"github.com/yndnr/zonemesh-go/pkg/cmap"
)

// DefaultCompressThreshold is the payload size from which frames are
// snappy-compressed.
const DefaultCompressThreshold = 4096

// MessageHandler consumes one-way messages.
type MessageHandler interface {
	HandleMessage(ctx context.Context, from string, payload []byte)
}

// RequestHandler answers synchronous requests.
type RequestHandler interface {
	HandleRequest(ctx context.Context, from string, payload []byte) ([]byte, error)
}

// MembershipListener observes view changes. old is nil for the first view.
type MembershipListener interface {
	ViewAccepted(old, next *view.View)
}

// MembershipListenerFunc adapts a function to MembershipListener.
type MembershipListenerFunc func(old, next *view.View)

// ViewAccepted implements MembershipListener.
func (f MembershipListenerFunc) ViewAccepted(old, next *view.View) { f(old, next) }

// Config configures a Dispatcher.
type Config struct {
	Transport transport.Transport
	Messages  MessageHandler
	Requests  RequestHandler
	// CompressThreshold in bytes; zero selects DefaultCompressThreshold and
	// a negative value disables compression.
	CompressThreshold int
	Logger            *slog.Logger
	Metrics           *metric.Registry
}

// Response is one member's reply to a multicast call.
type Response struct {
	From    string
	Payload []byte
}

type result struct {
	payload []byte
	err     error
}

type pendingCall struct {
	to string
	ch chan result
}

type listenerEntry struct {
	id uint64
	l  MembershipListener
}

// Dispatcher multiplexes messaging patterns over one transport.
type Dispatcher struct {
	transport         transport.Transport
	local             string
	messages          MessageHandler
	requests          RequestHandler
	compressThreshold int
	logger            *slog.Logger
	metrics           *metric.Registry

	current atomic.Pointer[view.View]
	running atomic.Bool

	pending *cmap.Map[string, *pendingCall]

	mu             sync.Mutex
	listeners      []listenerEntry
	nextListenerID uint64

	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy

	// spawnMu orders handler spawns against Stop: once accepting is false
	// no new handler is added to wg.
	spawnMu   sync.Mutex
	accepting bool
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New creates a dispatcher. It does not connect the transport.
func New(cfg Config) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metric.Discard()
	}
	if cfg.CompressThreshold == 0 {
		cfg.CompressThreshold = DefaultCompressThreshold
	}
	return &Dispatcher{
		transport:         cfg.Transport,
		local:             cfg.Transport.LocalName(),
		messages:          cfg.Messages,
		requests:          cfg.Requests,
		compressThreshold: cfg.CompressThreshold,
		logger:            cfg.Logger,
		metrics:           cfg.Metrics,
		pending:           cmap.New[string, *pendingCall](),
		entropy:           ulid.Monotonic(rand.Reader, 0),
	}
}

// SetHandlers replaces the inbound handlers. Call before Start.
func (d *Dispatcher) SetHandlers(messages MessageHandler, requests RequestHandler) {
	d.messages = messages
	d.requests = requests
}

// LocalName returns the local member name.
func (d *Dispatcher) LocalName() string {
	return d.local
}

// Running reports whether the dispatcher is started.
func (d *Dispatcher) Running() bool {
	return d.running.Load()
}

// View returns the latest view, or nil before the first one arrives.
func (d *Dispatcher) View() *view.View {
	return d.current.Load()
}

// AddMembershipListener registers l and returns a function that removes it.
func (d *Dispatcher) AddMembershipListener(l MembershipListener) (remove func()) {
	d.mu.Lock()
	d.nextListenerID++
	id := d.nextListenerID
	d.listeners = append(d.listeners, listenerEntry{id: id, l: l})
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			for i, e := range d.listeners {
				if e.id == id {
					d.listeners = append(d.listeners[:i:i], d.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Start connects the transport and begins dispatching.
func (d *Dispatcher) Start(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return nil
	}
	d.spawnMu.Lock()
	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.accepting = true
	d.spawnMu.Unlock()

	if err := d.transport.Connect(ctx, d); err != nil {
		d.stopSpawning()
		d.running.Store(false)
		d.cancel()
		return domain.ErrMessaging.WithDetails("connect transport").WithCause(err)
	}
	d.logger.Info("dispatcher started", "runtime", d.local)
	return nil
}

// Stop disconnects the transport, fails outstanding calls and waits for
// in-flight handlers to return.
func (d *Dispatcher) Stop() error {
	if !d.running.CompareAndSwap(true, false) {
		return nil
	}
	d.stopSpawning()
	err := d.transport.Disconnect()
	d.cancel()

	for _, p := range d.pending.PopFunc(func(string, *pendingCall) bool { return true }) {
		p.ch <- result{err: domain.ErrMessaging.WithDetails("dispatcher stopped")}
	}

	d.wg.Wait()
	d.current.Store(nil)
	d.logger.Info("dispatcher stopped", "runtime", d.local)
	if err != nil {
		return domain.ErrMessaging.WithDetails("disconnect transport").WithCause(err)
	}
	return nil
}

// ViewAccepted implements transport.Receiver.
func (d *Dispatcher) ViewAccepted(v *view.View) {
	old := d.current.Swap(v)
	d.metrics.ObserveView(v.ID(), v.Len())

	// Calls to members that are gone will never be answered.
	gone := d.pending.PopFunc(func(_ string, p *pendingCall) bool { return p.to != d.local && !v.Contains(p.to) })
	for _, p := range gone {
		p.ch <- result{err: domain.ErrDestinationUnavailable.WithDetailsf("%s left the view", p.to)}
	}

	d.mu.Lock()
	listeners := make([]listenerEntry, len(d.listeners))
	copy(listeners, d.listeners)
	d.mu.Unlock()

	d.logger.Debug("view accepted", "view_id", v.ID(), "members", v.Len())
	for _, e := range listeners {
		e.l.ViewAccepted(old, v)
	}
}

// Receive implements transport.Receiver.
func (d *Dispatcher) Receive(data []byte) {
	env, err := DecodeEnvelope(data)
	if err != nil {
		d.logger.Warn("dropping malformed frame", "error", err)
		d.metrics.MessageFailures.WithLabelValues("receive", domain.Kind(err)).Inc()
		return
	}
	d.handle(env)
}

func (d *Dispatcher) handle(env *Envelope) {
	switch env.Kind {
	case KindResponse:
		d.complete(env)
	case KindMessage:
		if d.messages == nil {
			return
		}
		d.spawn(func(ctx context.Context) {
			d.messages.HandleMessage(logger.WithRuntime(ctx, env.From), env.From, env.Payload)
		})
	case KindRequest:
		d.spawn(func(ctx context.Context) {
			ctx = logger.WithCallID(logger.WithRuntime(ctx, env.From), env.ID)
			d.answer(ctx, env)
		})
	}
}

func (d *Dispatcher) spawn(fn func(ctx context.Context)) {
	d.spawnMu.Lock()
	if !d.accepting {
		d.spawnMu.Unlock()
		return
	}
	ctx := d.ctx
	d.wg.Add(1)
	d.spawnMu.Unlock()

	go func() {
		defer d.wg.Done()
		fn(ctx)
	}()
}

func (d *Dispatcher) stopSpawning() {
	d.spawnMu.Lock()
	d.accepting = false
	d.spawnMu.Unlock()
}

func (d *Dispatcher) answer(ctx context.Context, req *Envelope) {
	reply := &Envelope{Kind: KindResponse, ID: req.ID, From: d.local}
	if d.requests == nil {
		reply.Error = "no request handler installed"
	} else {
		payload, err := d.requests.HandleRequest(ctx, req.From, req.Payload)
		if err != nil {
			reply.Error = err.Error()
		} else {
			reply.Payload = payload
		}
	}
	if err := d.deliver(req.From, reply); err != nil {
		d.logger.Warn("failed to send reply", "to", req.From, "error", err)
	}
}

func (d *Dispatcher) complete(env *Envelope) {
	p, ok := d.pending.Pop(env.ID)
	if !ok {
		// Late reply for a call that already timed out.
		return
	}
	if env.Error != "" {
		p.ch <- result{err: domain.ErrMessaging.WithDetailsf("%s: %s", env.From, env.Error)}
		return
	}
	p.ch <- result{payload: env.Payload}
}

// deliver routes env to a member, short-circuiting frames for ourselves.
func (d *Dispatcher) deliver(to string, env *Envelope) error {
	if !d.running.Load() {
		return domain.ErrMessaging.WithDetails("dispatcher is not running")
	}
	if to == d.local {
		local := *env
		d.handle(&local)
		return nil
	}
	if err := d.transport.Send(to, env.Encode(d.compressThreshold)); err != nil {
		if errors.Is(err, domain.ErrDestinationUnavailable) || errors.Is(err, domain.ErrMessaging) {
			return err
		}
		return domain.ErrMessaging.WithDetailsf("send to %s", to).WithCause(err)
	}
	return nil
}

// Send delivers a one-way message.
func (d *Dispatcher) Send(to string, payload []byte) error {
	return d.deliver(to, &Envelope{Kind: KindMessage, From: d.local, Payload: payload})
}

// Call sends a request to one member and waits for its reply until ctx is
// done. Expiry yields domain.ErrTimeout; the member leaving the view first
// yields domain.ErrDestinationUnavailable.
func (d *Dispatcher) Call(ctx context.Context, to string, payload []byte) ([]byte, error) {
	if !d.running.Load() {
		return nil, domain.ErrMessaging.WithDetails("dispatcher is not running")
	}
	if v := d.View(); v != nil && !v.Contains(to) && to != d.local {
		return nil, domain.ErrDestinationUnavailable.WithDetailsf("%s is not a member", to)
	}

	id := d.newID()
	p := &pendingCall{to: to, ch: make(chan result, 1)}

	d.pending.Set(id, p)
	d.metrics.PendingCalls.Inc()

	defer func() {
		d.pending.Delete(id)
		d.metrics.PendingCalls.Dec()
	}()

	if err := d.deliver(to, &Envelope{Kind: KindRequest, ID: id, From: d.local, Payload: payload}); err != nil {
		return nil, err
	}

	select {
	case r := <-p.ch:
		return r.payload, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, domain.ErrTimeout.WithDetailsf("no reply from %s", to)
		}
		return nil, domain.ErrMessaging.WithDetailsf("call to %s cancelled", to).WithCause(ctx.Err())
	}
}

// CallAll sends a request to every member in to and collects the replies
// that arrive before ctx is done. Members that fail or do not answer in
// time are omitted.
func (d *Dispatcher) CallAll(ctx context.Context, to []string, payload []byte) []Response {
	type reply struct {
		idx  int
		resp Response
		err  error
	}

	ch := make(chan reply, len(to))
	for i, name := range to {
		go func(i int, name string) {
			b, err := d.Call(ctx, name, payload)
			ch <- reply{idx: i, resp: Response{From: name, Payload: b}, err: err}
		}(i, name)
	}

	got := make([]*Response, len(to))
	for range to {
		r := <-ch
		if r.err != nil {
			d.logger.Debug("member did not answer", "member", r.resp.From, "error", r.err)
			continue
		}
		resp := r.resp
		got[r.idx] = &resp
	}

	out := make([]Response, 0, len(to))
	for _, r := range got {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

// PendingCalls returns the number of calls awaiting a reply.
func (d *Dispatcher) PendingCalls() int {
	return d.pending.Count()
}

func (d *Dispatcher) newID() string {
	d.entropyMu.Lock()
	defer d.entropyMu.Unlock()
	return strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now()), d.entropy).String())
}

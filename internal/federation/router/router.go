// Package router implements the messaging patterns runtimes use to talk to
// each other: zone broadcast, fire-and-forget unicast, synchronous calls,
// zone-wide gathers and controller-addressed sends.
//
// Membership is always resolved against the dispatcher's latest view at the
// time of the call; the router holds no membership state of its own.
package router

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/yndnr/zonemesh-go/internal/core/domain"
	"github.com/yndnr/zonemesh-go/internal/federation/dispatch"
	"github.com/yndnr/zonemesh-go/internal/federation/view"
	"github.com/yndnr/zonemesh-go/internal/federation/zone"
	"github.com/yndnr/zonemesh-go/internal/telemetry/metric"
)

// DefaultTimeout bounds synchronous operations that are given no timeout.
const DefaultTimeout = 10 * time.Second

// Metric labels for the messaging patterns.
const (
	PatternBroadcast  = "broadcast"
	PatternUnicast    = "unicast"
	PatternCall       = "call"
	PatternGather     = "gather"
	PatternController = "controller"
)

// Config configures a Router.
type Config struct {
	DefaultTimeout time.Duration
	Logger         *slog.Logger
	Metrics        *metric.Registry
}

// Router sends payloads to members of the current view.
type Router struct {
	d              *dispatch.Dispatcher
	defaultTimeout time.Duration
	logger         *slog.Logger
	metrics        *metric.Registry

	inflight sync.WaitGroup
}

// New creates a router on top of d.
func New(d *dispatch.Dispatcher, cfg Config) *Router {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metric.Discard()
	}
	return &Router{
		d:              d,
		defaultTimeout: cfg.DefaultTimeout,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
	}
}

// DefaultTimeout returns the timeout applied when callers pass none.
func (r *Router) DefaultTimeout() time.Duration {
	return r.defaultTimeout
}

// LocalName returns the wire name of the local runtime.
func (r *Router) LocalName() string {
	return r.d.LocalName()
}

// View returns the latest membership view.
func (r *Router) View() *view.View {
	return r.d.View()
}

func (r *Router) currentView() (*view.View, error) {
	v := r.d.View()
	if v == nil {
		return nil, domain.ErrMessaging.WithDetails("no membership view yet")
	}
	return v, nil
}

// BroadcastToZone sends payload to every current member of zone without
// waiting for delivery. A failed recipient does not affect the others;
// failures are logged and counted.
func (r *Router) BroadcastToZone(zoneName string, payload []byte) error {
	v, err := r.currentView()
	if err != nil {
		return err
	}
	for _, m := range zone.MembersOf(zoneName, v) {
		r.sendAsync(PatternBroadcast, m.Name, payload)
	}
	return nil
}

// SendToRuntime sends payload to the member named name without waiting for
// delivery. It fails only when name is not part of the current view.
func (r *Router) SendToRuntime(name string, payload []byte) error {
	v, err := r.currentView()
	if err != nil {
		return err
	}
	m, ok := v.Member(name)
	if !ok {
		r.metrics.RecordFailure(PatternUnicast, domain.Kind(domain.ErrDestinationUnavailable))
		return domain.ErrDestinationUnavailable.WithDetailsf("%s is not a member", name)
	}
	r.sendAsync(PatternUnicast, m.Name, payload)
	return nil
}

func (r *Router) sendAsync(pattern, to string, payload []byte) {
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		if err := r.d.Send(to, payload); err != nil {
			r.metrics.RecordFailure(pattern, domain.Kind(err))
			r.logger.Warn("send failed", "pattern", pattern, "to", to, "error", err)
			return
		}
		r.metrics.RecordSent(pattern)
	}()
}

// Wait blocks until every asynchronous send started so far has been handed
// to the transport.
func (r *Router) Wait() {
	r.inflight.Wait()
}

// SendSynchronous sends payload to address and waits for the reply. It
// fails with domain.ErrTimeout when no reply arrives within timeout and with
// domain.ErrDestinationUnavailable when the peer leaves first. A
// non-positive timeout selects the default.
func (r *Router) SendSynchronous(ctx context.Context, address string, payload []byte, timeout time.Duration) ([]byte, error) {
	return r.call(ctx, PatternCall, address, payload, timeout)
}

func (r *Router) call(ctx context.Context, pattern, address string, payload []byte, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout(timeout))
	defer cancel()

	start := time.Now()
	reply, err := r.d.Call(ctx, address, payload)
	r.metrics.ObserveCall(pattern, time.Since(start).Seconds())
	if err != nil {
		r.metrics.RecordFailure(pattern, domain.Kind(err))
		return nil, err
	}
	r.metrics.RecordSent(pattern)
	return reply, nil
}

// GatherFromZone sends payload to every current member of zone and returns
// the replies received before timeout. Members that fail or do not answer
// in time are omitted.
func (r *Router) GatherFromZone(ctx context.Context, zoneName string, payload []byte, timeout time.Duration) ([][]byte, error) {
	v, err := r.currentView()
	if err != nil {
		return nil, err
	}
	members := zone.MembersOf(zoneName, v)
	if len(members) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout(timeout))
	defer cancel()

	start := time.Now()
	resps := r.d.CallAll(ctx, namesOf(members), payload)
	r.metrics.ObserveCall(PatternGather, time.Since(start).Seconds())
	r.metrics.RecordSent(PatternGather)
	if missing := len(members) - len(resps); missing > 0 {
		r.logger.Debug("gather completed partially", "zone", zoneName, "answered", len(resps), "missing", missing)
	}

	out := make([][]byte, 0, len(resps))
	for _, resp := range resps {
		out = append(out, resp.Payload)
	}
	return out, nil
}

// SendToController sends payload to the controller without waiting for
// delivery.
func (r *Router) SendToController(payload []byte) error {
	c, err := r.controller()
	if err != nil {
		return err
	}
	r.sendAsync(PatternController, c.Name, payload)
	return nil
}

// SendToControllerSynchronous sends payload to the controller and waits for
// the reply like SendSynchronous.
func (r *Router) SendToControllerSynchronous(ctx context.Context, payload []byte, timeout time.Duration) ([]byte, error) {
	c, err := r.controller()
	if err != nil {
		return nil, err
	}
	return r.call(ctx, PatternController, c.Name, payload, timeout)
}

// Controller returns the controller of the current view.
func (r *Router) Controller() (view.Member, bool) {
	return zone.ControllerOf(r.d.View())
}

func (r *Router) controller() (view.Member, error) {
	c, ok := r.Controller()
	if !ok {
		r.metrics.RecordFailure(PatternController, domain.Kind(domain.ErrControllerNotFound))
		return view.Member{}, domain.ErrControllerNotFound
	}
	return c, nil
}

func (r *Router) timeout(t time.Duration) time.Duration {
	if t <= 0 {
		return r.defaultTimeout
	}
	return t
}

func namesOf(members []view.Member) []string {
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.Name
	}
	return names
}

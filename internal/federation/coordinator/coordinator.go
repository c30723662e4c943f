// Package coordinator synchronizes a runtime's deployment state with the
// domain controller.
//
// A runtime starts NotUpdated. When it joins the domain it waits for the
// first membership view and asks the controller for the deployment of its
// zone. If no controller is present the attempt is deferred; the runtime is
// retried when its zone leader announces a controller, never on a timer.
// The first successful answer moves the runtime to Updated for good.
package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/zonemesh-go/internal/core/domain"
	"github.com/yndnr/zonemesh-go/internal/federation/command"
	"github.com/yndnr/zonemesh-go/internal/federation/dispatch"
	"github.com/yndnr/zonemesh-go/internal/federation/event"
	"github.com/yndnr/zonemesh-go/internal/federation/identity"
	"github.com/yndnr/zonemesh-go/internal/federation/router"
	"github.com/yndnr/zonemesh-go/internal/federation/view"
	"github.com/yndnr/zonemesh-go/internal/federation/zone"
	"github.com/yndnr/zonemesh-go/internal/telemetry/metric"
)

// State is the synchronization state of a runtime.
type State int32

const (
	NotUpdated State = iota
	Updated
)

func (s State) String() string {
	if s == Updated {
		return "updated"
	}
	return "not_updated"
}

// Sync attempt outcomes used as metric labels.
const (
	resultUpdated  = "updated"
	resultDeferred = "deferred"
	resultFailed   = "failed"
	resultNoView   = "no_view"
)

// leaderCatchUp enables fetching deployments from the zone leader before
// asking the controller. It stays off until zone leaders can serve the
// deployment units they hold to other runtimes.
const leaderCatchUp = false

const defaultJoinAttempts = 3

// Config configures a Coordinator.
type Config struct {
	Identity identity.Identity
	// Synchronize enables catch-up when the runtime joins the domain.
	Synchronize       bool
	DefaultTimeout    time.Duration
	JoinAttempts      int
	TransportMetadata map[string]string
	Logger            *slog.Logger
	Metrics           *metric.Registry
}

// Coordinator drives the NotUpdated to Updated transition.
type Coordinator struct {
	cfg        Config
	local      string
	dispatcher *dispatch.Dispatcher
	router     *router.Router
	registry   *command.Registry
	serializer command.Serializer
	logger     *slog.Logger
	metrics    *metric.Registry

	state    atomic.Int32
	updateMu sync.Mutex

	firstView     chan struct{}
	firstViewOnce sync.Once

	subs           []*event.Subscription
	removeListener func()
	closeOnce      sync.Once
}

// New wires a coordinator into the dispatcher, the command registry and the
// event service. Close releases the registrations.
func New(
	d *dispatch.Dispatcher,
	r *router.Router,
	registry *command.Registry,
	serializer command.Serializer,
	events *event.Service,
	cfg Config,
) *Coordinator {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = r.DefaultTimeout()
	}
	if cfg.JoinAttempts <= 0 {
		cfg.JoinAttempts = defaultJoinAttempts
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metric.Discard()
	}

	c := &Coordinator{
		cfg:        cfg,
		local:      d.LocalName(),
		dispatcher: d,
		router:     r,
		registry:   registry,
		serializer: serializer,
		logger:     cfg.Logger.With("runtime", d.LocalName(), "zone", cfg.Identity.ZoneName()),
		metrics:    cfg.Metrics,
		firstView:  make(chan struct{}),
	}
	c.metrics.SetUpdated(false)

	registry.Register(command.TypeControllerAvailable, command.ExecutorFunc(c.executeControllerAvailable))
	registry.Register(command.TypeZoneMetadataUpdate, command.ExecutorFunc(c.executeZoneMetadata))
	c.subs = append(c.subs,
		events.Subscribe(event.TypeJoinDomain, c.onJoin),
		events.Subscribe(event.TypeRuntimeStop, c.onStop),
	)
	c.removeListener = d.AddMembershipListener(dispatch.MembershipListenerFunc(c.viewAccepted))
	return c
}

// State returns the current synchronization state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Close unregisters the coordinator's executors, listeners and event
// subscriptions. It does not stop the dispatcher.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		for _, s := range c.subs {
			s.Close()
		}
		c.removeListener()
		c.registry.Unregister(command.TypeControllerAvailable)
		c.registry.Unregister(command.TypeZoneMetadataUpdate)
	})
}

func (c *Coordinator) onJoin(ctx context.Context, _ event.Event) {
	if err := c.dispatcher.Start(ctx); err != nil {
		c.logger.Error("error joining the domain", "error", err)
		return
	}
	c.logger.Info("joining domain", "domain", c.cfg.Identity.Domain)
	if !c.cfg.Synchronize {
		return
	}
	if !c.awaitFirstView(ctx) {
		c.metrics.RecordSyncAttempt(resultNoView)
		c.logger.Error("timed out waiting for the first membership view",
			"attempts", c.cfg.JoinAttempts,
			"timeout", c.cfg.DefaultTimeout)
		return
	}
	if err := c.Update(ctx); err != nil {
		c.logger.Error("error synchronizing with the domain", "error", err)
	}
}

func (c *Coordinator) awaitFirstView(ctx context.Context) bool {
	timer := time.NewTimer(c.cfg.DefaultTimeout)
	defer timer.Stop()
	for attempt := 1; attempt <= c.cfg.JoinAttempts; attempt++ {
		select {
		case <-c.firstView:
			return true
		case <-ctx.Done():
			return false
		case <-timer.C:
			c.logger.Warn("still waiting for the first membership view", "attempt", attempt)
			timer.Reset(c.cfg.DefaultTimeout)
		}
	}
	return false
}

func (c *Coordinator) onStop(context.Context, event.Event) {
	if err := c.dispatcher.Stop(); err != nil {
		c.logger.Warn("error leaving the domain", "error", err)
	}
}

// Update asks for the current deployment of the local zone unless the
// runtime is already Updated. A missing controller defers the update and is
// not an error.
func (c *Coordinator) Update(ctx context.Context) error {
	c.updateMu.Lock()
	defer c.updateMu.Unlock()

	if c.State() == Updated {
		return nil
	}

	v := c.router.View()
	if leaderCatchUp {
		if leader, ok := zone.LeaderOf(c.cfg.Identity.ZoneName(), v); ok && leader.Name != c.local {
			err := c.updateFrom(ctx, leader.Name)
			if err == nil {
				return nil
			}
			c.logger.Error("error retrieving deployment from zone leader", "leader", leader.Name, "error", err)
		}
	}

	controller, ok := zone.ControllerOf(v)
	if !ok {
		c.metrics.RecordSyncAttempt(resultDeferred)
		c.logger.Info("update deferred, no controller in view")
		return nil
	}
	return c.updateFrom(ctx, controller.Name)
}

func (c *Coordinator) updateFrom(ctx context.Context, source string) error {
	c.logger.Info("updating runtime", "source", source)

	req, err := c.serializer.Marshal(&command.RuntimeUpdateCommand{
		RuntimeName: c.local,
		Zone:        c.cfg.Identity.ZoneName(),
	})
	if err != nil {
		return err
	}
	reply, err := c.router.SendSynchronous(ctx, source, req, c.cfg.DefaultTimeout)
	if err != nil {
		c.metrics.RecordSyncAttempt(resultFailed)
		return err
	}

	var cmd command.Command
	if len(reply) > 0 {
		if cmd, err = c.serializer.Unmarshal(reply); err != nil {
			c.metrics.RecordSyncAttempt(resultFailed)
			return err
		}
	}

	// Updated is set before executing so that a failing deployment is not
	// retried as if the runtime had never synchronized.
	if c.state.CompareAndSwap(int32(NotUpdated), int32(Updated)) {
		c.metrics.SetUpdated(true)
		c.metrics.RecordSyncAttempt(resultUpdated)
	}
	c.logger.Info("runtime updated", "source", source)

	if cmd == nil {
		return nil
	}
	return c.registry.Execute(ctx, cmd)
}

func (c *Coordinator) executeControllerAvailable(ctx context.Context, cmd command.Command) error {
	if c.State() == Updated {
		return nil
	}
	// A controller joined after this runtime; typical for the first member of
	// a zone.
	if err := c.Update(ctx); err != nil {
		c.logger.Error("error updating the runtime", "error", err)
	}
	return nil
}

func (c *Coordinator) executeZoneMetadata(_ context.Context, cmd command.Command) error {
	req, ok := cmd.(*command.ZoneMetadataUpdateCommand)
	if !ok {
		return domain.ErrInvalidArgument.WithDetailsf("unexpected command %T", cmd)
	}
	md := make(map[string]string, len(c.cfg.TransportMetadata))
	for k, v := range c.cfg.TransportMetadata {
		md[k] = v
	}
	req.Metadata = &command.ZoneMetadataResponse{
		Zone:              c.cfg.Identity.ZoneName(),
		TransportMetadata: md,
	}
	return nil
}

func (c *Coordinator) viewAccepted(old, next *view.View) {
	c.firstViewOnce.Do(func() { close(c.firstView) })

	delta := zone.Diff(old, next)
	if len(delta.Joined) > 0 || len(delta.Left) > 0 || len(delta.NewLeaders) > 0 {
		c.logger.Debug("membership changed",
			"view_id", next.ID(),
			"joined", namesOf(delta.Joined),
			"left", namesOf(delta.Left),
			"new_leaders", namesOf(delta.NewLeaders))
	}
	if old == nil {
		return
	}

	for _, m := range delta.Joined {
		if m.Identity.IsController() {
			c.announceController(m.Name, next)
			return
		}
	}
}

// announceController tells the local zone about a controller that has just
// joined. Only the zone leader speaks so each zone hears it once.
func (c *Coordinator) announceController(controller string, v *view.View) {
	if !zone.IsLeader(c.local, v) {
		return
	}
	payload, err := c.serializer.Marshal(&command.ControllerAvailableCommand{Controller: controller})
	if err != nil {
		c.logger.Error("failed to encode controller announcement", "error", err)
		return
	}
	if err := c.router.BroadcastToZone(c.cfg.Identity.ZoneName(), payload); err != nil {
		c.logger.Warn("failed to announce controller", "controller", controller, "error", err)
		return
	}
	c.logger.Info("announced controller to zone", "controller", controller)
}

func namesOf(members []view.Member) []string {
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.Name
	}
	return names
}

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/yndnr/zonemesh-go/internal/core/domain"
	"github.com/yndnr/zonemesh-go/internal/federation/command"
	"github.com/yndnr/zonemesh-go/internal/federation/controller"
	"github.com/yndnr/zonemesh-go/internal/federation/coordinator"
	"github.com/yndnr/zonemesh-go/internal/federation/dispatch"
	"github.com/yndnr/zonemesh-go/internal/federation/event"
	"github.com/yndnr/zonemesh-go/internal/federation/identity"
	"github.com/yndnr/zonemesh-go/internal/federation/router"
	"github.com/yndnr/zonemesh-go/internal/federation/transport"
	"github.com/yndnr/zonemesh-go/internal/federation/transport/gossip"
	"github.com/yndnr/zonemesh-go/internal/server/config"
	"github.com/yndnr/zonemesh-go/internal/server/httpserver"
	"github.com/yndnr/zonemesh-go/internal/server/httpserver/handler"
	"github.com/yndnr/zonemesh-go/internal/telemetry/metric"
)

// Options overrides the collaborators a Node would otherwise build itself.
type Options struct {
	Logger  *slog.Logger
	Metrics *metric.Registry

	// Transport replaces the gossip transport built from the config.
	Transport transport.Transport
}

// Node is one assembled runtime.
type Node struct {
	cfg     *config.Config
	id      identity.Identity
	logger  *slog.Logger
	metrics *metric.Registry

	dispatcher *dispatch.Dispatcher
	router     *router.Router
	registry   *command.Registry
	serializer *command.JSONSerializer
	events     *event.Service

	coordinator *coordinator.Coordinator
	controller  *controller.Service
	deployments *Deployments

	ops     *httpserver.Server
	opsAddr net.Addr
	opsErr  chan error
	started bool
}

// New builds a node from cfg, which must already pass config.Verify.
func New(cfg *config.Config, opts Options) (*Node, error) {
	if cfg == nil {
		return nil, errors.New("node: config is nil")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	id, err := cfg.Identity(opts.Logger)
	if err != nil {
		return nil, fmt.Errorf("node: identity: %w", err)
	}
	if opts.Metrics == nil {
		opts.Metrics = metric.NewRegistry()
	}

	tr := opts.Transport
	if tr == nil {
		tr = gossip.New(cfg.GossipConfig(id, opts.Logger))
	}
	if tr.LocalName() != identity.Encode(id) {
		return nil, domain.ErrInvalidArgument.WithDetailsf("transport name %q does not match identity %q", tr.LocalName(), identity.Encode(id))
	}

	n := &Node{
		cfg:         cfg,
		id:          id,
		logger:      opts.Logger.With("runtime", identity.Encode(id)),
		metrics:     opts.Metrics,
		registry:    command.NewRegistry(),
		serializer:  command.NewJSONSerializer(),
		events:      event.NewService(),
		deployments: newDeployments(opts.Logger),
	}

	inbound := command.NewInbound(n.registry, n.serializer, opts.Logger)
	n.dispatcher = dispatch.New(dispatch.Config{
		Transport:         tr,
		Messages:          inbound,
		Requests:          inbound,
		CompressThreshold: cfg.Federation.CompressThreshold,
		Logger:            opts.Logger,
		Metrics:           n.metrics,
	})
	n.router = router.New(n.dispatcher, cfg.RouterConfig(opts.Logger, n.metrics))

	if err := n.metrics.Register(metric.NewCollector(n.dispatcher.View)); err != nil {
		return nil, fmt.Errorf("node: register view collector: %w", err)
	}

	if id.IsController() {
		store := controller.NewStore()
		for zone, units := range cfg.DeploymentUnits() {
			store.Put(zone, units)
		}
		n.controller = controller.NewService(n.dispatcher, n.router, n.registry, n.serializer, n.events, store,
			controller.Config{Logger: opts.Logger})
	} else {
		n.registry.Register(command.TypeDeployment, n.deployments)
		n.coordinator = coordinator.New(n.dispatcher, n.router, n.registry, n.serializer, n.events,
			cfg.CoordinatorConfig(id, opts.Logger, n.metrics))
	}

	if cfg.Metrics.Addr != "" {
		n.ops = httpserver.New(cfg.Metrics.Addr, httpserver.NewRouter(n.routerConfig()))
	}
	return n, nil
}

func (n *Node) routerConfig() *httpserver.RouterConfig {
	hc := handler.Config{
		LocalName:       identity.Encode(n.id),
		View:            n.dispatcher.View,
		Ready:           n.Ready,
		MetadataTimeout: n.cfg.Federation.DefaultTimeout,
		Logger:          n.logger,
	}
	if n.controller != nil {
		hc.Controller = n.controller
		hc.Deployments = n.controller.Store()
	}
	return &httpserver.RouterConfig{
		Handler: hc,
		Metrics: n.metrics.Handler(),
		Logger:  n.logger,
	}
}

// Start binds the operations endpoint and joins the domain. Participants
// return once their first synchronization attempt has finished.
func (n *Node) Start(ctx context.Context) error {
	if n.started {
		return errors.New("node: already started")
	}
	n.started = true

	if n.ops != nil {
		addr, err := n.ops.Listen()
		if err != nil {
			return fmt.Errorf("node: listen on %s: %w", n.cfg.Metrics.Addr, err)
		}
		n.opsAddr = addr
		n.opsErr = make(chan error, 1)
		go func() { n.opsErr <- n.ops.Serve() }()
		n.logger.Info("operations endpoint listening", "addr", addr.String())
	}

	n.events.Publish(ctx, event.JoinDomain{})
	if !n.dispatcher.Running() {
		return domain.ErrMessaging.WithDetails("failed to join the domain")
	}

	attrs := []any{"role", string(n.id.Role), "zone", n.id.ZoneName()}
	if n.coordinator != nil {
		attrs = append(attrs, "state", n.coordinator.State().String())
	}
	n.logger.Info("joined the domain", attrs...)
	return nil
}

// Stop leaves the domain and releases all resources. It can be called
// once after Start, or without Start to release a built node.
func (n *Node) Stop(ctx context.Context) error {
	var errs []error

	n.events.Publish(ctx, event.RuntimeStop{})
	n.router.Wait()
	if n.coordinator != nil {
		n.coordinator.Close()
	}
	if n.controller != nil {
		n.controller.Close()
	}

	if n.ops != nil && n.opsErr != nil {
		if err := n.ops.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown operations endpoint: %w", err))
		}
		if err := <-n.opsErr; err != nil {
			errs = append(errs, fmt.Errorf("operations endpoint: %w", err))
		}
		n.opsErr = nil
	}

	n.logger.Info("left the domain")
	return errors.Join(errs...)
}

// Ready reports whether the runtime can serve: it has a view and, for
// participants with synchronization enabled, received its deployments.
func (n *Node) Ready() (bool, string) {
	if n.dispatcher.View() == nil {
		return false, "joining"
	}
	if n.coordinator == nil {
		return true, "controller"
	}
	state := n.coordinator.State()
	if !n.cfg.Federation.Synchronize {
		return true, state.String()
	}
	return state == coordinator.Updated, state.String()
}

// Identity returns the runtime identity.
func (n *Node) Identity() identity.Identity { return n.id }

// Name returns the encoded identity.
func (n *Node) Name() string { return identity.Encode(n.id) }

// Router returns the message router.
func (n *Node) Router() *router.Router { return n.router }

// Dispatcher returns the dispatcher.
func (n *Node) Dispatcher() *dispatch.Dispatcher { return n.dispatcher }

// Coordinator returns the synchronization coordinator, or nil on controllers.
func (n *Node) Coordinator() *coordinator.Coordinator { return n.coordinator }

// Controller returns the controller service, or nil on participants.
func (n *Node) Controller() *controller.Service { return n.controller }

// Deployments returns the deployments applied on this participant.
func (n *Node) Deployments() *Deployments { return n.deployments }

// OpsAddr returns the bound operations address, or nil when disabled or
// not started.
func (n *Node) OpsAddr() net.Addr { return n.opsAddr }

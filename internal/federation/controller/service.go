// Package controller implements the domain controller runtime: it answers
// runtime update requests with the deployment of the requester's zone,
// pushes new deployments to zones and gathers zone metadata.
package controller

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
	"github.com/yndnr/zonemesh-go/internal/federation/router"
)

// Config configures a Service.
type Config struct {
	Logger *slog.Logger
}

// Service is the controller side of synchronization.
type Service struct {
	dispatcher *dispatch.Dispatcher
	router     *router.Router
	registry   *command.Registry
	serializer command.Serializer
	store      *Store
	logger     *slog.Logger

	updates   atomic.Int64
	subs      []*event.Subscription
	closeOnce sync.Once
}

// NewService registers the controller's executors and event listeners.
func NewService(
	d *dispatch.Dispatcher,
	r *router.Router,
	registry *command.Registry,
	serializer command.Serializer,
	events *event.Service,
	store *Store,
	cfg Config,
) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Service{
		dispatcher: d,
		router:     r,
		registry:   registry,
		serializer: serializer,
		store:      store,
		logger:     cfg.Logger.With("runtime", d.LocalName()),
	}
	registry.Register(command.TypeRuntimeUpdate, command.ExecutorFunc(s.executeRuntimeUpdate))
	s.subs = append(s.subs,
		events.Subscribe(event.TypeJoinDomain, s.onJoin),
		events.Subscribe(event.TypeRuntimeStop, s.onStop),
	)
	return s
}

// Store returns the deployment store.
func (s *Service) Store() *Store {
	return s.store
}

// UpdatesServed returns the number of runtime update requests answered.
func (s *Service) UpdatesServed() int64 {
	return s.updates.Load()
}

// Close unregisters the service.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		for _, sub := range s.subs {
			sub.Close()
		}
		s.registry.Unregister(command.TypeRuntimeUpdate)
	})
}

func (s *Service) onJoin(ctx context.Context, _ event.Event) {
	if err := s.dispatcher.Start(ctx); err != nil {
		s.logger.Error("error joining the domain", "error", err)
		return
	}
	s.logger.Info("controller joined domain")
}

func (s *Service) onStop(context.Context, event.Event) {
	if err := s.dispatcher.Stop(); err != nil {
		s.logger.Warn("error leaving the domain", "error", err)
	}
}

func (s *Service) executeRuntimeUpdate(_ context.Context, cmd command.Command) error {
	req, ok := cmd.(*command.RuntimeUpdateCommand)
	if !ok {
		return domain.ErrInvalidArgument.WithDetailsf("unexpected command %T", cmd)
	}
	req.Deployment = s.store.Get(req.Zone)
	s.updates.Add(1)
	s.logger.Info("serving runtime update",
		"requester", req.RuntimeName,
		"zone", req.Zone,
		"revision", req.Deployment.Revision,
		"units", len(req.Deployment.Units))
	return nil
}

// Deploy records units as the deployment of zone and pushes it to every
// current member of the zone. Runtimes that miss the push catch up through
// their next update request.
func (s *Service) Deploy(_ context.Context, zone string, units []command.Unit) (*command.DeploymentCommand, error) {
	d := s.store.Put(zone, units)
	payload, err := s.serializer.Marshal(d)
	if err != nil {
		return nil, err
	}
	if err := s.router.BroadcastToZone(zone, payload); err != nil {
		return d, err
	}
	s.logger.Info("deployment pushed", "zone", zone, "revision", d.Revision, "units", len(d.Units))
	return d, nil
}

// ZoneMetadata asks every member of zone for its metadata. Members that do
// not answer within timeout are omitted.
func (s *Service) ZoneMetadata(ctx context.Context, zone string, timeout time.Duration) ([]*command.ZoneMetadataResponse, error) {
	payload, err := s.serializer.Marshal(&command.ZoneMetadataUpdateCommand{})
	if err != nil {
		return nil, err
	}
	replies, err := s.router.GatherFromZone(ctx, zone, payload, timeout)
	if err != nil {
		return nil, err
	}

	out := make([]*command.ZoneMetadataResponse, 0, len(replies))
	for _, b := range replies {
		cmd, err := s.serializer.Unmarshal(b)
		if err != nil {
			s.logger.Warn("dropping undecodable metadata reply", "zone", zone, "error", err)
			continue
		}
		md, ok := cmd.(*command.ZoneMetadataResponse)
		if !ok {
			s.logger.Warn("unexpected metadata reply", "zone", zone, "type", cmd.CommandType())
			continue
		}
		out = append(out, md)
	}
	return out, nil
}

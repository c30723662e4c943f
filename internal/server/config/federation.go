package config

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/yndnr/zonemesh-go/internal/federation/command"
	"github.com/yndnr/zonemesh-go/internal/federation/coordinator"
	"github.com/yndnr/zonemesh-go/internal/federation/identity"
	"github.com/yndnr/zonemesh-go/internal/federation/router"
	"github.com/yndnr/zonemesh-go/internal/federation/transport/gossip"
	"github.com/yndnr/zonemesh-go/internal/telemetry/metric"
)

// Identity returns the runtime identity. An empty instance id is replaced
// by a random UUID, which is written back so later calls agree.
func (c *Config) Identity(logger *slog.Logger) (identity.Identity, error) {
	if c == nil {
		return identity.Identity{}, fmt.Errorf("config is nil")
	}
	if c.Runtime.InstanceID == "" {
		c.Runtime.InstanceID = uuid.NewString()
		if logger != nil {
			logger.Info("generated runtime instance id", "instance_id", c.Runtime.InstanceID)
		}
	}
	return identity.New(c.Runtime.Domain, identity.Role(c.Runtime.Role), c.Runtime.Zone, c.Runtime.InstanceID)
}

// GossipConfig maps the gossip section onto the memberlist transport.
func (c *Config) GossipConfig(id identity.Identity, logger *slog.Logger) gossip.Config {
	return gossip.Config{
		Name:          identity.Encode(id),
		BindAddr:      c.Gossip.BindAddr,
		BindPort:      c.Gossip.BindPort,
		AdvertiseAddr: c.Gossip.AdvertiseAddr,
		AdvertisePort: c.Gossip.AdvertisePort,
		Seeds:         append([]string(nil), c.Gossip.Seeds...),
		JoinRetries:   c.Gossip.JoinRetries,
		LocalNetwork:  c.Gossip.LocalNetwork,
		Logger:        logger,
	}
}

// RouterConfig maps the federation section onto the router.
func (c *Config) RouterConfig(logger *slog.Logger, metrics *metric.Registry) router.Config {
	return router.Config{
		DefaultTimeout: c.Federation.DefaultTimeout,
		Logger:         logger,
		Metrics:        metrics,
	}
}

// CoordinatorConfig maps the federation section onto the coordinator.
func (c *Config) CoordinatorConfig(id identity.Identity, logger *slog.Logger, metrics *metric.Registry) coordinator.Config {
	meta := make(map[string]string, len(c.Federation.TransportMetadata))
	for k, v := range c.Federation.TransportMetadata {
		meta[k] = v
	}
	return coordinator.Config{
		Identity:          id,
		Synchronize:       c.Federation.Synchronize,
		DefaultTimeout:    c.Federation.DefaultTimeout,
		JoinAttempts:      c.Federation.JoinAttempts,
		TransportMetadata: meta,
		Logger:            logger,
		Metrics:           metrics,
	}
}

// DeploymentUnits converts the configured deployments into units per zone.
func (c *Config) DeploymentUnits() map[string][]command.Unit {
	out := make(map[string][]command.Unit, len(c.Federation.Deployments))
	for _, d := range c.Federation.Deployments {
		units := make([]command.Unit, 0, len(d.Units))
		for _, name := range d.Units {
			units = append(units, command.Unit{Name: name})
		}
		out[d.Zone] = units
	}
	return out
}

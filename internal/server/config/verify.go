package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/yndnr/zonemesh-go/internal/federation/identity"
	"github.com/yndnr/zonemesh-go/internal/telemetry/logger"
)

// Verify validates the configuration. All problems found are joined.
func Verify(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	return errors.Join(
		verifyRuntime(&cfg.Runtime),
		verifyFederation(&cfg.Federation),
		verifyGossip(&cfg.Gossip),
		verifyMetrics(&cfg.Metrics),
		verifyLog(&cfg.Log),
	)
}

func verifyRuntime(cfg *RuntimeSection) error {
	role := identity.Role(cfg.Role)
	if role != identity.RoleParticipant && role != identity.RoleController {
		return fmt.Errorf("runtime.role %q must be participant or controller", cfg.Role)
	}

	// The instance id may still be empty here; it is generated later.
	instance := cfg.InstanceID
	if instance == "" {
		instance = "pending"
	}
	if _, err := identity.New(cfg.Domain, role, cfg.Zone, instance); err != nil {
		return fmt.Errorf("runtime: %w", err)
	}
	return nil
}

func verifyFederation(cfg *FederationSection) error {
	var errs []error
	if cfg.DefaultTimeout <= 0 {
		errs = append(errs, fmt.Errorf("federation.default_timeout must be positive, got %v", cfg.DefaultTimeout))
	}
	if cfg.JoinAttempts < 1 {
		errs = append(errs, fmt.Errorf("federation.join_attempts must be at least 1, got %d", cfg.JoinAttempts))
	}

	seen := make(map[string]struct{}, len(cfg.Deployments))
	for i, d := range cfg.Deployments {
		switch {
		case d.Zone == "":
			errs = append(errs, fmt.Errorf("federation.deployments[%d].zone is required", i))
		case strings.Contains(d.Zone, identity.Separator):
			errs = append(errs, fmt.Errorf("federation.deployments[%d].zone %q contains %q", i, d.Zone, identity.Separator))
		default:
			if _, dup := seen[d.Zone]; dup {
				errs = append(errs, fmt.Errorf("federation.deployments: zone %q listed twice", d.Zone))
			}
			seen[d.Zone] = struct{}{}
		}
	}
	return errors.Join(errs...)
}

func verifyGossip(cfg *GossipSection) error {
	var errs []error
	if err := verifyPort("gossip.bind_port", cfg.BindPort); err != nil {
		errs = append(errs, err)
	}
	if err := verifyPort("gossip.advertise_port", cfg.AdvertisePort); err != nil {
		errs = append(errs, err)
	}
	if cfg.JoinRetries < 0 {
		errs = append(errs, fmt.Errorf("gossip.join_retries must not be negative, got %d", cfg.JoinRetries))
	}
	for _, seed := range cfg.Seeds {
		if _, _, err := net.SplitHostPort(seed); err != nil {
			errs = append(errs, fmt.Errorf("gossip.seeds: %q is not host:port: %w", seed, err))
		}
	}
	return errors.Join(errs...)
}

func verifyMetrics(cfg *MetricsSection) error {
	if cfg.Addr == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(cfg.Addr); err != nil {
		return fmt.Errorf("metrics.addr %q is not host:port: %w", cfg.Addr, err)
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if !logger.ValidLevel(cfg.Level) {
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Level)
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text", "console":
		return nil
	}
	return fmt.Errorf("log.format %q must be json or text", cfg.Format)
}

// verifyPort accepts 0, which lets the OS pick.
func verifyPort(field string, port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("%s %d out of range", field, port)
	}
	return nil
}

package config

import (
	"github.com/yndnr/zonemesh-go/internal/telemetry/logger"
)

// Sanitize returns a copy of the config with sensitive fields masked.
//
// This is used for logging configuration without exposing secrets.
func Sanitize(cfg *Config) *Config {
	// Create a shallow copy
	sanitized := *cfg

	// Transport metadata may carry credentials for the controller.
	if cfg.Federation.TransportMetadata != nil {
		sanitized.Federation.TransportMetadata = logger.RedactMap(cfg.Federation.TransportMetadata)
	}

	if cfg.Gossip.Seeds != nil {
		seeds := make([]string, len(cfg.Gossip.Seeds))
		for i, s := range cfg.Gossip.Seeds {
			seeds[i] = logger.RedactString(s)
		}
		sanitized.Gossip.Seeds = seeds
	}

	return &sanitized
}

package config

import "time"

// Default configuration values.
const (
	DefaultDomain = "domain"
	DefaultZone   = "default.zone"
	DefaultRole   = "participant"

	DefaultTimeout           = 10 * time.Second
	DefaultJoinAttempts      = 3
	DefaultCompressThreshold = 4096

	DefaultGossipAddr  = "0.0.0.0"
	DefaultGossipPort  = 7946
	DefaultJoinRetries = 5

	DefaultMetricsAddr = "127.0.0.1:9464"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default node configuration.
func Default() *Config {
	return &Config{
		Runtime: RuntimeSection{
			Domain: DefaultDomain,
			Zone:   DefaultZone,
			Role:   DefaultRole,
		},
		Federation: FederationSection{
			Synchronize:       true,
			DefaultTimeout:    DefaultTimeout,
			JoinAttempts:      DefaultJoinAttempts,
			CompressThreshold: DefaultCompressThreshold,
		},
		Gossip: GossipSection{
			BindAddr:    DefaultGossipAddr,
			BindPort:    DefaultGossipPort,
			JoinRetries: DefaultJoinRetries,
		},
		Metrics: MetricsSection{
			Addr: DefaultMetricsAddr,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

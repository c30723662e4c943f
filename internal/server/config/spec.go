package config

import "time"

// Config is the root configuration for a zonemesh node.
type Config struct {
	Runtime    RuntimeSection    `koanf:"runtime"`
	Federation FederationSection `koanf:"federation"`
	Gossip     GossipSection     `koanf:"gossip"`
	Metrics    MetricsSection    `koanf:"metrics"`
	Log        LogSection        `koanf:"log"`
}

// RuntimeSection names this runtime inside the domain.
type RuntimeSection struct {
	Domain string `koanf:"domain"`
	Zone   string `koanf:"zone"`

	// InstanceID distinguishes runtimes of the same zone.
	// If empty, a random UUID is generated at startup.
	InstanceID string `koanf:"instance_id"`

	// Role is "participant" or "controller"; the CLI sub-command sets it.
	Role string `koanf:"role"`
}

// FederationSection configures messaging and synchronization.
type FederationSection struct {
	// Synchronize enables deployment catch-up when joining the domain.
	Synchronize bool `koanf:"synchronize"`

	// DefaultTimeout bounds synchronous calls that pass no timeout.
	DefaultTimeout time.Duration `koanf:"default_timeout"`

	// JoinAttempts multiplies DefaultTimeout while waiting for the first view.
	JoinAttempts int `koanf:"join_attempts"`

	// TransportMetadata is handed to the controller on update requests.
	TransportMetadata map[string]string `koanf:"transport_metadata"`

	// CompressThreshold is the payload size in bytes above which frames
	// are snappy-compressed. Zero selects the default, negative disables.
	CompressThreshold int `koanf:"compress_threshold"`

	// Deployments seeds the controller's deployment store.
	Deployments []DeploymentSection `koanf:"deployments"`
}

// DeploymentSection lists the units deployed to one zone.
// Zone names may contain dots, so deployments are a list rather than a map.
type DeploymentSection struct {
	Zone  string   `koanf:"zone"`
	Units []string `koanf:"units"`
}

// GossipSection configures the memberlist transport.
type GossipSection struct {
	BindAddr      string `koanf:"bind_addr"`
	BindPort      int    `koanf:"bind_port"`
	AdvertiseAddr string `koanf:"advertise_addr"`
	AdvertisePort int    `koanf:"advertise_port"`

	// Seeds is the list of host:port addresses used to join the domain.
	Seeds []string `koanf:"seeds"`

	JoinRetries int `koanf:"join_retries"`

	// LocalNetwork selects loopback timings for single-host setups.
	LocalNetwork bool `koanf:"local_network"`
}

// MetricsSection configures the Prometheus endpoint.
type MetricsSection struct {
	// Addr is the listen address; empty disables the endpoint.
	Addr string `koanf:"addr"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

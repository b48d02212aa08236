package config

import (
	"fmt"
	"net"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the audio gateway.
type Config struct {
	// Server configuration
	ServerAddress string `envconfig:"SERVER_ADDRESS" default:"0.0.0.0"`
	ServerPort    string `envconfig:"SERVER_PORT" default:"8765"`

	// Audio pipeline configuration
	SilenceThreshold  float64 `envconfig:"SILENCE_THRESHOLD" default:"500"` // RMS energy units
	SilenceDuration   int     `envconfig:"SILENCE_DURATION" default:"400"`  // milliseconds
	InactivityTimeout int     `envconfig:"INACTIVITY_TIMEOUT" default:"300"` // seconds
	ReceiveTimeout    int     `envconfig:"RECEIVE_TIMEOUT" default:"1"`     // seconds, inactivity check cadence
	SampleRate        int     `envconfig:"SAMPLE_RATE" default:"44100"`

	// Storage collaborator (S3)
	BucketName string `envconfig:"BUCKET_NAME" required:"true"`

	// Registry collaborator (DynamoDB)
	RegistryTable string `envconfig:"REGISTRY_TABLE" default:"audio-gateway-sessions"`

	// Launcher collaborator (ECS)
	ECSClusterName          string `envconfig:"ECS_CLUSTER_NAME" required:"true"`
	ECSTaskDefinition       string `envconfig:"ECS_TASK_DEFINITION" required:"true"`
	ECSContainerName        string `envconfig:"ECS_CONTAINER_NAME" required:"true"`
	ECSLaunchType           string `envconfig:"ECS_LAUNCH_TYPE" default:"FARGATE"`
	ECSSubnetID             string `envconfig:"ECS_SUBNET_ID" required:"true"`
	ECSTaskTerminationDelay int    `envconfig:"ECS_TASK_TERMINATION_DELAY" default:"60"` // seconds
	LeaseReuseOnReconnect   bool   `envconfig:"LEASE_REUSE_ON_RECONNECT" default:"true"`

	// Collaborator-side retry policy (the session core never retries)
	RetryMaxAttempts    int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	RetryInitialBackoff int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"` // milliseconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
}

// Load reads configuration from the environment, after loading an optional
// .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv reads configuration directly from environment variables,
// skipping .env lookup (for containerized deployments).
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// ListenAddr returns the host:port the server binds to.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.ServerAddress, c.ServerPort)
}

// SilenceWindow is the silence duration as a time.Duration.
func (c *Config) SilenceWindow() time.Duration {
	return time.Duration(c.SilenceDuration) * time.Millisecond
}

// InactivityWindow is the inactivity timeout as a time.Duration.
func (c *Config) InactivityWindow() time.Duration {
	return time.Duration(c.InactivityTimeout) * time.Second
}

// ReceiveTick is the supervision interval for inactivity checks.
func (c *Config) ReceiveTick() time.Duration {
	return time.Duration(c.ReceiveTimeout) * time.Second
}

// TerminationDelay is the grace period before a released worker is stopped.
func (c *Config) TerminationDelay() time.Duration {
	return time.Duration(c.ECSTaskTerminationDelay) * time.Second
}

// RetryBackoff is the initial collaborator retry backoff.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.RetryInitialBackoff) * time.Millisecond
}

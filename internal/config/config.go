// Package config provides configuration management for the payroll engine.
// It handles loading and parsing of configuration files, environment
// variables, and provides structured access to application settings.
package config

import (
	"encoding/json"
	"time"

	"github.com/spf13/viper"
	"github.com/ucarion/redact"
)

// LogConfig holds configuration for logging. Used by logger implementations.
// It specifies the log level and output format for the application.
type LogConfig struct {
	// Level specifies the minimum log level to output.
	// Valid values: "debug", "info", "warn", "error"
	Level string `mapstructure:"level"`

	// Format specifies the output format for log messages.
	// Valid values: "logfmt" (default), "json"
	Format string `mapstructure:"format"`
}

// NetworkConfig holds configuration for the XRPL/Xahau network connection.
type NetworkConfig struct {
	// Network selects the deployment environment: "mainnet" or "testnet".
	Network string `mapstructure:"network"`

	// RPCURL is the XRPL/Xahau JSON-RPC endpoint URL, overriding the
	// network's default endpoint when set.
	RPCURL string `mapstructure:"rpc_url"`

	// Timeout specifies the per-attempt ledger request timeout, in seconds.
	Timeout int64 `mapstructure:"timeout"`
}

// ChannelConfig holds default parameters applied to newly created channels
// and to the resolver/reconciler that manage them.
type ChannelConfig struct {
	DefaultSettleDelaySeconds  int64   `mapstructure:"default_settle_delay_seconds"`
	DefaultCancelAfterSeconds  int64   `mapstructure:"default_cancel_after_seconds"`
	MaxDailyHoursPerChannel    float64 `mapstructure:"max_daily_hours_per_channel"`
	ResolverRetrySchedule      []int64 `mapstructure:"resolver_retry_schedule"`
	SigningGatewayDeadlineSecs int64   `mapstructure:"signing_gateway_deadline_seconds"`
}

// ReconcilerConfig holds tuning options for the Ledger Reconciler.
type ReconcilerConfig struct {
	MinIntervalSeconds int64 `mapstructure:"min_interval_seconds"`
	BatchConcurrency   int   `mapstructure:"batch_concurrency"`
}

// DatabaseConfig holds Postgres connection settings for the Channel
// Repository.
type DatabaseConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// Config contains all configuration parameters for the application.
// It aggregates settings from multiple sources and provides a unified
// interface.
type Config struct {
	// Log contains logging configuration settings.
	Log LogConfig `mapstructure:"log"`

	// Network contains ledger connection settings.
	Network NetworkConfig `mapstructure:"network"`

	// Channel contains channel-lifecycle default and tuning parameters.
	Channel ChannelConfig `mapstructure:"channel"`

	// Reconciler contains Ledger Reconciler tuning parameters.
	Reconciler ReconcilerConfig `mapstructure:"reconciler"`

	// Database contains Channel Repository connection settings.
	Database DatabaseConfig `mapstructure:"database"`

	// Server contains the listen address for the externally-wired
	// transport. The engine itself only exposes Go methods (§1 Out of scope);
	// this setting is carried for that collaborator's benefit.
	Server struct {
		Listen string `mapstructure:"listen"`
	} `mapstructure:"server"`
}

// LoadConfig loads configuration from Viper into the Config structure.
// It reads from configuration files, environment variables, and command
// line flags.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoggerConfig returns the LogConfig section of the main configuration.
func (c *Config) LoggerConfig() LogConfig {
	return c.Log
}

// NetworkConfig returns the NetworkConfig section of the main configuration.
func (c *Config) NetworkConfig() NetworkConfig {
	return c.Network
}

// RequestTimeout returns the configured per-attempt ledger request timeout,
// defaulting to 10 seconds per §5.
func (c *Config) RequestTimeout() time.Duration {
	if c.Network.Timeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Network.Timeout) * time.Second
}

// SigningGatewayDeadline returns the configured signing-gateway deadline,
// defaulting to 5 minutes per §5.
func (c *Config) SigningGatewayDeadline() time.Duration {
	if c.Channel.SigningGatewayDeadlineSecs <= 0 {
		return 300 * time.Second
	}
	return time.Duration(c.Channel.SigningGatewayDeadlineSecs) * time.Second
}

// ResolverRetrySchedule returns the resolver's configured backoff schedule,
// falling back to the §6 default {1,2,4,8,16} seconds.
func (c *Config) ResolverRetrySchedule() []time.Duration {
	schedule := c.Channel.ResolverRetrySchedule
	if len(schedule) == 0 {
		schedule = []int64{1, 2, 4, 8, 16}
	}
	out := make([]time.Duration, len(schedule))
	for i, s := range schedule {
		out[i] = time.Duration(s) * time.Second
	}
	return out
}

// RedactedConfigLog returns a string representation of the config with
// sensitive fields redacted. Uses github.com/ucarion/redact for redaction to
// prevent logging of sensitive information like connection secrets.
func (c *Config) RedactedConfigLog() string {
	sensitiveFields := [][]string{
		{"Database", "DSN"},
	}
	cfgCopy := *c
	for _, path := range sensitiveFields {
		redact.Redact(path, &cfgCopy)
	}
	b, err := json.Marshal(cfgCopy)
	if err != nil {
		return "<failed to marshal config>"
	}
	return string(b)
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultSampleInterval is the default rate sampling period.
	DefaultSampleInterval = time.Second

	// DefaultReclaimInterval is the default idle-counter reclamation period.
	DefaultReclaimInterval = 60 * time.Second
)

// Config holds all configuration for uvb.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Registry RegistryConfig `mapstructure:"registry"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Client   ClientConfig   `mapstructure:"client"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	ListenAddr        string        `mapstructure:"listen_addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

// RegistryConfig holds the periodic pass intervals.
type RegistryConfig struct {
	SampleInterval  time.Duration `mapstructure:"sample_interval"`
	ReclaimInterval time.Duration `mapstructure:"reclaim_interval"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ClientConfig holds settings for the CLI commands that talk to a running server.
type ClientConfig struct {
	ServerURL string        `mapstructure:"server_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.read_header_timeout", 10*time.Second)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("registry.sample_interval", DefaultSampleInterval)
	v.SetDefault("registry.reclaim_interval", DefaultReclaimInterval)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("client.server_url", "http://localhost:8080")
	v.SetDefault("client.timeout", 10*time.Second)

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(homeDir(), ".uvb"))
	v.AddConfigPath(".")

	// Environment variables
	v.SetEnvPrefix("UVB")
	v.AutomaticEnv()

	// Map specific env vars
	_ = v.BindEnv("server.listen_addr", "UVB_LISTEN_ADDR")
	_ = v.BindEnv("client.server_url", "UVB_SERVER_URL")
	_ = v.BindEnv("registry.sample_interval", "UVB_SAMPLE_INTERVAL")
	_ = v.BindEnv("registry.reclaim_interval", "UVB_RECLAIM_INTERVAL")
	_ = v.BindEnv("logging.level", "UVB_LOG_LEVEL")
	_ = v.BindEnv("logging.format", "UVB_LOG_FORMAT")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is OK; use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are set and consistent.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr must not be empty")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be greater than 0")
	}
	if c.Registry.SampleInterval <= 0 {
		return fmt.Errorf("registry.sample_interval must be greater than 0")
	}
	if c.Registry.ReclaimInterval <= c.Registry.SampleInterval {
		return fmt.Errorf("registry.reclaim_interval (%s) must be longer than registry.sample_interval (%s)",
			c.Registry.ReclaimInterval, c.Registry.SampleInterval)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	if c.Client.ServerURL == "" {
		return fmt.Errorf("client.server_url must not be empty")
	}
	if c.Client.Timeout <= 0 {
		return fmt.Errorf("client.timeout must be greater than 0")
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

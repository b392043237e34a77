// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Library LibraryConfig `yaml:"library"`
	Player  PlayerConfig  `yaml:"player"`
	Remote  RemoteConfig  `yaml:"remote"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr" default:":8307"`
}

// LibraryConfig represents library storage and scan configuration.
type LibraryConfig struct {
	DatabasePath string         `yaml:"database_path" default:"cadenza.db"`
	Sources      []SourceConfig `yaml:"sources" validate:"required,min=1,dive"`
}

// SourceConfig represents a single scan source configuration.
type SourceConfig struct {
	Type     string         `yaml:"type" validate:"required"`
	Settings map[string]any `yaml:"settings" validate:"required"`
}

// PlayerConfig represents playback control configuration.
type PlayerConfig struct {
	ProgressIntervalMs int `yaml:"progress_interval_ms" default:"500" validate:"gte=50,lte=10000"`
	RestartThresholdMs int `yaml:"restart_threshold_ms" default:"5000" validate:"gte=0,lte=60000"`
}

// ProgressInterval returns the progress poll interval as a duration.
func (p PlayerConfig) ProgressInterval() time.Duration {
	return time.Duration(p.ProgressIntervalMs) * time.Millisecond
}

// RestartThreshold returns the skip-to-previous restart threshold as a duration.
func (p PlayerConfig) RestartThreshold() time.Duration {
	return time.Duration(p.RestartThresholdMs) * time.Millisecond
}

// RemoteConfig represents remote catalog search configuration.
type RemoteConfig struct {
	Providers []ProviderConfig `yaml:"providers" validate:"omitempty,dive"`
}

// ProviderConfig represents a single remote provider configuration.
type ProviderConfig struct {
	Type        string         `yaml:"type" validate:"required"`
	DisplayName string         `yaml:"display_name" validate:"required"`
	Settings    map[string]any `yaml:"settings" validate:"required"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
// Credentials land in the matching provider's settings map so the file can
// omit them entirely.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("CADENZA_DB_PATH"); v != "" {
		c.Library.DatabasePath = v
	}
	if v := os.Getenv("LASTFM_API_KEY"); v != "" {
		c.setProviderSetting("lastfm", "api_key", v)
	}
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.setProviderSetting("spotify", "client_id", v)
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.setProviderSetting("spotify", "client_secret", v)
	}
}

func (c *Config) setProviderSetting(providerType, key, value string) {
	for i := range c.Remote.Providers {
		if c.Remote.Providers[i].Type == providerType {
			if c.Remote.Providers[i].Settings == nil {
				c.Remote.Providers[i].Settings = make(map[string]any)
			}
			c.Remote.Providers[i].Settings[key] = value
			break
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

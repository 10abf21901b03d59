// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for parleyd.
//
// Configuration is loaded from a single YAML file specified by:
//   - PARLEY_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration parses YAML scalars like "15s" or "2m" into a
// time.Duration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the master configuration for parleyd.
type Config struct {
	// Server configures the HTTP listener.
	Server ServerConfig `yaml:"server"`

	// Store configures the chat database.
	Store StoreConfig `yaml:"store"`

	// Agents configures agent execution.
	Agents AgentsConfig `yaml:"agents"`

	// Turn configures turn streaming behavior.
	Turn TurnConfig `yaml:"turn"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Listen is the TCP listen address.
	// Default: 127.0.0.1:8484
	Listen string `yaml:"listen"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 10s
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// StoreConfig configures the chat database.
type StoreConfig struct {
	// Path is the SQLite database file.
	// Default: ${HOME}/.local/share/parley/chat.db
	Path string `yaml:"path"`

	// PoolSize is the connection pool size. Default: 4
	PoolSize int `yaml:"pool_size"`
}

// AgentsConfig configures agent execution.
type AgentsConfig struct {
	// ProfilesFile is the JSONC file declaring runnable agents.
	// Required.
	ProfilesFile string `yaml:"profiles_file"`

	// DefaultAgent names the profile assigned to auto-provisioned
	// sessions. Empty means the profile file's default.
	DefaultAgent string `yaml:"default_agent"`
}

// TurnConfig configures turn streaming behavior.
type TurnConfig struct {
	// HeartbeatPeriod is the keep-alive interval for idle streams.
	// Default: 15s
	HeartbeatPeriod Duration `yaml:"heartbeat_period"`

	// DefaultPrompt is stored as the user message for attachment-only
	// turns. Default: "Describe the attached files."
	DefaultPrompt string `yaml:"default_prompt"`

	// MaxAttachments bounds attachment references per message.
	// Default: 8
	MaxAttachments int `yaml:"max_attachments"`
}

// Default returns the default configuration, used as the base before
// the config file is merged in.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Server: ServerConfig{
			Listen:          "127.0.0.1:8484",
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Store: StoreConfig{
			Path:     filepath.Join(homeDir, ".local", "share", "parley", "chat.db"),
			PoolSize: 4,
		},
		Turn: TurnConfig{
			HeartbeatPeriod: Duration(15 * time.Second),
			DefaultPrompt:   "Describe the attached files.",
			MaxAttachments:  8,
		},
	}
}

// Load loads configuration from the PARLEY_CONFIG environment
// variable. Fails if it is not set; use LoadFile with an explicit
// path otherwise.
func Load() (*Config, error) {
	configPath := os.Getenv("PARLEY_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("PARLEY_CONFIG environment variable not set; " +
			"set it to the path of your parley.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, merged over
// Default. The config file is the single source of truth; environment
// variables do not override its values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, fmt.Errorf("server.listen is required"))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout must not be negative"))
	}
	if c.Store.Path == "" {
		errs = append(errs, fmt.Errorf("store.path is required"))
	}
	if c.Store.PoolSize < 0 {
		errs = append(errs, fmt.Errorf("store.pool_size must not be negative"))
	}
	if c.Agents.ProfilesFile == "" {
		errs = append(errs, fmt.Errorf("agents.profiles_file is required"))
	}
	if c.Turn.HeartbeatPeriod <= 0 {
		errs = append(errs, fmt.Errorf("turn.heartbeat_period must be positive"))
	}
	if c.Turn.MaxAttachments <= 0 {
		errs = append(errs, fmt.Errorf("turn.max_attachments must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

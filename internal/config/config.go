// Package config loads the installer's configuration file.
//
// Configuration is YAML with defaults for every field, so an empty or
// missing file yields a usable configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "30s" or "250ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the installer configuration.
type Config struct {
	// Store holds journal settings.
	Store struct {
		// Path is the SQLite journal location.
		Path string `yaml:"path"`
	} `yaml:"store"`

	// Refresh tunes the packages-refresh wait.
	Refresh struct {
		// MaxWait bounds how long a refresh task waits for the runtime's
		// completion notification.
		MaxWait Duration `yaml:"max_wait"`
	} `yaml:"refresh"`

	// Web configures the status surface.
	Web struct {
		// Addr is the listen address for the status server.
		Addr string `yaml:"addr"`
	} `yaml:"web"`

	// Log configures diagnostics.
	Log struct {
		// Level is one of debug, info, warn, error.
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	var c Config
	c.Store.Path = "hotswap.db"
	c.Refresh.MaxWait = Duration(30 * time.Second)
	c.Web.Addr = "127.0.0.1:8372"
	c.Log.Level = "info"
	return c
}

// Load reads a YAML configuration file, applying defaults for anything
// the file omits. A missing file is not an error: the defaults apply.
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if c.Refresh.MaxWait <= 0 {
		return fmt.Errorf("refresh.max_wait must be positive, got %s", c.Refresh.MaxWait.Std())
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path must not be empty")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	return nil
}

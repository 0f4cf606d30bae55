// Package config loads the optional agent configuration file. Every field
// has a default; a missing file is not an error.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const maxConfigBytes = 1 << 20

// Duration makes Go duration syntax ("30s", "5m") usable in yaml fields.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the optional etc/config.yaml.
type Config struct {
	Daemon  DaemonConfig  `yaml:"daemon"`
	Update  UpdateConfig  `yaml:"update"`
	Dnsmasq DnsmasqConfig `yaml:"dnsmasq"`
}

// DaemonConfig tunes the reconcile loop.
type DaemonConfig struct {
	LogLevel string   `yaml:"logLevel"`
	Tick     Duration `yaml:"tick"`
	// MaxFailures is the consecutive-reconcile-failure budget before the
	// daemon exits for the supervisor to restart it.
	MaxFailures int `yaml:"maxFailures"`
	// NetworkWait bounds the default-route readiness gate.
	NetworkWait Duration `yaml:"networkWait"`
}

// UpdateConfig tunes the blocklist compiler.
type UpdateConfig struct {
	// Floor is the safety floor for built-in sources.
	Floor int `yaml:"floor"`
	// CustomFloor, when set, replaces Floor for custom URL and S3
	// sources only.
	CustomFloor int      `yaml:"customFloor"`
	Timeout     Duration `yaml:"timeout"`
}

// DnsmasqConfig carries through to the rendered dnsmasq.conf.
type DnsmasqConfig struct {
	CacheSize int `yaml:"cacheSize"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Daemon: DaemonConfig{
			LogLevel:    "info",
			Tick:        Duration(30 * time.Second),
			MaxFailures: 5,
			NetworkWait: Duration(15 * time.Second),
		},
		Update: UpdateConfig{
			Floor:   1000,
			Timeout: Duration(30 * time.Second),
		},
		Dnsmasq: DnsmasqConfig{CacheSize: 10000},
	}
}

// Load reads path, applying defaults for absent fields. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if info.Size() > maxConfigBytes {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, validate(cfg, path)
}

func validate(cfg *Config, path string) error {
	check := func(ok bool, field, rule string) error {
		if ok {
			return nil
		}
		return fmt.Errorf("%s: %s %s", path, field, rule)
	}
	if err := check(cfg.Update.Floor >= 1, "update.floor", "must be at least 1"); err != nil {
		return err
	}
	if err := check(cfg.Update.CustomFloor >= 0, "update.customFloor", "must not be negative"); err != nil {
		return err
	}
	if err := check(cfg.Daemon.Tick.Std() >= time.Second, "daemon.tick", "must be at least 1s"); err != nil {
		return err
	}
	if err := check(cfg.Daemon.MaxFailures >= 1, "daemon.maxFailures", "must be at least 1"); err != nil {
		return err
	}
	return check(cfg.Dnsmasq.CacheSize >= 0, "dnsmasq.cacheSize", "must not be negative")
}

// FloorFor picks the safety floor for a source class. Built-in catalog
// sources always enforce the default floor; custom URLs may lower it.
func (c *Config) FloorFor(custom bool) int {
	if custom && c.Update.CustomFloor > 0 {
		return c.Update.CustomFloor
	}
	return c.Update.Floor
}

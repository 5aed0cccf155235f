// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mbeema/veil/pkg/spoof"
	"github.com/shirou/gopsutil/v3/host"
	"gopkg.in/yaml.v3"
)

// MaxHostnameLen is the longest spoofed hostname the gethostname contract
// can serve to a standard 64-byte buffer with room for the terminator.
const MaxHostnameLen = 64

// Config is the top-level configuration for the veil daemon.
type Config struct {
	LogLevel string       `yaml:"log_level" env:"VEIL_LOG_LEVEL"`
	Debug    bool         `yaml:"debug"`
	Spoof    SpoofConfig  `yaml:"spoof"`
	Hooks    HooksConfig  `yaml:"hooks"`
	Health   HealthConfig `yaml:"health"`
}

// SpoofConfig carries the synthetic values the hooks will report. Values
// are validated here, upstream of the hook system, which only stores and
// serves them.
type SpoofConfig struct {
	UserID     uint32 `yaml:"user_id"`
	GroupID    uint32 `yaml:"group_id"`
	Hostname   string `yaml:"hostname"`
	SystemName string `yaml:"system_name"`
	Machine    string `yaml:"machine"`
	Release    string `yaml:"release"`
	Version    string `yaml:"version"`
}

// Values converts the config payload to the store's shape.
func (s SpoofConfig) Values() spoof.Values {
	return spoof.Values{
		UID:      s.UserID,
		GID:      s.GroupID,
		Hostname: s.Hostname,
		Sysname:  s.SystemName,
		Machine:  s.Machine,
		Release:  s.Release,
		Version:  s.Version,
	}
}

// HooksConfig selects which hook families the daemon installs.
type HooksConfig struct {
	Identity   Toggle `yaml:"identity"`
	Group      Toggle `yaml:"group"`
	Hostname   Toggle `yaml:"hostname"`
	SystemInfo Toggle `yaml:"system_info"`
}

type Toggle struct {
	Enabled bool `yaml:"enabled"`
}

// HealthConfig configures the health HTTP server.
type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    string `yaml:"port" env:"VEIL_HEALTH_PORT"` // e.g. ":8697"
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// overlayFiles are the recognized files of a config directory, in merge
// order: base.yaml (log_level, debug, health), spoof.yaml (spoof values),
// hooks.yaml (hook family toggles).
var overlayFiles = []string{"base.yaml", "spoof.yaml", "hooks.yaml"}

// LoadDir loads the overlay files from a directory and merges them into a
// single Config. Missing files are silently ignored (defaults apply).
func LoadDir(dir string) (*Config, error) {
	cfg := DefaultConfig()

	for _, f := range overlayFiles {
		if err := loadFileInto(filepath.Join(dir, f), cfg); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// loadFileInto reads a YAML file and unmarshals it into an existing Config,
// overwriting only the fields present in the file.
func loadFileInto(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// DefaultConfig returns a configuration seeded from the real host: an
// unconfigured field masks nothing, it reports what the system would have
// reported anyway.
func DefaultConfig() *Config {
	cfg := &Config{
		LogLevel: "info",
		Spoof: SpoofConfig{
			UserID:     realUID(),
			GroupID:    realGID(),
			Hostname:   "localhost",
			SystemName: "Linux",
			Machine:    "x86_64",
		},
		Hooks: HooksConfig{
			Identity:   Toggle{Enabled: true},
			Group:      Toggle{Enabled: true},
			Hostname:   Toggle{Enabled: true},
			SystemInfo: Toggle{Enabled: true},
		},
		Health: HealthConfig{
			Enabled: true,
			Port:    ":8697",
		},
	}

	if info, err := host.Info(); err == nil {
		cfg.Spoof.Hostname = info.Hostname
		if info.OS != "" {
			cfg.Spoof.SystemName = strings.ToUpper(info.OS[:1]) + info.OS[1:]
		}
		cfg.Spoof.Machine = info.KernelArch
		cfg.Spoof.Release = info.KernelVersion
		cfg.Spoof.Version = info.PlatformVersion
	}

	return cfg
}

func realUID() uint32 {
	if uid := os.Getuid(); uid >= 0 {
		return uint32(uid)
	}
	return 0
}

func realGID() uint32 {
	if gid := os.Getgid(); gid >= 0 {
		return uint32(gid)
	}
	return 0
}

// ApplyEnvOverrides reads VEIL_* environment variables and applies them to
// the config, overriding YAML values.
func (c *Config) ApplyEnvOverrides() {
	stringOverrides := map[string]*string{
		"VEIL_LOG_LEVEL":         &c.LogLevel,
		"VEIL_HEALTH_PORT":       &c.Health.Port,
		"VEIL_SPOOF_HOSTNAME":    &c.Spoof.Hostname,
		"VEIL_SPOOF_SYSTEM_NAME": &c.Spoof.SystemName,
		"VEIL_SPOOF_MACHINE":     &c.Spoof.Machine,
		"VEIL_SPOOF_RELEASE":     &c.Spoof.Release,
		"VEIL_SPOOF_VERSION":     &c.Spoof.Version,
	}
	for key, target := range stringOverrides {
		if val := os.Getenv(key); val != "" {
			*target = val
		}
	}

	uintOverrides := map[string]*uint32{
		"VEIL_SPOOF_USER_ID":  &c.Spoof.UserID,
		"VEIL_SPOOF_GROUP_ID": &c.Spoof.GroupID,
	}
	for key, target := range uintOverrides {
		if val := os.Getenv(key); val != "" {
			if n, err := strconv.ParseUint(val, 10, 32); err == nil {
				*target = uint32(n)
			}
		}
	}

	boolOverrides := map[string]*bool{
		"VEIL_DEBUG":            &c.Debug,
		"VEIL_HEALTH_ENABLED":   &c.Health.Enabled,
		"VEIL_HOOK_IDENTITY":    &c.Hooks.Identity.Enabled,
		"VEIL_HOOK_GROUP":       &c.Hooks.Group.Enabled,
		"VEIL_HOOK_HOSTNAME":    &c.Hooks.Hostname.Enabled,
		"VEIL_HOOK_SYSTEM_INFO": &c.Hooks.SystemInfo.Enabled,
	}
	for key, target := range boolOverrides {
		if val := os.Getenv(key); val != "" {
			*target = parseBool(val)
		}
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes"
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Hooks.Hostname.Enabled {
		if c.Spoof.Hostname == "" {
			return fmt.Errorf("spoof.hostname is required when the hostname hook is enabled")
		}
		if len(c.Spoof.Hostname) > MaxHostnameLen {
			return fmt.Errorf("spoof.hostname exceeds %d characters", MaxHostnameLen)
		}
	}

	if c.Hooks.SystemInfo.Enabled {
		if c.Spoof.SystemName == "" {
			return fmt.Errorf("spoof.system_name is required when the system_info hook is enabled")
		}
		if c.Spoof.Machine == "" {
			return fmt.Errorf("spoof.machine is required when the system_info hook is enabled")
		}
	}

	if c.Health.Enabled && c.Health.Port == "" {
		return fmt.Errorf("health.port is required when the health server is enabled")
	}

	return nil
}

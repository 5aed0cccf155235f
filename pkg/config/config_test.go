// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig should validate: %v", err)
	}
	if !cfg.Hooks.Identity.Enabled {
		t.Error("identity hook should default to enabled")
	}
	if cfg.Spoof.Hostname == "" {
		t.Error("default spoof hostname should be seeded")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "veil.yaml")
	data := `
log_level: debug
spoof:
  user_id: 501
  group_id: 20
  hostname: masked-host
hooks:
  system_info:
    enabled: false
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.Spoof.UserID != 501 || cfg.Spoof.GroupID != 20 {
		t.Errorf("ids = %d/%d, want 501/20", cfg.Spoof.UserID, cfg.Spoof.GroupID)
	}
	if cfg.Spoof.Hostname != "masked-host" {
		t.Errorf("hostname = %q", cfg.Spoof.Hostname)
	}
	if cfg.Hooks.SystemInfo.Enabled {
		t.Error("system_info hook should be disabled")
	}
	// Unset toggles keep their defaults.
	if !cfg.Hooks.Identity.Enabled {
		t.Error("identity hook should stay enabled by default")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load of a missing file should fail")
	}
}

func TestLoadDirOverlays(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "base.yaml"), []byte("log_level: warn\n"), 0644)
	os.WriteFile(filepath.Join(dir, "spoof.yaml"), []byte("spoof:\n  hostname: overlay-host\n"), 0644)

	cfg, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	if cfg.Spoof.Hostname != "overlay-host" {
		t.Errorf("hostname = %q, want overlay-host", cfg.Spoof.Hostname)
	}
}

func TestValidateHostnameLength(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Spoof.Hostname = strings.Repeat("h", MaxHostnameLen+1)
	if err := cfg.Validate(); err == nil {
		t.Fatal("over-long hostname should fail validation")
	}

	cfg.Spoof.Hostname = strings.Repeat("h", MaxHostnameLen)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("64-char hostname should validate: %v", err)
	}
}

func TestValidateHostnameOnlyWhenEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Spoof.Hostname = ""
	cfg.Hooks.Hostname.Enabled = false
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled hostname hook should not require a hostname: %v", err)
	}
}

func TestValidateSystemInfoFields(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Spoof.SystemName = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty system_name with system_info hook enabled should fail")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VEIL_SPOOF_HOSTNAME", "env-host")
	t.Setenv("VEIL_SPOOF_USER_ID", "4242")
	t.Setenv("VEIL_HOOK_GROUP", "false")
	t.Setenv("VEIL_DEBUG", "1")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	if cfg.Spoof.Hostname != "env-host" {
		t.Errorf("hostname = %q, want env-host", cfg.Spoof.Hostname)
	}
	if cfg.Spoof.UserID != 4242 {
		t.Errorf("user id = %d, want 4242", cfg.Spoof.UserID)
	}
	if cfg.Hooks.Group.Enabled {
		t.Error("group hook should be disabled via env")
	}
	if !cfg.Debug {
		t.Error("debug should be enabled via env")
	}
}

func TestSpoofValuesConversion(t *testing.T) {
	s := SpoofConfig{
		UserID:     1,
		GroupID:    2,
		Hostname:   "h",
		SystemName: "Linux",
		Machine:    "x86_64",
		Release:    "6.1.0",
		Version:    "#1 SMP",
	}
	v := s.Values()
	if v.UID != 1 || v.GID != 2 || v.Hostname != "h" || v.Sysname != "Linux" ||
		v.Machine != "x86_64" || v.Release != "6.1.0" || v.Version != "#1 SMP" {
		t.Errorf("Values = %+v", v)
	}
}

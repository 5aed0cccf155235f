// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestOverlayFile(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"base.yaml", true},
		{"/etc/veil/spoof.yaml", true},
		{"/etc/veil/hooks.yaml", true},
		{"/etc/veil/other.yaml", false},
		{"/etc/veil/base.yml", false},
		{"/etc/veil/.base.yaml.swp", false},
	}
	for _, c := range cases {
		if got := overlayFile(c.path); got != c.want {
			t.Errorf("overlayFile(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestWatcherReloadsOnOverlayChange(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.yaml")
	if err := os.WriteFile(base, []byte("log_level: info\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	type reload struct {
		cfg  *Config
		file string
	}
	got := make(chan reload, 4)

	w := NewWatcher(dir, func(cfg *Config, file string) {
		got <- reload{cfg, file}
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	// An unrecognized file must not trigger a reload on its own.
	if err := os.WriteFile(filepath.Join(dir, "notes.yaml"), []byte("x: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	spoofPath := filepath.Join(dir, "spoof.yaml")
	if err := os.WriteFile(spoofPath, []byte("spoof:\n  hostname: reloaded-host\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case r := <-got:
		if r.file != "spoof.yaml" {
			t.Errorf("reload trigger = %q, want spoof.yaml", r.file)
		}
		if r.cfg.Spoof.Hostname != "reloaded-host" {
			t.Errorf("reloaded hostname = %q, want reloaded-host", r.cfg.Spoof.Hostname)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed after overlay change")
	}
}

// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

// Package agent wires configuration, the masking system and the health
// server into the veil daemon.
package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/mbeema/veil/pkg/config"
	"github.com/mbeema/veil/pkg/health"
	"github.com/mbeema/veil/pkg/hook"
	"github.com/mbeema/veil/pkg/spoof"
	"github.com/mbeema/veil/pkg/veil"
	"go.uber.org/zap"
)

// Agent owns one masking System and applies configuration to it. Reload
// updates spoof values live and reconciles which hook families are
// installed; nothing needs a restart.
type Agent struct {
	logger *zap.Logger
	system *veil.System

	healthServer *health.Server
	healthStats  *health.Stats

	mu      sync.Mutex
	cfg     *config.Config
	handles map[veil.Family]hook.Handle
}

// families lists every canned hook family with its config toggle accessor.
var families = []struct {
	family veil.Family
	name   string
	toggle func(*config.Config) bool
}{
	{veil.FamilyIdentity, "identity", func(c *config.Config) bool { return c.Hooks.Identity.Enabled }},
	{veil.FamilyGroup, "group", func(c *config.Config) bool { return c.Hooks.Group.Enabled }},
	{veil.FamilyHostname, "hostname", func(c *config.Config) bool { return c.Hooks.Hostname.Enabled }},
	{veil.FamilySystemInfo, "system_info", func(c *config.Config) bool { return c.Hooks.SystemInfo.Enabled }},
}

// New creates an agent from validated configuration.
func New(cfg *config.Config, logger *zap.Logger) (*Agent, error) {
	return newWithSystem(cfg, logger, veil.New(veil.Options{Logger: logger}))
}

func newWithSystem(cfg *config.Config, logger *zap.Logger, system *veil.System) (*Agent, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}

	a := &Agent{
		logger:  logger,
		system:  system,
		cfg:     cfg,
		handles: make(map[veil.Family]hook.Handle),
	}

	a.healthStats = health.NewStats(system.ActiveHookCount)
	if cfg.Health.Enabled {
		a.healthServer = health.NewServer(
			cfg.Health.Port,
			veil.Version,
			a.healthStats,
			system.ActiveHookNames,
			logger,
		)
	}

	return a, nil
}

// System exposes the underlying masking system.
func (a *Agent) System() *veil.System {
	return a.system
}

// Stats exposes the self-monitoring counters.
func (a *Agent) Stats() *health.Stats {
	return a.healthStats
}

// Start initializes the hook system, installs the configured hook families
// and brings up the health server.
func (a *Agent) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.system.Initialize(); err != nil {
		return fmt.Errorf("initialize hook system: %w", err)
	}

	if err := a.reconcileLocked(a.cfg); err != nil {
		return err
	}

	if a.healthServer != nil {
		if err := a.healthServer.Start(ctx); err != nil {
			return fmt.Errorf("start health server: %w", err)
		}
		a.healthServer.SetReady(true)
	}

	a.logger.Info("agent started",
		zap.Int("active_hooks", a.system.ActiveHookCount()),
		zap.Bool("platform_supported", veil.PlatformSupported()),
	)
	return nil
}

// Stop removes all hooks and shuts down the health server.
func (a *Agent) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.healthServer != nil {
		a.healthServer.SetReady(false)
		if err := a.healthServer.Stop(); err != nil {
			a.logger.Warn("health server stop", zap.Error(err))
		}
	}

	a.system.Cleanup()
	a.handles = make(map[veil.Family]hook.Handle)

	a.logger.Info("agent stopped")
	return nil
}

// Reload applies a new validated configuration: spoof values update live in
// the store, and hook families whose toggle flipped are installed or
// removed.
func (a *Agent) Reload(cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.cfg = cfg
	if err := a.reconcileLocked(cfg); err != nil {
		return err
	}

	a.healthStats.ConfigReloads.Add(1)
	a.logger.Info("configuration applied",
		zap.Int("active_hooks", a.system.ActiveHookCount()),
	)
	return nil
}

// reconcileLocked makes the installed hook set match cfg. Spoof values for
// already-installed families are refreshed through the store, which the
// running handlers observe on their next call.
func (a *Agent) reconcileLocked(cfg *config.Config) error {
	values := cfg.Spoof.Values()
	a.system.SetDebugLogging(cfg.Debug)

	for _, f := range families {
		installed := a.isInstalled(f.family)
		want := f.toggle(cfg)

		switch {
		case want && !installed:
			h, err := a.install(f.family, values)
			if err != nil {
				a.healthStats.InstallFailures.Add(1)
				return fmt.Errorf("install %s hook: %w", f.name, err)
			}
			a.handles[f.family] = h
			a.healthStats.HooksInstalled.Add(1)
			a.logger.Info("hook installed",
				zap.String("family", f.name),
				zap.String("function", f.family.Symbol()),
			)

		case !want && installed:
			if err := a.system.RemoveHook(a.handles[f.family]); err != nil {
				return fmt.Errorf("remove %s hook: %w", f.name, err)
			}
			delete(a.handles, f.family)
			a.healthStats.HooksRemoved.Add(1)
			a.logger.Info("hook removed", zap.String("family", f.name))

		case want && installed:
			// Refresh the live spoof values only.
			a.refresh(f.family, values)
		}
	}
	return nil
}

func (a *Agent) isInstalled(f veil.Family) bool {
	_, ok := a.handles[f]
	return ok && a.system.IsHooked(f.Symbol())
}

func (a *Agent) install(f veil.Family, v spoof.Values) (hook.Handle, error) {
	switch f {
	case veil.FamilyIdentity:
		return a.system.InstallIdentityHook(v)
	case veil.FamilyGroup:
		return a.system.InstallGroupHook(v)
	case veil.FamilyHostname:
		return a.system.InstallHostnameHook(v)
	case veil.FamilySystemInfo:
		return a.system.InstallSystemInfoHook(v)
	default:
		return hook.Handle{}, hook.ErrInvalidParameter
	}
}

func (a *Agent) refresh(f veil.Family, v spoof.Values) {
	store := a.system.Store()
	switch f {
	case veil.FamilyIdentity:
		store.SetIdentity(v.UID)
	case veil.FamilyGroup:
		store.SetGroup(v.GID)
	case veil.FamilyHostname:
		store.SetHostname(v.Hostname)
	case veil.FamilySystemInfo:
		store.SetSystemInfo(v.Sysname, v.Machine, v.Release, v.Version, v.Hostname)
	}
}

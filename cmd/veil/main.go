// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

// veil is the identity-masking daemon. It installs the configured hook
// families on startup, serves health checks, and reloads spoof values
// live on SIGHUP or, in directory mode, whenever an overlay file changes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mbeema/veil/pkg/agent"
	"github.com/mbeema/veil/pkg/config"
	"github.com/mbeema/veil/pkg/veil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var defaultConfigPaths = []string{
	"configs/veil.yaml",
	"/etc/veil/veil.yaml",
	"/etc/veil.yaml",
}

const shutdownTimeout = 30 * time.Second

func main() {
	var (
		configPath  string
		configDir   string
		logLevel    string
		showVersion bool
	)
	flag.StringVar(&configPath, "config", "", "path to configuration file")
	flag.StringVar(&configDir, "config-dir", "", "path to config directory (multi-file mode with auto-reload)")
	flag.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flag.BoolVar(&showVersion, "version", false, "show version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("veil %s\n", veil.Version)
		return
	}

	if err := run(configPath, configDir, logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "veil: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, configDir, logLevel string) error {
	cfg, err := loadConfig(configPath, configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting veil daemon",
		zap.String("version", veil.Version),
		zap.Bool("platform_supported", veil.PlatformSupported()),
	)

	a, err := agent.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("start agent: %w", err)
	}

	var watcher *config.Watcher
	if configDir != "" {
		watcher = config.NewWatcher(configDir, func(newCfg *config.Config, changedFile string) {
			if err := a.Reload(newCfg); err != nil {
				logger.Error("failed to apply reloaded config",
					zap.String("file", changedFile),
					zap.Error(err),
				)
			}
		}, logger)
		if err := watcher.Start(ctx); err != nil {
			a.Stop()
			return fmt.Errorf("start config watcher: %w", err)
		}
		defer watcher.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigCh {
		if sig == syscall.SIGHUP {
			logger.Info("received SIGHUP, reloading configuration")
			newCfg, err := loadConfig(configPath, configDir)
			if err != nil {
				logger.Error("failed to reload config", zap.Error(err))
				continue
			}
			if err := a.Reload(newCfg); err != nil {
				logger.Error("failed to apply new config", zap.Error(err))
				continue
			}
			logger.Info("configuration reloaded")
			continue
		}

		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
		return stopWithTimeout(a, logger)
	}
	return nil
}

// stopWithTimeout stops the agent, forcing exit if a hook refuses to
// disengage within the shutdown window.
func stopWithTimeout(a *agent.Agent, logger *zap.Logger) error {
	done := make(chan error, 1)
	go func() { done <- a.Stop() }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		logger.Info("veil daemon stopped")
		return nil
	case <-time.After(shutdownTimeout):
		return fmt.Errorf("shutdown timed out after %s", shutdownTimeout)
	}
}

// loadConfig loads directory mode when dir is set, otherwise the named file,
// otherwise the first default path that exists, otherwise built-in defaults.
func loadConfig(path, dir string) (*config.Config, error) {
	if dir != "" {
		return config.LoadDir(dir)
	}
	if path != "" {
		return config.Load(path)
	}
	for _, p := range defaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return config.Load(p)
		}
	}
	return config.DefaultConfig(), nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(lvl),
		Encoding:         "console",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg.Build()
}

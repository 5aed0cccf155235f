// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadDebounce is how long the watcher waits after the last overlay write
// before reloading. Editors commonly produce several events per save.
const reloadDebounce = 500 * time.Millisecond

// Watcher reloads the merged directory config when an overlay file changes.
// Spoof values applied through the reload take effect on the next
// intercepted call; no hook needs reinstalling.
type Watcher struct {
	dir      string
	onChange func(*Config, string)
	logger   *zap.Logger

	fsw  *fsnotify.Watcher
	done chan struct{}
}

// NewWatcher creates a watcher over a config directory. onChange receives
// the freshly merged config and the overlay file that triggered the reload.
func NewWatcher(dir string, onChange func(*Config, string), logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		dir:      dir,
		onChange: onChange,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start begins watching. The watcher stops when ctx is cancelled or Stop is
// called.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return err
	}
	w.fsw = fsw

	go w.loop(ctx)
	w.logger.Info("config watcher started", zap.String("dir", w.dir))
	return nil
}

// Stop shuts down the watcher.
func (w *Watcher) Stop() {
	close(w.done)
	if w.fsw != nil {
		w.fsw.Close()
	}
}

// loop owns all debounce state. Events arm the timer and record which file
// changed; the reload runs from this goroutine when the timer fires, so no
// state is shared across goroutines.
func (w *Watcher) loop(ctx context.Context) {
	debounce := time.NewTimer(reloadDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	var pending string

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 || !overlayFile(ev.Name) {
				continue
			}
			pending = filepath.Base(ev.Name)
			w.logger.Debug("config file changed", zap.String("file", pending))
			debounce.Reset(reloadDebounce)

		case <-debounce.C:
			w.reload(pending)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))

		case <-ctx.Done():
			return

		case <-w.done:
			return
		}
	}
}

// overlayFile reports whether path names one of the files LoadDir merges.
func overlayFile(path string) bool {
	base := filepath.Base(path)
	for _, f := range overlayFiles {
		if base == f {
			return true
		}
	}
	return false
}

func (w *Watcher) reload(changedFile string) {
	cfg, err := LoadDir(w.dir)
	if err != nil {
		w.logger.Error("config reload failed", zap.String("file", changedFile), zap.Error(err))
		return
	}

	w.logger.Info("config reloaded", zap.String("trigger", changedFile))
	w.onChange(cfg, changedFile)
}

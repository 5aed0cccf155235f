// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package got

import (
	"fmt"
	"sync"

	"github.com/mbeema/veil/pkg/hook"
	"go.uber.org/zap"
)

// Noop is a hook.Mechanism that records engagements without touching process
// memory. It backs unit tests on any host and keeps the registry surface
// usable on platforms where real patching is unavailable.
type Noop struct {
	logger *zap.Logger

	mu      sync.Mutex
	engaged map[string]uintptr // name -> replacement
}

var _ hook.Mechanism = (*Noop)(nil)

// NewNoop creates a no-op mechanism.
func NewNoop(logger *zap.Logger) *Noop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Noop{
		logger:  logger,
		engaged: make(map[string]uintptr),
	}
}

func (n *Noop) Engage(name string, original, replacement uintptr) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, exists := n.engaged[name]; exists {
		return fmt.Errorf("%s already engaged", name)
	}
	n.engaged[name] = replacement

	n.logger.Debug("noop engage",
		zap.String("function", name),
		zap.Uint64("original", uint64(original)),
		zap.Uint64("replacement", uint64(replacement)),
	)
	return nil
}

func (n *Noop) Disengage(name string, _ uintptr) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, exists := n.engaged[name]; !exists {
		return fmt.Errorf("%s not engaged", name)
	}
	delete(n.engaged, name)
	return nil
}

func (n *Noop) Supported() bool { return true }

// NativeTargets is false: nothing ever jumps through a recorded engagement,
// so Go function values are fine as replacements.
func (n *Noop) NativeTargets() bool { return false }

func (n *Noop) Name() string { return "noop" }

// Engaged reports whether the named function is currently recorded as
// redirected, and to what.
func (n *Noop) Engaged(name string) (uintptr, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	addr, ok := n.engaged[name]
	return addr, ok
}

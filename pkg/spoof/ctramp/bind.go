// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

// Package ctramp provides C-callable trampolines for the canned replacement
// handlers. A patched GOT slot is jumped to by plain C calls, which cannot
// land in a Go function value directly; the trampolines here are static C
// functions that re-enter Go through exported callbacks, giving each
// intercepted call a proper runtime context.
//
// The trampolines are process-wide by nature (C function addresses cannot
// close over state), so exactly one Handlers instance is bound at a time.
package ctramp

import (
	"sync/atomic"

	"github.com/mbeema/veil/pkg/spoof"
)

var handlers atomic.Pointer[spoof.Handlers]

// Bind routes the trampolines to h. Must be called before any trampoline
// address is installed; a later Bind redirects all trampolines at once.
func Bind(h *spoof.Handlers) {
	handlers.Store(h)
}

func bound() *spoof.Handlers {
	return handlers.Load()
}

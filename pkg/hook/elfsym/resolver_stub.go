// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

//go:build !linux

package elfsym

import (
	"fmt"
	"runtime"

	"go.uber.org/zap"
)

// Resolver is a stub on platforms without /proc-based symbol resolution.
// Every lookup fails; callers pair it with a no-op mechanism so the registry
// surface stays usable in tests.
type Resolver struct{}

// NewResolver creates the stub resolver.
func NewResolver(_ *zap.Logger) *Resolver {
	return &Resolver{}
}

// Resolve always fails on this platform.
func (r *Resolver) Resolve(name string) (uintptr, error) {
	return 0, fmt.Errorf("symbol resolution not supported on %s", runtime.GOOS)
}

// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

//go:build !linux

package got

import (
	"fmt"
	"runtime"

	"github.com/mbeema/veil/pkg/hook"
	"go.uber.org/zap"
)

// Patcher is unavailable off Linux. Supported reports false, so a registry
// initialized with it fails with the unsupported-platform result.
type Patcher struct{}

var _ hook.Mechanism = (*Patcher)(nil)

// NewPatcher creates the unsupported-platform stub.
func NewPatcher(_ *zap.Logger) *Patcher {
	return &Patcher{}
}

func (p *Patcher) Engage(string, uintptr, uintptr) error {
	return fmt.Errorf("GOT patching not supported on %s", runtime.GOOS)
}

func (p *Patcher) Disengage(string, uintptr) error {
	return fmt.Errorf("GOT patching not supported on %s", runtime.GOOS)
}

func (p *Patcher) Supported() bool { return false }

func (p *Patcher) NativeTargets() bool { return true }

func (p *Patcher) Name() string { return "got" }

// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

//go:build !cgo

package ctramp

// Targets returns nil without cgo: this build has no C-callable trampolines,
// so native mechanisms cannot serve the canned handlers.
func Targets() map[string]uintptr {
	return nil
}

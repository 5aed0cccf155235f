// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

//go:build !linux

package got

import (
	"fmt"
	"runtime"
)

// Detect reports that GOT patching is unavailable off Linux.
func Detect() Support {
	return Support{
		Available: false,
		Arch:      runtime.GOARCH,
		Reason:    fmt.Sprintf("GOT patching requires Linux, running on %s", runtime.GOOS),
	}
}

// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

//go:build linux

package got

import (
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sys/unix"
)

// Detect checks whether the current system supports GOT patching. Requires
// Linux on an architecture whose jump-slot relocations we know how to
// rewrite (amd64, arm64).
func Detect() Support {
	arch := runtime.GOARCH
	kver := kernelVersion()

	switch arch {
	case "amd64", "arm64":
	default:
		return Support{
			Available: false,
			Kernel:    kver,
			Arch:      arch,
			Reason:    fmt.Sprintf("unsupported architecture %s (need amd64 or arm64)", arch),
		}
	}

	return Support{
		Available: true,
		Kernel:    kver,
		Arch:      arch,
	}
}

// kernelVersion returns the running kernel version string.
func kernelVersion() string {
	var uname unix.Utsname
	if err := unix.Uname(&uname); err != nil {
		return "unknown"
	}
	return strings.TrimRight(string(uname.Release[:]), "\x00")
}

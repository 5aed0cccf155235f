// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package hook

// Resolver maps an exported function name to its real address in the
// running process. Implementations include the ELF dynamic-symbol resolver
// (Linux) and a stub for unsupported platforms.
type Resolver interface {
	// Resolve returns the runtime address of the named symbol.
	Resolve(name string) (uintptr, error)
}

// Mechanism performs the actual call redirection for a resolved symbol.
// The registry is mechanism-agnostic: it records what is intercepted and by
// what, and drives Engage/Disengage at install/remove time. Implementations
// include the GOT patcher (Linux) and a no-op recorder for tests and
// unsupported platforms.
type Mechanism interface {
	// Engage redirects future calls of the named symbol from original to
	// replacement. Called under the registry lock; must either fully take
	// effect or fail with no partial redirection.
	Engage(name string, original, replacement uintptr) error

	// Disengage restores the original target for the named symbol.
	Disengage(name string, original uintptr) error

	// Supported reports whether this mechanism can operate on the current
	// platform. Checked once by Registry.Initialize.
	Supported() bool

	// NativeTargets reports whether engaged replacements are jumped to
	// directly by native callers, which restricts replacement addresses to
	// C-callable code. Recording mechanisms return false and accept Go
	// function values.
	NativeTargets() bool

	// Name returns the mechanism name (e.g., "got", "noop").
	Name() string
}

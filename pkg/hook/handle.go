// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package hook

// Handle is an opaque caller-held reference to one active interception.
// It is a value copy: it owns nothing and stays cheap to pass around. The
// (ID, Name) pair is the identity key — a handle left over from a removed
// hook never aliases a later hook on the same symbol, because the new entry
// carries a fresh ID.
type Handle struct {
	ID   uint32
	Name string
}

// Valid reports whether the handle was produced by a successful install.
// The zero Handle is invalid.
func (h Handle) Valid() bool {
	return h.ID != 0 && h.Name != ""
}

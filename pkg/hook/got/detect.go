// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package got

// Support describes whether GOT patching is available on this system.
type Support struct {
	Available bool
	Kernel    string
	Arch      string
	Reason    string // non-empty when Available is false
}

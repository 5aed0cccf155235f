// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

//go:build linux

package got

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// makeWritable flips the page containing addr to read-write and returns the
// page so the caller can restore it. An 8-byte aligned GOT slot never spans
// a page boundary.
func makeWritable(addr uintptr) ([]byte, error) {
	pageSize := uintptr(unix.Getpagesize())
	pageStart := addr &^ (pageSize - 1)
	page := unsafe.Slice((*byte)(unsafe.Pointer(pageStart)), pageSize)

	if err := unix.Mprotect(page, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return nil, err
	}
	return page, nil
}

// restoreReadOnly puts the page back to read-only, the usual protection of a
// RELRO GOT. Best effort: a failure here leaves the page writable but the
// patch itself already took effect.
func restoreReadOnly(page []byte) {
	unix.Mprotect(page, unix.PROT_READ)
}

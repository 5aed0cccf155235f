// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package ctramp

/*
#include <stdint.h>
#include <stddef.h>

extern uint32_t veilTrampGetuid();
extern uint32_t veilTrampGetgid();
extern int veilTrampGethostname(char* name, size_t size);
extern int veilTrampUname(void* buf);

// Trampolines with the exact signatures of the functions they stand in for.
// These are what actually lands in a patched GOT slot.
static uint32_t veil_getuid_trampoline(void) { return veilTrampGetuid(); }
static uint32_t veil_getgid_trampoline(void) { return veilTrampGetgid(); }
static int veil_gethostname_trampoline(char* name, size_t size) { return veilTrampGethostname(name, size); }
static int veil_uname_trampoline(void* buf) { return veilTrampUname(buf); }

static uintptr_t veil_getuid_trampoline_addr(void) { return (uintptr_t)veil_getuid_trampoline; }
static uintptr_t veil_getgid_trampoline_addr(void) { return (uintptr_t)veil_getgid_trampoline; }
static uintptr_t veil_gethostname_trampoline_addr(void) { return (uintptr_t)veil_gethostname_trampoline; }
static uintptr_t veil_uname_trampoline_addr(void) { return (uintptr_t)veil_uname_trampoline; }
*/
import "C"

// Targets returns the C-callable replacement address per target function
// name. The addresses are static for the life of the process.
func Targets() map[string]uintptr {
	return map[string]uintptr{
		"getuid":      uintptr(C.veil_getuid_trampoline_addr()),
		"getgid":      uintptr(C.veil_getgid_trampoline_addr()),
		"gethostname": uintptr(C.veil_gethostname_trampoline_addr()),
		"uname":       uintptr(C.veil_uname_trampoline_addr()),
	}
}

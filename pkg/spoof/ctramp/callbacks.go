// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package ctramp

/*
#include <stdint.h>
#include <stddef.h>
*/
import "C"

import (
	"unsafe"

	"github.com/mbeema/veil/pkg/spoof"
)

// The exported callbacks below are entered from the C trampolines on
// whatever thread the intercepted call happens on. They must stay minimal:
// read the bound handlers, serve the value, return a libc-shaped result.

//export veilTrampGetuid
func veilTrampGetuid() C.uint32_t {
	if h := bound(); h != nil {
		return C.uint32_t(h.Getuid())
	}
	return 0
}

//export veilTrampGetgid
func veilTrampGetgid() C.uint32_t {
	if h := bound(); h != nil {
		return C.uint32_t(h.Getgid())
	}
	return 0
}

//export veilTrampGethostname
func veilTrampGethostname(name *C.char, size C.size_t) C.int {
	h := bound()
	if h == nil || name == nil {
		return -1
	}
	buf := unsafe.Slice((*byte)(unsafe.Pointer(name)), int(size))
	if err := h.Gethostname(buf); err != nil {
		return -1
	}
	return 0
}

//export veilTrampUname
func veilTrampUname(buf unsafe.Pointer) C.int {
	h := bound()
	if h == nil || buf == nil {
		return -1
	}

	var u spoof.Utsname
	if err := h.Uname(&u); err != nil {
		return -1
	}

	// The first five struct utsname fields share the spoof.Utsname layout;
	// any trailing field (glibc domainname) is left untouched.
	out := unsafe.Slice((*byte)(buf), 5*spoof.FieldLen)
	copy(out[0*spoof.FieldLen:], u.Sysname[:])
	copy(out[1*spoof.FieldLen:], u.Nodename[:])
	copy(out[2*spoof.FieldLen:], u.Release[:])
	copy(out[3*spoof.FieldLen:], u.Version[:])
	copy(out[4*spoof.FieldLen:], u.Machine[:])
	return 0
}

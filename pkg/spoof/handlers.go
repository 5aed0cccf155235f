// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package spoof

import (
	"errors"

	"go.uber.org/zap"
)

// FieldLen is the capacity of each fixed Utsname field, terminator included.
// Matches the glibc struct utsname layout.
const FieldLen = 65

// ErrNameTooLong is returned by Gethostname when the configured hostname
// plus its terminator does not fit the caller's buffer.
var ErrNameTooLong = errors.New("hostname does not fit buffer")

// Utsname is the fixed-shape record the system-info handler populates,
// mirroring the target function's contract. Every field is NUL-terminated
// even when the configured source string is longer than the field.
type Utsname struct {
	Sysname  [FieldLen]byte
	Nodename [FieldLen]byte
	Release  [FieldLen]byte
	Version  [FieldLen]byte
	Machine  [FieldLen]byte
}

// Handlers are the canned replacement functions. Each conforms to the shape
// of the system function it replaces and reads the store at call time, so
// configuration updates are visible on the next invocation. Handlers never
// touch the hook registry or its lock.
type Handlers struct {
	store  *Store
	logger *zap.Logger
}

// NewHandlers binds the canned handlers to a store.
func NewHandlers(store *Store, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{store: store, logger: logger}
}

// Getuid returns the configured fake user id.
func (h *Handlers) Getuid() uint32 {
	uid := h.store.identity()
	h.logger.Debug("getuid intercepted", zap.Uint32("uid", uid))
	return uid
}

// Getgid returns the configured fake group id.
func (h *Handlers) Getgid() uint32 {
	gid := h.store.group()
	h.logger.Debug("getgid intercepted", zap.Uint32("gid", gid))
	return gid
}

// Gethostname writes the configured hostname into buf, NUL-terminated within
// bounds. Fails with ErrNameTooLong when the name plus terminator does not
// fit; buf is left untouched in that case and is never written past its
// length.
func (h *Handlers) Gethostname(buf []byte) error {
	name := h.store.host()
	if len(buf) <= len(name) {
		return ErrNameTooLong
	}

	copy(buf, name)
	buf[len(name)] = 0

	h.logger.Debug("gethostname intercepted", zap.String("hostname", name))
	return nil
}

// Uname populates every field of u with the configured system information,
// truncating rather than overflowing.
func (h *Handlers) Uname(u *Utsname) error {
	if u == nil {
		return errors.New("nil utsname")
	}

	sysname, machine, release, version, nodename := h.store.systemInfo()
	putField(u.Sysname[:], sysname)
	putField(u.Machine[:], machine)
	putField(u.Release[:], release)
	putField(u.Version[:], version)
	putField(u.Nodename[:], nodename)

	h.logger.Debug("uname intercepted", zap.String("sysname", sysname))
	return nil
}

// putField is the single bounded-copy primitive behind every fixed field:
// copy at most len(dst)-1 bytes and terminate, deterministically truncating
// oversized sources.
func putField(dst []byte, src string) {
	n := copy(dst[:len(dst)-1], src)
	dst[n] = 0
	for i := n + 1; i < len(dst); i++ {
		dst[i] = 0
	}
}

// FieldString reads a NUL-terminated fixed field back as a Go string.
func FieldString(field []byte) string {
	for i, b := range field {
		if b == 0 {
			return string(field[:i])
		}
	}
	return string(field)
}

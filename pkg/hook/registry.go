// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

// Package hook implements the interception registry: a thread-safe record of
// which exported functions are currently redirected and to what. The registry
// resolves real symbol addresses through an injected Resolver and drives the
// actual redirection through an injected Mechanism, so the same registry
// logic runs against the Linux GOT patcher in production and a no-op
// mechanism in tests.
package hook

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// entry is one active interception. Entries are owned exclusively by the
// registry and never escape by reference.
type entry struct {
	id          uint32
	name        string
	original    uintptr
	replacement uintptr
}

// Registry is the authoritative store of active interceptions. One exclusive
// lock covers every operation, so readers never observe a registry
// mid-mutation and two racing installs for the same symbol are strictly
// ordered. Create one with NewRegistry; the zero value is not usable.
type Registry struct {
	resolver  Resolver
	mechanism Mechanism
	logger    *zap.Logger

	mu          sync.Mutex
	initialized bool
	nextID      uint32
	entries     map[string]*entry
}

// NewRegistry creates a registry bound to the given resolver and mechanism.
// Initialize must be called before any other operation.
func NewRegistry(resolver Resolver, mechanism Mechanism, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		resolver:  resolver,
		mechanism: mechanism,
		logger:    logger,
	}
}

// Initialize verifies platform support and prepares the registry. Idempotent:
// calling it on an initialized registry is a successful no-op.
func (r *Registry) Initialize() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return nil
	}

	if r.mechanism == nil || r.resolver == nil {
		return ErrInvalidParameter
	}
	if !r.mechanism.Supported() {
		return ErrUnsupportedPlatform
	}

	r.entries = make(map[string]*entry)
	r.nextID = 1
	r.initialized = true

	r.logger.Debug("hook registry initialized",
		zap.String("mechanism", r.mechanism.Name()),
	)
	return nil
}

// Install intercepts the named function, redirecting future calls to
// replacement. The resolve, engage and record steps happen in one critical
// section: a failure at any point leaves no partial entry, and a concurrent
// install for the same name deterministically observes ErrAlreadyHooked.
func (r *Registry) Install(name string, replacement uintptr) (Handle, error) {
	if name == "" || replacement == 0 {
		return Handle{}, ErrInvalidParameter
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return Handle{}, ErrNotInitialized
	}
	if _, exists := r.entries[name]; exists {
		return Handle{}, ErrAlreadyHooked
	}

	original, err := r.resolver.Resolve(name)
	if err != nil {
		r.logger.Debug("symbol resolution failed",
			zap.String("function", name),
			zap.Error(err),
		)
		return Handle{}, ErrFunctionNotFound
	}

	if err := r.mechanism.Engage(name, original, replacement); err != nil {
		r.logger.Warn("mechanism engage failed",
			zap.String("function", name),
			zap.Error(err),
		)
		// A mechanism wraps a Result when it knows the precise failure;
		// anything else is reported as a permission problem.
		res := ErrPermissionDenied
		var mres Result
		if errors.As(err, &mres) {
			res = mres
		}
		return Handle{}, res
	}

	e := &entry{
		id:          r.nextID,
		name:        name,
		original:    original,
		replacement: replacement,
	}
	r.nextID++
	r.entries[name] = e

	r.logger.Debug("hook installed",
		zap.String("function", name),
		zap.Uint32("id", e.id),
	)
	return Handle{ID: e.id, Name: name}, nil
}

// Remove disengages the interception identified by handle and discards its
// entry. The handle is matched by both name and id, so a stale handle from a
// removed-and-reinstalled hook fails with ErrNotHooked instead of silently
// removing somebody else's interception. Removing twice with the same handle
// fails the same way.
func (r *Registry) Remove(h Handle) error {
	if !h.Valid() {
		return ErrInvalidParameter
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return ErrNotInitialized
	}

	e, ok := r.entries[h.Name]
	if !ok || e.id != h.ID {
		return ErrNotHooked
	}

	if err := r.mechanism.Disengage(e.name, e.original); err != nil {
		// The entry is discarded regardless: a symbol must never stay
		// recorded as intercepted when the caller asked for removal.
		r.logger.Warn("mechanism disengage failed",
			zap.String("function", e.name),
			zap.Error(err),
		)
	}
	delete(r.entries, h.Name)

	r.logger.Debug("hook removed",
		zap.String("function", h.Name),
		zap.Uint32("id", h.ID),
	)
	return nil
}

// IsHooked reports whether an active interception exists for name.
func (r *Registry) IsHooked(name string) bool {
	if name == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return false
	}
	_, ok := r.entries[name]
	return ok
}

// Original returns the stored real address for the interception identified
// by handle. The second return is false when the handle no longer matches an
// active entry.
func (r *Registry) Original(h Handle) (uintptr, bool) {
	if !h.Valid() {
		return 0, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return 0, false
	}
	e, ok := r.entries[h.Name]
	if !ok || e.id != h.ID {
		return 0, false
	}
	return e.original, true
}

// ActiveCount returns the number of active interceptions.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return 0
	}
	return len(r.entries)
}

// ActiveNames fills buf with the names of active interceptions and returns
// how many were written. The fill truncates without error when buf is too
// small; size it with ActiveCount first, or use Names.
func (r *Registry) ActiveNames(buf []string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return 0
	}

	n := 0
	for name := range r.entries {
		if n >= len(buf) {
			break
		}
		buf[n] = name
		n++
	}
	return n
}

// Names returns the names of all active interceptions.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return nil
	}

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}

// Cleanup disengages every active interception, discards all entries and
// returns the registry to the uninitialized state. Idempotent and safe with
// zero active hooks. A later Initialize starts with a fresh id counter.
func (r *Registry) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return
	}

	for name, e := range r.entries {
		if err := r.mechanism.Disengage(e.name, e.original); err != nil {
			r.logger.Warn("mechanism disengage failed during cleanup",
				zap.String("function", name),
				zap.Error(err),
			)
		}
	}

	r.entries = nil
	r.nextID = 0
	r.initialized = false

	r.logger.Debug("hook registry cleaned up")
}

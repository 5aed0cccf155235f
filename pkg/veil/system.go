// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

// Package veil is the public surface of the identity-masking system. A
// System composes the hook registry with the spoof configuration store: the
// convenience installers update the store and register the matching canned
// handler in one call, and the generic install/remove/query operations pass
// through to the registry.
package veil

import (
	"os"
	"reflect"

	"github.com/mbeema/veil/pkg/hook"
	"github.com/mbeema/veil/pkg/hook/elfsym"
	"github.com/mbeema/veil/pkg/hook/got"
	"github.com/mbeema/veil/pkg/spoof"
	"github.com/mbeema/veil/pkg/spoof/ctramp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Version is the system version, "major.minor.patch".
const Version = "1.0.0"

// Family identifies one canned hook family.
type Family int

const (
	FamilyIdentity Family = iota
	FamilyGroup
	FamilyHostname
	FamilySystemInfo
)

// Symbol returns the target function name for the family.
func (f Family) Symbol() string {
	switch f {
	case FamilyIdentity:
		return "getuid"
	case FamilyGroup:
		return "getgid"
	case FamilyHostname:
		return "gethostname"
	case FamilySystemInfo:
		return "uname"
	default:
		return ""
	}
}

// Options configures a System. Zero-value fields get platform defaults: the
// ELF symbol resolver and the GOT patcher, with an owned stderr logger whose
// level SetDebugLogging controls.
type Options struct {
	Resolver  hook.Resolver
	Mechanism hook.Mechanism
	Logger    *zap.Logger
}

// System owns one hook registry and one spoof store.
type System struct {
	registry *hook.Registry
	store    *spoof.Store
	handlers *spoof.Handlers
	logger   *zap.Logger
	level    zap.AtomicLevel
	owned    bool // logger built by New; SetDebugLogging drives its level

	// native mechanisms patch real call sites, so canned installs must use
	// the C trampolines in targets instead of Go handler addresses.
	native  bool
	targets map[string]uintptr
}

// New creates a System. Initialize must be called before installing hooks.
func New(opts Options) *System {
	s := &System{
		level: zap.NewAtomicLevelAt(zapcore.InfoLevel),
	}

	if opts.Logger != nil {
		s.logger = opts.Logger
	} else {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.Lock(os.Stderr),
			s.level,
		)
		s.logger = zap.New(core)
		s.owned = true
	}

	resolver := opts.Resolver
	if resolver == nil {
		resolver = elfsym.NewResolver(s.logger)
	}
	mechanism := opts.Mechanism
	if mechanism == nil {
		mechanism = got.NewPatcher(s.logger)
	}

	s.store = spoof.NewStore()
	s.handlers = spoof.NewHandlers(s.store, s.logger)
	s.registry = hook.NewRegistry(resolver, mechanism, s.logger)

	s.native = mechanism.NativeTargets()
	if s.native {
		ctramp.Bind(s.handlers)
		s.targets = ctramp.Targets()
	}
	return s
}

// Initialize prepares the registry. Idempotent.
func (s *System) Initialize() error {
	return s.registry.Initialize()
}

// Cleanup removes every active hook and returns the system to the
// uninitialized state. Idempotent.
func (s *System) Cleanup() {
	s.registry.Cleanup()
}

// InstallHook intercepts an arbitrary function with a caller-supplied
// replacement address.
func (s *System) InstallHook(name string, replacement uintptr) (hook.Handle, error) {
	return s.registry.Install(name, replacement)
}

// RemoveHook removes a previously installed hook.
func (s *System) RemoveHook(h hook.Handle) error {
	return s.registry.Remove(h)
}

// IsHooked reports whether the named function is currently intercepted.
func (s *System) IsHooked(name string) bool {
	return s.registry.IsHooked(name)
}

// Original returns the real address recorded for the hook, if it is still
// active.
func (s *System) Original(h hook.Handle) (uintptr, bool) {
	return s.registry.Original(h)
}

// ActiveHookCount returns the number of active hooks.
func (s *System) ActiveHookCount() int {
	return s.registry.ActiveCount()
}

// ActiveHookNames returns the names of all active hooks.
func (s *System) ActiveHookNames() []string {
	return s.registry.Names()
}

// FillActiveHookNames fills buf with active hook names, truncating without
// error when buf is too small, and returns the count written.
func (s *System) FillActiveHookNames(buf []string) int {
	return s.registry.ActiveNames(buf)
}

// InstallIdentityHook configures the fake user id and intercepts getuid
// with the canned identity handler.
func (s *System) InstallIdentityHook(v spoof.Values) (hook.Handle, error) {
	s.store.SetIdentity(v.UID)
	return s.installCanned(FamilyIdentity)
}

// InstallGroupHook configures the fake group id and intercepts getgid.
func (s *System) InstallGroupHook(v spoof.Values) (hook.Handle, error) {
	s.store.SetGroup(v.GID)
	return s.installCanned(FamilyGroup)
}

// InstallHostnameHook configures the fake hostname and intercepts
// gethostname.
func (s *System) InstallHostnameHook(v spoof.Values) (hook.Handle, error) {
	if v.Hostname == "" {
		return hook.Handle{}, hook.ErrInvalidParameter
	}
	s.store.SetHostname(v.Hostname)
	return s.installCanned(FamilyHostname)
}

// InstallSystemInfoHook configures the fake uname fields and intercepts
// uname.
func (s *System) InstallSystemInfoHook(v spoof.Values) (hook.Handle, error) {
	s.store.SetSystemInfo(v.Sysname, v.Machine, v.Release, v.Version, v.Hostname)
	return s.installCanned(FamilySystemInfo)
}

func (s *System) installCanned(f Family) (hook.Handle, error) {
	addr := s.replacementFor(f)
	if addr == 0 {
		return hook.Handle{}, hook.ErrUnsupportedPlatform
	}
	return s.registry.Install(f.Symbol(), addr)
}

// replacementFor picks the replacement address for a canned family. Native
// mechanisms are jumped to by plain C calls, so only a C trampoline will do;
// a build without trampolines yields 0 and the install is refused. Recording
// mechanisms take the Go handler itself.
func (s *System) replacementFor(f Family) uintptr {
	if s.native {
		return s.targets[f.Symbol()]
	}
	return s.HandlerAddr(f)
}

// Handlers exposes the canned replacement handlers, mainly so foreign
// shims and tests can invoke them directly.
func (s *System) Handlers() *spoof.Handlers {
	return s.handlers
}

// Store exposes the spoof configuration store for live reconfiguration.
func (s *System) Store() *spoof.Store {
	return s.store
}

// HandlerAddr returns an opaque address identifying the canned Go handler
// for a family. It is only a valid replacement for recording mechanisms;
// native mechanisms install the spoof/ctramp trampolines instead.
func (s *System) HandlerAddr(f Family) uintptr {
	switch f {
	case FamilyIdentity:
		return reflect.ValueOf(s.handlers.Getuid).Pointer()
	case FamilyGroup:
		return reflect.ValueOf(s.handlers.Getgid).Pointer()
	case FamilyHostname:
		return reflect.ValueOf(s.handlers.Gethostname).Pointer()
	case FamilySystemInfo:
		return reflect.ValueOf(s.handlers.Uname).Pointer()
	default:
		return 0
	}
}

// PlatformSupported reports whether the default interception mechanism can
// operate on this host.
func PlatformSupported() bool {
	return got.Detect().Available
}

// ResultMessage translates a result code into its static human-readable
// message.
func ResultMessage(code int) string {
	return hook.Result(code).Message()
}

// SetDebugLogging toggles debug traces on the system's owned logger. When
// the caller injected its own logger, level control stays with the caller.
func (s *System) SetDebugLogging(enabled bool) {
	if !s.owned {
		return
	}
	if enabled {
		s.level.SetLevel(zapcore.DebugLevel)
	} else {
		s.level.SetLevel(zapcore.InfoLevel)
	}
}

// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package veil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mbeema/veil/pkg/hook"
	"github.com/mbeema/veil/pkg/hook/got"
	"github.com/mbeema/veil/pkg/spoof"
	"go.uber.org/zap"
)

// staticResolver resolves the canned hook targets to fixed addresses.
type staticResolver struct{}

func (staticResolver) Resolve(name string) (uintptr, error) {
	addrs := map[string]uintptr{
		"getuid":      0x4000,
		"getgid":      0x4010,
		"gethostname": 0x4020,
		"uname":       0x4030,
	}
	if addr, ok := addrs[name]; ok {
		return addr, nil
	}
	return 0, fmt.Errorf("unknown symbol %q", name)
}

func newTestSystem() *System {
	return New(Options{
		Resolver:  staticResolver{},
		Mechanism: got.NewNoop(nil),
		Logger:    zap.NewNop(),
	})
}

func TestHostnameHookScenario(t *testing.T) {
	s := newTestSystem()
	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	h, err := s.InstallHostnameHook(spoof.Values{Hostname: "test-host"})
	if err != nil {
		t.Fatalf("InstallHostnameHook: %v", err)
	}
	if !h.Valid() {
		t.Fatal("handle should be valid")
	}
	if !s.IsHooked("gethostname") {
		t.Fatal("IsHooked(gethostname) = false")
	}

	buf := make([]byte, 64)
	if err := s.Handlers().Gethostname(buf); err != nil {
		t.Fatalf("Gethostname: %v", err)
	}
	if got := spoof.FieldString(buf); got != "test-host" {
		t.Errorf("hostname = %q, want %q", got, "test-host")
	}

	if err := s.RemoveHook(h); err != nil {
		t.Fatalf("RemoveHook: %v", err)
	}
	if s.IsHooked("gethostname") {
		t.Error("IsHooked(gethostname) = true after remove")
	}
}

func TestInstallHostnameHookEmptyName(t *testing.T) {
	s := newTestSystem()
	s.Initialize()

	if _, err := s.InstallHostnameHook(spoof.Values{}); !errors.Is(err, hook.ErrInvalidParameter) {
		t.Fatalf("InstallHostnameHook(empty) = %v, want ErrInvalidParameter", err)
	}
	if s.IsHooked("gethostname") {
		t.Error("failed install must not register a hook")
	}
}

func TestAllConvenienceInstallers(t *testing.T) {
	s := newTestSystem()
	s.Initialize()

	v := spoof.Values{
		UID:      501,
		GID:      20,
		Hostname: "masked",
		Sysname:  "Darwin",
		Machine:  "arm64",
		Release:  "23.1.0",
		Version:  "Darwin Kernel Version 23.1.0",
	}

	installs := []struct {
		name    string
		install func(spoof.Values) (hook.Handle, error)
		symbol  string
	}{
		{"identity", s.InstallIdentityHook, "getuid"},
		{"group", s.InstallGroupHook, "getgid"},
		{"hostname", s.InstallHostnameHook, "gethostname"},
		{"systeminfo", s.InstallSystemInfoHook, "uname"},
	}

	for _, in := range installs {
		h, err := in.install(v)
		if err != nil {
			t.Fatalf("%s install: %v", in.name, err)
		}
		if h.Name != in.symbol {
			t.Errorf("%s handle name = %q, want %q", in.name, h.Name, in.symbol)
		}
		if !s.IsHooked(in.symbol) {
			t.Errorf("IsHooked(%s) = false after %s install", in.symbol, in.name)
		}
	}

	if n := s.ActiveHookCount(); n != 4 {
		t.Errorf("ActiveHookCount = %d, want 4", n)
	}

	if got := s.Handlers().Getuid(); got != 501 {
		t.Errorf("Getuid = %d, want 501", got)
	}
	if got := s.Handlers().Getgid(); got != 20 {
		t.Errorf("Getgid = %d, want 20", got)
	}

	var u spoof.Utsname
	if err := s.Handlers().Uname(&u); err != nil {
		t.Fatalf("Uname: %v", err)
	}
	if got := spoof.FieldString(u.Nodename[:]); got != "masked" {
		t.Errorf("nodename = %q, want %q", got, "masked")
	}

	s.Cleanup()
	if n := s.ActiveHookCount(); n != 0 {
		t.Errorf("ActiveHookCount after Cleanup = %d, want 0", n)
	}
}

func TestDuplicateConvenienceInstall(t *testing.T) {
	s := newTestSystem()
	s.Initialize()

	if _, err := s.InstallIdentityHook(spoof.Values{UID: 1}); err != nil {
		t.Fatalf("first install: %v", err)
	}
	if _, err := s.InstallIdentityHook(spoof.Values{UID: 2}); !errors.Is(err, hook.ErrAlreadyHooked) {
		t.Fatalf("second install = %v, want ErrAlreadyHooked", err)
	}

	// The store update landed before the conflict: live config semantics.
	if got := s.Handlers().Getuid(); got != 2 {
		t.Errorf("Getuid = %d, want 2 (live store update)", got)
	}
}

func TestFillActiveHookNamesTruncates(t *testing.T) {
	s := newTestSystem()
	s.Initialize()

	s.InstallIdentityHook(spoof.Values{UID: 1})
	s.InstallGroupHook(spoof.Values{GID: 1})

	buf := make([]string, 1)
	if n := s.FillActiveHookNames(buf); n != 1 {
		t.Errorf("FillActiveHookNames(len 1) = %d, want 1", n)
	}
	if n := s.FillActiveHookNames(make([]string, 8)); n != 2 {
		t.Errorf("FillActiveHookNames(len 8) = %d, want 2", n)
	}
}

func TestFamilySymbols(t *testing.T) {
	cases := map[Family]string{
		FamilyIdentity:   "getuid",
		FamilyGroup:      "getgid",
		FamilyHostname:   "gethostname",
		FamilySystemInfo: "uname",
		Family(99):       "",
	}
	for f, want := range cases {
		if got := f.Symbol(); got != want {
			t.Errorf("Symbol(%d) = %q, want %q", f, got, want)
		}
	}
}

func TestHandlerAddrsDistinct(t *testing.T) {
	s := newTestSystem()

	seen := map[uintptr]Family{}
	for _, f := range []Family{FamilyIdentity, FamilyGroup, FamilyHostname, FamilySystemInfo} {
		addr := s.HandlerAddr(f)
		if addr == 0 {
			t.Fatalf("HandlerAddr(%d) = 0", f)
		}
		if prev, dup := seen[addr]; dup {
			t.Errorf("families %d and %d share handler address", prev, f)
		}
		seen[addr] = f
	}
	if s.HandlerAddr(Family(99)) != 0 {
		t.Error("unknown family should have no handler address")
	}
}

// nativeRecorder behaves like a call-site patcher: replacements it engages
// are jumped to by plain C calls, so only C-callable addresses are valid.
type nativeRecorder struct {
	engaged map[string]uintptr
}

func (m *nativeRecorder) Engage(name string, target, replacement uintptr) error {
	m.engaged[name] = replacement
	return nil
}

func (m *nativeRecorder) Disengage(name string, original uintptr) error {
	delete(m.engaged, name)
	return nil
}

func (m *nativeRecorder) Supported() bool     { return true }
func (m *nativeRecorder) NativeTargets() bool { return true }
func (m *nativeRecorder) Name() string        { return "native-recorder" }

func TestCannedInstallNativeMechanismAvoidsGoAddresses(t *testing.T) {
	mech := &nativeRecorder{engaged: map[string]uintptr{}}
	s := New(Options{
		Resolver:  staticResolver{},
		Mechanism: mech,
		Logger:    zap.NewNop(),
	})
	s.Initialize()

	h, err := s.InstallIdentityHook(spoof.Values{UID: 7})
	if err != nil {
		// Builds without the C trampolines cannot serve a native mechanism
		// and must refuse the install rather than patch in a Go address.
		if !errors.Is(err, hook.ErrUnsupportedPlatform) {
			t.Fatalf("InstallIdentityHook = %v, want ErrUnsupportedPlatform", err)
		}
		if len(mech.engaged) != 0 {
			t.Fatal("refused install must not engage the mechanism")
		}
		return
	}

	addr := mech.engaged[h.Name]
	if addr == 0 {
		t.Fatal("native mechanism engaged a zero replacement")
	}
	if addr == s.HandlerAddr(FamilyIdentity) {
		t.Error("native mechanism was handed a Go handler address")
	}
}

func TestResultMessage(t *testing.T) {
	if got := ResultMessage(0); got != "success" {
		t.Errorf("ResultMessage(0) = %q", got)
	}
	if got := ResultMessage(-3); got != "function already hooked" {
		t.Errorf("ResultMessage(-3) = %q", got)
	}
}

func TestVersionFormat(t *testing.T) {
	var major, minor, patch int
	if _, err := fmt.Sscanf(Version, "%d.%d.%d", &major, &minor, &patch); err != nil {
		t.Fatalf("Version %q is not major.minor.patch: %v", Version, err)
	}
}

// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

//go:build linux

package elfsym

import "testing"

func TestParseMapsLine(t *testing.T) {
	cases := []struct {
		name       string
		line       string
		wantStart  uint64
		wantOffset uint64
		wantPath   string
		wantOK     bool
	}{
		{
			name:       "executable libc mapping",
			line:       "7f2a3c028000-7f2a3c1bd000 r-xp 00028000 103:02 1835017 /usr/lib/x86_64-linux-gnu/libc.so.6",
			wantStart:  0x7f2a3c028000,
			wantOffset: 0x28000,
			wantPath:   "/usr/lib/x86_64-linux-gnu/libc.so.6",
			wantOK:     true,
		},
		{
			name:   "non-executable mapping skipped",
			line:   "7f2a3c000000-7f2a3c028000 r--p 00000000 103:02 1835017 /usr/lib/x86_64-linux-gnu/libc.so.6",
			wantOK: false,
		},
		{
			name:   "vdso skipped",
			line:   "7ffd3b7d9000-7ffd3b7db000 r-xp 00000000 00:00 0 [vdso]",
			wantOK: false,
		},
		{
			name:   "anonymous executable mapping skipped",
			line:   "7f2a3c200000-7f2a3c300000 rwxp 00000000 00:00 0",
			wantOK: false,
		},
		{
			name:   "garbage",
			line:   "not a maps line",
			wantOK: false,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			start, offset, path, ok := parseMapsLine(c.line)
			if ok != c.wantOK {
				t.Fatalf("ok = %v, want %v", ok, c.wantOK)
			}
			if !ok {
				return
			}
			if start != c.wantStart {
				t.Errorf("start = %#x, want %#x", start, c.wantStart)
			}
			if offset != c.wantOffset {
				t.Errorf("offset = %#x, want %#x", offset, c.wantOffset)
			}
			if path != c.wantPath {
				t.Errorf("path = %q, want %q", path, c.wantPath)
			}
		})
	}
}

func TestResolveEmptyName(t *testing.T) {
	r := NewResolver(nil)
	if _, err := r.Resolve(""); err == nil {
		t.Fatal("Resolve(\"\") should fail")
	}
}

func TestResolveSelf(t *testing.T) {
	// The test binary itself is a mapped ELF object; resolving a symbol
	// that exists nowhere must fail cleanly rather than crash.
	r := NewResolver(nil)
	if _, err := r.Resolve("veil_no_such_symbol_xyzzy"); err == nil {
		t.Fatal("Resolve of a nonexistent symbol should fail")
	}
}

// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package spoof

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestGetuidGetgid(t *testing.T) {
	s := NewStore()
	h := NewHandlers(s, nil)

	s.SetIdentity(501)
	s.SetGroup(20)

	if got := h.Getuid(); got != 501 {
		t.Errorf("Getuid = %d, want 501", got)
	}
	if got := h.Getgid(); got != 20 {
		t.Errorf("Getgid = %d, want 20", got)
	}

	// Live configuration: updates are seen on the next call.
	s.SetIdentity(1000)
	if got := h.Getuid(); got != 1000 {
		t.Errorf("Getuid after update = %d, want 1000", got)
	}
}

func TestGethostnameExactFit(t *testing.T) {
	s := NewStore()
	h := NewHandlers(s, nil)
	s.SetHostname("abc")

	buf := make([]byte, 4)
	if err := h.Gethostname(buf); err != nil {
		t.Fatalf("Gethostname: %v", err)
	}
	want := []byte{'a', 'b', 'c', 0}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("buf = %v, want %v", buf, want)
		}
	}
}

func TestGethostnameTooSmall(t *testing.T) {
	s := NewStore()
	h := NewHandlers(s, nil)
	s.SetHostname("abc")

	buf := []byte{0xff, 0xff, 0xff}
	if err := h.Gethostname(buf); !errors.Is(err, ErrNameTooLong) {
		t.Fatalf("Gethostname = %v, want ErrNameTooLong", err)
	}
	// Buffer untouched on failure.
	for i, b := range buf {
		if b != 0xff {
			t.Errorf("buf[%d] = %#x, want 0xff", i, b)
		}
	}
}

func TestUnamePopulatesAllFields(t *testing.T) {
	s := NewStore()
	h := NewHandlers(s, nil)
	s.SetSystemInfo("Darwin", "arm64", "23.1.0", "Darwin Kernel Version 23.1.0", "test-host")

	var u Utsname
	if err := h.Uname(&u); err != nil {
		t.Fatalf("Uname: %v", err)
	}

	cases := []struct {
		field []byte
		want  string
	}{
		{u.Sysname[:], "Darwin"},
		{u.Machine[:], "arm64"},
		{u.Release[:], "23.1.0"},
		{u.Version[:], "Darwin Kernel Version 23.1.0"},
		{u.Nodename[:], "test-host"},
	}
	for _, c := range cases {
		if got := FieldString(c.field); got != c.want {
			t.Errorf("field = %q, want %q", got, c.want)
		}
	}
}

func TestUnameTruncatesOversizedField(t *testing.T) {
	s := NewStore()
	h := NewHandlers(s, nil)

	long := strings.Repeat("r", FieldLen+5)
	s.SetSystemInfo("Linux", "x86_64", long, "v", "n")

	var u Utsname
	if err := h.Uname(&u); err != nil {
		t.Fatalf("Uname: %v", err)
	}

	got := FieldString(u.Release[:])
	if len(got) != FieldLen-1 {
		t.Errorf("truncated length = %d, want %d", len(got), FieldLen-1)
	}
	if u.Release[FieldLen-1] != 0 {
		t.Error("field must stay terminated even when source overflows")
	}
}

func TestUnameNil(t *testing.T) {
	h := NewHandlers(NewStore(), nil)
	if err := h.Uname(nil); err == nil {
		t.Fatal("Uname(nil) should fail")
	}
}

func TestPutFieldClearsStaleBytes(t *testing.T) {
	dst := make([]byte, 8)
	for i := range dst {
		dst[i] = 0xee
	}
	putField(dst, "ab")

	want := []byte{'a', 'b', 0, 0, 0, 0, 0, 0}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("dst = %v, want %v", dst, want)
		}
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore()
	h := NewHandlers(s, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.SetIdentity(uint32(i))
				s.SetHostname("host")
				h.Getuid()
				buf := make([]byte, 16)
				h.Gethostname(buf)
			}
		}(i)
	}
	wg.Wait()
}

func TestSnapshot(t *testing.T) {
	s := NewStore()
	s.SetIdentity(7)
	s.SetGroup(8)
	s.SetSystemInfo("Linux", "x86_64", "6.1.0", "#1 SMP", "node-1")

	v := s.Snapshot()
	if v.UID != 7 || v.GID != 8 || v.Sysname != "Linux" || v.Hostname != "node-1" {
		t.Errorf("Snapshot = %+v", v)
	}
}

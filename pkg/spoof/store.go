// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

// Package spoof holds the synthetic identity values a masked process reports
// about itself, and the canned replacement handlers that serve them in place
// of getuid, getgid, gethostname and uname.
package spoof

import "sync"

// Store holds the currently configured fake values. Configuration is live:
// a setter called after the corresponding hook is installed is observed by
// the handler on its next invocation. The store has its own short-held
// mutex, separate from the hook registry lock, so handler reads on call-hot
// paths never contend with registry mutation.
type Store struct {
	mu       sync.Mutex
	uid      uint32
	gid      uint32
	hostname string
	sysname  string
	machine  string
	release  string
	version  string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// SetIdentity configures the fake user id.
func (s *Store) SetIdentity(uid uint32) {
	s.mu.Lock()
	s.uid = uid
	s.mu.Unlock()
}

// SetGroup configures the fake group id.
func (s *Store) SetGroup(gid uint32) {
	s.mu.Lock()
	s.gid = gid
	s.mu.Unlock()
}

// SetHostname configures the fake hostname (also reported as the uname
// nodename).
func (s *Store) SetHostname(hostname string) {
	s.mu.Lock()
	s.hostname = hostname
	s.mu.Unlock()
}

// SetSystemInfo configures the fake uname fields. The hostname doubles as
// nodename, matching what a consistent masked system would report.
func (s *Store) SetSystemInfo(sysname, machine, release, version, hostname string) {
	s.mu.Lock()
	s.sysname = sysname
	s.machine = machine
	s.release = release
	s.version = version
	s.hostname = hostname
	s.mu.Unlock()
}

// Values is a point-in-time copy of the configured fields.
type Values struct {
	UID      uint32
	GID      uint32
	Hostname string
	Sysname  string
	Machine  string
	Release  string
	Version  string
}

// Snapshot returns a copy of the current configuration.
func (s *Store) Snapshot() Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Values{
		UID:      s.uid,
		GID:      s.gid,
		Hostname: s.hostname,
		Sysname:  s.sysname,
		Machine:  s.machine,
		Release:  s.release,
		Version:  s.version,
	}
}

func (s *Store) identity() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uid
}

func (s *Store) group() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gid
}

func (s *Store) host() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hostname
}

func (s *Store) systemInfo() (sysname, machine, release, version, nodename string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sysname, s.machine, s.release, s.version, s.hostname
}

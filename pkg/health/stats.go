// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package health

import (
	"runtime"
	"sync/atomic"
	"time"
)

// Stats tracks self-monitoring counters for the daemon.
type Stats struct {
	startTime time.Time

	HooksInstalled  atomic.Int64
	HooksRemoved    atomic.Int64
	InstallFailures atomic.Int64
	ConfigReloads   atomic.Int64

	// ActiveHooks is sampled from the registry at snapshot time.
	activeHooks func() int
}

// NewStats creates a new Stats instance. activeHooks reports the current
// number of active interceptions; nil means zero.
func NewStats(activeHooks func() int) *Stats {
	return &Stats{
		startTime:   time.Now(),
		activeHooks: activeHooks,
	}
}

// Uptime returns daemon uptime.
func (s *Stats) Uptime() time.Duration {
	return time.Since(s.startTime)
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	UptimeSeconds   float64
	Goroutines      int
	MemoryRSSBytes  uint64
	ActiveHooks     int
	HooksInstalled  int64
	HooksRemoved    int64
	InstallFailures int64
	ConfigReloads   int64
}

// Snapshot returns current stats.
func (s *Stats) Snapshot() Snapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	active := 0
	if s.activeHooks != nil {
		active = s.activeHooks()
	}

	return Snapshot{
		UptimeSeconds:   s.Uptime().Seconds(),
		Goroutines:      runtime.NumGoroutine(),
		MemoryRSSBytes:  memStats.Sys,
		ActiveHooks:     active,
		HooksInstalled:  s.HooksInstalled.Load(),
		HooksRemoved:    s.HooksRemoved.Load(),
		InstallFailures: s.InstallFailures.Load(),
		ConfigReloads:   s.ConfigReloads.Load(),
	}
}

// PrometheusMetrics returns stats in Prometheus text exposition format.
func (s *Stats) PrometheusMetrics() string {
	snap := s.Snapshot()
	return prometheusFormat(snap)
}

func prometheusFormat(snap Snapshot) string {
	var b []byte
	b = appendMetric(b, "veil_uptime_seconds", "gauge", "Daemon uptime in seconds", snap.UptimeSeconds)
	b = appendMetric(b, "veil_goroutines", "gauge", "Number of goroutines", float64(snap.Goroutines))
	b = appendMetric(b, "veil_memory_rss_bytes", "gauge", "Memory usage in bytes", float64(snap.MemoryRSSBytes))
	b = appendMetric(b, "veil_active_hooks", "gauge", "Currently active hooks", float64(snap.ActiveHooks))
	b = appendMetric(b, "veil_hooks_installed_total", "counter", "Total hooks installed", float64(snap.HooksInstalled))
	b = appendMetric(b, "veil_hooks_removed_total", "counter", "Total hooks removed", float64(snap.HooksRemoved))
	b = appendMetric(b, "veil_install_failures_total", "counter", "Total failed hook installs", float64(snap.InstallFailures))
	b = appendMetric(b, "veil_config_reloads_total", "counter", "Total config reloads applied", float64(snap.ConfigReloads))
	return string(b)
}

func appendMetric(b []byte, name, typ, help string, value float64) []byte {
	b = append(b, "# HELP "...)
	b = append(b, name...)
	b = append(b, ' ')
	b = append(b, help...)
	b = append(b, '\n')
	b = append(b, "# TYPE "...)
	b = append(b, name...)
	b = append(b, ' ')
	b = append(b, typ...)
	b = append(b, '\n')
	b = append(b, name...)
	b = append(b, ' ')
	b = appendFloat(b, value)
	b = append(b, '\n')
	return b
}

func appendFloat(b []byte, f float64) []byte {
	// Use simple formatting; avoid importing strconv for this
	if f == float64(int64(f)) {
		return append(b, []byte(intToStr(int64(f)))...)
	}
	return append(b, []byte(floatToStr(f))...)
}

func intToStr(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	buf := [20]byte{}
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte(n%10) + '0'
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func floatToStr(f float64) string {
	// Simple 6 decimal place formatting
	neg := f < 0
	if neg {
		f = -f
	}
	whole := int64(f)
	frac := int64((f - float64(whole)) * 1000000)
	if frac < 0 {
		frac = -frac
	}

	s := intToStr(whole) + "."
	fracStr := intToStr(frac)
	for len(fracStr) < 6 {
		fracStr = "0" + fracStr
	}
	s += fracStr

	// Trim trailing zeros after decimal
	for len(s) > 1 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}

	if neg {
		s = "-" + s
	}
	return s
}

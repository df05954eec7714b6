// Package clock publishes a coarsely updated wall-clock reading into
// process-wide storage so that hot paths in expmap never call into the OS
// clock. A single background updater refreshes the published values roughly
// once per millisecond; readers only ever load an atomic.
//
// © 2025 expmap authors. MIT License.
package clock

import (
	"sync"
	"sync/atomic"
	"time"
)

var (
	startOnce sync.Once

	seconds atomic.Uint64
	millis  atomic.Uint64
)

// NowSeconds returns the last value published by the background updater,
// starting it on first use. No system call on the hot path once warm.
func NowSeconds() uint64 {
	ensureStarted()
	if v := seconds.Load(); v != 0 {
		return v
	}
	return uint64(time.Now().Unix())
}

// NowMillis returns the last published millisecond timestamp, starting the
// updater on first use.
func NowMillis() uint64 {
	ensureStarted()
	if v := millis.Load(); v != 0 {
		return v
	}
	return uint64(time.Now().UnixMilli())
}

func ensureStarted() {
	startOnce.Do(func() {
		sample()
		go updateLoop()
	})
}

func sample() {
	now := time.Now()
	seconds.Store(uint64(now.Unix()))
	millis.Store(uint64(now.UnixMilli()))
}

func updateLoop() {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		sample()
	}
}

// Package rwspin implements a reader-writer spinlock with a "strong-writer"
// discipline: an incoming writer claims the inner exclusive spinlock first
// and only then waits for readers to drain, which blocks any reader that
// arrives after the writer has landed. In low-contention situations the lock
// behaves like a plain spinlock; under contention it escalates from a
// CPU-pause busy loop to an OS-assisted sleep.
//
// This is the Go counterpart of libzrvan's RWSpinLock<MaxLoopBeforeSleep,
// StrongWriter> template. Go has no non-type template parameters, so the two
// knobs are constructor options instead (see DESIGN.md).
//
// © 2025 expmap authors. MIT License.
package rwspin

import (
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sys/cpu"
)

const defaultMaxSpins = 10

// innerSpin is the plain exclusive spinlock used to serialise writers. It is
// the Go counterpart of libzrvan's SpinLock<MaxLoopBeforeSleep>.
type innerSpin struct {
	locked atomic.Bool
}

func (s *innerSpin) tryLock() bool {
	return s.locked.CompareAndSwap(false, true)
}

func (s *innerSpin) unlock() {
	s.locked.Store(false)
}

func (s *innerSpin) isLocked() bool {
	return s.locked.Load()
}

// Option configures a Lock at construction time.
type Option func(*Lock)

// WithMaxSpins sets how many busy-wait rounds are attempted before the
// backoff escalates to a 1ns sleep. 0 disables the sleep escalation
// entirely (pure spin).
func WithMaxSpins(n uint32) Option {
	return func(l *Lock) { l.maxSpins = n }
}

// WithWeakWriter disables the strong-writer discipline: Lock() becomes a
// plain retry loop on TryLock, which starves under heavy reader pressure.
// Only use this where the caller has already decided fairness does not
// matter for the lock's critical sections.
func WithWeakWriter() Option {
	return func(l *Lock) { l.strongWriter = false }
}

// Lock is a reader-writer spinlock. The zero value is not usable; construct
// with New.
type Lock struct {
	_ cpu.CacheLinePad

	wlock innerSpin
	users atomic.Int32

	_ cpu.CacheLinePad

	maxSpins     uint32
	strongWriter bool
}

// New constructs a Lock with strong-writer preference and a default spin
// budget of 10 rounds before backing off.
func New(opts ...Option) *Lock {
	l := &Lock{
		maxSpins:     defaultMaxSpins,
		strongWriter: true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Lock) pause(counter *uint32) {
	runtime.Gosched()
	if l.maxSpins == 0 {
		return
	}
	*counter++
	if *counter >= l.maxSpins {
		time.Sleep(time.Nanosecond)
		*counter = 0
	}
}

// RLock acquires the shared (reader) lock, blocking while a writer holds or
// is waiting for the inner exclusive spinlock.
func (l *Lock) RLock() {
	var loop uint32
	for !l.TryRLock() {
		l.pause(&loop)
	}
}

// TryRLock attempts to acquire the shared lock without blocking.
func (l *Lock) TryRLock() bool {
	if l.wlock.isLocked() {
		return false
	}
	l.users.Add(1)
	if l.wlock.isLocked() {
		l.users.Add(-1)
		return false
	}
	return true
}

// RUnlock releases the shared lock.
func (l *Lock) RUnlock() {
	l.users.Add(-1)
}

// Lock acquires the exclusive (writer) lock. With the strong-writer
// discipline (the default) it claims the inner spinlock first, which blocks
// new readers immediately, then drains any readers already in flight.
func (l *Lock) Lock() {
	var loop uint32
	if !l.strongWriter {
		for !l.TryLock() {
			l.pause(&loop)
		}
		return
	}
	l.lockStrong()
}

func (l *Lock) lockStrong() {
	var loop uint32
	for !l.wlock.tryLock() {
		l.pause(&loop)
	}
	loop = 0
	for l.users.Load() != 0 {
		l.pause(&loop)
	}
}

// TryLock attempts to acquire the exclusive lock without blocking. TryLock
// is always "weak": it never waits for readers, it only checks them once.
func (l *Lock) TryLock() bool {
	if l.users.Load() != 0 {
		return false
	}
	if !l.wlock.tryLock() {
		return false
	}
	if l.users.Load() != 0 {
		l.wlock.unlock()
		return false
	}
	return true
}

// Unlock releases the exclusive lock.
func (l *Lock) Unlock() {
	l.wlock.unlock()
}

// Package expmap implements a sharded, thread-safe, in-memory associative
// container with per-entry time-to-live. It is the Go counterpart of
// libzrvan's ExpMap<K,T>: insertions, lookups and deletions hash the key
// once, route to one of N independently locked shards, and mutate a fixed
// width slot chain guarded by a strong-writer reader-writer spinlock.
// Expired entries are reclaimed incrementally by repeatedly calling
// ExpireCheck, which sweeps exactly one shard per call and never blocks.
//
// Typical consumers are session stores, rate-limit counters, negative DNS
// caches and short-lived result caches — workloads where insert/lookup/
// delete vastly outnumber full scans.
//
// Persistence, capacity-based eviction (LRU/LFU), blocking waiters on
// missing keys, stable-order iteration snapshots, cross-shard transactions
// and exact size under contention are explicitly out of scope.
//
// A Map has no finalizer: discarding it runs no Flush callbacks, and its
// slots are simply reclaimed by the garbage collector.
//
// © 2025 expmap authors. MIT License.
package expmap

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Voskan/expmap/internal/clock"
	"github.com/Voskan/expmap/internal/slotlist"
)

// Predicate disambiguates duplicate keys and observes a value under the
// shard's lock. A nil predicate accepts any candidate; returning false
// skips the candidate. The pointer must not be retained past the call.
type Predicate[V any] = slotlist.Predicate[V]

// Map is a sharded, expiring, thread-safe associative container.
// Construct with New; the zero value is not usable.
type Map[K comparable, V any] struct {
	shards []*slotlist.Chain[V]

	hasher         Hasher[K]
	extendOnAccess bool

	size        atomic.Int64
	sweepCursor atomic.Uint32

	logger  *zap.Logger
	metrics metricsSink
}

// New constructs a Map with shardCount independent shards. shardCount must
// be greater than zero; spec.md's default of 256 000 is exposed as
// DefaultShardCount for callers that want the teacher's defaults verbatim.
func New[K comparable, V any](shardCount uint32, opts ...Option[K, V]) (*Map[K, V], error) {
	cfg := defaultConfig[K, V](shardCount)
	if err := applyOptions(cfg, opts); err != nil {
		return nil, err
	}

	m := &Map[K, V]{
		shards:         make([]*slotlist.Chain[V], cfg.shardCount),
		hasher:         cfg.hasher,
		extendOnAccess: cfg.extendOnAccess,
		logger:         cfg.logger,
		metrics:        newMetricsSink(cfg.registry),
	}
	for i := range m.shards {
		m.shards[i] = slotlist.New[V](cfg.lockFactory)
		if cfg.preLoad {
			m.shards[i].PreLoad()
		}
	}
	return m, nil
}

func (m *Map[K, V]) shardIndex(h uint64) uint32 {
	return uint32(h % uint64(len(m.shards)))
}

func (m *Map[K, V]) shardFor(h uint64) *slotlist.Chain[V] {
	return m.shards[m.shardIndex(h)]
}

// Add inserts (key, value) with the given TTL in seconds. It always
// succeeds short of a native allocation failure — the slot chain falls
// back to a freshly prepended slot whenever the head is full, per spec §9's
// "infallible-except-OOM" semantics.
func (m *Map[K, V]) Add(key K, value V, ttlSeconds uint32) bool {
	h := m.hasher.Hash(key)
	idx := m.shardIndex(h)
	now := uint32(clock.NowSeconds())

	m.shards[idx].Add(h, value, ttlSeconds, now)
	m.size.Add(1)
	m.metrics.incAdd()
	m.metrics.setSize(m.size.Load())
	return true
}

// AddAndCheck runs one expiration sweep step before inserting, piggy-backing
// TTL reclamation onto the caller's own insertion traffic.
func (m *Map[K, V]) AddAndCheck(key K, value V, ttlSeconds uint32, pred Predicate[V]) bool {
	m.ExpireCheck(0, pred)
	return m.Add(key, value, ttlSeconds)
}

// Remove deletes the first entry matching key and pred. Removal is
// idempotent: a second call for the same key returns false.
func (m *Map[K, V]) Remove(key K, pred Predicate[V]) bool {
	h := m.hasher.Hash(key)
	idx := m.shardIndex(h)

	ok := m.shards[idx].Remove(h, pred)
	if ok {
		m.size.Add(-1)
		m.metrics.incRemoveHit()
		m.metrics.setSize(m.size.Load())
	}
	return ok
}

// FindR looks up key under the shard's shared lock. pred receives the value
// by reference for read-only inspection; the reference must not be retained
// past the call. With extend-on-access enabled (the default) a match
// refreshes the entry's access time while holding only the shared lock, so
// concurrent FindR calls on the same entry may race on that write; the
// written value only affects when the entry expires.
func (m *Map[K, V]) FindR(key K, pred Predicate[V]) bool {
	h := m.hasher.Hash(key)
	idx := m.shardIndex(h)
	now := uint32(clock.NowSeconds())

	ok := m.shards[idx].FindR(h, pred, m.extendOnAccess, now)
	if ok {
		m.metrics.incFindHit()
	} else {
		m.metrics.incFindMiss()
	}
	return ok
}

// FindW looks up key under the shard's exclusive lock, so pred may safely
// mutate the value in place through its pointer.
func (m *Map[K, V]) FindW(key K, pred Predicate[V]) bool {
	h := m.hasher.Hash(key)
	idx := m.shardIndex(h)
	now := uint32(clock.NowSeconds())

	ok := m.shards[idx].FindW(h, pred, m.extendOnAccess, now)
	if ok {
		m.metrics.incFindHit()
	} else {
		m.metrics.incFindMiss()
	}
	return ok
}

// ForEach invokes fn once per live entry across every shard and returns the
// number of entries visited. It is not atomic across shards: concurrent
// mutations may be partially observed.
func (m *Map[K, V]) ForEach(fn func(*V)) int {
	total := 0
	for _, s := range m.shards {
		total += s.ForEach(fn)
	}
	return total
}

// ExpireCheck advances the rolling sweep cursor by one shard and asks that
// shard to reclaim expired entries without blocking; it returns the number
// of entries evicted. nowSeconds of 0 samples the coarse clock. Repeated
// calls from timers, request handlers doing piggy-back work, or tests are
// expected to spread the cost of reclamation across the whole shard array.
func (m *Map[K, V]) ExpireCheck(nowSeconds uint32, pred Predicate[V]) int {
	if nowSeconds == 0 {
		nowSeconds = uint32(clock.NowSeconds())
	}

	idx := m.sweepCursor.Add(1) - 1
	shardIdx := idx % uint32(len(m.shards))

	wrapped := m.wrapPredicatePanic(pred)
	start := time.Now()
	n, acquired := m.shards[shardIdx].ExpireCheck(nowSeconds, wrapped)
	m.metrics.observeSweepDuration(time.Since(start))
	if !acquired {
		m.metrics.incLockContended()
		return 0
	}
	if n > 0 {
		m.size.Add(-int64(n))
		m.metrics.addSweepEvictions(n)
		m.metrics.setSize(m.size.Load())
	}
	return n
}

// wrapPredicatePanic logs a recovered predicate panic at Warn before
// re-raising it. The log call runs inside the predicate, while the shard
// lock is still held; the lock is released by the chain's deferred Unlock
// as the re-raised panic unwinds out of Chain.ExpireCheck, satisfying the
// "callbacks are trusted, but locks must still be released" contract.
func (m *Map[K, V]) wrapPredicatePanic(pred Predicate[V]) Predicate[V] {
	if pred == nil {
		return nil
	}
	return func(v *V) (matched bool) {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Warn("expmap: predicate panicked during ExpireCheck", zap.Any("panic", r))
				panic(r)
			}
		}()
		return pred(v)
	}
}

// Flush drains every shard, invoking fn (if non-nil) once per live entry,
// and resets the total size to zero. Flush is idempotent.
func (m *Map[K, V]) Flush(fn func(*V)) {
	for _, s := range m.shards {
		s.Flush(fn)
	}
	m.size.Store(0)
	m.metrics.setSize(0)
}

// Size returns the eventually-consistent total entry count across all
// shards. Exact size under contention is explicitly out of scope.
func (m *Map[K, V]) Size() int {
	return int(m.size.Load())
}

// ShardCount returns the number of independently locked shards.
func (m *Map[K, V]) ShardCount() uint32 {
	return uint32(len(m.shards))
}

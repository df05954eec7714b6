package expmap

// config.go defines the internal configuration object and the set of
// functional options passed to New[K,V]. The pattern follows the teacher's
// pkg/config.go: all fields get sensible defaults, options only ever
// set fields of the config, and the struct itself is never
// exposed — callers only ever touch it through Option[K,V].
//
// © 2025 expmap authors. MIT License.

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Voskan/expmap/internal/fasthash"
	"github.com/Voskan/expmap/internal/rwspin"
)

// DefaultShardCount mirrors spec.md's default of 256 000 shards, chosen so
// that lock contention scales down with O(active-concurrent-ops / shards).
const DefaultShardCount = 256_000

// Hasher turns a caller key into a 64-bit fingerprint. Any implementation
// with this signature is interchangeable with the default FastHash.
type Hasher[K comparable] = fasthash.Hasher[K]

// LockFactory constructs the lock guarding one shard. A custom factory can
// configure that lock (for example with rwspin.WithWeakWriter or
// rwspin.WithMaxSpins); the lock type itself is always *rwspin.Lock, and no
// other lock implementation can be plugged in.
type LockFactory = func() *rwspin.Lock

// Option is a functional option passed to New.
type Option[K comparable, V any] func(*config[K, V])

type config[K comparable, V any] struct {
	shardCount     uint32
	extendOnAccess bool
	preLoad        bool
	hasher         Hasher[K]
	logger         *zap.Logger
	registry       *prometheus.Registry
	lockFactory    LockFactory
}

func defaultConfig[K comparable, V any](shardCount uint32) *config[K, V] {
	return &config[K, V]{
		shardCount:     shardCount,
		extendOnAccess: true,
		preLoad:        true,
		hasher:         fasthash.Default[K]{},
		logger:         zap.NewNop(),
	}
}

// WithExtendOnAccess toggles whether FindR/FindW refresh an entry's
// accessTime on a successful match, measuring TTL from last access instead
// of from insertion. Defaults to true.
func WithExtendOnAccess[K comparable, V any](enabled bool) Option[K, V] {
	return func(c *config[K, V]) { c.extendOnAccess = enabled }
}

// WithPreLoad toggles whether every shard is given one empty slot at
// construction time, trading memory for avoiding the first-insert
// allocation. Defaults to true.
func WithPreLoad[K comparable, V any](enabled bool) Option[K, V] {
	return func(c *config[K, V]) { c.preLoad = enabled }
}

// WithHasher overrides the default FastHash adapter. Any collisions the
// replacement introduces are tolerated: the slot keeps the full 64-bit
// fingerprint and the caller's predicate still disambiguates.
func WithHasher[K comparable, V any](h Hasher[K]) Option[K, V] {
	return func(c *config[K, V]) {
		if h != nil {
			c.hasher = h
		}
	}
}

// WithLogger plugs an external zap.Logger. Map never logs on the hot path
// (Add/Remove/FindR/FindW/ForEach); the only event it emits is a predicate
// panic recovered during ExpireCheck, logged at Warn.
func WithLogger[K comparable, V any](l *zap.Logger) Option[K, V] {
	return func(c *config[K, V]) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics enables Prometheus metrics collection. Passing nil disables
// metrics (the default): the hot path then never pays for metric updates.
func WithMetrics[K comparable, V any](reg *prometheus.Registry) Option[K, V] {
	return func(c *config[K, V]) { c.registry = reg }
}

// WithLock overrides how the rwspin.Lock of every shard is constructed
// (default: rwspin.New(), strong-writer). The factory must return a
// *rwspin.Lock; a different primitive such as sync.RWMutex cannot be used.
func WithLock[K comparable, V any](factory LockFactory) Option[K, V] {
	return func(c *config[K, V]) {
		if factory != nil {
			c.lockFactory = factory
		}
	}
}

func applyOptions[K comparable, V any](cfg *config[K, V], opts []Option[K, V]) error {
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.shardCount == 0 {
		return errInvalidShardCount
	}
	return nil
}

var errInvalidShardCount = errors.New("expmap: shard count must be > 0")

// Package bench provides reproducible micro‑benchmarks for expmap.
// Run via:  go test ./bench -bench=. -benchmem -cpu 1,4,16
//
// The benchmarks intentionally use a single key/value shape so results are
// comparable across versions:
//   • Key   – uint64  (cheap hashing, fits in register)
//   • Value – 64‑byte struct (large enough to matter, small enough for cache)
//
// We measure:
//   1. Add            – write‑only workload
//   2. FindR           – read‑only workload (after warm‑up)
//   3. FindRParallel   – highly concurrent reads (b.RunParallel)
//   4. RemoveThenAdd   – remove followed by re‑insert of the same key
//   5. ExpireCheck     – sweep‑only workload over an already‑expired map
//
// NOTE: Unit tests live in ./pkg; this file is only for performance.
//
// © 2025 expmap authors. MIT License.

package bench

import (
	"math/rand"
	"runtime"
	"testing"
	"time"

	expmap "github.com/Voskan/expmap/pkg"
)

/* -------------------------------------------------------------------------
   Test harness helpers
   ------------------------------------------------------------------------- */

type value64 struct {
	_ [64]byte
}

const (
	shards     = 1024
	ttlSeconds = 60
	keys       = 1 << 20 // 1M keys for dataset
)

func newBenchMap() *expmap.Map[uint64, value64] {
	m, err := expmap.New[uint64, value64](shards)
	if err != nil {
		panic(err)
	}
	return m
}

// global dataset reused across benches to avoid reallocating large slices.
// It draws from its own fixed-seed source: package variables are initialised
// before init() runs, so seeding the global Rand there would come too late.
var ds = func() []uint64 {
	rng := rand.New(rand.NewSource(42))
	arr := make([]uint64, keys)
	for i := range arr {
		arr[i] = rng.Uint64()
	}
	return arr
}()

/* -------------------------------------------------------------------------
   Benchmarks
   ------------------------------------------------------------------------- */

func BenchmarkAdd(b *testing.B) {
	m := newBenchMap()
	val := value64{}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := ds[i&(keys-1)]
		m.Add(key, val, ttlSeconds)
	}
}

func BenchmarkFindR(b *testing.B) {
	m := newBenchMap()
	val := value64{}
	for _, k := range ds {
		m.Add(k, val, ttlSeconds)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := ds[i&(keys-1)]
		m.FindR(k, nil)
	}
}

func BenchmarkFindRParallel(b *testing.B) {
	m := newBenchMap()
	val := value64{}
	for _, k := range ds {
		m.Add(k, val, ttlSeconds)
	}
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		idx := rand.Intn(keys)
		for pb.Next() {
			idx = (idx + 1) & (keys - 1)
			m.FindR(ds[idx], nil)
		}
	})
}

func BenchmarkRemoveThenAdd(b *testing.B) {
	m := newBenchMap()
	val := value64{}
	for _, k := range ds {
		m.Add(k, val, ttlSeconds)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := ds[i&(keys-1)]
		m.Remove(k, nil)
		m.Add(k, val, ttlSeconds)
	}
}

// BenchmarkExpireCheck measures the cost of a single non‑blocking sweep step
// over an already fully expired map, rotating through shards call by call.
func BenchmarkExpireCheck(b *testing.B) {
	m := newBenchMap()
	val := value64{}
	for _, k := range ds {
		m.Add(k, val, 0) // TTL 0: expired for any sweep time after the insertion second
	}
	deadline := uint32(time.Now().Unix()) + 1

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.ExpireCheck(deadline, nil)
	}
}

/* -------------------------------------------------------------------------
   Utility – process setup (the dataset above uses its own seeded source)
   ------------------------------------------------------------------------- */

func init() {
	rand.Seed(42)
	runtime.GOMAXPROCS(runtime.NumCPU())
}

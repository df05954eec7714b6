package expmap

// metrics.go mirrors the teacher's thin Prometheus abstraction: when the
// caller passes a *prometheus.Registry via WithMetrics, a handful of
// map-wide counters/gauges/histogram are created and registered; otherwise a
// no-op sink is used so the hot path never pays for metric bookkeeping.
//
// The teacher's own per-shard labels (pkg/cache.go) were safe because it
// bounded shard count to a uint8 (≤256 series per vec). This module's
// default shard count is 256 000, so a per-shard label here would blow up
// into roughly 2M Prometheus series across these eight metrics — an
// operability footgun the teacher's design never exposed. Metrics are
// aggregated map-wide instead; per-shard counts are not exported. See
// DESIGN.md.
//
// © 2025 expmap authors. MIT License.

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsSink abstracts the concrete backend (Prometheus vs noop) away from
// Map; it is not part of the public API.
type metricsSink interface {
	incAdd()
	incRemoveHit()
	incFindHit()
	incFindMiss()
	addSweepEvictions(n int)
	observeSweepDuration(d time.Duration)
	setSize(n int64)
	incLockContended()
}

type noopMetrics struct{}

func (noopMetrics) incAdd()                            {}
func (noopMetrics) incRemoveHit()                      {}
func (noopMetrics) incFindHit()                        {}
func (noopMetrics) incFindMiss()                       {}
func (noopMetrics) addSweepEvictions(int)              {}
func (noopMetrics) observeSweepDuration(time.Duration) {}
func (noopMetrics) setSize(int64)                      {}
func (noopMetrics) incLockContended()                  {}

type promMetrics struct {
	adds           prometheus.Counter
	removeHits     prometheus.Counter
	findHits       prometheus.Counter
	findMisses     prometheus.Counter
	sweepEvictions prometheus.Counter
	lockContended  prometheus.Counter
	sweepDuration  prometheus.Histogram
	size           prometheus.Gauge
}

func newPromMetrics(reg *prometheus.Registry) *promMetrics {
	pm := &promMetrics{
		adds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "expmap",
			Name:      "adds_total",
			Help:      "Number of successful Add calls across all shards.",
		}),
		removeHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "expmap",
			Name:      "remove_hits_total",
			Help:      "Number of Remove calls that actually removed an entry.",
		}),
		findHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "expmap",
			Name:      "find_hits_total",
			Help:      "Number of FindR/FindW calls that matched an entry.",
		}),
		findMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "expmap",
			Name:      "find_misses_total",
			Help:      "Number of FindR/FindW calls that matched nothing.",
		}),
		sweepEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "expmap",
			Name:      "sweep_evictions_total",
			Help:      "Number of entries reclaimed by ExpireCheck.",
		}),
		lockContended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "expmap",
			Name:      "sweep_lock_contended_total",
			Help:      "Number of ExpireCheck calls that skipped a shard because its lock was held.",
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "expmap",
			Name:      "sweep_duration_seconds",
			Help:      "Latency of a single ExpireCheck call's shard sweep.",
			Buckets:   prometheus.DefBuckets,
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "expmap",
			Name:      "size",
			Help:      "Total number of live entries across all shards.",
		}),
	}

	reg.MustRegister(pm.adds, pm.removeHits, pm.findHits, pm.findMisses,
		pm.sweepEvictions, pm.lockContended, pm.sweepDuration, pm.size)
	return pm
}

func (m *promMetrics) incAdd()                       { m.adds.Inc() }
func (m *promMetrics) incRemoveHit()                 { m.removeHits.Inc() }
func (m *promMetrics) incFindHit()                   { m.findHits.Inc() }
func (m *promMetrics) incFindMiss()                  { m.findMisses.Inc() }
func (m *promMetrics) addSweepEvictions(n int)       { m.sweepEvictions.Add(float64(n)) }
func (m *promMetrics) incLockContended()             { m.lockContended.Inc() }
func (m *promMetrics) observeSweepDuration(d time.Duration) {
	m.sweepDuration.Observe(d.Seconds())
}
func (m *promMetrics) setSize(n int64) { m.size.Set(float64(n)) }

// newMetricsSink picks the implementation. reg==nil disables metrics.
func newMetricsSink(reg *prometheus.Registry) metricsSink {
	if reg == nil {
		return noopMetrics{}
	}
	return newPromMetrics(reg)
}

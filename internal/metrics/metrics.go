// Package metrics holds the lock-free counters and latency histogram used by
// the engine hot paths. Everything here is allocation-free after construction.
package metrics

import (
	"sync/atomic"
	"time"
)

// MetricID indexes a single counter or histogram slot.
type MetricID uint16

const (
	// MetricLoginSuccess counts credential verifications that issued a token pair.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected login attempts, unknown users included.
	MetricLoginFailure
	// MetricRefreshSuccess counts rotations that produced a new token pair.
	MetricRefreshSuccess
	// MetricRefreshFailure counts refresh attempts rejected for any reason.
	MetricRefreshFailure
	// MetricRefreshReuseDetected counts rotations that lost the compare-and-swap,
	// which is the observable signature of a replayed refresh token.
	MetricRefreshReuseDetected
	// MetricAuthorizeDenied counts bearer checks that failed the role gate.
	MetricAuthorizeDenied
	// MetricTokenExpired counts bearer checks rejected for expiry.
	MetricTokenExpired
	// MetricSessionCreated counts refresh registry registrations.
	MetricSessionCreated
	// MetricSessionInvalidated counts registry entries removed by logout or revocation.
	MetricSessionInvalidated
	// MetricLogout counts single-session logout operations.
	MetricLogout
	// MetricLogoutAll counts logout-all operations.
	MetricLogoutAll
	// MetricPasswordChangeSuccess counts completed password changes.
	MetricPasswordChangeSuccess
	// MetricPasswordChangeInvalidOld counts password changes rejected on the old password.
	MetricPasswordChangeInvalidOld
	// MetricLegacyHashUpgraded counts stored digests rewritten to the modern format on login.
	MetricLegacyHashUpgraded
	// MetricValidateLatency is the bearer validation latency histogram.
	MetricValidateLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

// paddedCounter keeps each counter on its own cache line so concurrent
// increments of different metrics do not false-share.
type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Config controls which instruments are live.
type Config struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// Metrics is the fixed-size instrument set. A nil *Metrics is valid and inert,
// so callers never need to guard emission sites.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// Snapshot is a point-in-time copy of every instrument.
type Snapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// New builds the instrument set for the given config.
func New(cfg Config) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are live.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the validation histogram is live.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter. No-op when disabled or out of range.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records a validation latency sample.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricValidateLatency {
		return
	}
	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value reads a single counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// SnapshotNow copies every instrument. Counters and histogram buckets are read
// with atomic loads; the snapshot is internally consistent per instrument, not
// across instruments.
func (m *Metrics) SnapshotNow() Snapshot {
	if m == nil || !m.enabled {
		return Snapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := Snapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricValidateLatency].buckets[i])
		}
		s.Histograms[MetricValidateLatency] = buckets
	}

	return s
}

// BucketCount reports the fixed histogram width.
func BucketCount() int {
	return histBucketCount
}

// IDCount reports the number of defined metric slots.
func IDCount() int {
	return int(metricIDCount)
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}

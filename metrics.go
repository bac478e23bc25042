package authcoord

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one coordinator counter or histogram.
type MetricID uint16

const (
	// MetricLoginSuccess counts completed password logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected or failed logins.
	MetricLoginFailure
	// MetricRegisterSuccess counts completed registrations.
	MetricRegisterSuccess
	// MetricRegisterFailure counts rejected or failed registrations.
	MetricRegisterFailure
	// MetricLogout counts local logouts, regardless of server notification
	// outcome.
	MetricLogout
	// MetricLogoutNotifyFailed counts logouts whose server notification
	// failed.
	MetricLogoutNotifyFailed
	// MetricRefreshSuccess counts completed session refreshes.
	MetricRefreshSuccess
	// MetricRefreshRejected counts refreshes the server refused.
	MetricRefreshRejected
	// MetricRefreshTransient counts refresh attempts that failed without a
	// verdict.
	MetricRefreshTransient
	// MetricValidateAccepted counts server confirmations of the session.
	MetricValidateAccepted
	// MetricValidateRejected counts authoritative session invalidations.
	MetricValidateRejected
	// MetricValidateTransient counts validation attempts with no verdict.
	MetricValidateTransient
	// MetricLinkSuccess counts completed account links.
	MetricLinkSuccess
	// MetricLinkFailure counts rejected or failed account links.
	MetricLinkFailure
	// MetricHydrationRestored counts startups that restored a valid session.
	MetricHydrationRestored
	// MetricHydrationCorrupt counts startups that discarded a corrupt record.
	MetricHydrationCorrupt
	// MetricCSRFRotations counts locally adopted token rotations.
	MetricCSRFRotations
	// MetricCSRFStaleRejected counts remote rotations discarded for carrying
	// a non-advancing sequence.
	MetricCSRFStaleRejected
	// MetricBusPublished counts broadcast messages sent.
	MetricBusPublished
	// MetricBusApplied counts remote messages applied to local state.
	MetricBusApplied
	// MetricBusMalformed counts remote messages dropped as undecodable.
	MetricBusMalformed
	// MetricStaleResultDiscarded counts in-flight operation results dropped
	// because local state advanced underneath them.
	MetricStaleResultDiscarded
	// MetricValidateLatency is the server-validation latency histogram.
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

// Metrics is a lock-free counter set. A nil *Metrics is a valid no-op
// recorder.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics builds a recorder per cfg. Disabled recorders drop all writes.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether writes are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether latency observations are recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records a latency sample. Only MetricValidateLatency carries a
// histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricValidateLatency {
		return
	}
	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and histogram. Safe under concurrent writes;
// the copy is not atomic across metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
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

package metrics

import (
	"sync/atomic"
	"time"
)

// ID identifies one counter or histogram.
type ID uint16

const (
	// PermissionGranted counts checks that let the request through.
	PermissionGranted ID = iota
	// PermissionDenied counts checks rejected for a missing permission.
	PermissionDenied
	// PermissionFetchFailure counts checks whose flag accessor failed.
	PermissionFetchFailure
	// PermissionInvalidFlag counts checks aborted by an unknown flag or a malformed mask.
	PermissionInvalidFlag
	// StoreWrite counts successful flag store mutations.
	StoreWrite
	// StoreError counts flag store operations that returned an error.
	StoreError
	// TokenIssued counts access tokens signed by the engine.
	TokenIssued
	// TokenRejected counts bearer tokens that failed to parse.
	TokenRejected
	// CheckLatency is the permission check latency histogram.
	CheckLatency
	idCount
)

// BucketCount is the number of histogram buckets.
const BucketCount = 8

const cacheLineSize = 64

type histogram struct {
	buckets [BucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Config enables metric collection.
type Config struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// Metrics holds the counters. The zero value and nil are both disabled.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [idCount]paddedCounter
	histograms    [idCount]histogram
}

// Snapshot is a point-in-time copy of every counter and histogram.
type Snapshot struct {
	Counters   map[ID]uint64
	Histograms map[ID][]uint64
}

// New returns a Metrics configured by cfg.
func New(cfg Config) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id ID) {
	if m == nil || !m.enabled || id >= idCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram id. Only CheckLatency is a histogram.
func (m *Metrics) Observe(id ID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= idCount {
		return
	}
	if id != CheckLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id ID) uint64 {
	if m == nil || id >= idCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies the current values. A disabled Metrics yields empty maps.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil || !m.enabled {
		return Snapshot{
			Counters:   map[ID]uint64{},
			Histograms: map[ID][]uint64{},
		}
	}

	s := Snapshot{
		Counters:   make(map[ID]uint64, int(idCount)),
		Histograms: make(map[ID][]uint64, 1),
	}

	for id := ID(0); id < idCount; id++ {
		if id == CheckLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, BucketCount)
		for i := 0; i < BucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[CheckLatency].buckets[i])
		}
		s.Histograms[CheckLatency] = buckets
	}

	return s
}

// Upper bounds: 50µs, 100µs, 250µs, 500µs, 1ms, 5ms, 25ms, +Inf.
func bucketIndex(d time.Duration) int {
	us := d.Microseconds()

	switch {
	case us <= 50:
		return 0
	case us <= 100:
		return 1
	case us <= 250:
		return 2
	case us <= 500:
		return 3
	case us <= 1000:
		return 4
	case us <= 5000:
		return 5
	case us <= 25000:
		return 6
	default:
		return 7
	}
}

package obs

import (
	"sync/atomic"
	"time"
)

// Metrics collects lightweight counters and latency stats for the
// ingestion path.
type Metrics struct {
	received    uint64
	accepted    uint64
	duplicates  uint64
	implausible uint64
	degraded    uint64
	rejected    [_reason_end]uint64
	queueDrops  uint64
	queueClosed uint64

	handleLatency LatencyStats
	replayLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	Received      uint64
	Accepted      uint64
	Duplicates    uint64
	Implausible   uint64
	Degraded      uint64
	Rejected      map[Reason]uint64
	QueueDrops    uint64
	QueueClosed   uint64
	HandleLatency LatencySnapshot
	ReplayLatency LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// IncReceived counts a decoded venue message.
func (m *Metrics) IncReceived() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.received, 1)
}

// IncAccepted counts a fill that passed normalization and dedup.
func (m *Metrics) IncAccepted() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.accepted, 1)
}

// IncDuplicate counts a suppressed duplicate.
func (m *Metrics) IncDuplicate() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.duplicates, 1)
}

// IncImplausible counts a fill whose timestamp fell outside the expected range.
func (m *Metrics) IncImplausible() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.implausible, 1)
}

// IncDegraded counts a replayed fill emitted with raw fields only.
func (m *Metrics) IncDegraded() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.degraded, 1)
}

// IncRejected counts a rejected message by reason.
func (m *Metrics) IncRejected(reason Reason) {
	if m == nil {
		return
	}
	if !reason.IsAvailable() {
		reason = ReasonOther
	}
	atomic.AddUint64(&m.rejected[reason], 1)
}

// IncQueueDrop records a queue drop.
func (m *Metrics) IncQueueDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueDrops, 1)
}

// IncQueueClosed records a closed-queue publish attempt.
func (m *Metrics) IncQueueClosed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueClosed, 1)
}

// ObserveHandle measures one payload from decode to publish.
func (m *Metrics) ObserveHandle(d time.Duration) {
	if m == nil {
		return
	}
	m.handleLatency.Observe(d)
}

// ObserveReplay measures one group replay.
func (m *Metrics) ObserveReplay(d time.Duration) {
	if m == nil {
		return
	}
	m.replayLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	rejected := make(map[Reason]uint64)
	for i := range m.rejected {
		if v := atomic.LoadUint64(&m.rejected[i]); v > 0 {
			rejected[Reason(i)] = v
		}
	}
	return Snapshot{
		Received:      atomic.LoadUint64(&m.received),
		Accepted:      atomic.LoadUint64(&m.accepted),
		Duplicates:    atomic.LoadUint64(&m.duplicates),
		Implausible:   atomic.LoadUint64(&m.implausible),
		Degraded:      atomic.LoadUint64(&m.degraded),
		Rejected:      rejected,
		QueueDrops:    atomic.LoadUint64(&m.queueDrops),
		QueueClosed:   atomic.LoadUint64(&m.queueClosed),
		HandleLatency: m.handleLatency.Snapshot(),
		ReplayLatency: m.replayLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		low := atomic.LoadUint64(&l.min)
		if low != 0 && nanos >= low {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, low, nanos) {
			break
		}
	}

	for {
		high := atomic.LoadUint64(&l.max)
		if nanos <= high {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, high, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(atomic.LoadUint64(&l.min)),
		Max:   time.Duration(atomic.LoadUint64(&l.max)),
		Avg:   time.Duration(atomic.LoadUint64(&l.sum) / count),
	}
}

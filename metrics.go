package govpi

import (
	"sync/atomic"

	"github.com/verilua-run/govpi/internal/edgecb"
	"github.com/verilua-run/govpi/internal/writebuf"
)

// Stats is the engine's counter block, the re-themed analogue of the
// teacher's Metrics: atomic counters covering the edge callback engine
// and write buffer instead of I/O ops/bytes.
type Stats struct {
	edgeRegistered uint64
	edgeFired      uint64
	edgeMerged     uint64
	edgeChunked    uint64

	writesStaged   uint64
	writesFlushed  uint64
	writesRejected uint64

	clockToggles uint64
}

// NewStats constructs a zeroed Stats block.
func NewStats() *Stats { return &Stats{} }

func (s *Stats) RecordEdgeRegistered() { atomic.AddUint64(&s.edgeRegistered, 1) }
func (s *Stats) RecordEdgeFired()      { atomic.AddUint64(&s.edgeFired, 1) }
func (s *Stats) RecordEdgeMerged()     { atomic.AddUint64(&s.edgeMerged, 1) }
func (s *Stats) RecordEdgeChunked()    { atomic.AddUint64(&s.edgeChunked, 1) }

func (s *Stats) RecordWriteStaged()   { atomic.AddUint64(&s.writesStaged, 1) }
func (s *Stats) RecordWriteFlushed()  { atomic.AddUint64(&s.writesFlushed, 1) }
func (s *Stats) RecordWriteRejected() { atomic.AddUint64(&s.writesRejected, 1) }

func (s *Stats) RecordClockToggle() { atomic.AddUint64(&s.clockToggles, 1) }

// Snapshot is a consistent point-in-time read of Stats, handed to callers
// so they never observe a counter mid-update relative to its neighbors.
type Snapshot struct {
	EdgeRegistered uint64
	EdgeFired      uint64
	EdgeMerged     uint64
	EdgeChunked    uint64
	WritesStaged   uint64
	WritesFlushed  uint64
	WritesRejected uint64
	ClockToggles   uint64
}

// Snapshot reads all counters.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		EdgeRegistered: atomic.LoadUint64(&s.edgeRegistered),
		EdgeFired:      atomic.LoadUint64(&s.edgeFired),
		EdgeMerged:     atomic.LoadUint64(&s.edgeMerged),
		EdgeChunked:    atomic.LoadUint64(&s.edgeChunked),
		WritesStaged:   atomic.LoadUint64(&s.writesStaged),
		WritesFlushed:  atomic.LoadUint64(&s.writesFlushed),
		WritesRejected: atomic.LoadUint64(&s.writesRejected),
		ClockToggles:   atomic.LoadUint64(&s.clockToggles),
	}
}

// Observer receives Stats updates as they happen, the same role the
// teacher's Observer interface plays for its backend metrics.
type Observer interface {
	OnEdgeFired(taskID int)
	OnWriteFlushed(path string)
}

// NoOpObserver discards every event.
type NoOpObserver struct{}

func (NoOpObserver) OnEdgeFired(taskID int)      {}
func (NoOpObserver) OnWriteFlushed(path string) {}

var _ Observer = NoOpObserver{}

// StatsObserver feeds every event into a Stats block.
type StatsObserver struct {
	Stats *Stats
}

func (o StatsObserver) OnEdgeFired(taskID int) { o.Stats.RecordEdgeFired() }
func (o StatsObserver) OnWriteFlushed(path string) { o.Stats.RecordWriteFlushed() }

var _ Observer = StatsObserver{}

// edgeMetrics adapts this engine's Stats/Observer pair to the edgecb.Metrics
// interface edgecb.Engine calls into directly. edgecb cannot import this
// package (it imports edgecb), so the interface lives there and this is the
// concrete type that satisfies it.
type edgeMetrics struct {
	stats    *Stats
	observer Observer
}

func (m edgeMetrics) EdgeFired(taskID int) {
	m.stats.RecordEdgeFired()
	m.observer.OnEdgeFired(taskID)
}
func (m edgeMetrics) EdgeMerged()  { m.stats.RecordEdgeMerged() }
func (m edgeMetrics) EdgeChunked() { m.stats.RecordEdgeChunked() }

var _ edgecb.Metrics = edgeMetrics{}

// writeMetrics adapts this engine's Stats/Observer pair to the
// writebuf.Metrics interface writebuf.Buffer calls into directly, for the
// same import-cycle reason as edgeMetrics.
type writeMetrics struct {
	stats    *Stats
	observer Observer
}

func (m writeMetrics) WriteFlushed(path string) {
	m.stats.RecordWriteFlushed()
	m.observer.OnWriteFlushed(path)
}

var _ writebuf.Metrics = writeMetrics{}

// Package edgecb implements the edge callback engine: the largest
// component, registering one-shot and persistent edge-sensitive VPI
// callbacks with three composable optimizations — deferred registration,
// merge dedup, and chunk fan-in — built on a batched-completion-then-
// submit idiom and a per-tag state machine for the one-shot-vs-persistent
// teardown distinction.
package edgecb

import (
	"fmt"

	"github.com/verilua-run/govpi/internal/handlecache"
	"github.com/verilua-run/govpi/internal/vpiabi"
	"github.com/verilua-run/govpi/internal/vpibridge"
)

// EdgeKind is one of the three edge conditions the engine understands.
type EdgeKind int

const (
	Posedge EdgeKind = iota
	Negedge
	AnyEdge
)

func (k EdgeKind) String() string {
	switch k {
	case Posedge:
		return "posedge"
	case Negedge:
		return "negedge"
	case AnyEdge:
		return "anyedge"
	default:
		return "unknown"
	}
}

// Match reports whether a sampled scalar value satisfies k. Values other
// than 0/1 are a simulator contract error and the caller is
// expected to have already rejected them via DecodeScalar.
func (k EdgeKind) Match(newValue uint8) bool {
	switch k {
	case Posedge:
		return newValue == 1
	case Negedge:
		return newValue == 0
	case AnyEdge:
		return true
	default:
		return false
	}
}

// DecodeScalar validates a raw VPI scalar byte, failing fatally rather
// than silently treating garbage as a non-edge.
func DecodeScalar(raw uint8) (uint8, error) {
	if raw != 0 && raw != 1 {
		return 0, fmt.Errorf("edgecb: invalid scalar value byte %d from simulator", raw)
	}
	return raw, nil
}

// Regime distinguishes persistent ("always") registrations from one-shot
// registrations that remove themselves on fire.
type Regime int

const (
	OneShot Regime = iota
	Always
)

// Options selects which of the three composable optimizations are active.
// The zero value (all false) is the unoptimized baseline: every call to
// Register creates a live VPI subscription immediately.
type Options struct {
	Deferred bool
	Merge    bool
	Chunk    bool
}

// ScriptHost is the upper-edge callback target: the cached script entry
// points this engine invokes on fire.
type ScriptHost interface {
	// SimEvent invokes the script's sim_event(task_id) entry.
	SimEvent(taskID int) error
	// SimEventChunk invokes the script's sim_event_chunk_N entry for
	// whichever N matches len(taskIDs); a single function replaces the
	// original's N=1..16 generated family (out of scope here).
	SimEventChunk(taskIDs []int) error
}

// Metrics receives instrumentation events as the engine fires, merges, and
// chunks edge registrations. Defined locally rather than imported from the
// root govpi package, which imports this one — a direct dependency would
// be a cycle. The root package satisfies this with an adapter over its own
// Stats/Observer pair.
type Metrics interface {
	EdgeFired(taskID int)
	EdgeMerged()
	EdgeChunked()
}

// NoOpMetrics discards every event, the default when NewEngine is handed
// a nil Metrics.
type NoOpMetrics struct{}

func (NoOpMetrics) EdgeFired(taskID int) {}
func (NoOpMetrics) EdgeMerged()          {}
func (NoOpMetrics) EdgeChunked()         {}

var _ Metrics = NoOpMetrics{}

type pendingKey struct {
	handle handlecache.Token
	edge   EdgeKind
}

type pendingEntry struct {
	taskID int
	regime Regime
}

// record is the live state behind one VPI subscription: either a single
// task (no chunking) or a chunk of up to 16.
type record struct {
	id      int
	sub     vpibridge.SubscriptionHandle
	handle  handlecache.Token
	edge    EdgeKind
	regime  Regime
	taskIDs []int
}

// Engine owns the pending-registration maps, the live subscription table,
// and the ID pool for one environment.
type Engine struct {
	cache   *handlecache.Cache
	sim     vpibridge.Simulator
	host    ScriptHost
	opts    Options
	metrics Metrics

	ids *IDPool

	pending map[pendingKey][]pendingEntry
	live    map[int]*record
}

// NewEngine constructs an Engine bound to cache/sim/host with the given
// optimization set and a callback-id pool of the given size. A nil
// metrics is replaced with NoOpMetrics.
func NewEngine(cache *handlecache.Cache, sim vpibridge.Simulator, host ScriptHost, opts Options, idPoolSize int, metrics Metrics) *Engine {
	if metrics == nil {
		metrics = NoOpMetrics{}
	}
	return &Engine{
		cache:   cache,
		sim:     sim,
		host:    host,
		opts:    opts,
		metrics: metrics,
		ids:     NewIDPool(idPoolSize),
		pending: make(map[pendingKey][]pendingEntry),
		live:    make(map[int]*record),
	}
}

// Register requests an edge-sensitive callback for taskID on handle/edge.
// When Options.Deferred is set, the request is queued and only becomes a
// real VPI subscription at the next PromotePending; otherwise it is
// registered immediately.
func (e *Engine) Register(handle handlecache.Token, edge EdgeKind, taskID int, regime Regime) error {
	if e.opts.Deferred {
		key := pendingKey{handle: handle, edge: edge}
		e.pending[key] = append(e.pending[key], pendingEntry{taskID: taskID, regime: regime})
		return nil
	}
	_, err := e.registerOne(handle, edge, []pendingEntry{{taskID: taskID, regime: regime}})
	return err
}

// PromotePending drains every per-signal pending map in a single burst,
// registering the matching VPI subscriptions. It is a no-op
// when deferred registration is disabled.
func (e *Engine) PromotePending() error {
	if len(e.pending) == 0 {
		return nil
	}
	pending := e.pending
	e.pending = make(map[pendingKey][]pendingEntry)

	for key, entries := range pending {
		if e.opts.Merge {
			entries = e.mergeDedup(key, entries)
		}
		if len(entries) == 0 {
			continue
		}
		if e.opts.Chunk {
			for start := 0; start < len(entries); start += vpiabi.MaxChunkSize {
				end := start + vpiabi.MaxChunkSize
				if end > len(entries) {
					end = len(entries)
				}
				if _, err := e.registerOne(key.handle, key.edge, entries[start:end]); err != nil {
					return err
				}
				e.metrics.EdgeChunked()
			}
			continue
		}
		for _, ent := range entries {
			if _, err := e.registerOne(key.handle, key.edge, []pendingEntry{ent}); err != nil {
				return err
			}
		}
	}
	return nil
}

// mergeDedup applies reference-count dedup before registration: a second
// request for the same (signal, edge, task) triple increments the
// handle's count instead of producing a second subscription request.
func (e *Engine) mergeDedup(key pendingKey, entries []pendingEntry) []pendingEntry {
	h, err := e.cache.Get(key.handle)
	if err != nil {
		return entries
	}
	if h.MergeRefs[key.edge] == nil {
		h.MergeRefs[key.edge] = make(map[int]int)
	}
	var fresh []pendingEntry
	for _, ent := range entries {
		count := h.MergeRefs[key.edge][ent.taskID]
		h.MergeRefs[key.edge][ent.taskID] = count + 1
		if count == 0 {
			fresh = append(fresh, ent)
		} else {
			e.metrics.EdgeMerged()
		}
	}
	return fresh
}

func (e *Engine) registerOne(handle handlecache.Token, edge EdgeKind, entries []pendingEntry) (*record, error) {
	h, err := e.cache.Get(handle)
	if err != nil {
		return nil, err
	}

	id, err := e.ids.Alloc()
	if err != nil {
		return nil, err
	}

	regime := OneShot
	taskIDs := make([]int, len(entries))
	for i, ent := range entries {
		taskIDs[i] = ent.taskID
		if ent.regime == Always {
			regime = Always
		}
	}

	rec := &record{id: id, handle: handle, edge: edge, regime: regime, taskIDs: taskIDs}

	sub, err := e.sim.RegisterCallback(vpiabi.CallbackData{
		Reason: vpiabi.CbValueChange,
		Obj:    h.Sim,
	}, func(cb vpiabi.CallbackData) int32 {
		e.fire(rec, cb)
		return 0
	})
	if err != nil {
		e.ids.Release(id)
		return nil, fmt.Errorf("edgecb: registering %s on %q: %w", edge, h.Path, err)
	}
	rec.sub = sub
	e.live[id] = rec
	return rec, nil
}

func (e *Engine) fire(rec *record, cb vpiabi.CallbackData) {
	var raw uint8
	if cb.Value != nil {
		raw = cb.Value.Scalar
	}
	sampled, err := DecodeScalar(raw)
	if err != nil {
		panic(err)
	}
	if !rec.edge.Match(sampled) {
		return
	}

	for _, t := range rec.taskIDs {
		e.metrics.EdgeFired(t)
	}

	var callErr error
	if len(rec.taskIDs) == 1 {
		callErr = e.host.SimEvent(rec.taskIDs[0])
	} else {
		callErr = e.host.SimEventChunk(rec.taskIDs)
	}
	if callErr != nil {
		// A script runtime error during an edge fire is terminal; the
		// caller (lifecycle) is expected to finalize before the process
		// exits. Panicking here lets that unwind
		// through the simulator's callback trampoline.
		panic(callErr)
	}

	if rec.regime == OneShot {
		e.teardown(rec)
	}
}

// teardown removes a fired one-shot subscription, decrementing merge
// reference counts first so a still-referenced task is not torn down out
// from under a concurrent (same-tick) registration.
func (e *Engine) teardown(rec *record) {
	if e.opts.Merge {
		if h, err := e.cache.Get(rec.handle); err == nil && h.MergeRefs[rec.edge] != nil {
			remaining := rec.taskIDs[:0]
			for _, t := range rec.taskIDs {
				h.MergeRefs[rec.edge][t]--
				if h.MergeRefs[rec.edge][t] > 0 {
					remaining = append(remaining, t)
				} else {
					delete(h.MergeRefs[rec.edge], t)
				}
			}
			if len(remaining) > 0 {
				rec.taskIDs = remaining
				return
			}
		}
	}
	_ = e.sim.RemoveCallback(rec.sub)
	delete(e.live, rec.id)
	e.ids.Release(rec.id)
}

// LiveSubscriptionCount reports how many VPI subscriptions are currently
// registered, exposed for tests and finalize statistics.
func (e *Engine) LiveSubscriptionCount() int { return len(e.live) }

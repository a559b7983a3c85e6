// Package writebuf implements the pending-write buffer and its
// force/release arbitration, and the synch-point flusher with
// re-entrance handling: gather staged work, one flush pass, repeat if
// the flush itself staged more writes.
package writebuf

import (
	"fmt"
	"math/rand/v2"

	"github.com/verilua-run/govpi/internal/handlecache"
	"github.com/verilua-run/govpi/internal/vpiabi"
)

// Metrics receives notifications as staged writes are flushed to the
// simulator. Defined locally rather than imported from the root govpi
// package, which imports this one — a direct dependency would be a cycle.
// The root package satisfies this with an adapter over its own Stats/
// Observer pair.
type Metrics interface {
	WriteFlushed(path string)
}

// NoOpMetrics discards every event, the default when NewBuffer is handed
// a nil Metrics.
type NoOpMetrics struct{}

func (NoOpMetrics) WriteFlushed(path string) {}

var _ Metrics = NoOpMetrics{}

// Buffer owns the write-order list(s) for one environment. It never talks
// to the simulator directly; Stage only mutates cached SignalHandle state
// and list membership. Flushing is handled by Buffer.Flush in flush.go.
type Buffer struct {
	cache   *handlecache.Cache
	metrics Metrics

	order  []handlecache.Token
	backup []handlecache.Token
	inBackup bool
}

// NewBuffer constructs an empty write buffer over cache. A nil metrics
// is replaced with NoOpMetrics.
func NewBuffer(cache *handlecache.Cache, metrics Metrics) *Buffer {
	if metrics == nil {
		metrics = NoOpMetrics{}
	}
	return &Buffer{cache: cache, metrics: metrics}
}

// Stage attempts to queue a write on tok per the force/release arbitration
// table. A rejected stage is silent: the caller observes no
// error and the previously staged value stands.
func (b *Buffer) Stage(tok handlecache.Token, format handlecache.WriteFormat, flag handlecache.WriteFlag, integer uint32, str string, vector []vpiabi.VecVal) error {
	h, err := b.cache.Get(tok)
	if err != nil {
		return err
	}

	switch h.Pending.Flag {
	case handlecache.FlagNone:
		b.accept(h, format, flag, integer, str, vector, false)
	case handlecache.FlagForce:
		if flag == handlecache.FlagForce || flag == handlecache.FlagRelease {
			b.accept(h, format, flag, integer, str, vector, true)
		}
		// flag == FlagNoDelay: force outranks normal writes; reject silently.
	case handlecache.FlagNoDelay, handlecache.FlagRelease:
		b.accept(h, format, flag, integer, str, vector, true)
	default:
		return fmt.Errorf("writebuf: signal %q has unrecognized pending flag %d", h.Path, h.Pending.Flag)
	}
	return nil
}

// accept records the new staged value on h and updates the active
// write-order list, re-appending when overwrite is true so flush order
// always reflects the last writer.
func (b *Buffer) accept(h *handlecache.SignalHandle, format handlecache.WriteFormat, flag handlecache.WriteFlag, integer uint32, str string, vector []vpiabi.VecVal, overwrite bool) {
	list := &b.order
	if b.inBackup {
		list = &b.backup
	}

	if overwrite {
		idx := indexOf(*list, h.Token)
		if idx < 0 {
			panic(fmt.Sprintf("writebuf: overwrite of %q but no entry found in write-order list", h.Path))
		}
		*list = append((*list)[:idx], (*list)[idx+1:]...)
	}

	h.Pending.Format = format
	h.Pending.Flag = flag
	h.Pending.Integer = integer
	h.Pending.Str = str
	h.Pending.Beats = len(vector)
	for i, v := range vector {
		if i >= handlecache.MaxBeats {
			break
		}
		h.Pending.Vector[i] = v
	}

	*list = append(*list, h.Token)
}

func indexOf(list []handlecache.Token, tok handlecache.Token) int {
	for i, t := range list {
		if t == tok {
			return i
		}
	}
	return -1
}

// StageShuffled stages beatCount beats of pseudo-random bits, the Go
// analogue of the platform rand()-per-beat idiom: deterministic under a
// seed the caller controls, explicitly not cryptographic.
func (b *Buffer) StageShuffled(tok handlecache.Token, flag handlecache.WriteFlag, beatCount int, rng *rand.Rand) error {
	beats := make([]vpiabi.VecVal, beatCount)
	for i := range beats {
		beats[i] = vpiabi.VecVal{Aval: rng.Uint32()}
	}
	return b.Stage(tok, handlecache.FormatVector, flag, 0, "", beats)
}

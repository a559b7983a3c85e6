package writebuf

import (
	"fmt"

	"github.com/verilua-run/govpi/internal/handlecache"
	"github.com/verilua-run/govpi/internal/vpiabi"
	"github.com/verilua-run/govpi/internal/vpibridge"
)

// PutFlag maps a handlecache.WriteFlag to the VPI put-value flag it drains
// as. FlagNone never reaches here (nothing is staged).
func putFlag(f handlecache.WriteFlag) int32 {
	switch f {
	case handlecache.FlagForce:
		return vpiabi.PutForceFlag
	case handlecache.FlagRelease:
		return vpiabi.PutReleaseFlag
	default:
		return vpiabi.PutNoDelay
	}
}

// Flush drains the write-order list into sim, per entry, clearing each
// handle's pending flag as it goes. When reentrant is true,
// new stagings that occur synchronously from inside a sim.PutValue call
// (an event-driven simulator re-entering the write path) are captured in
// a backup list and folded back in until both lists run dry — the only
// mechanism protecting against a flush that half-applies a reentrant
// write. Cycle-based backends pass reentrant=false and take the single
// pass.
func (b *Buffer) Flush(sim vpibridge.Simulator, reentrant bool) error {
	if reentrant {
		b.inBackup = true
		defer func() { b.inBackup = false }()
	}

	for len(b.order) > 0 {
		pass := b.order
		b.order = nil

		for _, tok := range pass {
			h, err := b.cache.Get(tok)
			if err != nil {
				return err
			}
			if err := drainOne(sim, h, b.metrics); err != nil {
				return err
			}
		}

		if !reentrant {
			break
		}
		// Fold any writes staged re-entrantly during this pass back into
		// the primary list and repeat until nothing new arrived.
		b.order = b.backup
		b.backup = nil
	}
	return nil
}

func drainOne(sim vpibridge.Simulator, h *handlecache.SignalHandle, metrics Metrics) error {
	flag := putFlag(h.Pending.Flag)
	value := vpiabi.Value{}

	switch h.Pending.Format {
	case handlecache.FormatInteger:
		value.Format = vpiabi.FormatInt
		value.Integer = h.Pending.Integer
	case handlecache.FormatVector:
		value.Format = vpiabi.FormatVector
		value.Vector = append([]vpiabi.VecVal(nil), h.Pending.Vector[:h.Pending.Beats]...)
	case handlecache.FormatScalar:
		value.Format = vpiabi.FormatScalar
		value.Scalar = uint8(h.Pending.Integer)
	case handlecache.FormatHexStr:
		value.Format = vpiabi.FormatHexStr
		value.Str = h.Pending.Str
	case handlecache.FormatDecStr:
		value.Format = vpiabi.FormatDecStr
		value.Str = h.Pending.Str
	case handlecache.FormatOctStr:
		value.Format = vpiabi.FormatOctStr
		value.Str = h.Pending.Str
	case handlecache.FormatBinStr:
		value.Format = vpiabi.FormatBinStr
		value.Str = h.Pending.Str
	case handlecache.FormatSuppress:
		value.Format = vpiabi.FormatSuppress
	default:
		return fmt.Errorf("writebuf: signal %q staged with unsupported format %d", h.Path, h.Pending.Format)
	}

	if err := sim.PutValue(h.Sim, value, flag); err != nil {
		return fmt.Errorf("writebuf: flushing %q: %w", h.Path, err)
	}
	metrics.WriteFlushed(h.Path)
	h.Pending = handlecache.PendingWrite{}
	return nil
}

// Package govpi is the event and value marshalling engine sitting
// between a scripted testbench VM and a Verilog Procedural Interface
// simulator: a cached signal-handle table, a pending-write buffer with
// force/release arbitration, an edge-callback registration pipeline, the
// simulation-lifecycle state machine, and a native-clock driver.
//
// Grounded on backend.go (Device/CreateAndServe as the
// single public entry point wrapping an internal Controller).
package govpi

import (
	"fmt"
	"math/rand/v2"

	"github.com/verilua-run/govpi/internal/config"
	"github.com/verilua-run/govpi/internal/edgecb"
	"github.com/verilua-run/govpi/internal/handlecache"
	"github.com/verilua-run/govpi/internal/lifecycle"
	"github.com/verilua-run/govpi/internal/nativeclock"
	"github.com/verilua-run/govpi/internal/vpiabi"
	"github.com/verilua-run/govpi/internal/vpibridge"
	"github.com/verilua-run/govpi/internal/writebuf"
)

// ScriptVM is the full upper-edge contract: the lifecycle hooks plus the
// edge-fire entry points. A scripting VM binding implements this once and
// passes it to Initialize.
type ScriptVM interface {
	lifecycle.Script
	edgecb.ScriptHost
}

// Options configures one Engine. Simulator and Script are required;
// Config, Observer, and the three edge-callback optimizations default to
// their zero values (no optimizations, NoOpObserver, config.DefaultConfig()).
type Options struct {
	Simulator vpibridge.Simulator
	Script    ScriptVM
	Config    config.EngineConfig
	Observer  Observer
	EdgeOpts  edgecb.Options

	// ReentrantFlush selects the event-driven (backup-list) flush path
	// rather than the cycle-based single pass.
	ReentrantFlush bool
}

// Engine is the public handle a scripting VM binding holds for the life
// of one simulation run.
type Engine struct {
	env      *lifecycle.Environment
	sim      vpibridge.Simulator
	cfg      config.EngineConfig
	observer Observer
	stats    *Stats
	rng      *rand.Rand
}

// Initialize constructs an Engine and runs the lifecycle's Initialize
// step: the single entry point a scripting VM binding calls
// at cbStartOfSimulation.
func Initialize(opts Options) (*Engine, error) {
	if opts.Simulator == nil {
		return nil, NewScriptContractError("Initialize", "", "Options.Simulator is required")
	}
	if opts.Script == nil {
		return nil, NewScriptContractError("Initialize", "", "Options.Script is required")
	}
	if opts.Observer == nil {
		opts.Observer = NoOpObserver{}
	}
	if opts.Config == (config.EngineConfig{}) {
		opts.Config = config.DefaultConfig()
	}

	stats := NewStats()

	env := lifecycle.New(opts.Simulator, opts.Script, opts.Config, opts.ReentrantFlush,
		writeMetrics{stats: stats, observer: opts.Observer})
	env.BindEdgeEngine(opts.Script, opts.EdgeOpts,
		edgeMetrics{stats: stats, observer: opts.Observer})

	e := &Engine{
		env:      env,
		sim:      opts.Simulator,
		cfg:      opts.Config,
		observer: opts.Observer,
		stats:    stats,
		rng:      rand.New(rand.NewPCG(1, 2)),
	}

	if err := env.Initialize(); err != nil {
		return nil, fmt.Errorf("govpi: initialize: %w", err)
	}
	return e, nil
}

// Finalize runs the lifecycle's Finalize step. Idempotent.
func (e *Engine) Finalize() error {
	return e.env.Finalize()
}

// Stats returns the engine's live counter block.
func (e *Engine) Stats() *Stats { return e.stats }

// LookupHandle resolves path, caching a null entry if the simulator has
// no such object.
func (e *Engine) LookupHandle(path string) (handlecache.Token, error) {
	return e.env.Cache.Lookup(path)
}

// LookupHandleStrict resolves path, failing if the simulator has no such
// object.
func (e *Engine) LookupHandleStrict(path string) (handlecache.Token, error) {
	tok, err := e.env.Cache.LookupStrict(path)
	if err != nil {
		return handlecache.InvalidToken, NewScriptContractError("lookup_strict", path, err.Error())
	}
	return tok, nil
}

// LookupHandleIndexed resolves "{parent}[{i}]".
func (e *Engine) LookupHandleIndexed(parent handlecache.Token, i int) (handlecache.Token, error) {
	return e.env.Cache.LookupIndexed(parent, i)
}

// GetValue reads a signal's current value directly from the simulator
// (not through the write buffer, which only ever holds pending writes).
// When Options.Config.XAsZero is set, every unknown/high-Z bit in the
// result — scalar or vector, not just its first beat — is resolved to 0
// before it reaches the caller.
func (e *Engine) GetValue(tok handlecache.Token, format int32) (vpiabi.Value, error) {
	h, err := e.env.Cache.Get(tok)
	if err != nil {
		return vpiabi.Value{}, err
	}
	v, err := e.sim.GetValue(h.Sim, format)
	if err != nil {
		return vpiabi.Value{}, err
	}
	if e.cfg.XAsZero {
		v = vpiabi.ResolveValueXAsZero(v)
	}
	return v, nil
}

// SetValue stages a normal-priority write.
func (e *Engine) SetValue(tok handlecache.Token, format handlecache.WriteFormat, integer uint32, str string, vector []vpiabi.VecVal) error {
	return e.stage(tok, format, handlecache.FlagNoDelay, integer, str, vector)
}

// ForceValue stages a force write, which outranks normal writes until
// released. Fatal (CodeFeatureDisabled) on a cycle-based backend: force
// priority has no well-defined meaning against a cycle-based scheduler's
// sampling, so this refuses rather than silently corrupting state.
func (e *Engine) ForceValue(tok handlecache.Token, format handlecache.WriteFormat, integer uint32, str string, vector []vpiabi.VecVal) error {
	if e.cfg.CycleBased {
		return NewFeatureDisabledError("force_value", "force/release is not supported on a cycle-based backend")
	}
	return e.stage(tok, format, handlecache.FlagForce, integer, str, vector)
}

// ReleaseValue stages a release, ending a prior force. Fatal on a
// cycle-based backend, gated the same way as ForceValue — both the
// deferred and immediate release paths are disabled uniformly, not just
// the immediate one.
func (e *Engine) ReleaseValue(tok handlecache.Token) error {
	if e.cfg.CycleBased {
		return NewFeatureDisabledError("release_value", "force/release is not supported on a cycle-based backend")
	}
	return e.stage(tok, handlecache.FormatSuppress, handlecache.FlagRelease, 0, "", nil)
}

// SetValueImmediate bypasses the pending-write buffer and writes
// synchronously, for callers already inside a synchronization region.
// Fatal on a cycle-based backend for the same reason as ForceValue.
func (e *Engine) SetValueImmediate(tok handlecache.Token, value vpiabi.Value) error {
	if e.cfg.CycleBased {
		return NewFeatureDisabledError("set_value_immediate", "immediate writes are not supported on a cycle-based backend")
	}
	h, err := e.env.Cache.Get(tok)
	if err != nil {
		return err
	}
	return e.sim.PutValue(h.Sim, value, vpiabi.PutNoDelay)
}

func (e *Engine) stage(tok handlecache.Token, format handlecache.WriteFormat, flag handlecache.WriteFlag, integer uint32, str string, vector []vpiabi.VecVal) error {
	if err := e.env.Buf.Stage(tok, format, flag, integer, str, vector); err != nil {
		e.stats.RecordWriteRejected()
		return err
	}
	e.stats.RecordWriteStaged()
	return nil
}

// SetShuffled stages beatCount beats of deterministic pseudo-random bits
//, seeded from the Engine's own generator.
func (e *Engine) SetShuffled(tok handlecache.Token, flag handlecache.WriteFlag, beatCount int) error {
	return e.env.Buf.StageShuffled(tok, flag, beatCount, e.rng)
}

// RegisterEdgeCallback registers an edge-sensitive callback for taskID.
func (e *Engine) RegisterEdgeCallback(tok handlecache.Token, edge edgecb.EdgeKind, taskID int, regime edgecb.Regime) error {
	e.stats.RecordEdgeRegistered()
	return e.env.Edges.Register(tok, edge, taskID, regime)
}

// NewNativeClock allocates a stopped clock driver over tok.
func (e *Engine) NewNativeClock(tok handlecache.Token) (*nativeclock.Clock, error) {
	h, err := e.env.Cache.Get(tok)
	if err != nil {
		return nil, err
	}
	return nativeclock.New(e.sim, h.Sim), nil
}

// StartNativeClock starts clock, mapping any failure to this engine's
// structured native-clock error.
func (e *Engine) StartNativeClock(clock *nativeclock.Clock, period, high int, startHigh bool) error {
	if err := clock.Start(period, high, startHigh); err != nil {
		return WrapNativeClockError("native_clock_start", err)
	}
	e.stats.RecordClockToggle()
	return nil
}

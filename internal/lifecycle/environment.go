// Package lifecycle owns the initialize/per-tick/finalize state machine:
// an idempotent Initialize/Finalize pair wrapping a single public
// constructor, the per-tick NextSimTime/ReadWriteSynch callback chain, and
// the finalize-time statistics report.
package lifecycle

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/tebeka/atexit"
	"golang.org/x/sys/unix"

	"github.com/verilua-run/govpi/internal/config"
	"github.com/verilua-run/govpi/internal/edgecb"
	"github.com/verilua-run/govpi/internal/handlecache"
	"github.com/verilua-run/govpi/internal/logging"
	"github.com/verilua-run/govpi/internal/vpiabi"
	"github.com/verilua-run/govpi/internal/vpibridge"
	"github.com/verilua-run/govpi/internal/writebuf"
)

// State is the lifecycle's three-state machine.
type State int

const (
	Created State = iota
	Initialized
	Finalized
)

// Script is the upper-edge script VM this environment drives through
// bootstrap, the user script, and shutdown.
type Script interface {
	Bootstrap() error
	RunUserScript(path string) error
	FinishCallback() error
}

// Environment is the process-wide runtime state: a single instance per process, owning the handle cache,
// write buffer, and edge callback engine, and driving them through the
// simulator's NextSimTime/ReadWriteSynch chain.
type Environment struct {
	Cache *handlecache.Cache
	Buf   *writebuf.Buffer
	Edges *edgecb.Engine

	// SessionID correlates this run's log lines and finalize statistics
	// across processes when many simulation runs are launched in parallel
	// (e.g. a regression farm), none of which share a PID namespace.
	SessionID uuid.UUID

	sim    vpibridge.Simulator
	script Script
	cfg    config.EngineConfig
	log    *logging.Logger

	state State

	bootstrapRegistered bool
	endOfSimRegistered  bool

	reentrantFlush bool // event-driven simulators take the backup-list path

	startTime  unix.Timespec
	scriptTime time.Duration

	atexitArmed bool
}

// New constructs an Environment over an already-connected simulator
// transport. The handle cache and write buffer are created here; the edge
// engine is attached afterwards by BindEdgeEngine over the same cache.
// writeMetrics may be nil.
func New(sim vpibridge.Simulator, script Script, cfg config.EngineConfig, reentrantFlush bool, writeMetrics writebuf.Metrics) *Environment {
	cache := handlecache.NewCache(sim)
	sessionID := uuid.New()
	env := &Environment{
		Cache:          cache,
		Buf:            writebuf.NewBuffer(cache, writeMetrics),
		SessionID:      sessionID,
		sim:            sim,
		script:         script,
		cfg:            cfg,
		log:            logging.Default().WithFields("session", sessionID).WithComponent("lifecycle"),
		reentrantFlush: reentrantFlush,
	}
	return env
}

// BindEdgeEngine attaches the edge callback engine once its ScriptHost
// (normally the same Script, wrapped) is available; split from New
// because the host typically needs env itself (e.g. to call Finalize on
// a script runtime error). edgeMetrics may be nil.
func (e *Environment) BindEdgeEngine(host edgecb.ScriptHost, opts edgecb.Options, edgeMetrics edgecb.Metrics) {
	e.Edges = edgecb.NewEngine(e.Cache, e.sim, host, opts, e.cfg.IDPoolSize, edgeMetrics)
}

// Initialize is idempotent: only the first call has effect.
func (e *Environment) Initialize() error {
	if e.state != Created {
		return nil
	}

	if !e.bootstrapRegistered {
		if _, err := e.sim.RegisterCallback(vpiabi.CallbackData{Reason: vpiabi.CbNextSimTime}, e.onNextSimTime); err != nil {
			return fmt.Errorf("lifecycle: registering bootstrap next-tick callback: %w", err)
		}
		e.bootstrapRegistered = true
	}
	if !e.endOfSimRegistered {
		if _, err := e.sim.RegisterCallback(vpiabi.CallbackData{Reason: vpiabi.CbEndOfSimulation}, e.onEndOfSimulation); err != nil {
			return fmt.Errorf("lifecycle: registering end-of-simulation callback: %w", err)
		}
		e.endOfSimRegistered = true
	}

	if err := e.script.Bootstrap(); err != nil {
		return fmt.Errorf("lifecycle: script bootstrap: %w", err)
	}
	if e.cfg.UserScript != "" {
		if err := e.script.RunUserScript(e.cfg.UserScript); err != nil {
			return fmt.Errorf("lifecycle: running user script %q: %w", e.cfg.UserScript, err)
		}
	}

	unix.ClockGettime(unix.CLOCK_MONOTONIC, &e.startTime)

	if !e.cfg.SuppressAtExitFinalize && !e.atexitArmed {
		atexit.Register(func() {
			if e.state != Finalized {
				_ = e.Finalize()
			}
		})
		e.atexitArmed = true
	}

	e.state = Initialized
	e.log.Info("environment initialized", "script", e.cfg.UserScript)
	return nil
}

// Finalize is idempotent and must not run before Initialize;
// calling it before Initialize is a no-op with a logged warning.
func (e *Environment) Finalize() error {
	if e.state == Created {
		e.log.Warn("finalize called before initialize, ignoring")
		return nil
	}
	if e.state == Finalized {
		return nil
	}

	if err := e.script.FinishCallback(); err != nil {
		e.log.Error("script finish_callback failed", "err", err)
	}

	if !e.cfg.Quiet {
		e.printStats()
	}

	e.state = Finalized
	return nil
}

func (e *Environment) onNextSimTime(cb vpiabi.CallbackData) int32 {
	if e.Edges != nil {
		if err := e.Edges.PromotePending(); err != nil {
			e.log.Error("promoting pending edge registrations failed", "err", err)
			_ = e.Finalize()
			return -1
		}
	}
	if _, err := e.sim.RegisterCallback(vpiabi.CallbackData{Reason: vpiabi.CbReadWriteSynch}, e.onReadWriteSynch); err != nil {
		e.log.Error("arming read-write synch callback failed", "err", err)
		_ = e.Finalize()
		return -1
	}
	return 0
}

func (e *Environment) onReadWriteSynch(cb vpiabi.CallbackData) int32 {
	if err := e.Buf.Flush(e.sim, e.reentrantFlush); err != nil {
		e.log.Error("flushing pending writes failed", "err", err)
		_ = e.Finalize()
		return -1
	}
	if _, err := e.sim.RegisterCallback(vpiabi.CallbackData{Reason: vpiabi.CbNextSimTime}, e.onNextSimTime); err != nil {
		e.log.Error("re-arming next-tick callback failed", "err", err)
		_ = e.Finalize()
		return -1
	}
	return 0
}

func (e *Environment) onEndOfSimulation(cb vpiabi.CallbackData) int32 {
	_ = e.Finalize()
	return 0
}

func (e *Environment) printStats() {
	var end unix.Timespec
	unix.ClockGettime(unix.CLOCK_MONOTONIC, &end)
	wall := time.Duration(end.Sec-e.startTime.Sec)*time.Second +
		time.Duration(end.Nsec-e.startTime.Nsec)*time.Nanosecond

	overhead := 0.0
	if wall > 0 {
		overhead = float64(e.scriptTime) / float64(wall) * 100
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"metric", "value"})
	t.AppendRow(table.Row{"session", e.SessionID})
	t.AppendRow(table.Row{"wall time", wall})
	t.AppendRow(table.Row{"script time", e.scriptTime})
	t.AppendRow(table.Row{"script overhead %", fmt.Sprintf("%.2f", overhead)})
	t.AppendRow(table.Row{"cached signals", e.Cache.Len()})
	if e.Edges != nil {
		t.AppendRow(table.Row{"live edge subscriptions", e.Edges.LiveSubscriptionCount()})
	}
	e.log.Info("finalize statistics\n" + t.Render())
}

// State reports the current lifecycle state, for tests and diagnostics.
func (e *Environment) State() State { return e.state }

// AccumulateScriptTime adds d to the running script-time total, called by
// the upper-edge step wrappers around each call into the script VM.
func (e *Environment) AccumulateScriptTime(d time.Duration) { e.scriptTime += d }

// Package config holds the engine's tunables and the environment-variable
// bindings that the lower edge uses to configure a run before Initialize.
package config

import (
	"os"
	"strconv"
)

// Default pool and buffer sizes: the callback-ID pool size and the
// vector-beat cap.
const (
	DefaultIDPoolSize  = 10000
	DefaultMaxVecBeats = 32
)

// EngineConfig configures one Environment for its whole lifetime. It is
// immutable once passed to Initialize.
type EngineConfig struct {
	// HomeDir is the root the lower edge resolves relative script paths
	// against (bound from the VERILUA_HOME environment variable).
	HomeDir string

	// UserScript is the entry-point script path loaded at
	// cbStartOfSimulation.
	UserScript string

	// TopModule holds the top-module override (bound from VERILUA_TOP).
	// Handle lookups do not consult it; paths are passed to the simulator
	// as given.
	TopModule string

	// XAsZero treats X (unknown) bits as zero when true, rather than
	// propagating X through decoded values.
	XAsZero bool

	// Quiet suppresses the finalize statistics table.
	Quiet bool

	// Prebuild holds the prebuild-mode flag (bound from VERILUA_PREBUILD).
	// The lifecycle does not consult it: Initialize runs the same steps
	// whether it is set or not.
	Prebuild bool

	// SuppressAtExitFinalize skips the best-effort atexit destructor.
	// Some simulator front-ends run their own finalize path and calling
	// this engine's a second time from atexit would double-free
	// simulator-owned state; this field lets a caller opt out explicitly
	// instead of engine code special-casing a simulator family by name.
	SuppressAtExitFinalize bool

	// CycleBased marks the attached simulator as a cycle-based engine
	// rather than an event-driven one. Force/release and immediate-value
	// writes have no well-defined arbitration semantics against a
	// cycle-based scheduler's sampling, so those operations are fatal
	// (CodeFeatureDisabled) when this is set, instead of silently
	// corrupting sampled state. This is independent of Options.ReentrantFlush,
	// which only picks the write-flush convergence algorithm.
	CycleBased bool

	// IDPoolSize bounds the number of live edge-callback IDs.
	IDPoolSize int
}

// DefaultConfig returns an EngineConfig populated from this process's
// environment, following the same var names the lower edge documents.
func DefaultConfig() EngineConfig {
	cfg := EngineConfig{
		HomeDir:    os.Getenv("VERILUA_HOME"),
		UserScript: os.Getenv("VERILUA_SCRIPT"),
		TopModule:  os.Getenv("VERILUA_TOP"),
		IDPoolSize: DefaultIDPoolSize,
	}
	cfg.XAsZero = envBool("VERILUA_X_AS_ZERO")
	cfg.Quiet = envBool("VERILUA_QUIET")
	cfg.Prebuild = envBool("VERILUA_PREBUILD")
	cfg.SuppressAtExitFinalize = envBool("VERILUA_NO_ATEXIT_FINALIZE")
	cfg.CycleBased = envBool("VERILUA_CYCLE_BASED")
	return cfg
}

func envBool(name string) bool {
	v, ok := os.LookupEnv(name)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return v != ""
	}
	return b
}

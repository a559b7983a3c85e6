// Package vpibridge provides the transport interface to the lower-edge VPI
// C ABI, with a real cgo-backed implementation for linux
// builds tagged "cgovpi" and a stub used everywhere else (tests, non-linux
// development, or when no simulator is linked in).
package vpibridge

import (
	"errors"

	"github.com/verilua-run/govpi/internal/vpiabi"
)

// ErrNotSupported is returned by the stub Simulator for any operation that
// requires a real simulator link.
var ErrNotSupported = errors.New("vpibridge: no simulator linked (build with -tags cgovpi)")

// SubscriptionHandle identifies one live VPI callback subscription, the
// return value of vpi_register_cb that a later vpi_remove_cb needs.
type SubscriptionHandle uintptr

// CallbackFunc is invoked by a Simulator implementation when a registered
// subscription fires. Implementations must call it synchronously, on the
// simulator's single callback-dispatch thread.
type CallbackFunc func(vpiabi.CallbackData) int32

// Simulator is this engine's analogue of uring.Ring: the one
// seam separating domain logic from the concrete transport. Every
// component in this repository (handle cache, write flusher, edge
// callback engine, native clock) talks only to this interface.
type Simulator interface {
	// Close releases any simulator-side resources held by this binding.
	Close() error

	// HandleByName resolves a hierarchical signal path. Returns the zero
	// Handle (not an error) if the simulator has no such object.
	HandleByName(path string) (vpiabi.Handle, error)

	// HandleByIndex resolves handle[i] for an already-resolved parent.
	HandleByIndex(parent vpiabi.Handle, index int) (vpiabi.Handle, error)

	// GetWidth returns the bit width of a signal handle.
	GetWidth(h vpiabi.Handle) (int, error)

	// GetValue reads a signal's current value in the given format.
	GetValue(h vpiabi.Handle, format int32) (vpiabi.Value, error)

	// PutValue stages or immediately applies a value, per flag (vpiNoDelay,
	// vpiForceFlag, vpiReleaseFlag).
	PutValue(h vpiabi.Handle, value vpiabi.Value, flag int32) error

	// GetSimTime returns the current simulation time in simulator time
	// units (low 64 bits; this engine never needs more).
	GetSimTime() (uint64, error)

	// RegisterCallback registers a VPI callback (any of the reasons in
	// vpiabi's Cb* constants) and returns a handle usable with
	// RemoveCallback. The Simulator owns invoking fn on fire.
	RegisterCallback(data vpiabi.CallbackData, fn CallbackFunc) (SubscriptionHandle, error)

	// RemoveCallback tears down a previously registered subscription.
	RemoveCallback(sub SubscriptionHandle) error

	// Finish requests simulator shutdown (vpi_control(vpiFinish, ...)).
	Finish() error
}

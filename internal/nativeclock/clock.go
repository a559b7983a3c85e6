// Package nativeclock implements the native clock driver: exclusive
// signal toggling via timed callbacks, built on an exclusive-resource
// reservation idiom (a signal may only be claimed by one running clock
// at a time) and an in-flight/stop/destroy sequencing discipline that
// defers teardown until any in-progress callback returns.
package nativeclock

import (
	"errors"
	"sync"

	"github.com/verilua-run/govpi/internal/vpiabi"
	"github.com/verilua-run/govpi/internal/vpibridge"
)

// Error codes for native-clock misuse: never fatal, always returned as
// one of these four sentinel values for a caller to match with errors.Is.
var (
	ErrBusy  = errors.New("nativeclock: driver already running")
	ErrExist = errors.New("nativeclock: signal already driven by another clock")
	ErrInval = errors.New("nativeclock: invalid period/high parameters")
	ErrIO    = errors.New("nativeclock: vpi subscription failed")
)

var (
	driversMu sync.Mutex
	drivers   = make(map[vpiabi.Handle]*Clock)
)

// Clock drives exactly one signal by toggling it via chained
// vpiAfterDelay callbacks, bypassing the pending-write buffer entirely
//.
type Clock struct {
	sim    vpibridge.Simulator
	handle vpiabi.Handle

	period int
	high   int
	value  uint8

	sub     vpibridge.SubscriptionHandle
	running bool

	inCallback     bool
	destroyPending bool
}

// New allocates a driver in stopped state for handle.
func New(sim vpibridge.Simulator, handle vpiabi.Handle) *Clock {
	return &Clock{sim: sim, handle: handle}
}

// Start validates parameters, claims the signal in the process-global
// exclusive-driver set, and begins toggling.
func (c *Clock) Start(period, high int, startHigh bool) error {
	if c.running {
		return ErrBusy
	}
	if period < 2 || high < 1 || high >= period {
		return ErrInval
	}

	driversMu.Lock()
	if _, taken := drivers[c.handle]; taken {
		driversMu.Unlock()
		return ErrExist
	}
	drivers[c.handle] = c
	driversMu.Unlock()

	c.period = period
	c.high = high
	if startHigh {
		c.value = 1
	} else {
		c.value = 0
	}

	if err := c.toggle(); err != nil {
		driversMu.Lock()
		delete(drivers, c.handle)
		driversMu.Unlock()
		return ErrIO
	}
	c.running = true
	return nil
}

// toggle writes the current value with no-delay, then arms a one-shot
// AfterDelay callback to flip it again. The time struct is heap-owned for
// the life of the registration call since a conservative simulator may
// copy it lazily rather than before returning.
func (c *Clock) toggle() error {
	if err := c.sim.PutValue(c.handle, vpiabi.Value{Format: vpiabi.FormatScalar, Scalar: c.value}, vpiabi.PutNoDelay); err != nil {
		return err
	}

	var delay uint32
	if c.value == 1 {
		delay = uint32(c.high)
	} else {
		delay = uint32(c.period - c.high)
	}
	c.value ^= 1

	scratch := &vpiabi.Time{Type: vpiabi.TimeSim, Low: delay}
	sub, err := c.sim.RegisterCallback(vpiabi.CallbackData{
		Reason: vpiabi.CbAfterDelay,
		Obj:    c.handle,
		Time:   scratch,
	}, c.onFire)
	if err != nil {
		return err
	}
	c.sub = sub
	return nil
}

func (c *Clock) onFire(cb vpiabi.CallbackData) int32 {
	c.inCallback = true
	err := c.toggle()
	c.inCallback = false

	if c.destroyPending {
		c.destroyPending = false
		_ = c.stopLocked()
	}
	if err != nil {
		c.running = false
	}
	return 0
}

// Stop removes the live subscription, if any, and releases the signal
// from the exclusive-driver set. Safe to call while already stopped.
func (c *Clock) Stop() error {
	return c.stopLocked()
}

func (c *Clock) stopLocked() error {
	if !c.running {
		return nil
	}
	if err := c.sim.RemoveCallback(c.sub); err != nil {
		return err
	}
	driversMu.Lock()
	delete(drivers, c.handle)
	driversMu.Unlock()
	c.running = false
	return nil
}

// Destroy frees the driver. If called from inside the toggle callback, it
// only sets a deferred flag plus stops; onFire performs the actual
// release on return. This is the only mechanism protecting against
// destruction mid-fire.
func (c *Clock) Destroy() {
	if c.inCallback {
		c.destroyPending = true
		return
	}
	_ = c.stopLocked()
}

// IsRunning reports whether a subscription is currently live.
func (c *Clock) IsRunning() bool { return c.running }

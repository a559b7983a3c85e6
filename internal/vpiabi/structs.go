package vpiabi

// Handle is an opaque simulator-owned reference, the Go-side analogue of
// vpiHandle. Its bit pattern is meaningless outside the Simulator
// implementation that issued it.
type Handle uintptr

// VecVal is the wire layout of t_vpi_vecval: one 32-bit beat of a wide
// signal, expressed as (aval, bval) per IEEE 1800 four-valued encoding.
type VecVal struct {
	Aval uint32
	Bval uint32
}

// Time is the wire layout of s_vpi_time for the TimeHigh/TimeLow pair used
// by cbAfterDelay scheduling (the Real field is unused by this engine,
// which only ever schedules in simulation-time units).
type Time struct {
	Type int32
	High uint32
	Low  uint32
	Real float64
}

// Value is this engine's decoded view of s_vpi_value: unlike the C union,
// Go keeps every representation addressable and lets Format select which
// one is meaningful. A Simulator implementation is responsible for
// translating to/from the real tagged union at its boundary.
type Value struct {
	Format  int32
	Integer uint32
	Scalar  uint8
	Str     string
	Vector  []VecVal
}

// CallbackData is this engine's decoded view of s_cb_data: the Reason and
// Obj/Time/Value fields a registration needs; the real function-pointer
// and user-data slots are owned by the vpibridge implementation, not by
// callers of this package.
type CallbackData struct {
	Reason int32
	Obj    Handle
	Time   *Time
	Value  *Value
	Index  int32
}

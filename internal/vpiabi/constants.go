// Package vpiabi mirrors the IEEE 1800 VPI wire layouts and constant space
// that this engine consumes at its lower edge.
package vpiabi

// Callback reasons (vpi_user.h cb* constants this engine registers).
const (
	CbValueChange       = 1
	CbAfterDelay        = 9
	CbReadWriteSynch    = 6
	CbReadOnlySynch     = 7
	CbNextSimTime       = 8
	CbStartOfSimulation = 11
	CbEndOfSimulation   = 12
)

// Value formats used by vpi_get_value/vpi_put_value.
const (
	FormatBinStr  = 1
	FormatOctStr  = 2
	FormatDecStr  = 3
	FormatHexStr  = 4
	FormatScalar  = 5
	FormatInt     = 6
	FormatVector  = 9
	FormatSuppress = 13
)

// Time types for s_vpi_time (vpi_user.h vpiSimTime).
const (
	TimeSim = 2
)

// Put-value delay flags.
const (
	PutNoDelay     = 1
	PutForceFlag   = 5
	PutReleaseFlag = 6
)

// Scalar logic values (vpi_user.h vpi0/vpi1/vpiZ/vpiX).
const (
	Scalar0 uint8 = 0
	Scalar1 uint8 = 1
	ScalarZ uint8 = 2
	ScalarX uint8 = 3
)

// MaxVectorBeats is the hard cap on supported signal width in 32-bit beats.
const MaxVectorBeats = 32

// MaxChunkSize is the fan-in cap for the Edge Callback Engine's chunk
// optimization.
const MaxChunkSize = 16

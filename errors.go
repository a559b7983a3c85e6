package govpi

import (
	"errors"
	"fmt"

	"github.com/verilua-run/govpi/internal/nativeclock"
)

// ErrorCode classifies a failure into one of the five categories this
// engine distinguishes.
type ErrorCode string

const (
	// CodeScriptContract: a contract violation by the script (missing
	// required environment variable, strict lookup miss, unsupported
	// value format). Fatal, names the offender.
	CodeScriptContract ErrorCode = "script_contract"

	// CodeHostContract: a contract violation by the host (duplicate
	// pending write not found, double-free from the ID pool, chunk
	// length out of range). Fatal, assertion-grade.
	CodeHostContract ErrorCode = "host_contract"

	// CodeScriptRuntime: a script runtime error, bubbling up as a fatal
	// call-site failure (strict step family) or a sticky flag (safe step
	// family).
	CodeScriptRuntime ErrorCode = "script_runtime"

	// CodeNativeClock: native-clock misuse, never fatal, carries one of
	// the BUSY/EEXIST/INVAL/EIO sub-codes.
	CodeNativeClock ErrorCode = "native_clock"

	// CodeFeatureDisabled: a feature this build does not support was
	// invoked (e.g. force/release on a cycle-based backend). Fatal, with
	// a clear message rather than silent corruption.
	CodeFeatureDisabled ErrorCode = "feature_disabled"
)

// Error is this engine's structured error type: an Op/Path/TaskID/Code/
// Msg/Inner shape that carries enough context to log a failure without a
// caller needing to parse a message string.
type Error struct {
	Op     string
	Path   string
	TaskID int
	Code   ErrorCode
	Msg    string
	Inner  error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("govpi: %s: %s", e.Op, e.Msg)
	if e.Path != "" {
		s += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.TaskID != 0 {
		s += fmt.Sprintf(" (task=%d)", e.TaskID)
	}
	if e.Inner != nil {
		s += ": " + e.Inner.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Inner }

// Is supports errors.Is comparisons against another *Error by Code, or
// against the native-clock sentinel errors when Code == CodeNativeClock.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return errors.Is(e.Inner, target)
}

// NewScriptContractError reports a fatal contract violation by the
// script, naming the offending path.
func NewScriptContractError(op, path, msg string) *Error {
	return &Error{Op: op, Path: path, Code: CodeScriptContract, Msg: msg}
}

// NewHostContractError reports a fatal assertion-grade host-side bug.
func NewHostContractError(op, msg string, inner error) *Error {
	return &Error{Op: op, Code: CodeHostContract, Msg: msg, Inner: inner}
}

// NewScriptRuntimeError wraps a script call failure.
func NewScriptRuntimeError(op string, taskID int, inner error) *Error {
	return &Error{Op: op, TaskID: taskID, Code: CodeScriptRuntime, Msg: "script call failed", Inner: inner}
}

// NewFeatureDisabledError reports that an optional feature is not
// supported by the current backend (e.g. force/release on a cycle-based
// simulator).
func NewFeatureDisabledError(op, msg string) *Error {
	return &Error{Op: op, Code: CodeFeatureDisabled, Msg: msg}
}

// WrapNativeClockError maps one of the sentinel errors nativeclock
// returns into this engine's Error type, preserving errors.Is against the
// original sentinel via Unwrap.
func WrapNativeClockError(op string, inner error) *Error {
	return &Error{Op: op, Code: CodeNativeClock, Msg: nativeClockMessage(inner), Inner: inner}
}

func nativeClockMessage(err error) string {
	switch {
	case errors.Is(err, nativeclock.ErrBusy):
		return "BUSY"
	case errors.Is(err, nativeclock.ErrExist):
		return "EEXIST"
	case errors.Is(err, nativeclock.ErrInval):
		return "INVAL"
	case errors.Is(err, nativeclock.ErrIO):
		return "EIO"
	default:
		return "unknown native clock error"
	}
}

// IsCode reports whether err is an *Error carrying code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

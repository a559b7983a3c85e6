package govpi

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/verilua-run/govpi/internal/nativeclock"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	e1 := NewScriptContractError("lookup", "top.clk", "no such signal")
	e2 := NewScriptContractError("other_op", "top.data", "no such signal")
	assert.True(t, errors.Is(e1, e2))

	e3 := NewFeatureDisabledError("release_imm_value", "not supported on this backend")
	assert.False(t, errors.Is(e1, e3))
}

func TestWrapNativeClockErrorPreservesSentinel(t *testing.T) {
	wrapped := WrapNativeClockError("native_clock_start", nativeclock.ErrExist)
	assert.True(t, errors.Is(wrapped, nativeclock.ErrExist))
	assert.True(t, IsCode(wrapped, CodeNativeClock))
}

func TestIsCodeFalseForNonEngineError(t *testing.T) {
	assert.False(t, IsCode(errors.New("plain error"), CodeHostContract))
}

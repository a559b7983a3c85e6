package vpiabi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVecValRoundTrip(t *testing.T) {
	v := VecVal{Aval: 0xA5, Bval: 0}
	got, err := UnmarshalVecVal(MarshalVecVal(v))
	require.NoError(t, err)
	require.Equal(t, v, got)
}

func TestVectorRoundTrip(t *testing.T) {
	beats := []VecVal{{Aval: 1}, {Aval: 2, Bval: 3}, {Aval: 0xFFFFFFFF}}
	got, err := UnmarshalVector(MarshalVector(beats), len(beats))
	require.NoError(t, err)
	require.Equal(t, beats, got)
}

func TestTimeRoundTrip(t *testing.T) {
	tm := Time{Type: CbAfterDelay, High: 1, Low: 12345, Real: 0}
	got, err := UnmarshalTime(MarshalTime(tm))
	require.NoError(t, err)
	require.Equal(t, tm, got)
}

func TestUnmarshalVectorInsufficientData(t *testing.T) {
	_, err := UnmarshalVector([]byte{1, 2, 3}, 2)
	require.ErrorIs(t, err, ErrInsufficientData)
}

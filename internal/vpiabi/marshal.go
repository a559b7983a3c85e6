package vpiabi

import (
	"encoding/binary"
	"math"
)

func floatBits(f float64) uint64 { return math.Float64bits(f) }
func bitsFloat(b uint64) float64 { return math.Float64frombits(b) }

// MarshalError reports a fixed-layout encode/decode failure.
type MarshalError string

func (e MarshalError) Error() string { return string(e) }

const ErrInsufficientData MarshalError = "vpiabi: insufficient data for unmarshaling"

// MarshalVecVal encodes one VecVal beat in the 8-byte layout t_vpi_vecval
// uses on the wire (aval, then bval, both little-endian uint32).
func MarshalVecVal(v VecVal) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], v.Aval)
	binary.LittleEndian.PutUint32(buf[4:8], v.Bval)
	return buf
}

// UnmarshalVecVal decodes one VecVal beat.
func UnmarshalVecVal(data []byte) (VecVal, error) {
	if len(data) < 8 {
		return VecVal{}, ErrInsufficientData
	}
	return VecVal{
		Aval: binary.LittleEndian.Uint32(data[0:4]),
		Bval: binary.LittleEndian.Uint32(data[4:8]),
	}, nil
}

// MarshalVector encodes a beat vector, up to MaxVectorBeats entries.
func MarshalVector(beats []VecVal) []byte {
	buf := make([]byte, 8*len(beats))
	for i, b := range beats {
		copy(buf[i*8:], MarshalVecVal(b))
	}
	return buf
}

// UnmarshalVector decodes a beat vector of the given beat count.
func UnmarshalVector(data []byte, beatCount int) ([]VecVal, error) {
	if len(data) < beatCount*8 {
		return nil, ErrInsufficientData
	}
	out := make([]VecVal, beatCount)
	for i := 0; i < beatCount; i++ {
		v, err := UnmarshalVecVal(data[i*8:])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// MarshalTime encodes the TimeHigh/TimeLow wire pair used for cbAfterDelay
// registration (Type and Real are encoded too, for completeness, though
// this engine never reads them back).
func MarshalTime(t Time) []byte {
	buf := make([]byte, 24)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(t.Type))
	binary.LittleEndian.PutUint32(buf[4:8], t.High)
	binary.LittleEndian.PutUint32(buf[8:12], t.Low)
	binary.LittleEndian.PutUint64(buf[16:24], floatBits(t.Real))
	return buf
}

// UnmarshalTime decodes the wire layout MarshalTime produces.
func UnmarshalTime(data []byte) (Time, error) {
	if len(data) < 24 {
		return Time{}, ErrInsufficientData
	}
	return Time{
		Type: int32(binary.LittleEndian.Uint32(data[0:4])),
		High: binary.LittleEndian.Uint32(data[4:8]),
		Low:  binary.LittleEndian.Uint32(data[8:12]),
		Real: bitsFloat(binary.LittleEndian.Uint64(data[16:24])),
	}, nil
}

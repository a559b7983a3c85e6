package vpiabi

// ResolveVecValXAsZero clears every bit VecVal marks unknown or high-Z
// (a set Bval bit, per the four-valued aval/bval encoding) to 0, rather
// than leaving it as X/Z. Applied per beat, not just to the first one, so
// a caller reading a wide signal sees the policy applied uniformly across
// its whole width.
func ResolveVecValXAsZero(v VecVal) VecVal {
	return VecVal{
		Aval: v.Aval &^ v.Bval,
		Bval: 0,
	}
}

// ResolveVectorXAsZero applies ResolveVecValXAsZero to every beat.
func ResolveVectorXAsZero(beats []VecVal) []VecVal {
	out := make([]VecVal, len(beats))
	for i, b := range beats {
		out[i] = ResolveVecValXAsZero(b)
	}
	return out
}

// ResolveScalarXAsZero maps ScalarX and ScalarZ to Scalar0, leaving 0/1
// untouched.
func ResolveScalarXAsZero(s uint8) uint8 {
	if s == ScalarX || s == ScalarZ {
		return Scalar0
	}
	return s
}

// ResolveValueXAsZero returns a copy of v with its scalar and vector
// representations passed through the X-as-zero policy, independent of
// which one Format selects — a caller may read either regardless of the
// format the simulator answered with.
func ResolveValueXAsZero(v Value) Value {
	v.Scalar = ResolveScalarXAsZero(v.Scalar)
	if v.Vector != nil {
		v.Vector = ResolveVectorXAsZero(v.Vector)
	}
	return v
}

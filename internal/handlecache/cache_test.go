package handlecache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verilua-run/govpi/internal/vpiabi"
	"github.com/verilua-run/govpi/internal/vpibridge"
)

// fakeSim is a minimal Simulator double local to this package, so these
// tests don't reach for the root-level MockSimulator and risk an import
// cycle (the root package depends on handlecache, not the reverse).
type fakeSim struct {
	widths map[vpiabi.Handle]int
	next   vpiabi.Handle
	byName map[string]vpiabi.Handle
}

func newFakeSim() *fakeSim {
	return &fakeSim{widths: make(map[vpiabi.Handle]int), byName: make(map[string]vpiabi.Handle)}
}

func (f *fakeSim) declare(path string, width int) vpiabi.Handle {
	f.next++
	h := f.next
	f.byName[path] = h
	f.widths[h] = width
	return h
}

func (f *fakeSim) Close() error { return nil }
func (f *fakeSim) HandleByName(path string) (vpiabi.Handle, error) {
	return f.byName[path], nil
}
func (f *fakeSim) HandleByIndex(parent vpiabi.Handle, index int) (vpiabi.Handle, error) {
	f.next++
	f.widths[f.next] = f.widths[parent]
	return f.next, nil
}
func (f *fakeSim) GetWidth(h vpiabi.Handle) (int, error) { return f.widths[h], nil }
func (f *fakeSim) GetValue(h vpiabi.Handle, format int32) (vpiabi.Value, error) {
	return vpiabi.Value{}, nil
}
func (f *fakeSim) PutValue(h vpiabi.Handle, value vpiabi.Value, flag int32) error { return nil }
func (f *fakeSim) GetSimTime() (uint64, error)                                   { return 0, nil }
func (f *fakeSim) RegisterCallback(data vpiabi.CallbackData, fn vpibridge.CallbackFunc) (vpibridge.SubscriptionHandle, error) {
	return 0, nil
}
func (f *fakeSim) RemoveCallback(sub vpibridge.SubscriptionHandle) error { return nil }
func (f *fakeSim) Finish() error                                         { return nil }

var _ vpibridge.Simulator = (*fakeSim)(nil)

func TestLookupCoherence(t *testing.T) {
	sim := newFakeSim()
	sim.declare("top.clk", 1)
	c := NewCache(sim)

	tok1, err := c.Lookup("top.clk")
	require.NoError(t, err)
	tok2, err := c.Lookup("top.clk")
	require.NoError(t, err)
	assert.Equal(t, tok1, tok2)
}

func TestBeatCountDerivation(t *testing.T) {
	sim := newFakeSim()
	sim.declare("top.wide", 96)
	c := NewCache(sim)

	tok, err := c.Lookup("top.wide")
	require.NoError(t, err)
	h, err := c.Get(tok)
	require.NoError(t, err)
	assert.Equal(t, 3, h.BeatCount)
	assert.LessOrEqual(t, h.BeatCount, MaxBeats)
}

func TestLookupStrictFailsOnMissingSignal(t *testing.T) {
	sim := newFakeSim()
	c := NewCache(sim)

	_, err := c.LookupStrict("top.nonexistent")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "top.nonexistent")
}

func TestLookupIndexedComposesPath(t *testing.T) {
	sim := newFakeSim()
	sim.declare("top.mem", 32)
	c := NewCache(sim)

	parent, err := c.Lookup("top.mem")
	require.NoError(t, err)

	tok1, err := c.LookupIndexed(parent, 3)
	require.NoError(t, err)
	h, err := c.Get(tok1)
	require.NoError(t, err)
	assert.Equal(t, "top.mem[3]", h.Path)

	tok2, err := c.LookupIndexed(parent, 3)
	require.NoError(t, err)
	assert.Equal(t, tok1, tok2)
}

func TestSignalExceedingMaxBeatsIsRejected(t *testing.T) {
	sim := newFakeSim()
	sim.declare("top.huge", 33*32)
	c := NewCache(sim)

	_, err := c.Lookup("top.huge")
	assert.Error(t, err)
}

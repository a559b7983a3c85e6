package govpi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verilua-run/govpi/internal/config"
	"github.com/verilua-run/govpi/internal/edgecb"
	"github.com/verilua-run/govpi/internal/handlecache"
	"github.com/verilua-run/govpi/internal/vpiabi"
)

// scriptedVM satisfies ScriptVM for end-to-end tests.
type scriptedVM struct{ MockScript }

func newEngineFixture(t *testing.T) (*Engine, *MockSimulator, *scriptedVM) {
	t.Helper()
	sim := NewMockSimulator()
	vm := &scriptedVM{}

	e, err := Initialize(Options{
		Simulator: sim,
		Script:    vm,
		Config:    config.EngineConfig{SuppressAtExitFinalize: true, Quiet: true, IDPoolSize: 100},
	})
	require.NoError(t, err)
	return e, sim, vm
}

func TestWriteThenReadScenario(t *testing.T) {
	e, sim, _ := newEngineFixture(t)
	h := sim.DeclareSignal("top.byte", 8)
	tok, err := e.LookupHandle("top.byte")
	require.NoError(t, err)

	require.NoError(t, e.SetValue(tok, handlecache.FormatInteger, 0xA5, "", nil))
	require.NoError(t, e.env.Buf.Flush(sim, false))

	v, err := e.GetValue(tok, vpiabi.FormatInt)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xA5), v.Integer)
	_ = h
}

func TestForceReleaseScenario(t *testing.T) {
	e, sim, _ := newEngineFixture(t)
	sim.DeclareSignal("top.byte", 8)
	tok, err := e.LookupHandle("top.byte")
	require.NoError(t, err)

	require.NoError(t, e.ForceValue(tok, handlecache.FormatInteger, 0x01, "", nil))
	require.NoError(t, e.SetValue(tok, handlecache.FormatInteger, 0x02, "", nil))
	require.NoError(t, e.env.Buf.Flush(sim, false))
	v, err := e.GetValue(tok, vpiabi.FormatInt)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x01), v.Integer)

	require.NoError(t, e.ReleaseValue(tok))
	require.NoError(t, e.SetValue(tok, handlecache.FormatInteger, 0x02, "", nil))
	require.NoError(t, e.env.Buf.Flush(sim, false))
	v, err = e.GetValue(tok, vpiabi.FormatInt)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x02), v.Integer)
}

func TestPosedgeOneShotScenario(t *testing.T) {
	e, sim, vm := newEngineFixture(t)
	h := sim.DeclareSignal("top.clk", 1)
	tok, err := e.LookupHandle("top.clk")
	require.NoError(t, err)

	require.NoError(t, e.RegisterEdgeCallback(tok, edgecb.Posedge, 7, edgecb.OneShot))

	sim.Fire(vpiabi.CallbackData{Reason: vpiabi.CbValueChange, Obj: h, Value: &vpiabi.Value{Scalar: 0}})
	assert.Empty(t, vm.Events)

	sim.Fire(vpiabi.CallbackData{Reason: vpiabi.CbValueChange, Obj: h, Value: &vpiabi.Value{Scalar: 1}})
	assert.Equal(t, []int{7}, vm.Events)

	sim.Fire(vpiabi.CallbackData{Reason: vpiabi.CbValueChange, Obj: h, Value: &vpiabi.Value{Scalar: 1}})
	assert.Equal(t, []int{7}, vm.Events)
}

func TestXAsZeroResolvesUnknownScalarOnRead(t *testing.T) {
	sim := NewMockSimulator()
	h := sim.DeclareSignal("top.bit", 1)
	vm := &scriptedVM{}

	e, err := Initialize(Options{
		Simulator: sim,
		Script:    vm,
		Config:    config.EngineConfig{SuppressAtExitFinalize: true, Quiet: true, IDPoolSize: 100, XAsZero: true},
	})
	require.NoError(t, err)

	tok, err := e.LookupHandle("top.bit")
	require.NoError(t, err)

	require.NoError(t, sim.PutValue(h, vpiabi.Value{Format: vpiabi.FormatScalar, Scalar: vpiabi.ScalarX}, vpiabi.PutNoDelay))

	v, err := e.GetValue(tok, vpiabi.FormatScalar)
	require.NoError(t, err)
	assert.Equal(t, vpiabi.Scalar0, v.Scalar)
}

func TestCycleBasedBackendDisablesForceReleaseAndImmediateWrite(t *testing.T) {
	sim := NewMockSimulator()
	sim.DeclareSignal("top.byte", 8)
	vm := &scriptedVM{}

	e, err := Initialize(Options{
		Simulator: sim,
		Script:    vm,
		Config:    config.EngineConfig{SuppressAtExitFinalize: true, Quiet: true, IDPoolSize: 100, CycleBased: true},
	})
	require.NoError(t, err)

	tok, err := e.LookupHandle("top.byte")
	require.NoError(t, err)

	err = e.ForceValue(tok, handlecache.FormatInteger, 0x01, "", nil)
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeFeatureDisabled))

	err = e.ReleaseValue(tok)
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeFeatureDisabled))

	err = e.SetValueImmediate(tok, vpiabi.Value{Format: vpiabi.FormatInt, Integer: 0x02})
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeFeatureDisabled))

	// A plain staged set is unaffected.
	require.NoError(t, e.SetValue(tok, handlecache.FormatInteger, 0x03, "", nil))
}

func TestStatsAndObserverTrackEdgeFiresAndFlushes(t *testing.T) {
	sim := NewMockSimulator()
	h := sim.DeclareSignal("top.clk", 1)
	sim.DeclareSignal("top.byte", 8)
	vm := &scriptedVM{}

	var observedFires []int
	var observedFlushes []string

	e, err := Initialize(Options{
		Simulator: sim,
		Script:    vm,
		Config:    config.EngineConfig{SuppressAtExitFinalize: true, Quiet: true, IDPoolSize: 100},
		Observer: recordingObserver{
			onFired:   func(taskID int) { observedFires = append(observedFires, taskID) },
			onFlushed: func(path string) { observedFlushes = append(observedFlushes, path) },
		},
	})
	require.NoError(t, err)

	clk, err := e.LookupHandle("top.clk")
	require.NoError(t, err)
	byteTok, err := e.LookupHandle("top.byte")
	require.NoError(t, err)

	require.NoError(t, e.RegisterEdgeCallback(clk, edgecb.Posedge, 7, edgecb.OneShot))
	sim.Fire(vpiabi.CallbackData{Reason: vpiabi.CbValueChange, Obj: h, Value: &vpiabi.Value{Scalar: 1}})
	assert.Equal(t, []int{7}, observedFires)
	assert.Equal(t, uint64(1), e.Stats().Snapshot().EdgeFired)

	require.NoError(t, e.SetValue(byteTok, handlecache.FormatInteger, 0x9, "", nil))
	require.NoError(t, e.env.Buf.Flush(sim, false))
	assert.Equal(t, []string{"top.byte"}, observedFlushes)
	assert.Equal(t, uint64(1), e.Stats().Snapshot().WritesFlushed)
}

// recordingObserver is a test-only Observer that forwards each event to a
// caller-supplied callback instead of a Stats block.
type recordingObserver struct {
	onFired   func(taskID int)
	onFlushed func(path string)
}

func (r recordingObserver) OnEdgeFired(taskID int)  { r.onFired(taskID) }
func (r recordingObserver) OnWriteFlushed(path string) { r.onFlushed(path) }

var _ Observer = recordingObserver{}

func TestLifecycleIdempotenceThroughEngine(t *testing.T) {
	e, _, vm := newEngineFixture(t)
	require.NoError(t, e.Finalize())
	require.NoError(t, e.Finalize())
	assert.Equal(t, 1, vm.BootstrapRuns)
	assert.True(t, vm.Finished)
}

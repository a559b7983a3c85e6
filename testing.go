package govpi

import (
	"sync"

	"github.com/verilua-run/govpi/internal/vpiabi"
	"github.com/verilua-run/govpi/internal/vpibridge"
)

// MockSimulator is a complete in-memory vpibridge.Simulator: HandleByName,
// GetValue, PutValue, RegisterCallback, RemoveCallback and Finish record
// how many times they were invoked, and a handful of fields let a
// test script the simulator's responses without cgo or a real simulator
// process.
type MockSimulator struct {
	mu sync.Mutex

	nextHandle vpiabi.Handle
	byName     map[string]vpiabi.Handle
	widths     map[vpiabi.Handle]int
	values     map[vpiabi.Handle]vpiabi.Value
	subs       map[vpibridge.SubscriptionHandle]vpibridge.CallbackFunc
	nextSub    vpibridge.SubscriptionHandle

	HandleByNameCalls int
	GetValueCalls     int
	PutValueCalls     int
	RegisterCalls     int
	RemoveCalls       int
	FinishCalls       int
	closed            bool
}

// NewMockSimulator constructs an empty MockSimulator.
func NewMockSimulator() *MockSimulator {
	return &MockSimulator{
		byName: make(map[string]vpiabi.Handle),
		widths: make(map[vpiabi.Handle]int),
		values: make(map[vpiabi.Handle]vpiabi.Value),
		subs:   make(map[vpibridge.SubscriptionHandle]vpibridge.CallbackFunc),
	}
}

// DeclareSignal registers a named signal of the given width, for tests to
// populate a fixture before exercising the engine against it.
func (m *MockSimulator) DeclareSignal(path string, width int) vpiabi.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextHandle++
	h := m.nextHandle
	m.byName[path] = h
	m.widths[h] = width
	return h
}

func (m *MockSimulator) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockSimulator) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockSimulator) HandleByName(path string) (vpiabi.Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HandleByNameCalls++
	return m.byName[path], nil
}

func (m *MockSimulator) HandleByIndex(parent vpiabi.Handle, index int) (vpiabi.Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextHandle++
	h := m.nextHandle
	m.widths[h] = m.widths[parent]
	return h, nil
}

func (m *MockSimulator) GetWidth(h vpiabi.Handle) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.widths[h], nil
}

func (m *MockSimulator) GetValue(h vpiabi.Handle, format int32) (vpiabi.Value, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetValueCalls++
	return m.values[h], nil
}

func (m *MockSimulator) PutValue(h vpiabi.Handle, value vpiabi.Value, flag int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PutValueCalls++
	m.values[h] = value
	return nil
}

func (m *MockSimulator) GetSimTime() (uint64, error) { return 0, nil }

func (m *MockSimulator) RegisterCallback(data vpiabi.CallbackData, fn vpibridge.CallbackFunc) (vpibridge.SubscriptionHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RegisterCalls++
	m.nextSub++
	m.subs[m.nextSub] = fn
	return m.nextSub, nil
}

func (m *MockSimulator) RemoveCallback(sub vpibridge.SubscriptionHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RemoveCalls++
	delete(m.subs, sub)
	return nil
}

func (m *MockSimulator) Finish() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FinishCalls++
	return nil
}

// Fire invokes every currently-registered subscription's callback with
// the given data, simulating the simulator driving a value-change or
// timed event.
func (m *MockSimulator) Fire(data vpiabi.CallbackData) {
	m.mu.Lock()
	fns := make([]vpibridge.CallbackFunc, 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(data)
	}
}

// CallCounts returns a snapshot map of call counters, mirroring the
// teacher's MockBackend.CallCounts for easy test assertions.
func (m *MockSimulator) CallCounts() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]int{
		"handle_by_name": m.HandleByNameCalls,
		"get_value":      m.GetValueCalls,
		"put_value":      m.PutValueCalls,
		"register":       m.RegisterCalls,
		"remove":         m.RemoveCalls,
		"finish":         m.FinishCalls,
	}
}

// Reset zeroes every call counter without discarding declared signals.
func (m *MockSimulator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HandleByNameCalls = 0
	m.GetValueCalls = 0
	m.PutValueCalls = 0
	m.RegisterCalls = 0
	m.RemoveCalls = 0
	m.FinishCalls = 0
}

var _ vpibridge.Simulator = (*MockSimulator)(nil)

// MockScript is a minimal lifecycle.Script/edgecb.ScriptHost double for
// tests that need to drive the engine without a real embedded VM.
type MockScript struct {
	mu            sync.Mutex
	BootstrapErr  error
	RunErr        error
	FinishErr     error
	Events        []int
	ChunkEvents   [][]int
	BootstrapRuns int
	RanScript     string
	Finished      bool
}

func (s *MockScript) Bootstrap() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BootstrapRuns++
	return s.BootstrapErr
}

func (s *MockScript) RunUserScript(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RanScript = path
	return s.RunErr
}

func (s *MockScript) FinishCallback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Finished = true
	return s.FinishErr
}

func (s *MockScript) SimEvent(taskID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Events = append(s.Events, taskID)
	return nil
}

func (s *MockScript) SimEventChunk(taskIDs []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ChunkEvents = append(s.ChunkEvents, append([]int(nil), taskIDs...))
	return nil
}

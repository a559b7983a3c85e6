// Package wavevpi implements the waveform-backend alternate lower edge:
// the same Simulator surface, read-only, served from a parsed
// value-change dump instead of a live simulator process. No suitable
// third-party VCD/FST parser library was available to build this on, so
// the parser and its on-disk cache are hand-written against the standard
// library (see DESIGN.md).
package wavevpi

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/verilua-run/govpi/internal/vpiabi"
	"github.com/verilua-run/govpi/internal/vpibridge"
)

// sample is one recorded value-change at a given time index.
type sample struct {
	Time  uint64
	Value uint8
}

// signalTrace is the decoded history of one signal.
type signalTrace struct {
	Width   int
	Samples []sample
}

// cacheFile is the persisted, gob-encoded parse result, keyed externally
// by source file size and modification time.
type cacheFile struct {
	Size    int64
	ModTime int64
	Signals map[string]signalTrace
}

// Backend implements vpibridge.Simulator read-only over a parsed
// waveform, plus the extra wellen_* operations this lower edge exposes
// for alternate-backend tooling.
type Backend struct {
	signals   map[string]signalTrace
	handles   []string // index -> path, used as the Handle bit pattern
	byHandle  map[vpiabi.Handle]string
	curTime   uint64
	precision int
}

// Initialize parses path (or loads it from a size/mtime-keyed on-disk
// cache alongside it) and returns a ready Backend.
func Initialize(path string) (*Backend, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("wavevpi: stat %q: %w", path, err)
	}

	signals, err := loadCached(path, info)
	if err != nil {
		return nil, err
	}

	b := &Backend{
		signals:  signals,
		byHandle: make(map[vpiabi.Handle]string),
	}
	for name := range signals {
		b.handles = append(b.handles, name)
	}
	sort.Strings(b.handles)
	for i, name := range b.handles {
		b.byHandle[vpiabi.Handle(i+1)] = name
	}
	return b, nil
}

func cachePath(path string) string { return path + ".govpicache" }

func loadCached(path string, info os.FileInfo) (map[string]signalTrace, error) {
	cp := cachePath(path)
	if f, err := os.Open(cp); err == nil {
		defer f.Close()
		var cached cacheFile
		if err := gob.NewDecoder(f).Decode(&cached); err == nil {
			if cached.Size == info.Size() && cached.ModTime == info.ModTime().UnixNano() {
				return cached.Signals, nil
			}
		}
	}

	signals, err := parseFile(path)
	if err != nil {
		return nil, err
	}

	if f, err := os.Create(cp); err == nil {
		defer f.Close()
		_ = gob.NewEncoder(f).Encode(cacheFile{
			Size:    info.Size(),
			ModTime: info.ModTime().UnixNano(),
			Signals: signals,
		})
	}
	return signals, nil
}

// parseFile reads a minimal value-change-dump dialect: lines of the form
// "<time> <signal> <hexvalue>". Full VCD/FST grammar support is outside
// this engine's scope; blank lines, "#" comments and lines of any other
// shape are skipped.
func parseFile(path string) (map[string]signalTrace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wavevpi: opening %q: %w", path, err)
	}
	defer f.Close()

	signals := make(map[string]signalTrace)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			continue
		}
		t, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			continue
		}
		v, err := strconv.ParseUint(fields[2], 16, 8)
		if err != nil {
			continue
		}
		trace := signals[fields[1]]
		trace.Samples = append(trace.Samples, sample{Time: t, Value: uint8(v)})
		signals[fields[1]] = trace
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("wavevpi: reading %q: %w", path, err)
	}
	return signals, nil
}

// Finalize releases the backend; there is nothing to flush since reads
// are the only supported operation.
func (b *Backend) Finalize() error { return nil }

func (b *Backend) Close() error { return nil }

func (b *Backend) HandleByName(path string) (vpiabi.Handle, error) {
	for h, name := range b.byHandle {
		if name == path {
			return h, nil
		}
	}
	return 0, nil
}

func (b *Backend) HandleByIndex(parent vpiabi.Handle, index int) (vpiabi.Handle, error) {
	base, ok := b.byHandle[parent]
	if !ok {
		return 0, fmt.Errorf("wavevpi: unknown parent handle %d", parent)
	}
	composed := fmt.Sprintf("%s[%d]", base, index)
	return b.HandleByName(composed)
}

func (b *Backend) GetWidth(h vpiabi.Handle) (int, error) {
	name, ok := b.byHandle[h]
	if !ok {
		return 0, fmt.Errorf("wavevpi: unknown handle %d", h)
	}
	return b.signals[name].Width, nil
}

func (b *Backend) GetValue(h vpiabi.Handle, format int32) (vpiabi.Value, error) {
	name, ok := b.byHandle[h]
	if !ok {
		return vpiabi.Value{}, fmt.Errorf("wavevpi: unknown handle %d", h)
	}
	trace := b.signals[name]
	v := sampleAt(trace, b.curTime)
	return vpiabi.Value{Format: format, Integer: uint32(v), Scalar: v}, nil
}

func sampleAt(trace signalTrace, t uint64) uint8 {
	var last uint8
	for _, s := range trace.Samples {
		if s.Time > t {
			break
		}
		last = s.Value
	}
	return last
}

// PutValue always fails: the waveform backend is read-only.
func (b *Backend) PutValue(h vpiabi.Handle, value vpiabi.Value, flag int32) error {
	return fmt.Errorf("wavevpi: backend is read-only, cannot put value")
}

func (b *Backend) GetSimTime() (uint64, error) { return b.curTime, nil }

// SeekTime advances the backend's notion of current time, the waveform
// analogue of the simulator actually running.
func (b *Backend) SeekTime(t uint64) { b.curTime = t }

func (b *Backend) RegisterCallback(data vpiabi.CallbackData, fn vpibridge.CallbackFunc) (vpibridge.SubscriptionHandle, error) {
	return 0, fmt.Errorf("wavevpi: callback registration is not supported over a waveform file")
}

func (b *Backend) RemoveCallback(sub vpibridge.SubscriptionHandle) error { return nil }

func (b *Backend) Finish() error { return nil }

// GetMaxIndex returns the largest number of samples recorded for any
// signal (the wellen_get_max_index operation).
func (b *Backend) GetMaxIndex() int {
	max := 0
	for _, trace := range b.signals {
		if len(trace.Samples) > max {
			max = len(trace.Samples)
		}
	}
	return max
}

// GetTimePrecision reports the backend's time-unit precision (wellen_get_time_precision).
func (b *Backend) GetTimePrecision() int { return b.precision }

var _ vpibridge.Simulator = (*Backend)(nil)

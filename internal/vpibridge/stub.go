//go:build !cgovpi || !linux

package vpibridge

import "github.com/verilua-run/govpi/internal/vpiabi"

// stubSimulator is the build used by every test, every non-linux platform,
// and every linux build that omits -tags cgovpi. It never reaches a real
// simulator; every method fails closed with ErrNotSupported rather than
// hanging or panicking, so callers with no simulator linked in get a clear
// error instead of a confusing zero value.
type stubSimulator struct{}

// NewCgoSimulator reports that no simulator is linked in this build.
func NewCgoSimulator() (Simulator, error) {
	return nil, ErrNotSupported
}

func (stubSimulator) Close() error { return ErrNotSupported }

func (stubSimulator) HandleByName(path string) (vpiabi.Handle, error) {
	return 0, ErrNotSupported
}

func (stubSimulator) HandleByIndex(parent vpiabi.Handle, index int) (vpiabi.Handle, error) {
	return 0, ErrNotSupported
}

func (stubSimulator) GetWidth(h vpiabi.Handle) (int, error) {
	return 0, ErrNotSupported
}

func (stubSimulator) GetValue(h vpiabi.Handle, format int32) (vpiabi.Value, error) {
	return vpiabi.Value{}, ErrNotSupported
}

func (stubSimulator) PutValue(h vpiabi.Handle, value vpiabi.Value, flag int32) error {
	return ErrNotSupported
}

func (stubSimulator) GetSimTime() (uint64, error) {
	return 0, ErrNotSupported
}

func (stubSimulator) RegisterCallback(data vpiabi.CallbackData, fn CallbackFunc) (SubscriptionHandle, error) {
	return 0, ErrNotSupported
}

func (stubSimulator) RemoveCallback(sub SubscriptionHandle) error {
	return ErrNotSupported
}

func (stubSimulator) Finish() error { return ErrNotSupported }

var _ Simulator = stubSimulator{}

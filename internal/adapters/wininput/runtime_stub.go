//go:build !windows

package wininput

import (
	"fmt"
	"time"

	"textlift/internal/core/capture"
)

type Runtime struct{}

func NewRuntime(cfg RuntimeConfig, board capture.Clipboard, sink capture.Sink, logger capture.Logger) (*Runtime, error) {
	return nil, fmt.Errorf("windows input runtime is only available on Windows")
}

func (r *Runtime) Start() error {
	return fmt.Errorf("windows input runtime is only available on Windows")
}

func (r *Runtime) Stop() {}

func (r *Runtime) SetEnabled(enabled bool) {}

func (r *Runtime) IsEnabled() bool {
	return false
}

func (r *Runtime) Service() *capture.Service {
	return nil
}

func ListInputDevices() ([]DeviceInfo, error) {
	return nil, fmt.Errorf("windows input runtime is only available on Windows")
}

func ProbeNextKeyCode(timeout time.Duration) (uint16, error) {
	return 0, fmt.Errorf("windows input runtime is only available on Windows")
}

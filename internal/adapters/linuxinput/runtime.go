package linuxinput

import (
	"errors"
	"fmt"
	"sync"
	"syscall"
	"time"

	"textlift/internal/core/capture"

	evdev "github.com/holoplot/go-evdev"
)

type RuntimeConfig struct {
	TriggerCodes    map[uint16]struct{}
	GestureInterval time.Duration
	SettleDelay     time.Duration
	StartEnabled    bool
}

// Runtime reads key events from the selected evdev devices and feeds them
// into the capture service. Copy chords are injected through a dedicated
// uinput keyboard.
type Runtime struct {
	sourceDevices []*evdev.InputDevice
	service       *capture.Service
	logger        capture.Logger

	stopCh    chan struct{}
	stopOnce  sync.Once
	readersWG sync.WaitGroup
}

type uinputInjector struct {
	mu  sync.Mutex
	dev *evdev.InputDevice
}

// SendCopy types Ctrl+C on the virtual keyboard. The chord is written as
// press/release pairs with a sync report after each step so compositors
// apply them in order.
func (u *uinputInjector) SendCopy() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	steps := []capture.Event{
		{Type: capture.EventTypeKey, Code: capture.LeftCtrlCode, Value: 1},
		{Type: capture.EventTypeSyn, Code: capture.SynReportCode, Value: 0},
		{Type: capture.EventTypeKey, Code: capture.CKeyCode, Value: 1},
		{Type: capture.EventTypeSyn, Code: capture.SynReportCode, Value: 0},
		{Type: capture.EventTypeKey, Code: capture.CKeyCode, Value: 0},
		{Type: capture.EventTypeSyn, Code: capture.SynReportCode, Value: 0},
		{Type: capture.EventTypeKey, Code: capture.LeftCtrlCode, Value: 0},
		{Type: capture.EventTypeSyn, Code: capture.SynReportCode, Value: 0},
	}
	for _, step := range steps {
		ev := evdev.InputEvent{
			Type:  evdev.EvType(step.Type),
			Code:  evdev.EvCode(step.Code),
			Value: step.Value,
		}
		if err := u.dev.WriteOne(&ev); err != nil {
			return err
		}
	}
	return nil
}

func (u *uinputInjector) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.dev == nil {
		return nil
	}
	return u.dev.Close()
}

func NewRuntime(selection *SourceSelection, cfg RuntimeConfig, board capture.Clipboard, sink capture.Sink, logger capture.Logger) (*Runtime, error) {
	if selection == nil {
		return nil, fmt.Errorf("source selection is nil")
	}
	if len(selection.Devices) == 0 {
		return nil, fmt.Errorf("source selection has no devices")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	id := evdev.InputID{
		BusType: uint16(evdev.BUS_VIRTUAL),
		Vendor:  0x1,
		Product: 0x1,
		Version: 1,
	}
	capabilities := map[evdev.EvType][]evdev.EvCode{
		evdev.EV_KEY: {
			evdev.EvCode(capture.LeftCtrlCode),
			evdev.EvCode(capture.CKeyCode),
		},
	}
	injectorDev, err := evdev.CreateDevice("textlift", id, capabilities)
	if err != nil {
		return nil, fmt.Errorf("failed to create uinput keyboard: %w", err)
	}
	injector := &uinputInjector{dev: injectorDev}

	service, err := capture.NewService(
		capture.Config{
			TriggerCodes:    cfg.TriggerCodes,
			GestureInterval: cfg.GestureInterval,
			SettleDelay:     cfg.SettleDelay,
			StartEnabled:    cfg.StartEnabled,
		},
		injector,
		board,
		sink,
		logger,
	)
	if err != nil {
		_ = injector.Close()
		return nil, err
	}

	return &Runtime{
		sourceDevices: selection.Devices,
		service:       service,
		logger:        logger,
		stopCh:        make(chan struct{}),
	}, nil
}

func (r *Runtime) Start() error {
	for _, dev := range r.sourceDevices {
		if err := dev.NonBlock(); err != nil {
			return fmt.Errorf("failed to set nonblocking mode for %s: %w", dev.Path(), err)
		}
	}

	r.service.Start()
	for _, dev := range r.sourceDevices {
		r.readersWG.Add(1)
		go r.readLoop(dev)
	}
	return nil
}

func (r *Runtime) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
		for _, dev := range r.sourceDevices {
			_ = dev.Close()
		}
		r.readersWG.Wait()
		r.service.Stop()
	})
}

func (r *Runtime) SetEnabled(enabled bool) {
	r.service.SetEnabled(enabled)
}

func (r *Runtime) IsEnabled() bool {
	return r.service.IsEnabled()
}

func (r *Runtime) Service() *capture.Service {
	return r.service
}

func (r *Runtime) readLoop(dev *evdev.InputDevice) {
	defer r.readersWG.Done()

	path := dev.Path()
	for {
		if r.stopped() {
			return
		}
		events, err := dev.ReadSlice(64)
		if err != nil {
			if r.stopped() || isDeviceClosedError(err) {
				return
			}
			if isWouldBlockError(err) {
				if !r.sleepWithStop(10 * time.Millisecond) {
					return
				}
				continue
			}
			r.logger.Warn("Read failed", "path", path, "err", err)
			if !r.sleepWithStop(100 * time.Millisecond) {
				return
			}
			continue
		}

		for _, event := range events {
			if event.Type != evdev.EV_KEY {
				continue
			}
			r.service.HandleKey(path, uint16(event.Code), event.Value)
		}
	}
}

func (r *Runtime) stopped() bool {
	select {
	case <-r.stopCh:
		return true
	default:
		return false
	}
}

func (r *Runtime) sleepWithStop(duration time.Duration) bool {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-r.stopCh:
		return false
	case <-timer.C:
		return true
	}
}

func isDeviceClosedError(err error) bool {
	return errors.Is(err, syscall.EBADF) || errors.Is(err, syscall.ENODEV)
}

func isWouldBlockError(err error) bool {
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)
}

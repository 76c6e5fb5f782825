// Package hotkeyinput activates captures through a registered global
// hotkey instead of low-level key hooks. It is the only backend available
// on macOS and an opt-in fallback elsewhere.
package hotkeyinput

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"textlift/internal/core/capture"

	"github.com/micmonay/keybd_event"
	"golang.design/x/hotkey"
)

type RuntimeConfig struct {
	GestureInterval time.Duration
	SettleDelay     time.Duration
	StartEnabled    bool
}

type keybdInjector struct {
	mu sync.Mutex
	kb keybd_event.KeyBonding
}

func newKeybdInjector() (*keybdInjector, error) {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize key synthesizer: %w", err)
	}
	if runtime.GOOS == "linux" {
		// uinput devices need a moment to be picked up before the first
		// injected event is honored.
		time.Sleep(2 * time.Second)
	}
	kb.SetKeys(keybd_event.VK_C)
	kb.HasCTRL(true)
	return &keybdInjector{kb: kb}, nil
}

func (i *keybdInjector) SendCopy() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.kb.Launching()
}

func (i *keybdInjector) Close() error {
	return nil
}

// Runtime fires a capture on Ctrl+Shift+X. There is no double-press
// gesture on this backend; the registered combo is the whole trigger.
type Runtime struct {
	hk      *hotkey.Hotkey
	service *capture.Service
	logger  capture.Logger

	started  bool
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewRuntime(cfg RuntimeConfig, board capture.Clipboard, sink capture.Sink, logger capture.Logger) (*Runtime, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	injector, err := newKeybdInjector()
	if err != nil {
		return nil, err
	}

	service, err := capture.NewService(
		capture.Config{
			// The gesture path is unused here, but the service still wants
			// a trigger vocabulary for its configuration.
			TriggerCodes:    map[uint16]struct{}{capture.LeftShiftCode: {}, capture.RightShiftCode: {}},
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
		return nil, err
	}

	return &Runtime{
		service: service,
		logger:  logger,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

func (r *Runtime) Start() error {
	hk := hotkey.New([]hotkey.Modifier{hotkey.ModCtrl, hotkey.ModShift}, hotkey.KeyX)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("failed to register Ctrl+Shift+X: %w", err)
	}
	r.hk = hk

	r.service.Start()
	r.started = true
	r.logger.Info("registered activation hotkey", "combo", "Ctrl+Shift+X")

	go func() {
		defer close(r.doneCh)
		for {
			select {
			case <-r.stopCh:
				return
			case <-hk.Keydown():
				r.service.TriggerCapture()
			}
		}
	}()
	return nil
}

func (r *Runtime) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
		if r.hk != nil {
			if err := r.hk.Unregister(); err != nil {
				r.logger.Warn("failed to unregister hotkey", "err", err)
			}
		}
		if r.started {
			<-r.doneCh
		}
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

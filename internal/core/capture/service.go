package capture

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Service turns raw key events from the platform adapters into capture
// sessions: a double press of a trigger key synthesizes a copy chord, waits
// for the clipboard to settle and publishes the selected text to the sink.
type Service struct {
	injector CopyInjector
	board    Clipboard
	sink     Sink
	logger   Logger

	now func() time.Time

	mu           sync.Mutex
	triggerCodes map[uint16]struct{}
	interval     time.Duration
	settle       time.Duration
	lastPress    time.Time

	enabled   atomic.Bool
	capturing atomic.Bool
	session   atomic.Uint64

	wakeCh   chan struct{}
	stopCh   chan struct{}
	doneCh   chan struct{}
	started  atomic.Bool
	stopOnce sync.Once
}

func NewService(cfg Config, injector CopyInjector, board Clipboard, sink Sink, logger Logger) (*Service, error) {
	if injector == nil {
		return nil, errors.New("injector is required")
	}
	if board == nil {
		return nil, errors.New("clipboard is required")
	}
	if sink == nil {
		return nil, errors.New("sink is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if len(cfg.TriggerCodes) == 0 {
		return nil, errors.New("at least one trigger code is required")
	}
	if cfg.GestureInterval <= 0 {
		return nil, fmt.Errorf("gesture interval must be positive, got %v", cfg.GestureInterval)
	}
	if cfg.SettleDelay < 0 {
		return nil, fmt.Errorf("settle delay must not be negative, got %v", cfg.SettleDelay)
	}

	codes := make(map[uint16]struct{}, len(cfg.TriggerCodes))
	for code := range cfg.TriggerCodes {
		codes[code] = struct{}{}
	}

	service := &Service{
		injector:     injector,
		board:        board,
		sink:         sink,
		logger:       logger,
		now:          time.Now,
		triggerCodes: codes,
		interval:     cfg.GestureInterval,
		settle:       cfg.SettleDelay,
		wakeCh:       make(chan struct{}, 1),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
	service.enabled.Store(cfg.StartEnabled)
	return service, nil
}

// Start launches the capture worker. HandleKey and TriggerCapture are safe
// to call before Start; gestures fired earlier stay queued in the wake
// channel.
func (s *Service) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go s.captureLoop()
}

func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	if s.started.Load() {
		<-s.doneCh
	}
	if err := s.injector.Close(); err != nil {
		s.logger.Warn("failed to close copy injector", "error", err)
	}
}

func (s *Service) SetEnabled(enabled bool) {
	s.enabled.Store(enabled)
	if !enabled {
		s.mu.Lock()
		s.lastPress = time.Time{}
		s.mu.Unlock()
	}
	s.logger.Info("capture state changed", "enabled", enabled)
}

func (s *Service) IsEnabled() bool {
	return s.enabled.Load()
}

// CurrentSession reports the identifier of the most recent capture. Results
// tagged with an older identifier are stale and must be discarded.
func (s *Service) CurrentSession() uint64 {
	return s.session.Load()
}

func (s *Service) SetGestureInterval(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("gesture interval must be positive, got %v", interval)
	}
	s.mu.Lock()
	s.interval = interval
	s.lastPress = time.Time{}
	s.mu.Unlock()
	return nil
}

func (s *Service) SetSettleDelay(delay time.Duration) error {
	if delay < 0 {
		return fmt.Errorf("settle delay must not be negative, got %v", delay)
	}
	s.mu.Lock()
	s.settle = delay
	s.mu.Unlock()
	return nil
}

func (s *Service) GestureInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

func (s *Service) SettleDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settle
}

// HandleKey is called from adapter read loops and OS callback contexts. It
// only updates the gesture window and signals the worker; it never blocks.
func (s *Service) HandleKey(source string, code uint16, value int32) {
	if !s.enabled.Load() {
		return
	}
	if value != 1 {
		return
	}
	if _, ok := s.isTriggerCode(code); !ok {
		return
	}
	if s.registerPress() {
		s.logger.Debug("double press detected", "source", source, "code", code)
		s.signalWake()
	}
}

func (s *Service) isTriggerCode(code uint16) (uint16, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.triggerCodes[code]
	return code, ok
}

// registerPress reports whether this press completes a double-press
// gesture. A completed gesture resets the window so a third press starts
// over instead of firing again.
func (s *Service) registerPress() bool {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.lastPress.IsZero() && now.Sub(s.lastPress) < s.interval {
		s.lastPress = time.Time{}
		return true
	}
	s.lastPress = now
	return false
}

// TriggerCapture fires a capture without the double-press gesture, used by
// the registered-hotkey backend and the manual recapture control.
func (s *Service) TriggerCapture() {
	if !s.enabled.Load() {
		return
	}
	s.signalWake()
}

func (s *Service) signalWake() {
	if s.capturing.Load() {
		s.logger.Debug("capture already in progress, gesture ignored")
		return
	}
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

func (s *Service) captureLoop() {
	defer close(s.doneCh)
	for {
		select {
		case <-s.stopCh:
			return
		case <-s.wakeCh:
			s.captureOnce()
		}
	}
}

func (s *Service) captureOnce() {
	if !s.capturing.CompareAndSwap(false, true) {
		return
	}
	defer s.capturing.Store(false)

	if err := s.injector.SendCopy(); err != nil {
		s.logger.Warn("failed to synthesize copy chord", "error", err)
	}
	if !s.waitWithStop(s.SettleDelay()) {
		return
	}

	text := strings.TrimSpace(s.board.Read())
	if text == "" {
		s.logger.Info("capture produced no text")
		s.sink.CaptureEmpty()
		return
	}

	id := s.session.Add(1)
	s.logger.Info("captured selection", "session", id, "length", len(text))
	s.sink.CapturedText(id, text)
}

// Publish feeds externally observed text (the clipboard monitor) through
// the same session accounting as a hotkey capture.
func (s *Service) Publish(text string) {
	if !s.enabled.Load() {
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	id := s.session.Add(1)
	s.logger.Info("published clipboard text", "session", id, "length", len(text))
	s.sink.CapturedText(id, text)
}

func (s *Service) waitWithStop(d time.Duration) bool {
	if d <= 0 {
		select {
		case <-s.stopCh:
			return false
		default:
			return true
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-s.stopCh:
		return false
	case <-timer.C:
		return true
	}
}

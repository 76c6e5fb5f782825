package capture

import (
	"sync"
	"testing"
	"time"
)

type recordingInjector struct {
	mu     sync.Mutex
	copies int
	closed bool
}

func (r *recordingInjector) SendCopy() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.copies++
	return nil
}

func (r *recordingInjector) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingInjector) copyCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.copies
}

func (r *recordingInjector) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

type stubBoard struct {
	mu   sync.Mutex
	text string
}

func (b *stubBoard) Read() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}

func (b *stubBoard) set(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text = text
}

type recordingSink struct {
	mu       sync.Mutex
	sessions []uint64
	texts    []string
	empties  int
}

func (s *recordingSink) CapturedText(session uint64, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, session)
	s.texts = append(s.texts, text)
}

func (s *recordingSink) CaptureEmpty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.empties++
}

func (s *recordingSink) snapshot() ([]uint64, []string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessions := make([]uint64, len(s.sessions))
	copy(sessions, s.sessions)
	texts := make([]string, len(s.texts))
	copy(texts, s.texts)
	return sessions, texts, s.empties
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type stubClock struct {
	mu sync.Mutex
	at time.Time
}

func (c *stubClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

func (c *stubClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at = c.at.Add(d)
}

func testConfig(startEnabled bool) Config {
	return Config{
		TriggerCodes:    map[uint16]struct{}{LeftShiftCode: {}, RightShiftCode: {}},
		GestureInterval: 400 * time.Millisecond,
		SettleDelay:     0,
		StartEnabled:    startEnabled,
	}
}

func newTestService(t *testing.T, cfg Config, injector *recordingInjector, board *stubBoard, sink *recordingSink) (*Service, *stubClock) {
	t.Helper()
	service, err := NewService(cfg, injector, board, sink, noopLogger{})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	clock := &stubClock{at: time.Unix(1000, 0)}
	service.now = clock.now
	return service, clock
}

func assertWakeSignaled(t *testing.T, service *Service, want bool) {
	t.Helper()
	select {
	case <-service.wakeCh:
		if !want {
			t.Fatalf("unexpected wake signal")
		}
	default:
		if want {
			t.Fatalf("expected wake signal")
		}
	}
}

func TestHandleKeyFiresOnceWithinInterval(t *testing.T) {
	service, clock := newTestService(t, testConfig(true), &recordingInjector{}, &stubBoard{}, &recordingSink{})

	service.HandleKey("device", LeftShiftCode, 1)
	assertWakeSignaled(t, service, false)

	clock.advance(100 * time.Millisecond)
	service.HandleKey("device", LeftShiftCode, 1)
	assertWakeSignaled(t, service, true)

	// The second press reset the window, so a third rapid press must not
	// fire again.
	clock.advance(100 * time.Millisecond)
	service.HandleKey("device", LeftShiftCode, 1)
	assertWakeSignaled(t, service, false)

	clock.advance(100 * time.Millisecond)
	service.HandleKey("device", LeftShiftCode, 1)
	assertWakeSignaled(t, service, true)
}

func TestHandleKeySlowPairNeverFires(t *testing.T) {
	service, clock := newTestService(t, testConfig(true), &recordingInjector{}, &stubBoard{}, &recordingSink{})

	service.HandleKey("device", RightShiftCode, 1)
	clock.advance(400 * time.Millisecond)
	service.HandleKey("device", RightShiftCode, 1)
	assertWakeSignaled(t, service, false)

	clock.advance(100 * time.Millisecond)
	service.HandleKey("device", RightShiftCode, 1)
	assertWakeSignaled(t, service, true)
}

func TestHandleKeyMixedShiftsCompleteGesture(t *testing.T) {
	service, clock := newTestService(t, testConfig(true), &recordingInjector{}, &stubBoard{}, &recordingSink{})

	service.HandleKey("device", LeftShiftCode, 1)
	clock.advance(50 * time.Millisecond)
	service.HandleKey("device", RightShiftCode, 1)
	assertWakeSignaled(t, service, true)
}

func TestHandleKeyIgnoresReleasesAndOtherCodes(t *testing.T) {
	service, clock := newTestService(t, testConfig(true), &recordingInjector{}, &stubBoard{}, &recordingSink{})

	service.HandleKey("device", LeftShiftCode, 0)
	service.HandleKey("device", CKeyCode, 1)
	clock.advance(50 * time.Millisecond)
	service.HandleKey("device", LeftShiftCode, 0)
	assertWakeSignaled(t, service, false)

	service.HandleKey("device", LeftShiftCode, 1)
	clock.advance(50 * time.Millisecond)
	service.HandleKey("device", LeftShiftCode, 1)
	assertWakeSignaled(t, service, true)
}

func TestHandleKeyIgnoredWhileDisabled(t *testing.T) {
	service, clock := newTestService(t, testConfig(false), &recordingInjector{}, &stubBoard{}, &recordingSink{})

	service.HandleKey("device", LeftShiftCode, 1)
	clock.advance(50 * time.Millisecond)
	service.HandleKey("device", LeftShiftCode, 1)
	assertWakeSignaled(t, service, false)

	service.SetEnabled(true)
	service.HandleKey("device", LeftShiftCode, 1)
	clock.advance(50 * time.Millisecond)
	service.HandleKey("device", LeftShiftCode, 1)
	assertWakeSignaled(t, service, true)
}

func TestCaptureOncePublishesTrimmedText(t *testing.T) {
	injector := &recordingInjector{}
	board := &stubBoard{}
	sink := &recordingSink{}
	service, _ := newTestService(t, testConfig(true), injector, board, sink)

	board.set("  selected text  ")
	service.captureOnce()

	if got := injector.copyCount(); got != 1 {
		t.Fatalf("copyCount() = %d, want 1", got)
	}
	sessions, texts, empties := sink.snapshot()
	if len(sessions) != 1 || sessions[0] != 1 {
		t.Fatalf("unexpected sessions: %v", sessions)
	}
	if len(texts) != 1 || texts[0] != "selected text" {
		t.Fatalf("unexpected texts: %q", texts)
	}
	if empties != 0 {
		t.Fatalf("unexpected empty captures: %d", empties)
	}
	if got := service.CurrentSession(); got != 1 {
		t.Fatalf("CurrentSession() = %d, want 1", got)
	}
}

func TestCaptureOnceEmptyClipboardReportsEmpty(t *testing.T) {
	injector := &recordingInjector{}
	board := &stubBoard{}
	sink := &recordingSink{}
	service, _ := newTestService(t, testConfig(true), injector, board, sink)

	board.set("   \n\t ")
	service.captureOnce()

	sessions, _, empties := sink.snapshot()
	if len(sessions) != 0 {
		t.Fatalf("expected no sessions for empty capture, got %v", sessions)
	}
	if empties != 1 {
		t.Fatalf("expected one empty capture, got %d", empties)
	}
	if got := service.CurrentSession(); got != 0 {
		t.Fatalf("CurrentSession() = %d, want 0", got)
	}
}

func TestSessionsAreMonotonic(t *testing.T) {
	board := &stubBoard{}
	sink := &recordingSink{}
	service, _ := newTestService(t, testConfig(true), &recordingInjector{}, board, sink)

	board.set("first")
	service.captureOnce()
	board.set("second")
	service.captureOnce()

	sessions, texts, _ := sink.snapshot()
	if len(sessions) != 2 || sessions[0] != 1 || sessions[1] != 2 {
		t.Fatalf("unexpected sessions: %v", sessions)
	}
	if texts[1] != "second" {
		t.Fatalf("unexpected latest text: %q", texts[1])
	}
	if got := service.CurrentSession(); got != 2 {
		t.Fatalf("CurrentSession() = %d, want 2", got)
	}
}

func TestTriggerCaptureIgnoredWhileCapturing(t *testing.T) {
	service, _ := newTestService(t, testConfig(true), &recordingInjector{}, &stubBoard{}, &recordingSink{})

	service.capturing.Store(true)
	service.TriggerCapture()
	assertWakeSignaled(t, service, false)

	service.capturing.Store(false)
	service.TriggerCapture()
	assertWakeSignaled(t, service, true)
}

func TestPublishSkipsBlankText(t *testing.T) {
	sink := &recordingSink{}
	service, _ := newTestService(t, testConfig(true), &recordingInjector{}, &stubBoard{}, sink)

	service.Publish("   ")
	service.Publish("watched text")

	sessions, texts, _ := sink.snapshot()
	if len(sessions) != 1 || sessions[0] != 1 {
		t.Fatalf("unexpected sessions: %v", sessions)
	}
	if texts[0] != "watched text" {
		t.Fatalf("unexpected text: %q", texts[0])
	}
}

func TestWaitWithStopReturnsFalseAfterStop(t *testing.T) {
	injector := &recordingInjector{}
	service, _ := newTestService(t, testConfig(true), injector, &stubBoard{}, &recordingSink{})

	done := make(chan bool, 1)
	go func() {
		done <- service.waitWithStop(5 * time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	service.Stop()

	select {
	case ok := <-done:
		if ok {
			t.Fatalf("waitWithStop returned true after Stop")
		}
	case <-time.After(300 * time.Millisecond):
		t.Fatalf("timeout waiting for stop")
	}
	if !injector.isClosed() {
		t.Fatalf("expected injector to be closed")
	}
}

func TestSetGestureIntervalRejectsNonPositive(t *testing.T) {
	service, _ := newTestService(t, testConfig(true), &recordingInjector{}, &stubBoard{}, &recordingSink{})

	if err := service.SetGestureInterval(0); err == nil {
		t.Fatalf("expected error for zero interval")
	}
	if err := service.SetGestureInterval(250 * time.Millisecond); err != nil {
		t.Fatalf("SetGestureInterval() error = %v", err)
	}
	if got := service.GestureInterval(); got != 250*time.Millisecond {
		t.Fatalf("GestureInterval() = %v, want 250ms", got)
	}
}

func TestSetSettleDelayRejectsNegative(t *testing.T) {
	service, _ := newTestService(t, testConfig(true), &recordingInjector{}, &stubBoard{}, &recordingSink{})

	if err := service.SetSettleDelay(-time.Millisecond); err == nil {
		t.Fatalf("expected error for negative delay")
	}
	if err := service.SetSettleDelay(time.Second); err != nil {
		t.Fatalf("SetSettleDelay() error = %v", err)
	}
	if got := service.SettleDelay(); got != time.Second {
		t.Fatalf("SettleDelay() = %v, want 1s", got)
	}
}

package clipboard

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type fakeSystem struct {
	mu   sync.Mutex
	text string
	err  error
}

func (f *fakeSystem) read() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeSystem) write(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.text = text
	return nil
}

func (f *fakeSystem) set(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text = text
}

func newTestBoard(system *fakeSystem) *Board {
	board := NewBoard(noopLogger{})
	board.readFn = system.read
	board.writeFn = system.write
	return board
}

func TestReadReturnsEmptyOnFailure(t *testing.T) {
	system := &fakeSystem{err: errors.New("no display")}
	board := newTestBoard(system)

	if got := board.Read(); got != "" {
		t.Fatalf("Read() = %q, want empty string on failure", got)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	system := &fakeSystem{}
	board := newTestBoard(system)

	if !board.Write("result text") {
		t.Fatalf("Write() = false, want true")
	}
	if got := board.Read(); got != "result text" {
		t.Fatalf("Read() = %q after Write", got)
	}
}

func TestWriteReportsFailure(t *testing.T) {
	system := &fakeSystem{err: errors.New("no display")}
	board := newTestBoard(system)

	if board.Write("text") {
		t.Fatalf("Write() = true, want false on failure")
	}
}

func TestMonitorFiresOnExternalChange(t *testing.T) {
	system := &fakeSystem{text: "initial"}
	board := newTestBoard(system)

	changes := make(chan string, 4)
	monitor, err := NewMonitor(board, 10*time.Millisecond, 0, func(text string) { changes <- text }, noopLogger{})
	if err != nil {
		t.Fatalf("NewMonitor() error = %v", err)
	}
	monitor.Start()
	defer monitor.Stop()

	// The startup value must not fire.
	select {
	case text := <-changes:
		t.Fatalf("unexpected change for startup value: %q", text)
	case <-time.After(50 * time.Millisecond):
	}

	system.set("external text")
	select {
	case text := <-changes:
		if text != "external text" {
			t.Fatalf("change = %q, want external text", text)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for change")
	}
}

func TestMonitorSkipsOwnWrites(t *testing.T) {
	system := &fakeSystem{}
	board := newTestBoard(system)

	changes := make(chan string, 4)
	monitor, err := NewMonitor(board, 10*time.Millisecond, 0, func(text string) { changes <- text }, noopLogger{})
	if err != nil {
		t.Fatalf("NewMonitor() error = %v", err)
	}
	monitor.Start()
	defer monitor.Stop()

	board.Write("our own result")
	select {
	case text := <-changes:
		t.Fatalf("monitor fired on own write: %q", text)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMonitorSkipsOversizedValues(t *testing.T) {
	system := &fakeSystem{}
	board := newTestBoard(system)

	changes := make(chan string, 4)
	monitor, err := NewMonitor(board, 10*time.Millisecond, 100, func(text string) { changes <- text }, noopLogger{})
	if err != nil {
		t.Fatalf("NewMonitor() error = %v", err)
	}
	monitor.Start()
	defer monitor.Stop()

	system.set(strings.Repeat("x", 101))
	select {
	case text := <-changes:
		t.Fatalf("monitor fired on oversized value of length %d", len(text))
	case <-time.After(100 * time.Millisecond):
	}

	system.set("small value")
	select {
	case text := <-changes:
		if text != "small value" {
			t.Fatalf("change = %q", text)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for small value")
	}
}

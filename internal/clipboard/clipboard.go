// Package clipboard serializes system clipboard access behind one mutex so
// a capture read and a copy-result write can never interleave.
package clipboard

import (
	"sync"

	"github.com/atotto/clipboard"
)

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type Board struct {
	logger Logger

	mu      sync.Mutex
	readFn  func() (string, error)
	writeFn func(string) error
	lastSet string
	hasSet  bool
}

func NewBoard(logger Logger) *Board {
	return &Board{
		logger:  logger,
		readFn:  clipboard.ReadAll,
		writeFn: clipboard.WriteAll,
	}
}

// Read returns the clipboard text, or the empty string when the clipboard
// is unavailable. Failures are never fatal.
func (b *Board) Read() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	text, err := b.readFn()
	if err != nil {
		b.logger.Warn("clipboard read failed", "error", err)
		return ""
	}
	return text
}

// Write puts text on the clipboard and remembers it so the change monitor
// does not re-trigger on our own writes.
func (b *Board) Write(text string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.writeFn(text); err != nil {
		b.logger.Warn("clipboard write failed", "error", err)
		return false
	}
	b.lastSet = text
	b.hasSet = true
	return true
}

// readForMonitor reports the clipboard text together with whether it was
// written by us since the last poll.
func (b *Board) readForMonitor() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	text, err := b.readFn()
	if err != nil {
		b.logger.Debug("clipboard poll failed", "error", err)
		return "", false
	}
	if b.hasSet && text == b.lastSet {
		return text, true
	}
	return text, false
}

package clipboard

import (
	"errors"
	"sync"
	"time"
)

const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultMaxLength    = 10000
)

// Monitor polls the clipboard and reports changed values. Oversized values
// and our own writes are skipped.
type Monitor struct {
	board    *Board
	interval time.Duration
	maxLen   int
	onChange func(text string)
	logger   Logger

	mu      sync.Mutex
	last    string
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

func NewMonitor(board *Board, interval time.Duration, maxLen int, onChange func(string), logger Logger) (*Monitor, error) {
	if board == nil {
		return nil, errors.New("board is required")
	}
	if onChange == nil {
		return nil, errors.New("onChange is required")
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}
	return &Monitor{
		board:    board,
		interval: interval,
		maxLen:   maxLen,
		onChange: onChange,
		logger:   logger,
	}, nil
}

func (m *Monitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	// Seed with the current value so startup content does not fire.
	m.last, _ = m.board.readForMonitor()
	m.mu.Unlock()

	m.logger.Info("clipboard monitor started", "interval", m.interval, "maxLength", m.maxLen)
	go m.loop()
}

func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopCh)
	done := m.doneCh
	m.mu.Unlock()
	<-done
}

func (m *Monitor) loop() {
	defer close(m.doneCh)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.poll()
		}
	}
}

func (m *Monitor) poll() {
	text, selfWrite := m.board.readForMonitor()

	m.mu.Lock()
	changed := text != m.last
	m.last = text
	m.mu.Unlock()

	if !changed || selfWrite || text == "" {
		return
	}
	if len(text) > m.maxLen {
		m.logger.Debug("ignoring oversized clipboard value", "length", len(text))
		return
	}
	m.onChange(text)
}

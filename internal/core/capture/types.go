package capture

import "time"

const (
	EventTypeSyn uint16 = 0x00
	EventTypeKey uint16 = 0x01

	SynReportCode  uint16 = 0
	LeftShiftCode  uint16 = 0x2a
	RightShiftCode uint16 = 0x36
	LeftCtrlCode   uint16 = 0x1d
	CKeyCode       uint16 = 0x2e
)

type Event struct {
	Type  uint16
	Code  uint16
	Value int32
}

type Config struct {
	TriggerCodes    map[uint16]struct{}
	GestureInterval time.Duration
	SettleDelay     time.Duration
	StartEnabled    bool
}

// CopyInjector synthesizes the platform copy chord into the focused
// application.
type CopyInjector interface {
	SendCopy() error
	Close() error
}

type Clipboard interface {
	Read() string
}

// Sink receives capture outcomes. Implementations must not block; the UI
// sink enqueues onto the event loop.
type Sink interface {
	CapturedText(session uint64, text string)
	CaptureEmpty()
}

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

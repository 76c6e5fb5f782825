//go:build linux

package x11input

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"textlift/internal/adapters/linuxinput"
	"textlift/internal/core/capture"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgb/xtest"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
)

type RuntimeConfig struct {
	TriggerCodes    map[uint16]struct{}
	GestureInterval time.Duration
	SettleDelay     time.Duration
	StartEnabled    bool
}

// Runtime grabs the trigger keys on the X11 root window and replays them to
// the focused application, so the gesture is observed without swallowing
// normal typing. Copy chords are synthesized through XTEST.
type Runtime struct {
	xu      *xgbutil.XUtil
	conn    *xgb.Conn
	rootWin xproto.Window

	service *capture.Service
	logger  capture.Logger

	mu        sync.RWMutex
	keyToCode map[xproto.Keycode]uint16

	grabbedKeys []xproto.Keycode

	injectMu    sync.Mutex
	ctrlKeycode xproto.Keycode
	cKeycode    xproto.Keycode

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

type x11Injector struct {
	r *Runtime
}

func (i *x11Injector) SendCopy() error {
	i.r.injectMu.Lock()
	defer i.r.injectMu.Unlock()

	steps := []struct {
		eventType byte
		detail    xproto.Keycode
	}{
		{xproto.KeyPress, i.r.ctrlKeycode},
		{xproto.KeyPress, i.r.cKeycode},
		{xproto.KeyRelease, i.r.cKeycode},
		{xproto.KeyRelease, i.r.ctrlKeycode},
	}
	for _, step := range steps {
		if err := xtest.FakeInputChecked(
			i.r.conn,
			step.eventType,
			byte(step.detail),
			xproto.TimeCurrentTime,
			i.r.rootWin,
			0,
			0,
			0,
		).Check(); err != nil {
			return err
		}
	}
	i.r.conn.Sync()
	return nil
}

func (i *x11Injector) Close() error {
	return nil
}

func NewRuntime(cfg RuntimeConfig, board capture.Clipboard, sink capture.Sink, logger capture.Logger) (*Runtime, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, err
	}
	conn := xu.Conn()
	if conn == nil {
		return nil, fmt.Errorf("failed to open X11 connection")
	}

	if err := xtest.Init(conn); err != nil {
		conn.Close()
		return nil, err
	}
	keybind.Initialize(xu)

	r := &Runtime{
		xu:      xu,
		conn:    conn,
		rootWin: xu.RootWin(),
		logger:  logger,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}

	ctrl, err := r.resolveSingleKeycode("Control_L")
	if err != nil {
		conn.Close()
		return nil, err
	}
	cKey, err := r.resolveSingleKeycode("c")
	if err != nil {
		conn.Close()
		return nil, err
	}
	r.ctrlKeycode = ctrl
	r.cKeycode = cKey

	service, err := capture.NewService(
		capture.Config{
			TriggerCodes:    cfg.TriggerCodes,
			GestureInterval: cfg.GestureInterval,
			SettleDelay:     cfg.SettleDelay,
			StartEnabled:    cfg.StartEnabled,
		},
		&x11Injector{r: r},
		board,
		sink,
		logger,
	)
	if err != nil {
		conn.Close()
		return nil, err
	}
	r.service = service

	if err := r.applyBindings(cfg.TriggerCodes); err != nil {
		r.service.Stop()
		conn.Close()
		return nil, err
	}

	return r, nil
}

func (r *Runtime) Start() error {
	r.service.Start()
	go r.eventLoop()
	return nil
}

func (r *Runtime) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)

		r.mu.Lock()
		r.ungrabAllLocked()
		if r.conn != nil {
			r.conn.Close()
		}
		r.mu.Unlock()

		<-r.doneCh
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

func (r *Runtime) eventLoop() {
	defer close(r.doneCh)

	for {
		event, xerr := r.conn.WaitForEvent()
		if xerr != nil {
			select {
			case <-r.stopCh:
				return
			default:
			}
			r.logger.Warn("X11 event error", "err", xerr)
			continue
		}
		if event == nil {
			return
		}

		switch ev := event.(type) {
		case xproto.KeyPressEvent:
			if code, ok := r.lookupKeyCode(ev.Detail); ok {
				r.service.HandleKey("x11-global", code, 1)
			}
			// Replay the grabbed key so the focused window still sees it.
			_ = xproto.AllowEventsChecked(r.conn, xproto.AllowReplayKeyboard, xproto.TimeCurrentTime).Check()
		case xproto.KeyReleaseEvent:
			if code, ok := r.lookupKeyCode(ev.Detail); ok {
				r.service.HandleKey("x11-global", code, 0)
			}
			_ = xproto.AllowEventsChecked(r.conn, xproto.AllowReplayKeyboard, xproto.TimeCurrentTime).Check()
		}
	}
}

func (r *Runtime) lookupKeyCode(key xproto.Keycode) (uint16, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	code, ok := r.keyToCode[key]
	return code, ok
}

func (r *Runtime) applyBindings(triggerCodes map[uint16]struct{}) error {
	keyToCode := make(map[xproto.Keycode]uint16)
	for code := range triggerCodes {
		keycodes, err := r.resolveKeycodes(code)
		if err != nil {
			return fmt.Errorf("trigger binding: %w", err)
		}
		for _, key := range keycodes {
			keyToCode[key] = code
		}
	}
	if len(keyToCode) == 0 {
		return fmt.Errorf("no trigger keys resolved to X11 keycodes")
	}

	keys := make([]xproto.Keycode, 0, len(keyToCode))
	for key := range keyToCode {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	r.mu.Lock()
	defer r.mu.Unlock()

	r.ungrabAllLocked()
	if err := r.grabAllLocked(keys); err != nil {
		r.ungrabAllLocked()
		return err
	}
	r.keyToCode = keyToCode
	return nil
}

func (r *Runtime) grabAllLocked(keys []xproto.Keycode) error {
	for _, key := range keys {
		// GrabModeSync on the keyboard lets us replay the event to the
		// focused window via AllowReplayKeyboard.
		if err := xproto.GrabKeyChecked(
			r.conn,
			false,
			r.rootWin,
			xproto.ModMaskAny,
			key,
			xproto.GrabModeAsync,
			xproto.GrabModeSync,
		).Check(); err != nil {
			return err
		}
		r.grabbedKeys = append(r.grabbedKeys, key)
	}
	return nil
}

func (r *Runtime) ungrabAllLocked() {
	for _, key := range r.grabbedKeys {
		xproto.UngrabKey(r.conn, key, r.rootWin, xproto.ModMaskAny)
	}
	r.grabbedKeys = nil
}

func (r *Runtime) resolveKeycodes(code uint16) ([]xproto.Keycode, error) {
	keyName, ok := linuxCodeToXKeyString(code)
	if !ok {
		return nil, fmt.Errorf("unsupported X11 key code %s", linuxinput.FormatCodeName(code))
	}

	keycodes := keybind.StrToKeycodes(r.xu, keyName)
	if len(keycodes) == 0 {
		return nil, fmt.Errorf("failed to resolve X11 key %q", keyName)
	}

	uniq := make(map[xproto.Keycode]struct{}, len(keycodes))
	for _, keycode := range keycodes {
		uniq[keycode] = struct{}{}
	}
	result := make([]xproto.Keycode, 0, len(uniq))
	for key := range uniq {
		result = append(result, key)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result, nil
}

func (r *Runtime) resolveSingleKeycode(name string) (xproto.Keycode, error) {
	keycodes := keybind.StrToKeycodes(r.xu, name)
	if len(keycodes) == 0 {
		return 0, fmt.Errorf("failed to resolve X11 key %q", name)
	}
	return keycodes[0], nil
}

// ProbeNextKeyCode grabs the keyboard and reports the next pressed key as a
// linux key code, used by --choose-trigger on the x11 backend.
func ProbeNextKeyCode(timeout time.Duration) (uint16, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	xu, err := xgbutil.NewConn()
	if err != nil {
		return 0, err
	}
	conn := xu.Conn()
	root := xu.RootWin()
	keybind.Initialize(xu)

	defer conn.Close()
	defer xproto.UngrabKeyboard(conn, xproto.TimeCurrentTime)

	if reply, err := xproto.GrabKeyboard(
		conn,
		false,
		root,
		xproto.TimeCurrentTime,
		xproto.GrabModeAsync,
		xproto.GrabModeAsync,
	).Reply(); err != nil {
		return 0, err
	} else if reply.Status != xproto.GrabStatusSuccess {
		return 0, fmt.Errorf("failed to grab keyboard (status=%d)", reply.Status)
	}

	deadline := time.Now().Add(timeout)
	for {
		event, xerr := conn.PollForEvent()
		if xerr != nil {
			return 0, xerr
		}
		if event == nil {
			if time.Now().After(deadline) {
				return 0, fmt.Errorf("timed out waiting for key input")
			}
			time.Sleep(2 * time.Millisecond)
			continue
		}

		if ev, ok := event.(xproto.KeyPressEvent); ok {
			lookup := keybind.LookupString(xu, ev.State, ev.Detail)
			if code, ok := xLookupStringToLinuxCode(lookup); ok {
				return code, nil
			}
		}
	}
}

func linuxCodeToXKeyString(code uint16) (string, bool) {
	name := linuxinput.FormatCodeName(code)
	if !strings.HasPrefix(name, "KEY_") {
		return "", false
	}
	token := strings.TrimPrefix(name, "KEY_")

	switch token {
	case "ESC":
		return "Escape", true
	case "ENTER":
		return "Return", true
	case "TAB":
		return "Tab", true
	case "SPACE":
		return "space", true
	case "LEFTSHIFT":
		return "Shift_L", true
	case "RIGHTSHIFT":
		return "Shift_R", true
	case "LEFTCTRL":
		return "Control_L", true
	case "RIGHTCTRL":
		return "Control_R", true
	case "LEFTALT":
		return "Alt_L", true
	case "RIGHTALT":
		return "Alt_R", true
	case "LEFTMETA":
		return "Super_L", true
	case "RIGHTMETA":
		return "Super_R", true
	case "CAPSLOCK":
		return "Caps_Lock", true
	case "PAUSE":
		return "Pause", true
	case "MENU":
		return "Menu", true
	}

	if len(token) == 1 && token[0] >= 'A' && token[0] <= 'Z' {
		return strings.ToLower(token), true
	}
	if len(token) == 1 && token[0] >= '0' && token[0] <= '9' {
		return token, true
	}
	if strings.HasPrefix(token, "F") && len(token) > 1 && isDigits(token[1:]) {
		return token, true
	}

	return "", false
}

func xLookupStringToLinuxCode(value string) (uint16, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0, false
	}

	raw := strings.ToLower(v)
	keyName := ""
	if len(raw) == 1 && (raw[0] >= 'a' && raw[0] <= 'z' || raw[0] >= '0' && raw[0] <= '9') {
		keyName = "KEY_" + strings.ToUpper(raw)
	} else if strings.HasPrefix(raw, "f") && len(raw) > 1 && isDigits(raw[1:]) {
		keyName = "KEY_" + strings.ToUpper(raw)
	} else {
		switch raw {
		case "escape":
			keyName = "KEY_ESC"
		case "return":
			keyName = "KEY_ENTER"
		case "tab":
			keyName = "KEY_TAB"
		case "space":
			keyName = "KEY_SPACE"
		case "shift_l":
			keyName = "KEY_LEFTSHIFT"
		case "shift_r":
			keyName = "KEY_RIGHTSHIFT"
		case "control_l":
			keyName = "KEY_LEFTCTRL"
		case "control_r":
			keyName = "KEY_RIGHTCTRL"
		case "alt_l":
			keyName = "KEY_LEFTALT"
		case "alt_r":
			keyName = "KEY_RIGHTALT"
		case "super_l":
			keyName = "KEY_LEFTMETA"
		case "super_r":
			keyName = "KEY_RIGHTMETA"
		case "caps_lock":
			keyName = "KEY_CAPSLOCK"
		case "pause":
			keyName = "KEY_PAUSE"
		case "menu":
			keyName = "KEY_MENU"
		}
	}

	if keyName == "" {
		return 0, false
	}
	code, err := linuxinput.ParseCode(keyName)
	if err != nil {
		return 0, false
	}
	return code, true
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

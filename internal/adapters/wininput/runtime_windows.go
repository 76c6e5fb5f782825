//go:build windows

package wininput

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"textlift/internal/core/capture"
)

const (
	whKeyboardLL = 13

	wmQuit       = 0x0012
	wmKeyDown    = 0x0100
	wmKeyUp      = 0x0101
	wmSysKeyDown = 0x0104
	wmSysKeyUp   = 0x0105

	llkhfInjected        = 0x00000010
	llkhfLowerILInjected = 0x00000002

	inputKeyboard  = 1
	keyeventfKeyUp = 0x0002

	globalSourceIdentity = "windows-global"
)

var (
	user32 = syscall.NewLazyDLL("user32.dll")

	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetMessageW         = user32.NewProc("GetMessageW")
	procTranslateMessage    = user32.NewProc("TranslateMessage")
	procDispatchMessageW    = user32.NewProc("DispatchMessageW")
	procPostThreadMessageW  = user32.NewProc("PostThreadMessageW")
	procSendInput           = user32.NewProc("SendInput")
	procGetAsyncKeyState    = user32.NewProc("GetAsyncKeyState")

	kernel32 = syscall.NewLazyDLL("kernel32.dll")

	procGetCurrentThreadID = kernel32.NewProc("GetCurrentThreadId")

	keyboardHookCallback = syscall.NewCallback(keyboardLLCallback)

	activeRuntime atomic.Pointer[Runtime]
)

type point struct {
	X int32
	Y int32
}

type keyboardLLHookStruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type message struct {
	Hwnd     uintptr
	Message  uint32
	WParam   uintptr
	LParam   uintptr
	Time     uint32
	Pt       point
	LPrivate uint32
}

type keyboardInput struct {
	WVK         uint16
	WScan       uint16
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

// input matches the 64-bit INPUT layout; the trailing pad brings the union
// up to MOUSEINPUT size.
type input struct {
	Type uint32
	_    uint32
	Ki   keyboardInput
	_    [8]byte
}

type windowsInjector struct {
	mu sync.Mutex
}

// SendCopy synthesizes Ctrl+C into the foreground window via SendInput.
func (i *windowsInjector) SendCopy() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	ctrlVK, _ := CodeToVK(codeKEYLeftCtrl)
	cVK := vkC
	inputs := []input{
		{Type: inputKeyboard, Ki: keyboardInput{WVK: uint16(ctrlVK)}},
		{Type: inputKeyboard, Ki: keyboardInput{WVK: uint16(cVK)}},
		{Type: inputKeyboard, Ki: keyboardInput{WVK: uint16(cVK), DwFlags: keyeventfKeyUp}},
		{Type: inputKeyboard, Ki: keyboardInput{WVK: uint16(ctrlVK), DwFlags: keyeventfKeyUp}},
	}

	sent, _, callErr := procSendInput.Call(
		uintptr(len(inputs)),
		uintptr(unsafe.Pointer(&inputs[0])),
		unsafe.Sizeof(inputs[0]),
	)
	if sent != uintptr(len(inputs)) {
		if callErr != nil && callErr != syscall.Errno(0) {
			return callErr
		}
		return fmt.Errorf("SendInput sent %d of %d inputs", sent, len(inputs))
	}
	return nil
}

func (i *windowsInjector) Close() error {
	return nil
}

type Runtime struct {
	service *capture.Service
	logger  capture.Logger

	stopOnce sync.Once
	stopCh   chan struct{}

	threadID atomic.Uint32
	loopMu   sync.Mutex
	loopDone chan struct{}
}

func NewRuntime(cfg RuntimeConfig, board capture.Clipboard, sink capture.Sink, logger capture.Logger) (*Runtime, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	service, err := capture.NewService(
		capture.Config{
			TriggerCodes:    cfg.TriggerCodes,
			GestureInterval: cfg.GestureInterval,
			SettleDelay:     cfg.SettleDelay,
			StartEnabled:    cfg.StartEnabled,
		},
		&windowsInjector{},
		board,
		sink,
		logger,
	)
	if err != nil {
		return nil, err
	}

	return &Runtime{
		service:  service,
		logger:   logger,
		stopCh:   make(chan struct{}),
		loopDone: closedSignalChan(),
	}, nil
}

func (r *Runtime) Start() error {
	if !activeRuntime.CompareAndSwap(nil, r) {
		return fmt.Errorf("windows runtime is already active")
	}

	r.loopMu.Lock()
	r.loopDone = make(chan struct{})
	r.loopMu.Unlock()

	r.service.Start()

	ready := make(chan error, 1)
	go r.hookLoop(ready)

	if err := <-ready; err != nil {
		r.Stop()
		return err
	}
	return nil
}

func (r *Runtime) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
		threadID := r.threadID.Load()
		if threadID != 0 {
			_, _, _ = procPostThreadMessageW.Call(uintptr(threadID), uintptr(wmQuit), 0, 0)
		}

		r.loopMu.Lock()
		done := r.loopDone
		r.loopMu.Unlock()
		if done != nil {
			<-done
		}

		r.service.Stop()
		activeRuntime.CompareAndSwap(r, nil)
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

func (r *Runtime) hookLoop(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer func() {
		r.loopMu.Lock()
		done := r.loopDone
		r.loopMu.Unlock()
		if done != nil {
			close(done)
		}
	}()
	defer activeRuntime.CompareAndSwap(r, nil)

	threadID, _, _ := procGetCurrentThreadID.Call()
	r.threadID.Store(uint32(threadID))

	keyboardHook, _, keyboardErr := procSetWindowsHookExW.Call(uintptr(whKeyboardLL), keyboardHookCallback, 0, 0)
	if keyboardHook == 0 {
		ready <- fmt.Errorf("failed to install keyboard hook: %w", keyboardErr)
		return
	}
	defer func() {
		_, _, _ = procUnhookWindowsHookEx.Call(keyboardHook)
	}()

	ready <- nil

	var msg message
	for {
		ret, _, callErr := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		switch int32(ret) {
		case -1:
			r.logger.Warn("Windows message loop failed", "err", callErr)
			return
		case 0:
			return
		default:
			_, _, _ = procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
			_, _, _ = procDispatchMessageW.Call(uintptr(unsafe.Pointer(&msg)))
		}
	}
}

func keyboardLLCallback(code int, wParam uintptr, lParam uintptr) uintptr {
	if code >= 0 {
		if r := activeRuntime.Load(); r != nil {
			r.handleKeyboardHook(wParam, lParam)
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(code), wParam, lParam)
	return ret
}

func (r *Runtime) handleKeyboardHook(wParam uintptr, lParam uintptr) {
	if lParam == 0 {
		return
	}

	event := (*keyboardLLHookStruct)(unsafe.Pointer(lParam))
	// Skip our own synthesized chords.
	if event.Flags&llkhfInjected != 0 || event.Flags&llkhfLowerILInjected != 0 {
		return
	}

	code, ok := CodeFromVK(event.VkCode, event.Flags, event.ScanCode)
	if !ok {
		return
	}

	var value int32
	switch uint32(wParam) {
	case wmKeyDown, wmSysKeyDown:
		value = 1
	case wmKeyUp, wmSysKeyUp:
		value = 0
	default:
		return
	}

	r.service.HandleKey(globalSourceIdentity, code, value)
}

func ListInputDevices() ([]DeviceInfo, error) {
	return []DeviceInfo{
		{
			Path:      "global",
			Name:      "Windows Global Input",
			IsVirtual: false,
		},
	}, nil
}

// ProbeNextKeyCode polls GetAsyncKeyState for the next fresh press among
// the mapped keys, used by --choose-trigger.
func ProbeNextKeyCode(timeout time.Duration) (uint16, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	codes := make([]uint16, 0, len(codeToVKTable))
	for code := range codeToVKTable {
		codes = append(codes, code)
	}
	if len(codes) == 0 {
		return 0, fmt.Errorf("no probeable key codes configured")
	}

	state := make(map[uint16]bool, len(codes))
	for _, code := range codes {
		state[code] = isCodeDown(code)
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()

	for {
		for _, code := range codes {
			down := isCodeDown(code)
			wasDown := state[code]
			state[code] = down
			if down && !wasDown {
				return code, nil
			}
		}

		if time.Now().After(deadline) {
			return 0, fmt.Errorf("timed out waiting for key input")
		}

		<-ticker.C
	}
}

func isCodeDown(code uint16) bool {
	vk, ok := CodeToVK(code)
	if !ok {
		return false
	}
	state, _, _ := procGetAsyncKeyState.Call(uintptr(vk))
	return uint16(state)&0x8000 != 0
}

func closedSignalChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

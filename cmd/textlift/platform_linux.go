//go:build linux

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"textlift/internal/adapters/hotkeyinput"
	"textlift/internal/adapters/linuxinput"
	"textlift/internal/adapters/x11input"
	"textlift/internal/clipboard"
	"textlift/internal/core/capture"
)

func parseTriggerCodes(raw string) (map[uint16]struct{}, error) {
	tokens := splitTriggerList(raw)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("--trigger must name at least one key")
	}
	codes := make(map[uint16]struct{}, len(tokens))
	for _, token := range tokens {
		code, err := linuxinput.ParseCode(token)
		if err != nil {
			return nil, err
		}
		codes[code] = struct{}{}
	}
	return codes, nil
}

func parseBackendChoice(value string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(value))
	if backend == "" {
		backend = "auto"
	}
	switch backend {
	case "auto", "wayland", "x11", "evdev", "hotkey":
		return backend, nil
	default:
		return "", fmt.Errorf("invalid --backend %q (linux supports auto|wayland|x11|hotkey)", value)
	}
}

func captureNextCode(backend, devicePath string, timeout time.Duration) (uint16, error) {
	switch resolveLinuxBackend(backend) {
	case "x11":
		return x11input.ProbeNextKeyCode(timeout)
	case "hotkey":
		return 0, fmt.Errorf("the hotkey backend has a fixed binding and cannot probe keys")
	default:
		return linuxinput.ProbeNextKeyCode(devicePath, timeout)
	}
}

func formatCodeName(code uint16) string {
	return linuxinput.FormatCodeName(code)
}

func listInputDevices(backend string) error {
	if resolveLinuxBackend(backend) == "hotkey" {
		return fmt.Errorf("the hotkey backend does not enumerate input devices")
	}
	devices, err := linuxinput.ListInputDevices()
	if err != nil {
		return err
	}
	for _, dev := range devices {
		virtualTag := "physical"
		if dev.IsVirtual {
			virtualTag = "virtual"
		}
		fmt.Printf("%s: %s [%s]\n", dev.Path, dev.Name, virtualTag)
	}
	return nil
}

func permissionDeniedHint() string {
	return "Permission denied opening input backend. On Wayland use root/udev for /dev/input + /dev/uinput. On X11 ensure an active X11 session and DISPLAY is set."
}

func captureHint(backend string) string {
	if resolveLinuxBackend(backend) == "hotkey" {
		return "Press Ctrl+Shift+X to capture the selected text"
	}
	return "Double-press Shift to capture the selected text"
}

func startCaptureRuntime(cfg config, board *clipboard.Board, sink capture.Sink, logger *slog.Logger) (captureRuntime, error) {
	switch resolveLinuxBackend(cfg.backend) {
	case "x11":
		return startX11Runtime(cfg, board, sink, logger)
	case "hotkey":
		return startHotkeyRuntime(cfg, board, sink, logger)
	default:
		return startWaylandRuntime(cfg, board, sink, logger)
	}
}

func startWaylandRuntime(cfg config, board *clipboard.Board, sink capture.Sink, logger *slog.Logger) (captureRuntime, error) {
	selection, err := linuxinput.OpenSourceSelection(cfg.devicePath, cfg.triggerCodes)
	if err != nil {
		return nil, err
	}

	for _, dev := range selection.Devices {
		name, _ := dev.Name()
		logger.Info("Using source device", "path", dev.Path(), "name", name)
	}

	runtime, err := linuxinput.NewRuntime(
		selection,
		linuxinput.RuntimeConfig{
			TriggerCodes:    cfg.triggerCodes,
			GestureInterval: cfg.gestureInterval(),
			SettleDelay:     cfg.settleDelay(),
			StartEnabled:    cfg.startEnabled,
		},
		board,
		sink,
		logger,
	)
	if err != nil {
		for _, dev := range selection.Devices {
			_ = dev.Close()
		}
		return nil, err
	}

	if err := runtime.Start(); err != nil {
		runtime.Stop()
		return nil, err
	}

	logger.Info("Backend", "name", "wayland")
	logTriggerConfig(cfg, logger)
	return runtime, nil
}

func startX11Runtime(cfg config, board *clipboard.Board, sink capture.Sink, logger *slog.Logger) (captureRuntime, error) {
	if cfg.devicePath != "" {
		logger.Warn("--device is ignored on X11 backend")
	}

	runtime, err := x11input.NewRuntime(
		x11input.RuntimeConfig{
			TriggerCodes:    cfg.triggerCodes,
			GestureInterval: cfg.gestureInterval(),
			SettleDelay:     cfg.settleDelay(),
			StartEnabled:    cfg.startEnabled,
		},
		board,
		sink,
		logger,
	)
	if err != nil {
		return nil, err
	}

	if err := runtime.Start(); err != nil {
		runtime.Stop()
		return nil, err
	}

	logger.Info("Backend", "name", "x11")
	logTriggerConfig(cfg, logger)
	return runtime, nil
}

func startHotkeyRuntime(cfg config, board *clipboard.Board, sink capture.Sink, logger *slog.Logger) (captureRuntime, error) {
	if cfg.devicePath != "" {
		logger.Warn("--device is ignored on hotkey backend")
	}

	runtime, err := hotkeyinput.NewRuntime(
		hotkeyinput.RuntimeConfig{
			GestureInterval: cfg.gestureInterval(),
			SettleDelay:     cfg.settleDelay(),
			StartEnabled:    cfg.startEnabled,
		},
		board,
		sink,
		logger,
	)
	if err != nil {
		return nil, err
	}

	if err := runtime.Start(); err != nil {
		runtime.Stop()
		return nil, err
	}

	logger.Info("Backend", "name", "hotkey")
	logger.Info("Hotkey", "binding", "Ctrl+Shift+X")
	return runtime, nil
}

func logTriggerConfig(cfg config, logger *slog.Logger) {
	names := make([]string, 0, len(cfg.triggerCodes))
	for code := range cfg.triggerCodes {
		names = append(names, formatCodeName(code))
	}
	logger.Info("Trigger", "keys", strings.Join(names, ","), "intervalMS", cfg.intervalMS)
	logger.Info("Settle delay", "ms", cfg.settleMS)
	if cfg.startEnabled {
		logger.Info("Initial state enabled")
	} else {
		logger.Info("Initial state disabled")
	}
}

func resolveLinuxBackend(configured string) string {
	choice := strings.ToLower(strings.TrimSpace(configured))
	if choice == "" {
		choice = "auto"
	}
	if choice == "evdev" {
		choice = "wayland"
	}
	if choice != "auto" {
		return choice
	}

	sessionType := strings.ToLower(strings.TrimSpace(os.Getenv("XDG_SESSION_TYPE")))
	switch sessionType {
	case "wayland":
		return "wayland"
	case "x11":
		return "x11"
	}

	if strings.TrimSpace(os.Getenv("WAYLAND_DISPLAY")) != "" {
		return "wayland"
	}
	if strings.TrimSpace(os.Getenv("DISPLAY")) != "" {
		return "x11"
	}
	return "wayland"
}

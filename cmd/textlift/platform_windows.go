//go:build windows

package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"textlift/internal/adapters/hotkeyinput"
	"textlift/internal/adapters/wininput"
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
		code, err := wininput.ParseCode(token)
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
	case "auto", "windows", "hotkey":
		return backend, nil
	default:
		return "", fmt.Errorf("invalid --backend %q (windows supports auto|windows|hotkey)", value)
	}
}

func captureNextCode(backend string, _ string, timeout time.Duration) (uint16, error) {
	if resolveWindowsBackend(backend) == "hotkey" {
		return 0, fmt.Errorf("the hotkey backend has a fixed binding and cannot probe keys")
	}
	return wininput.ProbeNextKeyCode(timeout)
}

func formatCodeName(code uint16) string {
	return wininput.FormatCodeName(code)
}

func listInputDevices(_ string) error {
	devices, err := wininput.ListInputDevices()
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
	return "Permission denied registering global input hooks. Run as Administrator and ensure input-hooking is allowed."
}

func captureHint(backend string) string {
	if resolveWindowsBackend(backend) == "hotkey" {
		return "Press Ctrl+Shift+X to capture the selected text"
	}
	return "Double-press Shift to capture the selected text"
}

func startCaptureRuntime(cfg config, board *clipboard.Board, sink capture.Sink, logger *slog.Logger) (captureRuntime, error) {
	if cfg.devicePath != "" {
		logger.Warn("--device is ignored on Windows; using global keyboard hooks")
	}

	if resolveWindowsBackend(cfg.backend) == "hotkey" {
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

	runtime, err := wininput.NewRuntime(
		wininput.RuntimeConfig{
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

	logger.Info("Backend", "name", "windows")
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
	return runtime, nil
}

func resolveWindowsBackend(configured string) string {
	choice := strings.ToLower(strings.TrimSpace(configured))
	if choice == "" || choice == "auto" {
		return "windows"
	}
	return choice
}

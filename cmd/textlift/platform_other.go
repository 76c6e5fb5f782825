//go:build !linux && !windows

package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"textlift/internal/adapters/hotkeyinput"
	"textlift/internal/clipboard"
	"textlift/internal/core/capture"
)

// Only the registered-hotkey backend is available here, so trigger names
// are accepted but unused.
func parseTriggerCodes(string) (map[uint16]struct{}, error) {
	return nil, nil
}

func parseBackendChoice(value string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(value))
	if backend == "" || backend == "auto" || backend == "hotkey" {
		return "hotkey", nil
	}
	return "", fmt.Errorf("invalid --backend %q (this platform supports hotkey only)", value)
}

func captureNextCode(_ string, _ string, _ time.Duration) (uint16, error) {
	return 0, fmt.Errorf("key probing is not supported on this platform")
}

func formatCodeName(code uint16) string {
	return fmt.Sprintf("%d", code)
}

func listInputDevices(_ string) error {
	return fmt.Errorf("input device listing is not supported on this platform")
}

func permissionDeniedHint() string {
	return "Permission denied registering the global hotkey."
}

func captureHint(string) string {
	return "Press Ctrl+Shift+X to capture the selected text"
}

func startCaptureRuntime(cfg config, board *clipboard.Board, sink capture.Sink, logger *slog.Logger) (captureRuntime, error) {
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

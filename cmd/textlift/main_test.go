package main

import (
	"log/slog"
	"strings"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := parseConfig(nil)
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	if cfg.intervalMS != defaultIntervalMS {
		t.Fatalf("intervalMS = %d, want %d", cfg.intervalMS, defaultIntervalMS)
	}
	if cfg.settleMS != defaultSettleMS {
		t.Fatalf("settleMS = %d, want %d", cfg.settleMS, defaultSettleMS)
	}
	if cfg.backend != "auto" {
		t.Fatalf("backend = %q, want auto", cfg.backend)
	}
	if !cfg.ui {
		t.Fatal("ui should default to true")
	}
	if !cfg.startEnabled {
		t.Fatal("startEnabled should default to true")
	}
}

func TestParseConfigCLIModeDisablesUI(t *testing.T) {
	cfg, err := parseConfig([]string{"--cli"})
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	if cfg.ui {
		t.Fatal("--cli should disable the UI")
	}
}

func TestParseConfigRejectsBadInterval(t *testing.T) {
	if _, err := parseConfig([]string{"--interval-ms", "0"}); err == nil {
		t.Fatal("expected error for --interval-ms 0")
	}
	if _, err := parseConfig([]string{"--settle-ms", "-1"}); err == nil {
		t.Fatal("expected error for negative --settle-ms")
	}
}

func TestParseConfigRejectsPositionalArgs(t *testing.T) {
	if _, err := parseConfig([]string{"extra"}); err == nil {
		t.Fatal("expected error for positional arguments")
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warning ", slog.LevelWarn},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tc := range cases {
		got, err := parseLogLevel(tc.in)
		if err != nil {
			t.Fatalf("parseLogLevel(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("parseLogLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if _, err := parseLogLevel("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestSplitTriggerList(t *testing.T) {
	got := splitTriggerList(" KEY_LEFTSHIFT , ,KEY_RIGHTSHIFT ")
	if len(got) != 2 || got[0] != "KEY_LEFTSHIFT" || got[1] != "KEY_RIGHTSHIFT" {
		t.Fatalf("splitTriggerList = %v", got)
	}
	if got := splitTriggerList(" , "); len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}

func TestLineSinkWriterSplitsLines(t *testing.T) {
	var lines []string
	w := &lineSinkWriter{sink: func(line string) { lines = append(lines, line) }}

	if _, err := w.Write([]byte("first li")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := w.Write([]byte("ne\nsecond line\npartial")); err != nil {
		t.Fatalf("write: %v", err)
	}

	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %v", len(lines), lines)
	}
	if lines[0] != "first line" || lines[1] != "second line" {
		t.Fatalf("unexpected lines: %v", lines)
	}
}

func TestLineSinkWriterSkipsBlankLines(t *testing.T) {
	var lines []string
	w := &lineSinkWriter{sink: func(line string) { lines = append(lines, line) }}

	if _, err := w.Write([]byte("\n   \nreal\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(lines) != 1 || lines[0] != "real" {
		t.Fatalf("unexpected lines: %v", lines)
	}
}

func TestToneOptionsIncludeProfessional(t *testing.T) {
	options := toneOptions()
	if len(options) == 0 {
		t.Fatal("no tone options")
	}
	joined := strings.Join(options, ",")
	if !strings.Contains(joined, "professional") {
		t.Fatalf("missing professional tone: %v", options)
	}
}

package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"textlift/internal/clipboard"
	"textlift/internal/core/capture"
	"textlift/internal/core/completion"
)

const (
	defaultTriggerRaw = "KEY_LEFTSHIFT,KEY_RIGHTSHIFT"
	defaultIntervalMS = 400
	defaultSettleMS   = 600
)

type config struct {
	triggerRaw    string
	triggerCodes  map[uint16]struct{}
	backend       string
	devicePath    string
	intervalMS    int
	settleMS      int
	model         string
	baseURL       string
	apiKey        string
	presetsPath   string
	tone          string
	watch         bool
	startEnabled  bool
	listDevices   bool
	chooseTrigger bool
	ui            bool
	logLevel      slog.Level
}

func (c config) gestureInterval() time.Duration {
	return time.Duration(c.intervalMS) * time.Millisecond
}

func (c config) settleDelay() time.Duration {
	return time.Duration(c.settleMS) * time.Millisecond
}

// captureRuntime is the platform-independent surface the UI and CLI drive.
// Each adapter runtime satisfies it.
type captureRuntime interface {
	Stop()
	SetEnabled(enabled bool)
	IsEnabled() bool
	Service() *capture.Service
}

// funcSink adapts closures to the capture sink so the UI and CLI can route
// captured text without defining named types per mode.
type funcSink struct {
	onText  func(session uint64, text string)
	onEmpty func()
}

func (s *funcSink) CapturedText(session uint64, text string) {
	if s.onText != nil {
		s.onText(session, text)
	}
}

func (s *funcSink) CaptureEmpty() {
	if s.onEmpty != nil {
		s.onEmpty()
	}
}

type lineSinkWriter struct {
	sink  func(line string)
	mu    sync.Mutex
	lines bytes.Buffer
}

func (w *lineSinkWriter) Write(p []byte) (int, error) {
	if w.sink == nil {
		return len(p), nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	total := len(p)
	for len(p) > 0 {
		idx := bytes.IndexByte(p, '\n')
		if idx == -1 {
			_, _ = w.lines.Write(p)
			break
		}
		_, _ = w.lines.Write(p[:idx])
		line := strings.TrimSpace(w.lines.String())
		w.lines.Reset()
		if line != "" {
			w.sink(line)
		}
		p = p[idx+1:]
	}
	return total, nil
}

func newSlogLogger(level slog.Level, sink func(line string)) *slog.Logger {
	if !debugLogsEnabled() {
		return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
			Level: level,
		}))
	}

	out := io.Writer(os.Stderr)
	if sink != nil {
		out = io.MultiWriter(os.Stderr, &lineSinkWriter{sink: sink})
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: level,
	}))
}

func debugLogsEnabled() bool {
	return strings.TrimSpace(os.Getenv("DEBUG")) == "1"
}

func parseLogLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warning", "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid --log-level %q (expected debug|info|warning|error)", value)
	}
}

func parseConfig(args []string) (config, error) {
	cfg := config{startEnabled: true}
	flags := flag.NewFlagSet("textlift", flag.ContinueOnError)
	flags.SetOutput(os.Stderr)

	var backendRaw string
	var logLevelRaw string
	var cliMode bool

	flags.StringVar(&cfg.triggerRaw, "trigger", defaultTriggerRaw, "Comma-separated key code names whose double press starts a capture.")
	flags.IntVar(&cfg.intervalMS, "interval-ms", defaultIntervalMS, "Maximum gap between the two trigger presses in ms.")
	flags.IntVar(&cfg.settleMS, "settle-ms", defaultSettleMS, "Delay between the synthetic copy and the clipboard read in ms.")
	flags.StringVar(&backendRaw, "backend", "auto", "Input backend. Linux: auto|wayland|x11|hotkey. Windows: auto|windows|hotkey.")
	flags.StringVar(&cfg.devicePath, "device", "", "Input event device path to listen on, e.g. /dev/input/event4. Auto-detected if omitted.")
	flags.StringVar(&cfg.model, "model", completion.DefaultModel, "Model identifier sent to the completion endpoint.")
	flags.StringVar(&cfg.baseURL, "base-url", completion.DefaultBaseURL, "OpenAI-compatible chat completions base URL.")
	flags.StringVar(&cfg.apiKey, "api-key", os.Getenv("OPENROUTER_API_KEY"), "API key for the completion endpoint (default: $OPENROUTER_API_KEY).")
	flags.StringVar(&cfg.presetsPath, "presets", "", "Path to a YAML file with extra action presets. Defaults to presets.yaml next to the settings file.")
	flags.StringVar(&cfg.tone, "tone", string(completion.ToneProfessional), "Improvement tone: professional|casual|academic|creative.")
	flags.BoolVar(&cfg.watch, "watch", false, "Also capture external clipboard changes while running.")
	flags.BoolVar(&cfg.listDevices, "list-devices", false, "Print available input devices and exit.")
	flags.BoolVar(&cfg.chooseTrigger, "choose-trigger", false, "Wait for the next key press, print its code name and exit.")
	flags.BoolVar(&cfg.ui, "ui", true, "Start desktop GUI (Fyne) by default. Use --ui=false or --cli for terminal mode.")
	flags.BoolVar(&cliMode, "cli", false, "Force terminal mode (disables GUI).")
	flags.StringVar(&logLevelRaw, "log-level", "info", "Log verbosity (default: info). Allowed: debug, info, warning, error.")

	if err := flags.Parse(args); err != nil {
		return cfg, err
	}
	if flags.NArg() > 0 {
		return cfg, fmt.Errorf("unexpected arguments: %s", strings.Join(flags.Args(), " "))
	}
	if cfg.intervalMS <= 0 {
		return cfg, fmt.Errorf("--interval-ms must be > 0")
	}
	if cfg.settleMS < 0 {
		return cfg, fmt.Errorf("--settle-ms must be >= 0")
	}
	if cliMode {
		cfg.ui = false
	}

	parsedLevel, err := parseLogLevel(logLevelRaw)
	if err != nil {
		return cfg, err
	}
	backendChoice, err := parseBackendChoice(backendRaw)
	if err != nil {
		return cfg, err
	}
	cfg.backend = backendChoice
	cfg.logLevel = parsedLevel

	codes, err := parseTriggerCodes(cfg.triggerRaw)
	if err != nil {
		return cfg, err
	}
	cfg.triggerCodes = codes
	return cfg, nil
}

// splitTriggerList trims a comma-separated trigger flag into its tokens.
func splitTriggerList(raw string) []string {
	parts := strings.Split(raw, ",")
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tokens = append(tokens, part)
	}
	return tokens
}

func isPermissionError(err error) bool {
	return errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.EACCES)
}

func run(args []string, stderr io.Writer) int {
	cfg, err := parseConfig(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	if cfg.listDevices {
		if err := listInputDevices(cfg.backend); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		return 0
	}

	if cfg.chooseTrigger {
		fmt.Println("Press the key you want as trigger...")
		code, err := captureNextCode(cfg.backend, cfg.devicePath, 10*time.Second)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Println(formatCodeName(code))
		return 0
	}

	if cfg.ui {
		if err := runUI(cfg); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		return 0
	}

	if err := runCLI(cfg, stderr); err != nil {
		if isPermissionError(err) {
			fmt.Fprintln(stderr, permissionDeniedHint())
			return 1
		}
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

// runCLI captures without a window: every captured selection is sent through
// the improve action and the result is printed to stdout.
func runCLI(cfg config, stderr io.Writer) error {
	if strings.TrimSpace(cfg.apiKey) == "" {
		return fmt.Errorf("api key is required in terminal mode; set $OPENROUTER_API_KEY or pass --api-key")
	}

	logger := newSlogLogger(cfg.logLevel, nil)
	board := clipboard.NewBoard(logger)

	client, err := completion.NewOpenAIClient(completion.ClientConfig{
		BaseURL: cfg.baseURL,
		APIKey:  cfg.apiKey,
		Model:   cfg.model,
		Referer: appReferer,
		Title:   appTitle,
	}, logger)
	if err != nil {
		return err
	}

	var runtime captureRuntime
	var dispatcherMu sync.Mutex
	var dispatcher *completion.Dispatcher

	sink := &funcSink{
		onText: func(session uint64, text string) {
			dispatcherMu.Lock()
			disp := dispatcher
			dispatcherMu.Unlock()
			if disp == nil {
				return
			}
			messages := completion.BuildMessages(completion.ModeImprove, completion.Tone(cfg.tone), text)
			if !disp.Submit(actionImprove, session, client.Model(), messages, text) {
				logger.Debug("capture skipped, request already in flight", "session", session)
			}
		},
		onEmpty: func() {
			fmt.Fprintln(stderr, "No text was copied. Please select text and try again.")
		},
	}

	runtime, err = startCaptureRuntime(cfg, board, sink, logger)
	if err != nil {
		return err
	}
	defer runtime.Stop()

	disp, err := completion.NewDispatcher(client, runtime.Service().CurrentSession, func(outcome completion.Outcome) {
		if outcome.Failed {
			fmt.Fprintln(stderr, "Error: "+outcome.Message)
			return
		}
		fmt.Println(outcome.Text)
	}, logger)
	if err != nil {
		return err
	}
	dispatcherMu.Lock()
	dispatcher = disp
	dispatcherMu.Unlock()

	var monitor *clipboard.Monitor
	if cfg.watch {
		monitor, err = clipboard.NewMonitor(board, clipboard.DefaultPollInterval, clipboard.DefaultMaxLength, runtime.Service().Publish, logger)
		if err != nil {
			return err
		}
		monitor.Start()
		defer monitor.Stop()
	}

	logger.Info("Waiting for captures", "hint", captureHint(cfg.backend))
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()
	return nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

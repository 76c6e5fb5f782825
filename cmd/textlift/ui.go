package main

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/gen2brain/beeep"

	"textlift/internal/clipboard"
	"textlift/internal/core/completion"
)

const emptyCaptureMessage = "No text was copied. Please select text and try again."

type textliftTheme struct {
	base fyne.Theme
}

func newTextliftTheme() fyne.Theme {
	return &textliftTheme{base: theme.DarkTheme()}
}

func (t *textliftTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNameBackground:
		return color.NRGBA{R: 0x0e, G: 0x12, B: 0x16, A: 0xff}
	case theme.ColorNameHeaderBackground:
		return color.NRGBA{R: 0x13, G: 0x18, B: 0x1e, A: 0xff}
	case theme.ColorNameButton:
		return color.NRGBA{R: 0x1c, G: 0x24, B: 0x2c, A: 0xff}
	case theme.ColorNameDisabledButton:
		return color.NRGBA{R: 0x15, G: 0x1a, B: 0x1f, A: 0xff}
	case theme.ColorNameInputBackground:
		return color.NRGBA{R: 0x12, G: 0x18, B: 0x1e, A: 0xff}
	case theme.ColorNameInputBorder, theme.ColorNameSeparator:
		return color.NRGBA{R: 0x2a, G: 0x34, B: 0x3e, A: 0xff}
	case theme.ColorNamePrimary, theme.ColorNameHyperlink:
		return color.NRGBA{R: 0x4d, G: 0xc5, B: 0xb5, A: 0xff}
	case theme.ColorNameFocus:
		return color.NRGBA{R: 0x62, G: 0xd4, B: 0xc4, A: 0x66}
	case theme.ColorNameHover:
		return color.NRGBA{R: 0x62, G: 0xd4, B: 0xc4, A: 0x22}
	case theme.ColorNamePressed:
		return color.NRGBA{R: 0x62, G: 0xd4, B: 0xc4, A: 0x40}
	case theme.ColorNameSelection:
		return color.NRGBA{R: 0x4d, G: 0xc5, B: 0xb5, A: 0x44}
	case theme.ColorNameForeground:
		return color.NRGBA{R: 0xf0, G: 0xf4, B: 0xf6, A: 0xff}
	case theme.ColorNamePlaceHolder:
		return color.NRGBA{R: 0xa6, G: 0xb2, B: 0xbd, A: 0xff}
	case theme.ColorNameError:
		return color.NRGBA{R: 0xff, G: 0x85, B: 0x85, A: 0xff}
	case theme.ColorNameWarning:
		return color.NRGBA{R: 0xff, G: 0xa0, B: 0x5c, A: 0xff}
	case theme.ColorNameSuccess:
		return color.NRGBA{R: 0x80, G: 0xd6, B: 0xaa, A: 0xff}
	}
	return t.base.Color(name, variant)
}

func (t *textliftTheme) Font(style fyne.TextStyle) fyne.Resource {
	return t.base.Font(style)
}

func (t *textliftTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return t.base.Icon(name)
}

func (t *textliftTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNamePadding:
		return 8
	case theme.SizeNameInnerPadding:
		return 8
	case theme.SizeNameInputRadius:
		return 8
	}
	return t.base.Size(name)
}

func runUI(baseCfg config) error {
	fApp := app.New()
	fApp.Settings().SetTheme(newTextliftTheme())

	window := fApp.NewWindow(appTitle)
	window.Resize(fyne.NewSize(700, 640))
	window.CenterOnScreen()

	clamp := func(v, min, max float64) float64 {
		if v < min {
			return min
		}
		if v > max {
			return max
		}
		return v
	}

	cfg := baseCfg
	startupEnabled := cfg.startEnabled
	settingsLoadWarning := ""

	stored, err := loadUISettings()
	if err != nil {
		settingsLoadWarning = fmt.Sprintf("Failed to load saved settings: %v", err)
	} else if stored != nil {
		if value := strings.TrimSpace(stored.Model); value != "" {
			cfg.model = value
		}
		if value := strings.TrimSpace(stored.Tone); value != "" {
			cfg.tone = value
		}
		if stored.IntervalMS > 0 {
			cfg.intervalMS = int(clamp(float64(stored.IntervalMS), 100, 1000))
		}
		if stored.SettleMS >= 0 {
			cfg.settleMS = int(clamp(float64(stored.SettleMS), 0, 2000))
		}
		cfg.watch = cfg.watch || stored.Watch
		startupEnabled = stored.Enabled
	}
	cfg.startEnabled = startupEnabled

	presets, err := loadPresets(cfg.presetsPath)
	if err != nil && settingsLoadWarning == "" {
		settingsLoadWarning = fmt.Sprintf("Failed to load presets: %v", err)
	}

	capturedEntry := widget.NewMultiLineEntry()
	capturedEntry.Wrapping = fyne.TextWrapWord
	capturedEntry.SetPlaceHolder("Captured text appears here. " + captureHint(cfg.backend) + ".")
	capturedScroll := container.NewVScroll(capturedEntry)
	capturedScroll.SetMinSize(fyne.NewSize(0, 110))

	resultEntry := widget.NewMultiLineEntry()
	resultEntry.Wrapping = fyne.TextWrapWord
	resultEntry.SetPlaceHolder("The response appears here.")
	resultScroll := container.NewVScroll(resultEntry)
	resultScroll.SetMinSize(fyne.NewSize(0, 130))

	statusText := canvas.NewText("", nil)
	statusText.Color = theme.Color(theme.ColorNameError)
	if settingsLoadWarning != "" {
		statusText.Text = settingsLoadWarning
	}

	logGrid := widget.NewTextGrid()
	logGrid.SetText("")
	logScroll := container.NewVScroll(logGrid)
	logScroll.SetMinSize(fyne.NewSize(0, 150))

	const maxUILogLines = 50
	var logMu sync.Mutex
	logLines := make([]string, 0, maxUILogLines)
	debugLogs := debugLogsEnabled()
	appendLogLine := func(line string) {
		if !debugLogs {
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			return
		}

		logMu.Lock()
		logLines = append(logLines, line)
		if len(logLines) > maxUILogLines {
			logLines = logLines[len(logLines)-maxUILogLines:]
		}
		logText := strings.Join(logLines, "\n")
		logMu.Unlock()

		fyne.Do(func() {
			logGrid.SetText(logText)
			logScroll.ScrollToBottom()
		})
	}
	if settingsLoadWarning != "" {
		appendLogLine("WARNING " + settingsLoadWarning)
	}

	logger := newSlogLogger(cfg.logLevel, appendLogLine)
	board := clipboard.NewBoard(logger)

	setStatus := func(message string) {
		statusText.Text = message
		statusText.Refresh()
		if message != "" {
			appendLogLine("ERROR " + message)
		}
	}

	improveBtn := widget.NewButton("Improve", nil)
	improveBtn.Importance = widget.HighImportance
	answerBtn := widget.NewButton("Answer", nil)
	answerBtn.Importance = widget.MediumImportance
	captureNowBtn := widget.NewButton("Capture Now", nil)
	copyBtn := widget.NewButton("Copy Result", nil)
	enableToggleBtn := widget.NewButton("Disabled", nil)
	enableToggleBtn.Importance = widget.HighImportance
	busyBar := widget.NewProgressBarInfinite()
	busyBar.Hide()
	initProgress := widget.NewProgressBarInfinite()
	initProgress.Hide()

	toneSelect := widget.NewSelect(toneOptions(), nil)
	toneSelect.SetSelected(strings.ToLower(strings.TrimSpace(cfg.tone)))
	modelEntry := widget.NewEntry()
	modelEntry.SetText(cfg.model)
	watchCheck := widget.NewCheck("Watch clipboard changes", nil)
	watchCheck.SetChecked(cfg.watch)

	intervalSlider := widget.NewSlider(100, 1000)
	intervalSlider.Step = 50
	intervalSlider.SetValue(float64(cfg.intervalMS))
	settleSlider := widget.NewSlider(0, 2000)
	settleSlider.Step = 50
	settleSlider.SetValue(float64(cfg.settleMS))

	intervalValue := widget.NewLabel("")
	settleValue := widget.NewLabel("")
	intervalValue.Alignment = fyne.TextAlignTrailing
	settleValue.Alignment = fyne.TextAlignTrailing
	intervalValue.TextStyle = fyne.TextStyle{Bold: true}
	settleValue.TextStyle = fyne.TextStyle{Bold: true}
	updateControlText := func() {
		intervalValue.SetText(fmt.Sprintf("%d ms", int(math.Round(intervalSlider.Value))))
		settleValue.SetText(fmt.Sprintf("%d ms", int(math.Round(settleSlider.Value))))
	}
	updateControlText()

	setEnabledStateUI := func(enabled bool) {
		if enabled {
			enableToggleBtn.SetText("Enabled")
		} else {
			enableToggleBtn.SetText("Disabled")
		}
	}

	persistUISettings := func() {}

	var stateMu sync.Mutex
	var runtime captureRuntime
	var dispatcher *completion.Dispatcher
	var monitor *clipboard.Monitor
	var runtimeStop chan struct{}
	lastSession := uint64(0)
	initializing := false

	getRuntime := func() (captureRuntime, *completion.Dispatcher) {
		stateMu.Lock()
		defer stateMu.Unlock()
		return runtime, dispatcher
	}

	setLastSession := func(session uint64) {
		stateMu.Lock()
		lastSession = session
		stateMu.Unlock()
	}

	getLastSession := func() uint64 {
		stateMu.Lock()
		defer stateMu.Unlock()
		return lastSession
	}

	setInitializing := func(v bool) {
		stateMu.Lock()
		initializing = v
		stateMu.Unlock()
	}

	isInitializing := func() bool {
		stateMu.Lock()
		defer stateMu.Unlock()
		return initializing
	}

	sink := &funcSink{
		onText: func(session uint64, text string) {
			setLastSession(session)
			fyne.Do(func() {
				capturedEntry.SetText(text)
				resultEntry.SetText("")
				statusText.Text = ""
				statusText.Refresh()
				window.Show()
				window.RequestFocus()
			})
			appendLogLine(fmt.Sprintf("INFO Captured session %d (%d chars)", session, len(text)))
		},
		onEmpty: func() {
			fyne.Do(func() {
				capturedEntry.SetText("")
				setStatus(emptyCaptureMessage)
				window.Show()
				window.RequestFocus()
			})
			if err := beeep.Notify(appTitle, emptyCaptureMessage, ""); err != nil {
				appendLogLine("WARNING notification failed: " + err.Error())
			}
		},
	}

	deliverOutcome := func(outcome completion.Outcome) {
		fyne.Do(func() {
			if outcome.Failed {
				setStatus(outcome.Message)
				return
			}
			resultEntry.SetText(outcome.Text)
			statusText.Text = ""
			statusText.Refresh()
		})
	}

	actionButtons := map[string]*widget.Button{
		actionImprove: improveBtn,
		actionAnswer:  answerBtn,
	}

	submitAction := func(action string, model string, build func(text string) []completion.Message) {
		rt, disp := getRuntime()
		if rt == nil {
			return
		}
		if disp == nil {
			setStatus("API key missing. Set $OPENROUTER_API_KEY or pass --api-key.")
			return
		}
		text := strings.TrimSpace(capturedEntry.Text)
		if !disp.Submit(action, getLastSession(), model, build(text), text) {
			return
		}
		if btn, ok := actionButtons[action]; ok {
			btn.Disable()
		}
		busyBar.Show()
	}

	improveBtn.OnTapped = func() {
		tone := completion.Tone(toneSelect.Selected)
		submitAction(actionImprove, strings.TrimSpace(modelEntry.Text), func(text string) []completion.Message {
			return completion.BuildMessages(completion.ModeImprove, tone, text)
		})
	}

	answerBtn.OnTapped = func() {
		submitAction(actionAnswer, strings.TrimSpace(modelEntry.Text), func(text string) []completion.Message {
			return completion.BuildMessages(completion.ModeInterview, "", text)
		})
	}

	presetButtons := make([]fyne.CanvasObject, 0, len(presets))
	for _, preset := range presets {
		preset := preset
		action := "preset:" + preset.Name
		btn := widget.NewButton(preset.Name, nil)
		btn.OnTapped = func() {
			model := strings.TrimSpace(preset.Model)
			if model == "" {
				model = strings.TrimSpace(modelEntry.Text)
			}
			submitAction(action, model, func(text string) []completion.Message {
				return completion.PresetMessages(preset, text)
			})
		}
		actionButtons[action] = btn
		presetButtons = append(presetButtons, btn)
	}

	captureNowBtn.OnTapped = func() {
		rt, _ := getRuntime()
		if rt == nil {
			return
		}
		rt.Service().TriggerCapture()
	}

	var copyResetTimer *time.Timer
	copyBtn.OnTapped = func() {
		text := resultEntry.Text
		if strings.TrimSpace(text) == "" {
			return
		}
		if !board.Write(text) {
			setStatus("Failed to copy the result to the clipboard.")
			return
		}
		copyBtn.SetText("Copied!")
		if copyResetTimer != nil {
			copyResetTimer.Stop()
		}
		copyResetTimer = time.AfterFunc(2*time.Second, func() {
			fyne.Do(func() {
				copyBtn.SetText("Copy Result")
			})
		})
	}

	enableToggleBtn.OnTapped = func() {
		rt, _ := getRuntime()
		if rt == nil {
			return
		}
		rt.SetEnabled(!rt.IsEnabled())
		setEnabledStateUI(rt.IsEnabled())
		persistUISettings()
	}

	toneSelect.OnChanged = func(string) {
		persistUISettings()
	}
	modelEntry.OnChanged = func(string) {
		persistUISettings()
	}

	intervalSlider.OnChanged = func(v float64) {
		updateControlText()
		rt, _ := getRuntime()
		if rt != nil {
			if err := rt.Service().SetGestureInterval(time.Duration(math.Round(v)) * time.Millisecond); err != nil {
				setStatus(err.Error())
				return
			}
		}
		persistUISettings()
	}
	settleSlider.OnChanged = func(v float64) {
		updateControlText()
		rt, _ := getRuntime()
		if rt != nil {
			if err := rt.Service().SetSettleDelay(time.Duration(math.Round(v)) * time.Millisecond); err != nil {
				setStatus(err.Error())
				return
			}
		}
		persistUISettings()
	}

	startMonitor := func() error {
		stateMu.Lock()
		rt := runtime
		running := monitor
		stateMu.Unlock()
		if rt == nil || running != nil {
			return nil
		}
		m, err := clipboard.NewMonitor(board, clipboard.DefaultPollInterval, clipboard.DefaultMaxLength, rt.Service().Publish, logger)
		if err != nil {
			return err
		}
		m.Start()
		stateMu.Lock()
		monitor = m
		stateMu.Unlock()
		return nil
	}

	stopMonitor := func() {
		stateMu.Lock()
		m := monitor
		monitor = nil
		stateMu.Unlock()
		if m != nil {
			m.Stop()
		}
	}

	watchCheck.OnChanged = func(checked bool) {
		if checked {
			if err := startMonitor(); err != nil {
				setStatus(err.Error())
				watchCheck.SetChecked(false)
				return
			}
		} else {
			stopMonitor()
		}
		persistUISettings()
	}

	persistUISettings = func() {
		rt, _ := getRuntime()
		enabled := startupEnabled
		if rt != nil {
			enabled = rt.IsEnabled()
		}

		settings := uiSettings{
			Model:      strings.TrimSpace(modelEntry.Text),
			Tone:       toneSelect.Selected,
			IntervalMS: int(math.Round(intervalSlider.Value)),
			SettleMS:   int(math.Round(settleSlider.Value)),
			Watch:      watchCheck.Checked,
			Enabled:    enabled,
		}

		if err := saveUISettings(settings); err != nil {
			statusText.Text = fmt.Sprintf("Failed to save settings: %v", err)
			statusText.Refresh()
		}
	}

	stopRuntime := func() {
		stateMu.Lock()
		rt := runtime
		stop := runtimeStop
		runtime = nil
		dispatcher = nil
		runtimeStop = nil
		stateMu.Unlock()

		stopMonitor()
		if stop != nil {
			close(stop)
		}
		if rt != nil {
			rt.Stop()
		}
	}

	// runStateLoop keeps the enable button and per-action controls in sync
	// with the runtime and dispatcher, including requests that finished
	// without a delivered outcome.
	runStateLoop := func(rt captureRuntime, disp *completion.Dispatcher, stopCh <-chan struct{}) {
		stateTicker := time.NewTicker(150 * time.Millisecond)
		defer stateTicker.Stop()
		lastEnabled := rt.IsEnabled()

		for {
			select {
			case <-stopCh:
				return
			case <-stateTicker.C:
				enabled := rt.IsEnabled()
				anyPending := false
				pending := make(map[string]bool, len(actionButtons))
				if disp != nil {
					for action := range actionButtons {
						p := disp.Pending(action)
						pending[action] = p
						anyPending = anyPending || p
					}
				}
				fyne.Do(func() {
					setEnabledStateUI(enabled)
					if enabled != lastEnabled {
						lastEnabled = enabled
						persistUISettings()
					}
					for action, btn := range actionButtons {
						if pending[action] {
							btn.Disable()
						} else {
							btn.Enable()
						}
					}
					if anyPending {
						busyBar.Show()
					} else {
						busyBar.Hide()
					}
				})
			}
		}
	}

	startRuntime := func(cfg config) error {
		rt, err := startCaptureRuntime(cfg, board, sink, logger)
		if err != nil {
			return err
		}

		var disp *completion.Dispatcher
		if strings.TrimSpace(cfg.apiKey) != "" {
			client, err := completion.NewOpenAIClient(completion.ClientConfig{
				BaseURL: cfg.baseURL,
				APIKey:  cfg.apiKey,
				Model:   cfg.model,
				Referer: appReferer,
				Title:   appTitle,
			}, logger)
			if err != nil {
				rt.Stop()
				return err
			}
			disp, err = completion.NewDispatcher(client, rt.Service().CurrentSession, deliverOutcome, logger)
			if err != nil {
				rt.Stop()
				return err
			}
		}

		stop := make(chan struct{})
		stateMu.Lock()
		runtime = rt
		dispatcher = disp
		runtimeStop = stop
		stateMu.Unlock()

		go runStateLoop(rt, disp, stop)

		fyne.Do(func() {
			if disp == nil {
				setStatus("API key missing. Set $OPENROUTER_API_KEY or pass --api-key to enable actions.")
			} else {
				statusText.Text = ""
				statusText.Refresh()
			}
			setEnabledStateUI(rt.IsEnabled())
		})

		if watchCheck.Checked {
			if err := startMonitor(); err != nil {
				appendLogLine("WARNING clipboard monitor failed: " + err.Error())
			}
		}
		return nil
	}

	setInitializingUI := func(v bool) {
		if v {
			initProgress.Show()
			return
		}
		initProgress.Hide()
	}

	runRuntimeTaskAsync := func(onDone func() error) {
		if isInitializing() {
			return
		}
		setInitializing(true)
		fyne.Do(func() {
			statusText.Text = ""
			statusText.Refresh()
			setInitializingUI(true)
		})

		go func() {
			err := onDone()
			fyne.Do(func() {
				setInitializing(false)
				setInitializingUI(false)
				if err != nil {
					if isPermissionError(err) {
						setStatus(permissionDeniedHint())
					} else {
						setStatus(err.Error())
					}
					return
				}
			})
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var closeOnce sync.Once
	cleanup := func() {
		closeOnce.Do(func() {
			stopRuntime()
		})
	}

	requestQuit := func() {
		fyne.Do(func() {
			persistUISettings()
			cleanup()
			if currentApp := fyne.CurrentApp(); currentApp != nil {
				currentApp.Quit()
				return
			}
			window.SetCloseIntercept(nil)
			window.Close()
		})
	}

	go func() {
		<-sigCh
		requestQuit()
	}()

	// Some GUI backends can leave Ctrl+C as raw ETX byte instead of SIGINT.
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				return
			}
			if n == 1 && buf[0] == 3 {
				requestQuit()
				return
			}
		}
	}()

	window.SetCloseIntercept(func() {
		persistUISettings()
		cleanup()
		if currentApp := fyne.CurrentApp(); currentApp != nil {
			currentApp.Quit()
			return
		}
		window.SetCloseIntercept(nil)
		window.Close()
	})

	titleText := canvas.NewText("TEXTLIFT", color.NRGBA{R: 0x62, G: 0xd4, B: 0xc4, A: 0xff})
	titleText.TextStyle = fyne.TextStyle{Bold: true}
	titleText.TextSize = 30

	accentLine := canvas.NewRectangle(color.NRGBA{R: 0x4d, G: 0xc5, B: 0xb5, A: 0xff})
	accentLine.SetMinSize(fyne.NewSize(220, 3))

	newSliderControl := func(label string, value *widget.Label, slider *widget.Slider) fyne.CanvasObject {
		title := widget.NewLabel(label)
		title.TextStyle = fyne.TextStyle{Bold: true}
		head := container.NewBorder(nil, nil, title, value, nil)
		return container.NewVBox(head, slider)
	}

	actionRow := []fyne.CanvasObject{improveBtn, answerBtn}
	actionRow = append(actionRow, presetButtons...)
	actionsBox := container.NewGridWithColumns(len(actionRow), actionRow...)

	toneRow := container.NewBorder(nil, nil, widget.NewLabel("Tone"), nil, toneSelect)
	capturedCard := widget.NewCard("Captured Text", "", container.NewVBox(capturedScroll, toneRow, actionsBox))
	resultCard := widget.NewCard("Result", "", container.NewVBox(resultScroll, container.NewGridWithColumns(2, copyBtn, captureNowBtn)))

	settingsControls := container.NewVBox(
		widget.NewForm(widget.NewFormItem("Model", modelEntry)),
		newSliderControl("Gesture window", intervalValue, intervalSlider),
		newSliderControl("Settle delay", settleValue, settleSlider),
		watchCheck,
	)
	settingsCard := widget.NewCard("Settings", "", settingsControls)

	footer := widget.NewLabel(captureHint(cfg.backend))
	footer.Alignment = fyne.TextAlignCenter

	mainContent := container.NewVBox(
		titleText,
		accentLine,
		capturedCard,
		resultCard,
		settingsCard,
		statusText,
		busyBar,
		initProgress,
		enableToggleBtn,
		footer,
	)
	mainPanel := container.NewPadded(mainContent)

	var rootContent fyne.CanvasObject = mainPanel
	if debugLogs {
		logsCard := widget.NewCard("Logs", "", logScroll)
		split := container.NewVSplit(mainPanel, logsCard)
		split.SetOffset(0.72)
		rootContent = split
	}

	setInitializingUI(true)
	appendLogLine("INFO Initializing capture backend...")
	runRuntimeTaskAsync(func() error {
		if err := startRuntime(cfg); err != nil {
			return err
		}
		appendLogLine("INFO Initialization complete")
		return nil
	})

	window.SetContent(rootContent)
	window.ShowAndRun()
	cleanup()
	return nil
}

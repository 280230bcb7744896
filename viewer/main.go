package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/capsense/pkg/config"
	"github.com/itohio/capsense/pkg/monitor"
	"github.com/itohio/capsense/pkg/scope"
	"github.com/itohio/capsense/pkg/trace"
)

func main() {
	var (
		portFlag   = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		baudFlag   = flag.Int("baud", 0, "Baud rate override")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag   = flag.Bool("mock", false, "Use mocked device instead of serial port")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *baudFlag > 0 {
		cfg.Serial.BaudRate = *baudFlag
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	application := app.NewWithID("com.itohio.capsense")

	window := application.NewWindow("Capacitance Monitor")
	window.Resize(fyne.NewSize(1200, 800))
	window.CenterOnScreen()

	state := &appState{
		cfg:        cfg,
		configPath: *configFlag,
		window:     window,
		useMock:    *mockFlag,
		throttle:   newThrottle(16 * time.Millisecond), // ~60 FPS
	}

	toolbar := createToolbar(state)

	// The window spans as many frames as the trace keeps.
	state.scopeWidget = scope.New(time.Duration(cfg.Trace.WindowFrames) * cfg.Sampler.Period)

	state.status = widget.NewLabel("Disconnected")

	content := container.NewBorder(
		toolbar,
		state.status,
		nil,
		nil,
		state.scopeWidget,
	)

	window.SetContent(content)
	window.SetOnClosed(func() {
		closeChain(state.chain)
	})
	window.ShowAndRun()
}

// chain tracks one connection's components for graceful shutdown.
type chain struct {
	device    monitor.Device
	trace     *trace.Trace
	traceDone chan struct{} // Closed when the trace goroutine exits
}

// appState holds the application state.
type appState struct {
	cfg         *config.Config
	configPath  string
	window      fyne.Window
	scopeWidget *scope.ScopeWidget
	status      *widget.Label

	connectBtn   *widget.Button
	calibrateBtn *widget.Button
	resetBtn     *widget.Button
	clearBtn     *widget.Button
	relativeChk  *widget.Check
	channelBtns  [trace.NumChannels]*widget.Button

	useMock  bool
	visible  [trace.NumChannels]bool
	chain    *chain // Current chain (nil if not connected)
	throttle *throttle
}

// createToolbar creates the application toolbar.
func createToolbar(state *appState) fyne.CanvasObject {
	state.connectBtn = widget.NewButtonWithIcon("", theme.LoginIcon(), func() {
		handleConnect(state)
	})

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	state.calibrateBtn = widget.NewButtonWithIcon("Calibrate", theme.MediaRecordIcon(), func() {
		handleCalibrate(state)
	})
	state.calibrateBtn.Disable()

	state.resetBtn = widget.NewButtonWithIcon("", theme.ContentUndoIcon(), func() {
		handleResetBaseline(state)
	})
	state.resetBtn.Disable()

	state.clearBtn = widget.NewButtonWithIcon("", theme.DeleteIcon(), func() {
		handleClear(state)
	})
	state.clearBtn.Disable()

	state.relativeChk = widget.NewCheck("Relative", func(on bool) {
		state.scopeWidget.SetRelative(on)
	})

	channels := container.NewHBox()
	for ch := range trace.NumChannels {
		state.visible[ch] = true
		btn := widget.NewButton(fmt.Sprintf("CH%d", ch+1), func() {
			handleChannelToggle(state, ch)
		})
		state.channelBtns[ch] = btn
		channels.Add(btn)
	}
	updateChannelButtonStates(state)

	return container.NewBorder(
		nil,
		nil,
		container.NewHBox(state.connectBtn, settingsBtn, state.calibrateBtn, state.resetBtn, state.clearBtn, state.relativeChk),
		channels,
		nil,
	)
}

// closeChain closes the device and waits for the trace goroutine to drain.
func closeChain(c *chain) {
	if c == nil {
		return
	}

	// Closing the device closes its frames channel, which ends ProcessFrames.
	if c.device != nil {
		c.device.Close()
	}
	if c.traceDone != nil {
		<-c.traceDone
	}
}

func newDevice(state *appState) monitor.Device {
	if state.useMock {
		return monitor.NewMock(&state.cfg.Mock)
	}
	return monitor.New(state.cfg.Serial.Port, state.cfg.Serial.BaudRate, monitor.DefaultBufferSize)
}

// handleConnect handles the connect/disconnect button click.
func handleConnect(state *appState) {
	if state.chain != nil {
		disconnect(state)
		return
	}

	device := newDevice(state)
	if err := device.Connect(); err != nil {
		if state.useMock {
			dialog.ShowError(fmt.Errorf("failed to connect to mocked device: %w", err), state.window)
		} else {
			dialog.ShowError(fmt.Errorf("failed to connect to %s: %w", state.cfg.Serial.Port, err), state.window)
		}
		return
	}
	if state.useMock {
		log.Printf("Connected to mocked device")
	} else {
		log.Printf("Connected to serial port: %s at %d baud", state.cfg.Serial.Port, state.cfg.Serial.BaudRate)
	}

	tr := trace.New(state.cfg.Trace.WindowFrames, state.cfg.Trace.CalibrationFrames)
	tr.OnUpdate(func(points []trace.Point, baseline [trace.NumChannels]float32, st trace.State) {
		// Calibration completion must reach the UI even when throttled.
		if !state.throttle.Allow(time.Now()) && st != trace.Calibrated {
			return
		}
		fyne.Do(func() {
			state.scopeWidget.UpdateData(points, baseline, st)
			state.status.SetText(statusText(tr, device.Stats()))
		})
	})

	traceDone := make(chan struct{})
	go func() {
		defer close(traceDone)
		tr.ProcessFrames(device.Frames())
	}()

	state.chain = &chain{
		device:    device,
		trace:     tr,
		traceDone: traceDone,
	}
	state.connectBtn.SetIcon(theme.LogoutIcon())
	state.calibrateBtn.Enable()
	state.resetBtn.Enable()
	state.clearBtn.Enable()
}

func disconnect(state *appState) {
	closeChain(state.chain)
	state.chain = nil

	state.connectBtn.SetIcon(theme.LoginIcon())
	state.calibrateBtn.Disable()
	state.resetBtn.Disable()
	state.clearBtn.Disable()
	state.status.SetText("Disconnected")
	if state.useMock {
		log.Printf("Disconnected from mocked device")
	} else {
		log.Printf("Disconnected from serial port")
	}
}

// handleCalibrate starts collecting a new baseline. The user should keep still
// until the status shows the baseline.
func handleCalibrate(state *appState) {
	if state.chain == nil {
		return
	}
	state.chain.trace.Calibrate()
	state.status.SetText(statusText(state.chain.trace, state.chain.device.Stats()))
}

func handleResetBaseline(state *appState) {
	if state.chain == nil {
		return
	}
	state.chain.trace.Reset()
	state.status.SetText(statusText(state.chain.trace, state.chain.device.Stats()))
}

// handleClear empties the plot. The baseline is kept.
func handleClear(state *appState) {
	if state.chain == nil {
		return
	}
	tr := state.chain.trace
	tr.Clear()
	baseline, st := tr.Baseline()
	state.scopeWidget.UpdateData(tr.Points(), baseline, st)
}

// statusText summarizes the connection and calibration for the status bar.
func statusText(tr *trace.Trace, st monitor.Stats) string {
	text := fmt.Sprintf("Frames: %d  Malformed: %d  Overflow: %d", st.Frames, st.Malformed, st.Overflow)
	baseline, state := tr.Baseline()
	switch state {
	case trace.Calibrating:
		n, total := tr.Progress()
		text += fmt.Sprintf("  |  Calibrating %d/%d, keep still", n, total)
	case trace.Calibrated:
		text += fmt.Sprintf("  |  Baseline %.2f %.2f %.2f %.2f pF", baseline[0], baseline[1], baseline[2], baseline[3])
	default:
		text += "  |  Not calibrated"
	}
	return text
}

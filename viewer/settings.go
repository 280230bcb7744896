package main

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/capsense/pkg/monitor"
)

// showSettingsDialog displays a settings dialog with tabs for the viewer's options.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createTraceTab(state),
		createMockTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 400))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 400))
	d.Show()
}

// saveConfig validates and persists the configuration, reporting failures in
// a dialog.
func saveConfig(state *appState) bool {
	if err := state.cfg.Validate(); err != nil {
		dialog.ShowError(err, state.window)
		return false
	}
	if err := state.cfg.Save(state.configPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
		return false
	}
	return true
}

// reconnect restarts the chain so new settings take effect.
func reconnect(state *appState) {
	if state.chain == nil {
		return
	}
	disconnect(state)
	handleConnect(state)
}

// createSerialTab creates the Serial configuration tab.
func createSerialTab(state *appState) *container.TabItem {
	ports, err := monitor.Ports()
	portOptions := []string{}
	portMap := make(map[string]string) // Map display name to actual port name

	if err == nil {
		for _, port := range ports {
			portOptions = append(portOptions, port.Description)
			portMap[port.Description] = port.Name
		}
	}

	// Add current port if not in list
	currentPort := state.cfg.Serial.Port
	currentDisplay := currentPort
	found := false
	for _, opt := range portOptions {
		if portMap[opt] == currentPort {
			currentDisplay = opt
			found = true
			break
		}
	}
	if !found && currentPort != "" {
		portOptions = append(portOptions, currentPort)
		portMap[currentPort] = currentPort
	}

	portSelect := widget.NewSelect(portOptions, nil)
	if currentDisplay != "" {
		portSelect.SetSelected(currentDisplay)
	}

	baudSelect := widget.NewSelect([]string{"9600", "19200", "38400", "57600", "115200"}, nil)
	baudSelect.SetSelected(strconv.Itoa(state.cfg.Serial.BaudRate))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
			{Text: "Baud Rate", Widget: baudSelect},
		},
		OnSubmit: func() {
			old := state.cfg.Serial

			if portSelect.Selected != "" {
				selectedPort := portMap[portSelect.Selected]
				if selectedPort == "" {
					selectedPort = portSelect.Selected
				}
				state.cfg.Serial.Port = selectedPort
			}
			if baud, err := strconv.Atoi(baudSelect.Selected); err == nil {
				state.cfg.Serial.BaudRate = baud
			}

			if !saveConfig(state) {
				state.cfg.Serial = old
				return
			}
			if state.cfg.Serial != old && !state.useMock {
				reconnect(state)
			}
		},
	}

	return container.NewTabItem("Serial", form)
}

// createTraceTab creates the Trace configuration tab. Changes apply on the
// next connection.
func createTraceTab(state *appState) *container.TabItem {
	windowEntry := widget.NewEntry()
	windowEntry.SetText(strconv.Itoa(state.cfg.Trace.WindowFrames))

	calibrationEntry := widget.NewEntry()
	calibrationEntry.SetText(strconv.Itoa(state.cfg.Trace.CalibrationFrames))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Window (frames)", Widget: windowEntry},
			{Text: "Calibration (frames)", Widget: calibrationEntry},
		},
		OnSubmit: func() {
			old := state.cfg.Trace
			if n, err := strconv.Atoi(windowEntry.Text); err == nil {
				state.cfg.Trace.WindowFrames = n
			}
			if n, err := strconv.Atoi(calibrationEntry.Text); err == nil {
				state.cfg.Trace.CalibrationFrames = n
			}
			if !saveConfig(state) {
				state.cfg.Trace = old
			}
		},
	}

	return container.NewTabItem("Trace", form)
}

// createMockTab creates the Mock device configuration tab.
func createMockTab(state *appState) *container.TabItem {
	baselineEntry := widget.NewEntry()
	baselineEntry.SetText(fmt.Sprintf("%.2f", state.cfg.Mock.Baseline))

	amplitudeEntry := widget.NewEntry()
	amplitudeEntry.SetText(fmt.Sprintf("%.2f", state.cfg.Mock.Amplitude))

	periodEntry := widget.NewEntry()
	periodEntry.SetText(state.cfg.Mock.Period.String())

	noiseLevelEntry := widget.NewEntry()
	noiseLevelEntry.SetText(fmt.Sprintf("%.3f", state.cfg.Mock.NoiseLevel))

	failEntry := widget.NewEntry()
	failEntry.SetText(strconv.Itoa(state.cfg.Mock.FailChannel))

	sampleRateEntry := widget.NewEntry()
	sampleRateEntry.SetText(state.cfg.Mock.SampleRate.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Baseline (pF)", Widget: baselineEntry},
			{Text: "Amplitude (pF)", Widget: amplitudeEntry},
			{Text: "Period", Widget: periodEntry},
			{Text: "Noise Level (pF)", Widget: noiseLevelEntry},
			{Text: "Failing Channel (-1 = none)", Widget: failEntry},
			{Text: "Sample Rate", Widget: sampleRateEntry},
		},
		OnSubmit: func() {
			old := state.cfg.Mock
			if v, err := strconv.ParseFloat(baselineEntry.Text, 32); err == nil {
				state.cfg.Mock.Baseline = float32(v)
			}
			if v, err := strconv.ParseFloat(amplitudeEntry.Text, 32); err == nil {
				state.cfg.Mock.Amplitude = float32(v)
			}
			if d, err := time.ParseDuration(periodEntry.Text); err == nil {
				state.cfg.Mock.Period = d
			}
			if v, err := strconv.ParseFloat(noiseLevelEntry.Text, 32); err == nil {
				state.cfg.Mock.NoiseLevel = float32(v)
			}
			if n, err := strconv.Atoi(failEntry.Text); err == nil {
				state.cfg.Mock.FailChannel = n
			}
			if d, err := time.ParseDuration(sampleRateEntry.Text); err == nil {
				state.cfg.Mock.SampleRate = d
			}
			if !saveConfig(state) {
				state.cfg.Mock = old
				return
			}
			if state.useMock {
				reconnect(state)
			}
		},
	}

	return container.NewTabItem("Mock", form)
}

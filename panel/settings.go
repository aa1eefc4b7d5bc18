package main

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/spservicesgroupinc-blip/RR-FOAM-PRO-APP/pkg/device"
	"github.com/spservicesgroupinc-blip/RR-FOAM-PRO-APP/pkg/rate"
)

// showSettingsDialog displays a settings dialog with tabs for all configuration options.
func showSettingsDialog(state *appState) {
	// Create tabs
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createDeviceTab(state),
		createRateTab(state),
		createBridgeTab(state),
		createMockTab(state),
	)

	// Create dialog with tabs as content
	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 500))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 500))
	d.Show()
}

// createSerialTab creates the Serial configuration tab.
func createSerialTab(state *appState) *container.TabItem {
	// Get available serial ports
	ports, err := device.Ports()
	portOptions := []string{}
	portMap := make(map[string]string) // Map display name to actual port name

	if err == nil {
		for _, port := range ports {
			displayName := port.Name
			if port.Description != "" && port.Description != port.Name {
				displayName = fmt.Sprintf("%s (%s)", port.Name, port.Description)
			}
			portOptions = append(portOptions, displayName)
			portMap[displayName] = port.Name
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
		currentDisplay = currentPort
	}

	portSelect := widget.NewSelect(portOptions, func(selected string) {
		// Selection handler - will be called on submit
	})
	if currentDisplay != "" {
		portSelect.SetSelected(currentDisplay)
	}

	baudEntry := widget.NewEntry()
	baudEntry.SetText(strconv.Itoa(state.cfg.Serial.Baud))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
			{Text: "Baud Rate", Widget: baudEntry},
		},
		OnSubmit: func() {
			if baud, err := strconv.Atoi(baudEntry.Text); err == nil && baud > 0 {
				state.cfg.Serial.Baud = baud
			}

			if portSelect.Selected != "" {
				selectedPort := portMap[portSelect.Selected]
				if selectedPort == "" {
					selectedPort = portSelect.Selected // Fallback to selected text
				}

				// Check if port changed and device is connected
				portChanged := state.cfg.Serial.Port != selectedPort
				wasConnected := state.device != nil && state.device.IsConnected()

				state.cfg.Serial.Port = selectedPort
				if err := state.cfg.Save("config.yaml"); err != nil {
					dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
					return
				}

				// If port changed and device was connected, restart the packet chain
				if portChanged && wasConnected {
					// Gracefully close old chain
					closePacketChain(state.chain)
					state.chain = nil

					// Close old device
					if state.device != nil {
						state.device.Close()
						state.device = nil
					}

					// Reconnect with new port
					handleConnect(state)
				}
			}
		},
	}

	return container.NewTabItem("Serial", form)
}

// createDeviceTab creates the Device configuration tab. These values describe
// the head unit's firmware timing; they are saved for reference and used by
// the mock device.
func createDeviceTab(state *appState) *container.TabItem {
	debounceEntry := widget.NewEntry()
	debounceEntry.SetText(state.cfg.Device.Debounce.String())

	heartbeatEntry := widget.NewEntry()
	heartbeatEntry.SetText(state.cfg.Device.HeartbeatPeriod.String())

	attachWaitEntry := widget.NewEntry()
	attachWaitEntry.SetText(state.cfg.Device.AttachWait.String())

	lampPulseEntry := widget.NewEntry()
	lampPulseEntry.SetText(state.cfg.Device.LampPulse.String())

	requireReleaseCheck := widget.NewCheck("", nil)
	requireReleaseCheck.SetChecked(state.cfg.Device.RequireRelease)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Debounce", Widget: debounceEntry},
			{Text: "Heartbeat Period", Widget: heartbeatEntry},
			{Text: "Attach Wait", Widget: attachWaitEntry},
			{Text: "Lamp Pulse", Widget: lampPulseEntry},
			{Text: "Require Release", Widget: requireReleaseCheck},
		},
		OnSubmit: func() {
			if d, err := time.ParseDuration(debounceEntry.Text); err == nil {
				state.cfg.Device.Debounce = d
			}
			if hb, err := time.ParseDuration(heartbeatEntry.Text); err == nil {
				state.cfg.Device.HeartbeatPeriod = hb
			}
			if aw, err := time.ParseDuration(attachWaitEntry.Text); err == nil {
				state.cfg.Device.AttachWait = aw
			}
			if lp, err := time.ParseDuration(lampPulseEntry.Text); err == nil {
				state.cfg.Device.LampPulse = lp
			}
			state.cfg.Device.RequireRelease = requireReleaseCheck.Checked
			if err := state.cfg.Save("config.yaml"); err != nil {
				dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
			}
		},
	}

	return container.NewTabItem("Device", form)
}

// createRateTab creates the Rate meter configuration tab.
func createRateTab(state *appState) *container.TabItem {
	windowSecondsEntry := widget.NewEntry()
	windowSecondsEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Rate.WindowSeconds))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Window (seconds)", Widget: windowSecondsEntry},
		},
		OnSubmit: func() {
			if ws, err := strconv.ParseFloat(windowSecondsEntry.Text, 64); err == nil && ws > 0 {
				state.cfg.Rate.WindowSeconds = ws
			}
			if err := state.cfg.Save("config.yaml"); err != nil {
				dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
			}
			// Recreate stroke meter with new config
			state.strokeMeter = rate.New(state.cfg)
		},
	}

	return container.NewTabItem("Rate", form)
}

// createBridgeTab creates the browser bridge configuration tab.
func createBridgeTab(state *appState) *container.TabItem {
	listenEntry := widget.NewEntry()
	listenEntry.SetText(state.cfg.Bridge.Listen)

	pathEntry := widget.NewEntry()
	pathEntry.SetText(state.cfg.Bridge.Path)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Listen Address", Widget: listenEntry},
			{Text: "Endpoint Path", Widget: pathEntry},
		},
		OnSubmit: func() {
			if listenEntry.Text != "" {
				state.cfg.Bridge.Listen = listenEntry.Text
			}
			if pathEntry.Text != "" {
				state.cfg.Bridge.Path = pathEntry.Text
			}
			if err := state.cfg.Save("config.yaml"); err != nil {
				dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
			}
		},
	}

	return container.NewTabItem("Bridge", form)
}

// createMockTab creates the Mock device configuration tab.
func createMockTab(state *appState) *container.TabItem {
	pressPeriodEntry := widget.NewEntry()
	pressPeriodEntry.SetText(state.cfg.Mock.PressPeriod.String())

	pressJitterEntry := widget.NewEntry()
	pressJitterEntry.SetText(fmt.Sprintf("%.2f", state.cfg.Mock.PressJitter))

	closedCellShareEntry := widget.NewEntry()
	closedCellShareEntry.SetText(fmt.Sprintf("%.2f", state.cfg.Mock.ClosedCellShare))

	heartbeatEntry := widget.NewEntry()
	heartbeatEntry.SetText(state.cfg.Mock.HeartbeatPeriod.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Press Period", Widget: pressPeriodEntry},
			{Text: "Press Jitter (0..1)", Widget: pressJitterEntry},
			{Text: "Closed Cell Share (0..1)", Widget: closedCellShareEntry},
			{Text: "Heartbeat Period", Widget: heartbeatEntry},
		},
		OnSubmit: func() {
			if pp, err := time.ParseDuration(pressPeriodEntry.Text); err == nil {
				state.cfg.Mock.PressPeriod = pp
			}
			if pj, err := strconv.ParseFloat(pressJitterEntry.Text, 64); err == nil {
				state.cfg.Mock.PressJitter = pj
			}
			if cs, err := strconv.ParseFloat(closedCellShareEntry.Text, 64); err == nil {
				state.cfg.Mock.ClosedCellShare = cs
			}
			if hb, err := time.ParseDuration(heartbeatEntry.Text); err == nil {
				state.cfg.Mock.HeartbeatPeriod = hb
			}
			if err := state.cfg.Save("config.yaml"); err != nil {
				dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
			}
		},
	}

	return container.NewTabItem("Mock", form)
}

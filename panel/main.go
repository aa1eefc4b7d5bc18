package main

import (
	"flag"
	"fmt"
	"log"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/spservicesgroupinc-blip/RR-FOAM-PRO-APP/pkg/config"
	"github.com/spservicesgroupinc-blip/RR-FOAM-PRO-APP/pkg/device"
	"github.com/spservicesgroupinc-blip/RR-FOAM-PRO-APP/pkg/packet"
	"github.com/spservicesgroupinc-blip/RR-FOAM-PRO-APP/pkg/rate"
)

const maxLogLines = 200

func main() {
	var (
		portFlag   = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag   = flag.Bool("mock", false, "Use mocked device instead of serial port")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override serial port if provided via command line
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}

	// Create Fyne application
	application := app.NewWithID("com.spservices.foampro")

	// Create main window
	window := application.NewWindow("Foam Stroke Counter")
	window.Resize(fyne.NewSize(760, 520))
	window.CenterOnScreen()

	// Create stroke meter
	strokeMeter := rate.New(cfg)

	// Create application state
	state := &appState{
		cfg:         cfg,
		device:      nil,
		strokeMeter: strokeMeter,
		window:      window,
		useMock:     *mockFlag,
	}

	// Create toolbar
	toolbar := createToolbar(state)

	// Create counter panel and packet log
	counters := createCounterPanel(state)
	logPanel := createLogPanel(state)

	content := container.NewBorder(
		toolbar,
		nil,
		nil,
		nil,
		container.NewVSplit(counters, logPanel),
	)

	window.SetContent(content)
	window.ShowAndRun()
}

// packetChain tracks the components of the packet chain for graceful shutdown.
type packetChain struct {
	device          device.Device
	packetsForLog   <-chan device.Packet
	packetsForMeter <-chan device.Packet
	logGoroutine    chan struct{} // Closed when log goroutine exits
	meterGoroutine  chan struct{} // Closed when meter goroutine exits
}

// appState holds the application state.
type appState struct {
	cfg         *config.Config
	device      device.Device
	strokeMeter *rate.Meter
	window      fyne.Window

	connectBtn *widget.Button
	pingBtn    *widget.Button
	resetBtn   *widget.Button
	jobEntry   *widget.Entry
	jobBtn     *widget.Button

	ocLabel     *widget.Label
	ccLabel     *widget.Label
	ocRateLabel *widget.Label
	ccRateLabel *widget.Label
	jobLabel    *widget.Label
	deviceLabel *widget.Label

	logList  *widget.List
	logLines []string
	logMu    sync.Mutex

	useMock bool
	chain   *packetChain // Current packet chain (nil if not connected)

	// Throttling for rate label updates
	lastUpdateTime time.Time
	updateMu       sync.Mutex
}

// createToolbar creates the application toolbar with Connect, Settings, Ping,
// Reset, and job selection controls.
func createToolbar(state *appState) fyne.CanvasObject {
	// Connect button with icon
	connectBtn := widget.NewButtonWithIcon("", theme.LoginIcon(), func() {
		handleConnect(state)
	})
	state.connectBtn = connectBtn

	// Settings button with icon
	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	pingBtn := widget.NewButtonWithIcon("Ping", theme.MailSendIcon(), func() {
		if state.device == nil {
			return
		}
		if err := state.device.Ping(); err != nil {
			dialog.ShowError(fmt.Errorf("ping failed: %w", err), state.window)
		}
	})
	pingBtn.Disable()
	state.pingBtn = pingBtn

	resetBtn := widget.NewButtonWithIcon("Reset", theme.MediaReplayIcon(), func() {
		if state.device == nil {
			return
		}
		if err := state.device.ResetCounters(); err != nil {
			dialog.ShowError(fmt.Errorf("reset failed: %w", err), state.window)
		}
	})
	resetBtn.Disable()
	state.resetBtn = resetBtn

	jobEntry := widget.NewEntry()
	jobEntry.SetPlaceHolder("Job ID")
	state.jobEntry = jobEntry

	jobBtn := widget.NewButtonWithIcon("Set Job", theme.ConfirmIcon(), func() {
		if state.device == nil {
			return
		}
		if err := state.device.SelectJob(jobEntry.Text); err != nil {
			dialog.ShowError(fmt.Errorf("job selection failed: %w", err), state.window)
		}
	})
	jobBtn.Disable()
	state.jobBtn = jobBtn

	jobEntry.Resize(fyne.NewSize(160, jobEntry.MinSize().Height))

	return container.NewBorder(
		nil, // top
		nil, // bottom
		container.NewHBox(connectBtn, settingsBtn, pingBtn, resetBtn), // left
		container.NewBorder(nil, nil, nil, jobBtn, jobEntry),          // right
		nil, // center (spacer)
	)
}

// createCounterPanel creates the counter and rate display.
func createCounterPanel(state *appState) fyne.CanvasObject {
	state.ocLabel = widget.NewLabelWithStyle("0", fyne.TextAlignCenter, fyne.TextStyle{Bold: true})
	state.ccLabel = widget.NewLabelWithStyle("0", fyne.TextAlignCenter, fyne.TextStyle{Bold: true})
	state.ocRateLabel = widget.NewLabelWithStyle("0.0 / min", fyne.TextAlignCenter, fyne.TextStyle{})
	state.ccRateLabel = widget.NewLabelWithStyle("0.0 / min", fyne.TextAlignCenter, fyne.TextStyle{})
	state.jobLabel = widget.NewLabel("Job: —")
	state.deviceLabel = widget.NewLabel("Not connected")

	ocCard := widget.NewCard("Open Cell", "", container.NewVBox(state.ocLabel, state.ocRateLabel))
	ccCard := widget.NewCard("Closed Cell", "", container.NewVBox(state.ccLabel, state.ccRateLabel))

	return container.NewVBox(
		container.NewGridWithColumns(2, ocCard, ccCard),
		container.NewHBox(state.jobLabel, widget.NewSeparator(), state.deviceLabel),
	)
}

// createLogPanel creates the raw packet log.
func createLogPanel(state *appState) fyne.CanvasObject {
	state.logList = widget.NewList(
		func() int {
			state.logMu.Lock()
			defer state.logMu.Unlock()
			return len(state.logLines)
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("")
		},
		func(i widget.ListItemID, o fyne.CanvasObject) {
			state.logMu.Lock()
			defer state.logMu.Unlock()
			if i < len(state.logLines) {
				o.(*widget.Label).SetText(state.logLines[i])
			}
		},
	)
	return state.logList
}

// appendLog adds one packet line to the log, trimming the oldest lines.
// Must be called from the main Fyne thread.
func appendLog(state *appState, line string) {
	state.logMu.Lock()
	state.logLines = append(state.logLines, line)
	if len(state.logLines) > maxLogLines {
		state.logLines = state.logLines[len(state.logLines)-maxLogLines:]
	}
	n := len(state.logLines)
	state.logMu.Unlock()

	state.logList.Refresh()
	state.logList.ScrollTo(n - 1)
}

// closePacketChain gracefully closes the packet chain.
// Waits for all goroutines to finish and channels to drain.
func closePacketChain(chain *packetChain) {
	if chain == nil {
		return
	}

	// Close device - this will close the packets channel
	if chain.device != nil {
		chain.device.Close()
	}

	// Wait for log goroutine to finish
	if chain.logGoroutine != nil {
		<-chain.logGoroutine
	}

	// Wait for meter goroutine to finish
	// The meter goroutine will exit when the teed channel closes
	if chain.meterGoroutine != nil {
		<-chain.meterGoroutine
	}
}

// handleConnect handles the connect/disconnect button click.
func handleConnect(state *appState) {
	if state.device != nil && state.device.IsConnected() {
		// Disconnect - gracefully close packet chain
		closePacketChain(state.chain)
		state.chain = nil
		state.device = nil
		state.pingBtn.Disable()
		state.resetBtn.Disable()
		state.jobBtn.Disable()
		state.deviceLabel.SetText("Not connected")
		if state.useMock {
			fmt.Println("Disconnected from mocked device")
		} else {
			fmt.Println("Disconnected from serial port")
		}
	} else {
		// Connect
		var dev device.Device
		if state.useMock {
			dev = device.NewMock(&state.cfg.Mock)
			fmt.Println("Using mocked device")
		} else {
			dev = device.New(state.cfg.Serial.Port, state.cfg.Serial.Baud, device.DefaultBufferSize)
		}

		if err := dev.Connect(); err != nil {
			if state.useMock {
				dialog.ShowError(fmt.Errorf("failed to connect to mocked device: %w", err), state.window)
			} else {
				dialog.ShowError(fmt.Errorf("failed to connect to %s: %w", state.cfg.Serial.Port, err), state.window)
			}
			return
		}
		state.device = dev
		if state.useMock {
			fmt.Printf("Connected to mocked device\n")
		} else {
			fmt.Printf("Connected to serial port: %s\n", state.cfg.Serial.Port)
		}

		state.pingBtn.Enable()
		state.resetBtn.Enable()
		state.jobBtn.Enable()

		// Reset meter shutdown flag for new chain
		state.strokeMeter.ResetShutdown()

		// Register callback with the stroke meter to update the counter panel.
		// This must be done before starting the packet chain.
		// Throttle updates so a packet burst cannot overwhelm the UI.
		const updateInterval = 100 * time.Millisecond
		state.strokeMeter.OnUpdate(func(totals rate.Totals, ocPerMin, ccPerMin float64) {
			state.updateMu.Lock()
			now := time.Now()
			timeSinceLastUpdate := now.Sub(state.lastUpdateTime)
			state.updateMu.Unlock()

			// Skip update if too soon since last update
			if timeSinceLastUpdate < updateInterval {
				return
			}

			state.updateMu.Lock()
			state.lastUpdateTime = now
			state.updateMu.Unlock()

			// Update labels on main thread
			fyne.Do(func() {
				state.ocLabel.SetText(fmt.Sprintf("%d", totals.OC))
				state.ccLabel.SetText(fmt.Sprintf("%d", totals.CC))
				state.ocRateLabel.SetText(fmt.Sprintf("%.1f / min", ocPerMin))
				state.ccRateLabel.SetText(fmt.Sprintf("%.1f / min", ccPerMin))
				if totals.JobID == "" {
					state.jobLabel.SetText("Job: —")
				} else {
					state.jobLabel.SetText("Job: " + totals.JobID)
				}
			})
		})

		// Fan out packets: one branch for the raw log, one for the stroke
		// meter. Each branch must see every packet.
		packetsForLog, packetsForMeter := fanOut(dev.Packets())

		// Track goroutines for graceful shutdown
		logDone := make(chan struct{})
		meterDone := make(chan struct{})

		// Feed the raw packet log, and pick up the device identity from the
		// hello packet.
		go func() {
			defer close(logDone)
			for p := range packetsForLog {
				line := string(p.Message.Encode())
				hello := p.Type == packet.TypeHello
				version := p.Version
				name := p.Device
				fyne.Do(func() {
					appendLog(state, line)
					if hello {
						state.deviceLabel.SetText(fmt.Sprintf("%s v%s", name, version))
					}
				})
			}
		}()

		// Process packets through the stroke meter
		go func() {
			defer close(meterDone)
			state.strokeMeter.ProcessPackets(packetsForMeter)
		}()

		// Store chain for graceful shutdown
		state.chain = &packetChain{
			device:          dev,
			packetsForLog:   packetsForLog,
			packetsForMeter: packetsForMeter,
			logGoroutine:    logDone,
			meterGoroutine:  meterDone,
		}
	}
}

// fanOut duplicates the packet stream into two channels so the log and the
// meter each see every packet. Both outputs close when the input closes.
func fanOut(in <-chan device.Packet) (<-chan device.Packet, <-chan device.Packet) {
	a := make(chan device.Packet, 100)
	b := make(chan device.Packet, 100)

	go func() {
		defer close(a)
		defer close(b)
		for p := range in {
			a <- p
			b <- p
		}
	}()

	return a, b
}

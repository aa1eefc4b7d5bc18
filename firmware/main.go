//go:build tinygo

//go:generate tinygo flash -target=esp32s3

package main

import (
	"context"
	"machine"
	"time"

	"github.com/spservicesgroupinc-blip/RR-FOAM-PRO-APP/pkg/stroke"
)

// gpioInput adapts a machine.Pin to the harness input interface.
type gpioInput struct {
	pin machine.Pin
}

func (g gpioInput) Get() bool { return g.pin.Get() }

// gpioLamp adapts a machine.Pin to the harness lamp interface.
type gpioLamp struct {
	pin machine.Pin
}

func (g gpioLamp) Set(on bool) {
	if on {
		g.pin.High()
	} else {
		g.pin.Low()
	}
}

func main() {
	// Configure button pins as inputs with pull-ups (active low)
	PIN_OPEN_CELL.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	PIN_CLOSED_CELL.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	// Configure the status lamp as output
	PIN_STATUS_LAMP.Configure(machine.PinConfig{Mode: machine.PinOutput})

	harness := stroke.New(
		stroke.Config{
			Version:         FIRMWARE_VERSION,
			DeviceName:      DEVICE_NAME,
			Debounce:        DEBOUNCE_MS * time.Millisecond,
			HeartbeatPeriod: HEARTBEAT_MS * time.Millisecond,
			LampPulse:       LAMP_PULSE_MS * time.Millisecond,
			AttachWait:      ATTACH_WAIT_MS * time.Millisecond,
		},
		stroke.Hardware{
			OpenCell:   gpioInput{PIN_OPEN_CELL},
			ClosedCell: gpioInput{PIN_CLOSED_CELL},
			Lamp:       gpioLamp{PIN_STATUS_LAMP},
			Link:       stroke.NewStreamTransport(machine.Serial),
			// The USB CDC stack exposes no attach signal, so startup
			// waits out the full attach window before the hello packet.
		},
	)

	harness.Run(context.Background(), LOOP_TICK_US*time.Microsecond)
}

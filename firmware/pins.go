//go:build tinygo

package main

import "machine"

const (
	// Timing configuration
	LOOP_TICK_US   = 500  // Main loop tick in microseconds
	DEBOUNCE_MS    = 200  // Reject edges closer than this per channel
	HEARTBEAT_MS   = 5000 // Heartbeat packet period
	ATTACH_WAIT_MS = 3000 // Bounded wait for the host after boot
	LAMP_PULSE_MS  = 30   // Status lamp pulse per counted stroke

	// Identity reported in the hello packet
	FIRMWARE_VERSION = "0.1.0"
	DEVICE_NAME      = "RR-FOAM-CTR-S3"

	// Button pins (bench test: bridge the pin to GND to fire a stroke)
	PIN_OPEN_CELL   = machine.GPIO0 // BOOT button on most ESP32-S3 boards
	PIN_CLOSED_CELL = machine.GPIO1 // Wire to GND for test

	// Onboard LED (many S3 boards)
	PIN_STATUS_LAMP = machine.GPIO38

	// Serial configuration
	// Worst case line: heartbeat with two 10-digit counters and a long job id,
	// well under 120 bytes. Strokes arrive at human speed, so 115200 baud over
	// USB CDC leaves orders of magnitude of headroom.
	UART_BAUD_RATE = 115200
)

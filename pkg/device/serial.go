package device

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/spservicesgroupinc-blip/RR-FOAM-PRO-APP/pkg/packet"
)

const (
	// DefaultBaudRate is the standard baud rate for the ESP32-S3 head unit.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default size for the packets channel buffer.
	DefaultBufferSize = 100
)

// Packet is a decoded line from the head unit, stamped at receive time.
type Packet struct {
	Timestamp time.Time
	packet.Message
}

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial represents a connection to the stroke counter head unit.
type Serial struct {
	port     string
	baudRate int
	bufSize  int

	conn      serial.Port
	packets   chan Packet
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
}

// New creates a new Serial instance with the specified port, baud rate, and buffer size.
func New(port string, baudRate int, bufSize int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:      port,
		baudRate:  baudRate,
		bufSize:   bufSize,
		packets:   make(chan Packet, bufSize),
		ctx:       ctx,
		cancel:    cancel,
		connected: false,
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		// Try to get port description if available
		port, err := serial.Open(name, &serial.Mode{
			BaudRate: DefaultBaudRate,
		})
		if err == nil {
			// Port opened successfully, get description
			desc := name // Use name as description if we can't get more info
			port.Close()
			result = append(result, Port{
				Name:        name,
				Description: desc,
			})
		} else {
			// Still add the port even if we can't open it
			result = append(result, Port{
				Name:        name,
				Description: name,
			})
		}
	}

	return result, nil
}

// Connect connects to the serial port and starts reading packets.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}

	mode := &serial.Mode{
		BaudRate: d.baudRate,
	}

	port, err := serial.Open(d.port, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	d.conn = port
	d.connected = true

	// Start reading packets in a goroutine
	go d.readPackets()

	return nil
}

// Close closes the connection and stops reading packets.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	// Cancel context to stop reading goroutine
	d.cancel()

	// Close serial port
	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			log.Printf("Error closing serial port: %v", err)
		}
		d.conn = nil
	}

	d.connected = false

	// Close packets channel
	close(d.packets)

	return nil
}

// Packets returns the channel for reading decoded packets.
func (d *Serial) Packets() <-chan Packet {
	return d.packets
}

// Ping asks the head unit for a pong acknowledgement.
func (d *Serial) Ping() error {
	return d.send(packet.Command{Type: packet.TypePing})
}

// ResetCounters zeroes both stroke counters on the head unit.
func (d *Serial) ResetCounters() error {
	return d.send(packet.Command{Type: packet.TypeReset})
}

// SelectJob tags subsequent heartbeats with the given job identifier.
func (d *Serial) SelectJob(id string) error {
	if id == "" {
		return fmt.Errorf("job id must not be empty")
	}
	return d.send(packet.Command{Type: packet.TypeJobSelected, JobID: id})
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// send encodes a command as a JSON line and writes it to the port.
func (d *Serial) send(cmd packet.Command) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return fmt.Errorf("not connected")
	}

	line := append(packet.EncodeCommand(cmd), '\n')
	if _, err := d.conn.Write(line); err != nil {
		return fmt.Errorf("failed to send %s command: %w", cmd.Type, err)
	}

	return nil
}

// readPackets reads lines from the serial port and decodes them into Packets.
func (d *Serial) readPackets() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic in readPackets: %v", r)
		}
	}()

	scanner := bufio.NewScanner(d.conn)
	for {
		select {
		case <-d.ctx.Done():
			return
		default:
			if !scanner.Scan() {
				// Scanner stopped (EOF or error)
				if err := scanner.Err(); err != nil {
					if err != io.EOF {
						log.Printf("Error reading from serial port: %v", err)
					}
				}
				return
			}

			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			msg, err := packet.Decode([]byte(line))
			if err != nil {
				log.Printf("Failed to decode line '%s': %v", line, err)
				continue
			}

			// Send packet to channel (non-blocking)
			select {
			case d.packets <- Packet{Timestamp: time.Now(), Message: msg}:
			case <-d.ctx.Done():
				return
			default:
				// Channel full, log and skip
				log.Printf("Packets channel full, dropping packet")
			}
		}
	}
}

package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chewxy/math32"

	"github.com/spservicesgroupinc-blip/RR-FOAM-PRO-APP/pkg/config"
	"github.com/spservicesgroupinc-blip/RR-FOAM-PRO-APP/pkg/packet"
	"github.com/spservicesgroupinc-blip/RR-FOAM-PRO-APP/pkg/stroke"
)

// Mock simulates a stroke counter head unit for testing and development.
type Mock struct {
	cfg *config.MockConfig

	packets   chan Packet
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool

	// Simulation state
	state     stroke.State
	startTime time.Time
	presses   int
}

// NewMock creates a new mocked device instance.
func NewMock(cfg *config.MockConfig) *Mock {
	if cfg == nil {
		cfg = &config.MockConfig{
			PressPeriod:     1500 * time.Millisecond,
			PressJitter:     0.35,
			ClosedCellShare: 0.45,
			HeartbeatPeriod: 5 * time.Second,
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Mock{
		cfg:       cfg,
		packets:   make(chan Packet, DefaultBufferSize),
		ctx:       ctx,
		cancel:    cancel,
		connected: false,
	}
}

// Connect simulates connecting to the device. It emits the HELLO packet the
// head unit sends after its attach wait.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}

	m.connected = true
	m.startTime = time.Now()
	m.state = stroke.State{}
	m.presses = 0

	m.emit(packet.Message{
		Type:    packet.TypeHello,
		Version: stroke.DefaultVersion,
		Device:  stroke.DefaultDeviceName,
	})

	// Start generating packets
	go m.generatePackets()

	return nil
}

// Close stops the mocked device.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}

	m.cancel()
	m.connected = false
	close(m.packets)

	return nil
}

// Packets returns the channel for reading packets.
func (m *Mock) Packets() <-chan Packet {
	return m.packets
}

// Ping emits a pong acknowledgement, like the firmware would.
func (m *Mock) Ping() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return fmt.Errorf("not connected")
	}

	m.emit(packet.Message{Type: packet.TypeAck, Message: "pong"})
	return nil
}

// ResetCounters zeroes the simulated counters and emits the reset ack.
func (m *Mock) ResetCounters() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return fmt.Errorf("not connected")
	}

	m.state.Reset()
	m.emit(packet.Message{Type: packet.TypeAck, Message: "counters reset"})
	return nil
}

// SelectJob sets the simulated job id and emits the job ack.
func (m *Mock) SelectJob(id string) error {
	if id == "" {
		return fmt.Errorf("job id must not be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return fmt.Errorf("not connected")
	}

	m.state.JobID = id
	m.emit(packet.Message{Type: packet.TypeAck, Message: "job set: " + id})
	return nil
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// generatePackets generates simulated stroke and heartbeat packets.
func (m *Mock) generatePackets() {
	press := time.NewTimer(m.nextPressDelay())
	defer press.Stop()

	heartbeat := time.NewTicker(m.cfg.HeartbeatPeriod)
	defer heartbeat.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-press.C:
			m.generateStroke()
			press.Reset(m.nextPressDelay())
		case <-heartbeat.C:
			m.mu.Lock()
			if !m.connected {
				m.mu.Unlock()
				return
			}
			m.emit(packet.Message{
				Type:  packet.TypeHeartbeat,
				OC:    m.state.OC,
				CC:    m.state.CC,
				JobID: m.state.JobID,
			})
			m.mu.Unlock()
		}
	}
}

// generateStroke increments one of the counters and emits a stroke packet.
func (m *Mock) generateStroke() {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Close may have won the lock race and already closed the channel.
	if !m.connected {
		return
	}

	m.presses++
	k := float32(m.presses)

	// Deterministic pseudo-random channel pick, no RNG state to seed.
	share := (math32.Cos(k*12.9898) + 1) * 0.5
	ch := stroke.OpenCell
	if share < float32(m.cfg.ClosedCellShare) {
		ch = stroke.ClosedCell
	}
	m.state.Increment(ch)

	m.emit(packet.Message{
		Type: packet.TypeStroke,
		Foam: ch.Foam(),
		OC:   m.state.OC,
		CC:   m.state.CC,
	})
}

// nextPressDelay returns the jittered interval until the next simulated press.
func (m *Mock) nextPressDelay() time.Duration {
	m.mu.RLock()
	k := float32(m.presses)
	m.mu.RUnlock()

	jitter := float32(m.cfg.PressJitter) * math32.Sin(k*1.7)
	d := time.Duration(float32(m.cfg.PressPeriod) * (1 + jitter))
	if d <= 0 {
		d = m.cfg.PressPeriod
	}
	return d
}

// emit sends a packet to the channel (non-blocking). Callers hold the mutex.
func (m *Mock) emit(msg packet.Message) {
	select {
	case m.packets <- Packet{Timestamp: time.Now(), Message: msg}:
	default:
		// Channel full, skip
	}
}

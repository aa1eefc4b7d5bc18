package rate

import (
	"strings"
	"sync"
	"time"

	"github.com/spservicesgroupinc-blip/RR-FOAM-PRO-APP/pkg/config"
	"github.com/spservicesgroupinc-blip/RR-FOAM-PRO-APP/pkg/device"
	"github.com/spservicesgroupinc-blip/RR-FOAM-PRO-APP/pkg/packet"
)

var _ StrokeMeter = (*Meter)(nil)

// Totals is the latest counter snapshot seen on the wire, taken from stroke
// and heartbeat packets.
type Totals struct {
	OC    uint32
	CC    uint32
	JobID string
}

// StrokeMeter consumes packets and maintains windowed stroke rates.
type StrokeMeter interface {
	ProcessPackets(input <-chan device.Packet)
	Totals() Totals
	Rates() (ocPerMin, ccPerMin float64)
	OnUpdate(func(totals Totals, ocPerMin, ccPerMin float64)) // Register callback for updates
}

// Meter implements StrokeMeter.
// Stroke timestamps are kept in FIFO buffers and pruned by age, so the rates
// always reflect the configured window rather than a fixed sample count.
type Meter struct {
	cfg *config.Config

	// Buffers
	// ocStrokes and ccStrokes hold receive timestamps of stroke packets,
	// oldest first. Removal is based on timestamp (time window), not count.
	ocStrokes []time.Time
	ccStrokes []time.Time
	totals    Totals

	// Thread safety
	mu sync.RWMutex

	// Update callbacks
	callbacks []func(totals Totals, ocPerMin, ccPerMin float64)
	cbMu      sync.RWMutex

	// Configuration
	windowDuration time.Duration

	// Shutdown control
	shutdown bool // Set to true when input channel closes, prevents further callbacks

	// now is stubbed in tests.
	now func() time.Time
}

// New creates a new StrokeMeter instance.
// Returns concrete type (*Meter) following Go best practices.
func New(cfg *config.Config) *Meter {
	return &Meter{
		cfg:            cfg,
		ocStrokes:      make([]time.Time, 0),
		ccStrokes:      make([]time.Time, 0),
		callbacks:      make([]func(totals Totals, ocPerMin, ccPerMin float64), 0),
		windowDuration: time.Duration(cfg.Rate.WindowSeconds * float64(time.Second)),
		shutdown:       false,
		now:            time.Now,
	}
}

// ProcessPackets processes packets from the input channel until it closes.
// When the input channel closes, it sets the shutdown flag to prevent further
// callbacks.
func (m *Meter) ProcessPackets(input <-chan device.Packet) {
	for p := range input {
		m.processPacket(p)
	}
	// Channel closed - mark as shutdown to prevent further callbacks
	m.mu.Lock()
	m.shutdown = true
	m.mu.Unlock()
}

// processPacket folds one packet into the totals and stroke buffers.
func (m *Meter) processPacket(p device.Packet) {
	m.mu.Lock()

	changed := false
	switch p.Type {
	case packet.TypeStroke:
		ts := p.Timestamp
		if ts.IsZero() {
			ts = m.now()
		}
		switch p.Foam {
		case packet.FoamOpenCell:
			m.ocStrokes = append(m.ocStrokes, ts)
		case packet.FoamClosedCell:
			m.ccStrokes = append(m.ccStrokes, ts)
		}
		m.totals.OC = p.OC
		m.totals.CC = p.CC
		changed = true
	case packet.TypeHeartbeat:
		m.totals.OC = p.OC
		m.totals.CC = p.CC
		m.totals.JobID = p.JobID
		changed = true
	case packet.TypeAck:
		// The reset ack is the only ack that changes counters.
		if p.Message.Message == "counters reset" {
			m.totals.OC = 0
			m.totals.CC = 0
			m.ocStrokes = m.ocStrokes[:0]
			m.ccStrokes = m.ccStrokes[:0]
			changed = true
		} else if id, ok := strings.CutPrefix(p.Message.Message, "job set: "); ok {
			m.totals.JobID = id
			changed = true
		}
	}

	m.prune(m.now())

	shouldNotify := changed && !m.shutdown
	m.mu.Unlock()

	if shouldNotify {
		m.notifyCallbacks()
	}
}

// prune removes stroke timestamps outside the time window. Callers hold the
// write lock.
func (m *Meter) prune(now time.Time) {
	cutoff := now.Add(-m.windowDuration)
	m.ocStrokes = pruneBefore(m.ocStrokes, cutoff)
	m.ccStrokes = pruneBefore(m.ccStrokes, cutoff)
}

func pruneBefore(events []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(events) && !events[idx].After(cutoff) {
		idx++
	}
	return events[idx:]
}

// Totals returns the latest counter snapshot.
func (m *Meter) Totals() Totals {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totals
}

// Rates returns the current stroke rates in strokes per minute, computed over
// the configured window.
func (m *Meter) Rates() (ocPerMin, ccPerMin float64) {
	m.mu.Lock()
	m.prune(m.now())
	oc := len(m.ocStrokes)
	cc := len(m.ccStrokes)
	m.mu.Unlock()

	minutes := m.windowDuration.Minutes()
	if minutes <= 0 {
		return 0, 0
	}
	return float64(oc) / minutes, float64(cc) / minutes
}

// OnUpdate registers a callback function that will be called when totals or
// rates change. The callback should copy data quickly and return as fast as
// possible.
func (m *Meter) OnUpdate(callback func(totals Totals, ocPerMin, ccPerMin float64)) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// ResetShutdown resets the shutdown flag, allowing callbacks to be sent again.
// This should be called before starting a new packet chain.
func (m *Meter) ResetShutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdown = false
}

// notifyCallbacks invokes all registered callbacks with current data.
// Reads data under the lock, then calls callbacks without holding any locks.
func (m *Meter) notifyCallbacks() {
	totals := m.Totals()
	ocPerMin, ccPerMin := m.Rates()

	m.cbMu.RLock()
	callbacks := make([]func(totals Totals, ocPerMin, ccPerMin float64), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(totals, ocPerMin, ccPerMin)
		}
	}
}

package stroke

import (
	"context"
	"time"

	"github.com/spservicesgroupinc-blip/RR-FOAM-PRO-APP/pkg/packet"
)

// Defaults for the head unit. The browser counterpart assumes the same
// protocol version tag.
const (
	DefaultVersion         = "0.1.0"
	DefaultDeviceName      = "RR-FOAM-CTR"
	DefaultDebounce        = 200 * time.Millisecond
	DefaultHeartbeatPeriod = 5000 * time.Millisecond
	DefaultLampPulse       = 30 * time.Millisecond
	DefaultAttachWait      = 3000 * time.Millisecond
)

// InputPin reads the instantaneous level of a digital input. Inputs are
// pulled up internally; a low level means pressed.
type InputPin interface {
	Get() bool
}

// StatusLamp drives the indicator output.
type StatusLamp interface {
	Set(on bool)
}

// Hardware bundles the physical surface the harness runs against.
type Hardware struct {
	OpenCell   InputPin
	ClosedCell InputPin
	Lamp       StatusLamp
	Link       Transport
	Clock      Clock

	// HostReady reports whether the host side of the USB channel is
	// attached. Nil means no attach signal is available; Startup then waits
	// out the full attach window before proceeding.
	HostReady func() bool
}

// Config carries the timing and identity parameters of the head unit.
// Zero values fall back to the defaults above.
type Config struct {
	Version         string
	DeviceName      string
	Debounce        time.Duration
	HeartbeatPeriod time.Duration
	LampPulse       time.Duration
	AttachWait      time.Duration

	// RequireRelease demands the input return to idle before the next edge
	// is accepted. Off by default: the original head unit re-triggers a held
	// input once per debounce window.
	RequireRelease bool
}

func (c Config) withDefaults() Config {
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.DeviceName == "" {
		c.DeviceName = DefaultDeviceName
	}
	if c.Debounce == 0 {
		c.Debounce = DefaultDebounce
	}
	if c.HeartbeatPeriod == 0 {
		c.HeartbeatPeriod = DefaultHeartbeatPeriod
	}
	if c.LampPulse == 0 {
		c.LampPulse = DefaultLampPulse
	}
	if c.AttachWait == 0 {
		c.AttachWait = DefaultAttachWait
	}
	return c
}

// Harness is the single sequential control flow of the head unit. All state
// is owned by this one loop; there is no locking discipline to follow.
type Harness struct {
	cfg Config
	hw  Hardware

	state         State
	oc            Debouncer
	cc            Debouncer
	lastHeartbeat time.Time

	scratch []byte
}

// New assembles a harness over the given hardware. A nil Clock falls back to
// the runtime clock.
func New(cfg Config, hw Hardware) *Harness {
	cfg = cfg.withDefaults()
	if hw.Clock == nil {
		hw.Clock = SystemClock()
	}
	return &Harness{
		cfg:     cfg,
		hw:      hw,
		oc:      Debouncer{window: cfg.Debounce, requireRelease: cfg.RequireRelease},
		cc:      Debouncer{window: cfg.Debounce, requireRelease: cfg.RequireRelease},
		scratch: make([]byte, 0, 96),
	}
}

// Startup runs the one-shot initialization phase: lamp blink, bounded
// host-attach wait, hello packet. If the host never attaches, the harness
// proceeds anyway once the window elapses.
func (h *Harness) Startup() {
	for i := 0; i < 3; i++ {
		h.hw.Lamp.Set(true)
		h.hw.Clock.Sleep(100 * time.Millisecond)
		h.hw.Lamp.Set(false)
		h.hw.Clock.Sleep(100 * time.Millisecond)
	}

	deadline := h.hw.Clock.Now().Add(h.cfg.AttachWait)
	for h.hw.Clock.Now().Before(deadline) {
		if h.hw.HostReady != nil && h.hw.HostReady() {
			break
		}
		h.hw.Clock.Sleep(10 * time.Millisecond)
	}

	h.lastHeartbeat = h.hw.Clock.Now()
	h.scratch = packet.AppendHello(h.scratch[:0], h.cfg.Version, h.cfg.DeviceName)
	h.send(h.scratch)
}

// Poll runs one pass of the main loop: sample both inputs, consume at most
// one inbound line, emit a heartbeat when due. No pass blocks indefinitely.
func (h *Harness) Poll() {
	now := h.hw.Clock.Now()

	if h.oc.Accept(!h.hw.OpenCell.Get(), now) {
		h.recordStroke(OpenCell)
	}
	if h.cc.Accept(!h.hw.ClosedCell.Get(), now) {
		h.recordStroke(ClosedCell)
	}

	if line, ok := h.hw.Link.ReadLine(); ok {
		h.handleLine(line)
	}

	if now.Sub(h.lastHeartbeat) >= h.cfg.HeartbeatPeriod {
		h.lastHeartbeat = now
		h.scratch = packet.AppendHeartbeat(h.scratch[:0], h.state.OC, h.state.CC, h.state.JobID)
		h.send(h.scratch)
	}
}

// Run drives the poll loop until ctx is cancelled, sleeping tick between
// passes. The firmware passes context.Background(); the only way off the
// device is reset or power loss.
func (h *Harness) Run(ctx context.Context, tick time.Duration) {
	h.Startup()
	for ctx.Err() == nil {
		h.Poll()
		h.hw.Clock.Sleep(tick)
	}
}

// Snapshot returns a copy of the counter state.
func (h *Harness) Snapshot() State {
	return h.state
}

func (h *Harness) recordStroke(ch Channel) {
	h.state.Increment(ch)
	h.hw.Lamp.Set(true)
	h.scratch = packet.AppendStroke(h.scratch[:0], ch.Foam(), h.state.OC, h.state.CC)
	h.send(h.scratch)
	h.hw.Clock.Sleep(h.cfg.LampPulse)
	h.hw.Lamp.Set(false)
}

// handleLine interprets one trimmed inbound line. Malformed and unrecognized
// lines are dropped with no feedback to the sender.
func (h *Harness) handleLine(line string) {
	cmd, ok := packet.ParseCommand(line)
	if !ok {
		return
	}
	switch cmd.Type {
	case packet.TypePing:
		h.ack("pong")
	case packet.TypeReset:
		h.state.Reset()
		h.ack("counters reset")
	case packet.TypeJobSelected:
		if cmd.JobID == "" {
			return
		}
		h.state.JobID = cmd.JobID
		h.ack("job set: " + cmd.JobID)
	}
}

func (h *Harness) ack(message string) {
	h.scratch = packet.AppendAck(h.scratch[:0], message)
	h.send(h.scratch)
}

// send writes one packet line. Writes are best effort; the link offers no
// delivery feedback beyond the ack protocol itself.
func (h *Harness) send(p []byte) {
	_ = h.hw.Link.WriteLine(p)
}

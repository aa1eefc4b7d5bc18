package rate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spservicesgroupinc-blip/RR-FOAM-PRO-APP/pkg/config"
	"github.com/spservicesgroupinc-blip/RR-FOAM-PRO-APP/pkg/device"
	"github.com/spservicesgroupinc-blip/RR-FOAM-PRO-APP/pkg/packet"
)

func newTestMeter(windowSeconds float64) (*Meter, *time.Time) {
	cfg := config.Default()
	cfg.Rate.WindowSeconds = windowSeconds

	now := time.Unix(1_700_000_000, 0)
	m := New(cfg)
	m.now = func() time.Time { return now }
	return m, &now
}

func strokeAt(ts time.Time, foam string, oc, cc uint32) device.Packet {
	return device.Packet{
		Timestamp: ts,
		Message: packet.Message{
			Type: packet.TypeStroke,
			Foam: foam,
			OC:   oc,
			CC:   cc,
		},
	}
}

func TestNew(t *testing.T) {
	cfg := config.Default()
	cfg.Rate.WindowSeconds = 30

	m := New(cfg)
	assert.NotNil(t, m)
	assert.Equal(t, 30*time.Second, m.windowDuration)
	assert.False(t, m.shutdown)
}

func TestMeter_StrokeUpdatesTotalsAndRates(t *testing.T) {
	m, now := newTestMeter(60)
	base := *now

	m.processPacket(strokeAt(base, packet.FoamOpenCell, 1, 0))
	m.processPacket(strokeAt(base.Add(time.Second), packet.FoamOpenCell, 2, 0))
	m.processPacket(strokeAt(base.Add(2*time.Second), packet.FoamClosedCell, 2, 1))

	totals := m.Totals()
	assert.Equal(t, uint32(2), totals.OC)
	assert.Equal(t, uint32(1), totals.CC)

	*now = base.Add(3 * time.Second)
	ocPerMin, ccPerMin := m.Rates()
	assert.Equal(t, 2.0, ocPerMin)
	assert.Equal(t, 1.0, ccPerMin)
}

func TestMeter_WindowPruning(t *testing.T) {
	m, now := newTestMeter(60)
	base := *now

	m.processPacket(strokeAt(base, packet.FoamOpenCell, 1, 0))
	m.processPacket(strokeAt(base.Add(30*time.Second), packet.FoamOpenCell, 2, 0))

	// Both strokes still inside the window.
	*now = base.Add(59 * time.Second)
	ocPerMin, _ := m.Rates()
	assert.Equal(t, 2.0, ocPerMin)

	// The first stroke ages out, the second remains.
	*now = base.Add(61 * time.Second)
	ocPerMin, _ = m.Rates()
	assert.Equal(t, 1.0, ocPerMin)

	// Everything ages out.
	*now = base.Add(2 * time.Minute)
	ocPerMin, ccPerMin := m.Rates()
	assert.Equal(t, 0.0, ocPerMin)
	assert.Equal(t, 0.0, ccPerMin)
}

func TestMeter_HeartbeatUpdatesTotals(t *testing.T) {
	m, now := newTestMeter(60)

	m.processPacket(device.Packet{
		Timestamp: *now,
		Message: packet.Message{
			Type:  packet.TypeHeartbeat,
			OC:    7,
			CC:    3,
			JobID: "job-42",
		},
	})

	totals := m.Totals()
	assert.Equal(t, uint32(7), totals.OC)
	assert.Equal(t, uint32(3), totals.CC)
	assert.Equal(t, "job-42", totals.JobID)

	// Heartbeats carry totals but are not strokes.
	ocPerMin, ccPerMin := m.Rates()
	assert.Equal(t, 0.0, ocPerMin)
	assert.Equal(t, 0.0, ccPerMin)
}

func TestMeter_ResetAckClearsCountersAndRates(t *testing.T) {
	m, now := newTestMeter(60)
	base := *now

	m.processPacket(strokeAt(base, packet.FoamOpenCell, 1, 0))
	m.processPacket(strokeAt(base.Add(time.Second), packet.FoamClosedCell, 1, 1))

	m.processPacket(device.Packet{
		Timestamp: base.Add(2 * time.Second),
		Message:   packet.Message{Type: packet.TypeAck, Message: "counters reset"},
	})

	totals := m.Totals()
	assert.Equal(t, uint32(0), totals.OC)
	assert.Equal(t, uint32(0), totals.CC)

	ocPerMin, ccPerMin := m.Rates()
	assert.Equal(t, 0.0, ocPerMin)
	assert.Equal(t, 0.0, ccPerMin)
}

func TestMeter_JobAckUpdatesJob(t *testing.T) {
	m, now := newTestMeter(60)

	m.processPacket(device.Packet{
		Timestamp: *now,
		Message:   packet.Message{Type: packet.TypeAck, Message: "job set: job-7"},
	})

	assert.Equal(t, "job-7", m.Totals().JobID)

	// A pong does not disturb anything.
	m.processPacket(device.Packet{
		Timestamp: *now,
		Message:   packet.Message{Type: packet.TypeAck, Message: "pong"},
	})
	assert.Equal(t, "job-7", m.Totals().JobID)
}

func TestMeter_OnUpdateCallback(t *testing.T) {
	m, now := newTestMeter(60)

	var gotTotals Totals
	var gotOC, gotCC float64
	calls := 0
	m.OnUpdate(func(totals Totals, ocPerMin, ccPerMin float64) {
		gotTotals = totals
		gotOC = ocPerMin
		gotCC = ccPerMin
		calls++
	})

	m.processPacket(strokeAt(*now, packet.FoamOpenCell, 1, 0))

	require.Equal(t, 1, calls)
	assert.Equal(t, uint32(1), gotTotals.OC)
	assert.Equal(t, 1.0, gotOC)
	assert.Equal(t, 0.0, gotCC)

	// Pong acks change nothing, so they do not notify.
	m.processPacket(device.Packet{
		Timestamp: *now,
		Message:   packet.Message{Type: packet.TypeAck, Message: "pong"},
	})
	assert.Equal(t, 1, calls)
}

func TestMeter_ShutdownStopsCallbacks(t *testing.T) {
	m, now := newTestMeter(60)

	calls := 0
	m.OnUpdate(func(Totals, float64, float64) { calls++ })

	input := make(chan device.Packet)
	close(input)
	m.ProcessPackets(input)

	m.processPacket(strokeAt(*now, packet.FoamOpenCell, 1, 0))
	assert.Equal(t, 0, calls)

	// ResetShutdown re-arms callbacks for the next chain.
	m.ResetShutdown()
	m.processPacket(strokeAt((*now).Add(time.Second), packet.FoamOpenCell, 2, 0))
	assert.Equal(t, 1, calls)
}

func TestMeter_ProcessPackets(t *testing.T) {
	m, now := newTestMeter(60)
	base := *now

	input := make(chan device.Packet, 4)
	input <- strokeAt(base, packet.FoamOpenCell, 1, 0)
	input <- strokeAt(base.Add(time.Second), packet.FoamClosedCell, 1, 1)
	close(input)

	m.ProcessPackets(input)

	totals := m.Totals()
	assert.Equal(t, uint32(1), totals.OC)
	assert.Equal(t, uint32(1), totals.CC)
	assert.True(t, m.shutdown)
}

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spservicesgroupinc-blip/RR-FOAM-PRO-APP/pkg/config"
	"github.com/spservicesgroupinc-blip/RR-FOAM-PRO-APP/pkg/device"
	"github.com/spservicesgroupinc-blip/RR-FOAM-PRO-APP/pkg/packet"
)

func newQuietMock(t *testing.T) *device.Mock {
	t.Helper()
	dev := device.NewMock(&config.MockConfig{
		PressPeriod:     time.Hour,
		ClosedCellShare: 0.45,
		HeartbeatPeriod: time.Hour,
	})
	require.NoError(t, dev.Connect())
	t.Cleanup(func() { dev.Close() })
	<-dev.Packets() // HELLO
	return dev
}

func TestHub_ApplyCommand(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantAck string
	}{
		{
			name:    "ping",
			line:    `{"type":"PING"}`,
			wantAck: "pong",
		},
		{
			name:    "reset",
			line:    `{"type":"RESET"}`,
			wantAck: "counters reset",
		},
		{
			name:    "job selected",
			line:    `{"type":"JOB_SELECTED","jobId":"job-9"}`,
			wantAck: "job set: job-9",
		},
		{
			name: "empty job id ignored",
			line: `{"type":"JOB_SELECTED","jobId":""}`,
		},
		{
			name: "unknown type ignored",
			line: `{"type":"HELLO"}`,
		},
		{
			name: "malformed line ignored",
			line: `{"type":"PING"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := newQuietMock(t)
			h := newHub(dev)

			h.applyCommand([]byte(tt.line))

			if tt.wantAck == "" {
				select {
				case p := <-dev.Packets():
					t.Fatalf("Unexpected packet %s", p.Message.Encode())
				case <-time.After(50 * time.Millisecond):
				}
				return
			}

			select {
			case p := <-dev.Packets():
				assert.Equal(t, packet.TypeAck, p.Type)
				assert.Equal(t, tt.wantAck, p.Message.Message)
			case <-time.After(time.Second):
				t.Fatal("No ack packet from device")
			}
		})
	}
}

func TestHub_BroadcastDropsSlowClients(t *testing.T) {
	h := newHub(nil)

	fast := &client{hub: h, send: make(chan []byte, 4)}
	slow := &client{hub: h, send: make(chan []byte, 1)}
	slow.send <- []byte("stuck") // queue already full

	h.mu.Lock()
	h.clients[fast] = struct{}{}
	h.clients[slow] = struct{}{}
	h.mu.Unlock()

	line := []byte(`{"type":"ACK","message":"pong"}`)
	h.broadcast(line)

	select {
	case got := <-fast.send:
		assert.Equal(t, line, got)
	default:
		t.Fatal("Fast client did not receive the broadcast")
	}

	h.mu.Lock()
	_, stillThere := h.clients[slow]
	h.mu.Unlock()
	assert.False(t, stillThere, "Slow client should be dropped")

	<-slow.send // drain the stuck entry
	_, open := <-slow.send
	assert.False(t, open, "Slow client send channel should be closed")
}

package device

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spservicesgroupinc-blip/RR-FOAM-PRO-APP/pkg/config"
)

// TestMock_GracefulShutdown tests that Mock device closes the packets channel
// when Close() is called.
func TestMock_GracefulShutdown(t *testing.T) {
	cfg := &config.MockConfig{
		PressPeriod:     10 * time.Millisecond,
		PressJitter:     0,
		ClosedCellShare: 0.45,
		HeartbeatPeriod: time.Second,
	}

	mock := NewMock(cfg)
	err := mock.Connect()
	assert.NoError(t, err)

	packets := mock.Packets()

	// Read a few packets
	received := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range packets {
			received++
			if received >= 3 {
				// Got enough packets, now close device
				mock.Close()
			}
		}
	}()

	// Wait for packets and channel closure
	select {
	case <-done:
		// Channel closed successfully
	case <-time.After(5 * time.Second):
		t.Fatal("Packets channel did not close within timeout")
	}

	// Should have received at least a few packets
	assert.GreaterOrEqual(t, received, 3, "Should receive packets before channel closes")

	// Verify channel is closed
	_, ok := <-packets
	assert.False(t, ok, "Channel should be closed")
}

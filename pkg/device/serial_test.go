package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	dev := New("COM3", 115200, 100)
	assert.NotNil(t, dev)
	assert.Equal(t, "COM3", dev.port)
	assert.Equal(t, 115200, dev.baudRate)
	assert.Equal(t, 100, dev.bufSize)
	assert.NotNil(t, dev.packets)
	assert.False(t, dev.IsConnected())
}

func TestNew_Defaults(t *testing.T) {
	dev := New("COM3", 0, 0)
	assert.NotNil(t, dev)
	assert.Equal(t, DefaultBaudRate, dev.baudRate)
	assert.Equal(t, DefaultBufferSize, dev.bufSize)
}

func TestSerial_IsConnected(t *testing.T) {
	dev := New("COM3", 115200, 100)
	assert.False(t, dev.IsConnected())
}

func TestSerial_CommandsRequireConnection(t *testing.T) {
	dev := New("COM3", 115200, 100)

	err := dev.Ping()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")

	err = dev.ResetCounters()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")

	err = dev.SelectJob("job-7")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}

func TestSerial_SelectJob_EmptyID(t *testing.T) {
	dev := New("COM3", 115200, 100)

	err := dev.SelectJob("")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "must not be empty")
}

func TestSerial_Close_NotConnected(t *testing.T) {
	dev := New("COM3", 115200, 100)

	err := dev.Close()
	assert.NoError(t, err) // Should not error when not connected
}

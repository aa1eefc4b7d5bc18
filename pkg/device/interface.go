package device

// Device defines the interface for stroke counter devices (real or mocked).
type Device interface {
	Connect() error
	Close() error
	Packets() <-chan Packet
	Ping() error
	ResetCounters() error
	SelectJob(id string) error
	IsConnected() bool
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)

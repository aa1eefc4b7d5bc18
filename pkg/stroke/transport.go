package stroke

import (
	"io"
	"strings"
)

// Transport is the line-delimited byte channel to the host. Outbound writes
// are newline-terminated and best effort; inbound reads hand over at most one
// complete, trimmed line per call.
type Transport interface {
	// ReadLine returns the next complete inbound line with surrounding
	// whitespace stripped. ok is false when no complete non-empty line is
	// buffered; the call never blocks.
	ReadLine() (line string, ok bool)
	// WriteLine writes p followed by the line terminator.
	WriteLine(p []byte) error
}

// ByteStream is the byte-level surface of a USB serial channel.
// machine.Serial satisfies it under TinyGo.
type ByteStream interface {
	io.Writer
	Buffered() int
	ReadByte() (byte, error)
}

// StreamTransport frames a ByteStream into lines, accumulating partial input
// between polls.
type StreamTransport struct {
	s   ByteStream
	buf []byte
}

// NewStreamTransport wraps s. The inbound scratch buffer grows to the longest
// line seen and is reused afterwards.
func NewStreamTransport(s ByteStream) *StreamTransport {
	return &StreamTransport{s: s, buf: make([]byte, 0, 64)}
}

// ReadLine drains buffered bytes until a terminator and returns the line.
// Bytes after the first complete line stay buffered in the stream for the
// next poll pass, so a burst of inbound lines is consumed one per pass.
func (t *StreamTransport) ReadLine() (string, bool) {
	for t.s.Buffered() > 0 {
		b, err := t.s.ReadByte()
		if err != nil {
			break
		}
		if b == '\n' || b == '\r' {
			line := strings.TrimSpace(string(t.buf))
			t.buf = t.buf[:0]
			if line == "" {
				continue
			}
			return line, true
		}
		t.buf = append(t.buf, b)
	}
	return "", false
}

// WriteLine writes p and the terminator in two writes. The underlying CDC
// channel flushes per write.
func (t *StreamTransport) WriteLine(p []byte) error {
	if _, err := t.s.Write(p); err != nil {
		return err
	}
	_, err := t.s.Write([]byte{'\n'})
	return err
}

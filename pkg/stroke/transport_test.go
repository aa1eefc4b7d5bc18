package stroke

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	in  []byte
	out []byte
}

func (s *fakeStream) Buffered() int { return len(s.in) }

func (s *fakeStream) ReadByte() (byte, error) {
	if len(s.in) == 0 {
		return 0, io.EOF
	}
	b := s.in[0]
	s.in = s.in[1:]
	return b, nil
}

func (s *fakeStream) Write(p []byte) (int, error) {
	s.out = append(s.out, p...)
	return len(p), nil
}

func TestStreamTransport_ReadLine(t *testing.T) {
	t.Run("no data", func(t *testing.T) {
		tr := NewStreamTransport(&fakeStream{})
		_, ok := tr.ReadLine()
		assert.False(t, ok)
	})

	t.Run("complete line trimmed", func(t *testing.T) {
		tr := NewStreamTransport(&fakeStream{in: []byte("  {\"type\":\"PING\"} \n")})
		line, ok := tr.ReadLine()
		require.True(t, ok)
		assert.Equal(t, `{"type":"PING"}`, line)
	})

	t.Run("partial line kept across polls", func(t *testing.T) {
		s := &fakeStream{in: []byte(`{"type":`)}
		tr := NewStreamTransport(s)
		_, ok := tr.ReadLine()
		assert.False(t, ok)

		s.in = append(s.in, []byte("\"PING\"}\n")...)
		line, ok := tr.ReadLine()
		require.True(t, ok)
		assert.Equal(t, `{"type":"PING"}`, line)
	})

	t.Run("one line per call", func(t *testing.T) {
		s := &fakeStream{in: []byte("{\"type\":\"PING\"}\n{\"type\":\"RESET\"}\n")}
		tr := NewStreamTransport(s)

		line, ok := tr.ReadLine()
		require.True(t, ok)
		assert.Equal(t, `{"type":"PING"}`, line)

		line, ok = tr.ReadLine()
		require.True(t, ok)
		assert.Equal(t, `{"type":"RESET"}`, line)

		_, ok = tr.ReadLine()
		assert.False(t, ok)
	})

	t.Run("crlf and blank lines skipped", func(t *testing.T) {
		s := &fakeStream{in: []byte("\r\n\r\n{\"type\":\"PING\"}\r\n")}
		tr := NewStreamTransport(s)
		line, ok := tr.ReadLine()
		require.True(t, ok)
		assert.Equal(t, `{"type":"PING"}`, line)
	})
}

func TestStreamTransport_WriteLine(t *testing.T) {
	s := &fakeStream{}
	tr := NewStreamTransport(s)

	require.NoError(t, tr.WriteLine([]byte(`{"type":"ACK","message":"pong"}`)))
	assert.Equal(t, "{\"type\":\"ACK\",\"message\":\"pong\"}\n", string(s.out))
}

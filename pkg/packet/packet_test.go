package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendHello(t *testing.T) {
	got := AppendHello(nil, "0.1.0", "RR-FOAM-CTR-S3")
	assert.Equal(t, `{"type":"HELLO","version":"0.1.0","device":"RR-FOAM-CTR-S3"}`, string(got))
}

func TestAppendStroke(t *testing.T) {
	tests := []struct {
		name   string
		foam   string
		oc, cc uint32
		want   string
	}{
		{"first open cell", FoamOpenCell, 1, 0, `{"type":"STROKE","foam":"oc","oc":1,"cc":0}`},
		{"closed cell", FoamClosedCell, 3, 7, `{"type":"STROKE","foam":"cc","oc":3,"cc":7}`},
		{"large counters", FoamOpenCell, 4294967295, 12, `{"type":"STROKE","foam":"oc","oc":4294967295,"cc":12}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AppendStroke(nil, tt.foam, tt.oc, tt.cc)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestAppendHeartbeat(t *testing.T) {
	got := AppendHeartbeat(nil, 3, 0, "")
	assert.Equal(t, `{"type":"HEARTBEAT","oc":3,"cc":0,"jobId":""}`, string(got))

	got = AppendHeartbeat(nil, 0, 0, "job-42")
	assert.Equal(t, `{"type":"HEARTBEAT","oc":0,"cc":0,"jobId":"job-42"}`, string(got))
}

func TestAppendAck(t *testing.T) {
	got := AppendAck(nil, "pong")
	assert.Equal(t, `{"type":"ACK","message":"pong"}`, string(got))

	got = AppendAck(nil, "job set: job-42")
	assert.Equal(t, `{"type":"ACK","message":"job set: job-42"}`, string(got))
}

func TestAppendString_Escaping(t *testing.T) {
	got := AppendAck(nil, "quote \" backslash \\ tab\t")
	assert.Equal(t, `{"type":"ACK","message":"quote \" backslash \\ tab\t"}`, string(got))
}

func TestEncodeCommand(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{"ping", Command{Type: TypePing}, `{"type":"PING"}`},
		{"reset", Command{Type: TypeReset}, `{"type":"RESET"}`},
		{"job selected", Command{Type: TypeJobSelected, JobID: "job-42"}, `{"type":"JOB_SELECTED","jobId":"job-42"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(EncodeCommand(tt.cmd)))
		})
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Message
		wantErr bool
	}{
		{
			name: "hello",
			line: `{"type":"HELLO","version":"0.1.0","device":"RR-FOAM-CTR-S3"}`,
			want: Message{Type: TypeHello, Version: "0.1.0", Device: "RR-FOAM-CTR-S3"},
		},
		{
			name: "stroke",
			line: `{"type":"STROKE","foam":"oc","oc":3,"cc":1}`,
			want: Message{Type: TypeStroke, Foam: FoamOpenCell, OC: 3, CC: 1},
		},
		{
			name: "heartbeat with job",
			line: `{"type":"HEARTBEAT","oc":3,"cc":1,"jobId":"job-42"}`,
			want: Message{Type: TypeHeartbeat, OC: 3, CC: 1, JobID: "job-42"},
		},
		{
			name: "ack",
			line: `{"type":"ACK","message":"counters reset"}`,
			want: Message{Type: TypeAck, Message: "counters reset"},
		},
		{name: "not json", line: `STROKE oc 3 1`, wantErr: true},
		{name: "missing type", line: `{"oc":3,"cc":1}`, wantErr: true},
		{name: "truncated", line: `{"type":"ACK","message":"pong`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.line))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMessage_Encode_RoundTrip(t *testing.T) {
	lines := []string{
		`{"type":"HELLO","version":"0.1.0","device":"RR-FOAM-CTR-S3"}`,
		`{"type":"STROKE","foam":"cc","oc":0,"cc":5}`,
		`{"type":"HEARTBEAT","oc":12,"cc":5,"jobId":""}`,
		`{"type":"ACK","message":"pong"}`,
	}

	for _, line := range lines {
		msg, err := Decode([]byte(line))
		require.NoError(t, err)
		assert.Equal(t, line, string(msg.Encode()))
	}
}

// Package packet implements the newline-delimited JSON protocol spoken
// between the stroke counter head unit and its host counterpart. One JSON
// object per line, UTF-8, '\n' terminated. Key names and field order are the
// compatibility contract with the browser test page.
package packet

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Device→host message type tags.
const (
	TypeHello     = "HELLO"
	TypeStroke    = "STROKE"
	TypeHeartbeat = "HEARTBEAT"
	TypeAck       = "ACK"
)

// Host→device command type tags.
const (
	TypePing        = "PING"
	TypeReset       = "RESET"
	TypeJobSelected = "JOB_SELECTED"
)

// Foam channel tags carried in stroke packets.
const (
	FoamOpenCell   = "oc"
	FoamClosedCell = "cc"
)

// Message is one decoded device→host packet. A single flat struct covers all
// four payload shapes; fields not used by a given type are zero.
type Message struct {
	Type    string `json:"type"`
	Version string `json:"version,omitempty"`
	Device  string `json:"device,omitempty"`
	Foam    string `json:"foam,omitempty"`
	OC      uint32 `json:"oc"`
	CC      uint32 `json:"cc"`
	JobID   string `json:"jobId"`
	Message string `json:"message,omitempty"`
}

// Decode parses one device→host line.
func Decode(line []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(line, &m); err != nil {
		return Message{}, fmt.Errorf("invalid packet: %w", err)
	}
	if m.Type == "" {
		return Message{}, fmt.Errorf("invalid packet: missing type")
	}
	return m, nil
}

// Encode renders the message as a canonical wire line (without the
// terminator), using the same field order the head unit emits.
func (m Message) Encode() []byte {
	switch m.Type {
	case TypeHello:
		return AppendHello(nil, m.Version, m.Device)
	case TypeStroke:
		return AppendStroke(nil, m.Foam, m.OC, m.CC)
	case TypeHeartbeat:
		return AppendHeartbeat(nil, m.OC, m.CC, m.JobID)
	case TypeAck:
		return AppendAck(nil, m.Message)
	}
	b, _ := json.Marshal(m)
	return b
}

// The appenders build payloads byte by byte so the firmware side does not
// depend on reflection-based JSON encoding.

// AppendHello appends the startup announcement packet to dst.
func AppendHello(dst []byte, version, device string) []byte {
	dst = append(dst, `{"type":"HELLO","version":`...)
	dst = appendString(dst, version)
	dst = append(dst, `,"device":`...)
	dst = appendString(dst, device)
	return append(dst, '}')
}

// AppendStroke appends a stroke notification carrying both counters.
func AppendStroke(dst []byte, foam string, oc, cc uint32) []byte {
	dst = append(dst, `{"type":"STROKE","foam":`...)
	dst = appendString(dst, foam)
	dst = append(dst, `,"oc":`...)
	dst = strconv.AppendUint(dst, uint64(oc), 10)
	dst = append(dst, `,"cc":`...)
	dst = strconv.AppendUint(dst, uint64(cc), 10)
	return append(dst, '}')
}

// AppendHeartbeat appends the periodic status packet. The job id is always
// present, possibly empty.
func AppendHeartbeat(dst []byte, oc, cc uint32, jobID string) []byte {
	dst = append(dst, `{"type":"HEARTBEAT","oc":`...)
	dst = strconv.AppendUint(dst, uint64(oc), 10)
	dst = append(dst, `,"cc":`...)
	dst = strconv.AppendUint(dst, uint64(cc), 10)
	dst = append(dst, `,"jobId":`...)
	dst = appendString(dst, jobID)
	return append(dst, '}')
}

// AppendAck appends a command acknowledgment.
func AppendAck(dst []byte, message string) []byte {
	dst = append(dst, `{"type":"ACK","message":`...)
	dst = appendString(dst, message)
	return append(dst, '}')
}

// EncodeCommand renders a host→device command line (without the terminator).
func EncodeCommand(cmd Command) []byte {
	dst := append([]byte(nil), `{"type":`...)
	dst = appendString(dst, cmd.Type)
	if cmd.JobID != "" {
		dst = append(dst, `,"jobId":`...)
		dst = appendString(dst, cmd.JobID)
	}
	return append(dst, '}')
}

// appendString appends s as a quoted JSON string, escaping the characters
// that would break the line framing.
func appendString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			dst = append(dst, '\\', '"')
		case '\\':
			dst = append(dst, '\\', '\\')
		case '\n':
			dst = append(dst, '\\', 'n')
		case '\r':
			dst = append(dst, '\\', 'r')
		case '\t':
			dst = append(dst, '\\', 't')
		default:
			if c < 0x20 {
				const hex = "0123456789abcdef"
				dst = append(dst, '\\', 'u', '0', '0', hex[c>>4], hex[c&0xf])
			} else {
				dst = append(dst, c)
			}
		}
	}
	return append(dst, '"')
}

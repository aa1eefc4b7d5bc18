package main

// WebSocket hub with:
// - per-client buffered send queues (slow clients get dropped, not waited on)
// - ping ticker + pong watchdog (read deadline) on every client
// - inbound client messages translated into device commands
//
// Each outbound WebSocket message is exactly one packet line, byte-identical
// to what the head unit puts on the serial wire.

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/spservicesgroupinc-blip/RR-FOAM-PRO-APP/pkg/device"
	"github.com/spservicesgroupinc-blip/RR-FOAM-PRO-APP/pkg/packet"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = 10 * time.Second // must be shorter than pongWait
	maxMessageSize = 1024
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Bench tool on a trusted network; browser pages may be served from
	// anywhere, including file://.
	CheckOrigin: func(*http.Request) bool { return true },
}

// hub fans the device packet stream out to all connected browsers and feeds
// their commands back to the device.
type hub struct {
	dev device.Device

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	hub  *hub
	conn *websocket.Conn
	send chan []byte
}

func newHub(dev device.Device) *hub {
	return &hub{
		dev:     dev,
		clients: make(map[*client]struct{}),
	}
}

// broadcast queues one packet line to every client. Clients whose queue is
// full are disconnected; a stalled browser must not hold up the stream.
func (h *hub) broadcast(line []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- line:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// handleWS upgrades an HTTP request and registers the client.
func (h *hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Upgrade failed: %v", err)
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	log.Printf("Client connected: %s", conn.RemoteAddr())

	go c.writePump()
	go c.readPump()
}

// applyCommand parses one inbound client message with the same parser the
// firmware uses and forwards the recognized commands to the device.
func (h *hub) applyCommand(line []byte) {
	cmd, ok := packet.ParseCommand(string(line))
	if !ok {
		return
	}

	var err error
	switch cmd.Type {
	case packet.TypePing:
		err = h.dev.Ping()
	case packet.TypeReset:
		err = h.dev.ResetCounters()
	case packet.TypeJobSelected:
		if cmd.JobID == "" {
			return
		}
		err = h.dev.SelectJob(cmd.JobID)
	default:
		return
	}

	if err != nil {
		log.Printf("Failed to forward %s command: %v", cmd.Type, err)
	}
}

// readPump consumes client messages until the connection dies. Reading is
// also what keeps pong frames flowing for the keepalive watchdog.
func (c *client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Client read error: %v", err)
			}
			return
		}
		c.hub.applyCommand(msg)
	}
}

// writePump drains the send queue and keeps the connection pinged.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case line, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub dropped this client
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, line); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

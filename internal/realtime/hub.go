package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/carewatch/pkg/logger"
)

const (
	sendBuffer = 16
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Message is the envelope pushed to every subscriber
type Message struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Hub fans cohort snapshots out to connected websocket clients.
// A new client immediately receives the last published message.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	last    []byte

	upgrader websocket.Upgrader
	logger   *logger.Logger
}

type client struct {
	send chan []byte
}

// NewHub creates an empty hub
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: log.WithField("module", "realtime"),
	}
}

// Publish marshals v into a Message of the given type and broadcasts it
func (h *Hub) Publish(msgType string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(Message{Type: msgType, Timestamp: time.Now().UTC(), Data: data})
	if err != nil {
		return err
	}

	// unregister closes send channels under the same lock
	h.mu.Lock()
	h.last = payload
	clients := len(h.clients)
	dropped := 0
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			dropped++
		}
	}
	h.mu.Unlock()

	h.logger.WithFields(map[string]interface{}{
		"type":    msgType,
		"clients": clients,
		"dropped": dropped,
	}).Debug("Message broadcast")
	return nil
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register() *client {
	c := &client{send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- h.last
	}
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// ServeHTTP upgrades the request and streams messages until the peer goes away
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	c := h.register()
	h.logger.WithField("clients", h.ClientCount()).Info("Websocket client connected")

	go h.writePump(c, conn)
	h.readPump(c, conn)
}

// readPump only handles control frames; clients do not send data
func (h *Hub) readPump(c *client, conn *websocket.Conn) {
	defer func() {
		h.unregister(c)
		conn.Close()
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

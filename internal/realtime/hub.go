package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Transport identifiers for the two connection flavors the hub unifies.
const (
	TransportRaw  = "raw-socket"
	TransportRoom = "room-socket"
)

// wire is the minimal write surface the hub needs from a websocket
// connection. *websocket.Conn satisfies it; tests substitute fakes.
type wire interface {
	WriteJSON(v interface{}) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// Connection tracks one live client regardless of which transport it used.
// All fields besides ID and the connect metadata are guarded by mu.
type Connection struct {
	ID          string
	Transport   string
	TenantID    string
	UserID      string
	RemoteAddr  string
	UserAgent   string
	ConnectTime time.Time

	mu           sync.Mutex
	topics       map[string]struct{}
	lastActivity time.Time
	alive        bool

	writeMu sync.Mutex
	wire    wire
}

func newConnection(id, transport string, w wire) *Connection {
	now := time.Now()
	return &Connection{
		ID:           id,
		Transport:    transport,
		ConnectTime:  now,
		topics:       make(map[string]struct{}),
		lastActivity: now,
		alive:        true,
		wire:         w,
	}
}

// Subscribe adds a topic to the connection's interest set.
func (c *Connection) Subscribe(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics[topic] = struct{}{}
}

// Unsubscribe removes a topic from the connection's interest set.
func (c *Connection) Unsubscribe(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.topics, topic)
}

// Touch records inbound activity, which also counts as proof of life.
func (c *Connection) Touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActivity = time.Now()
	c.alive = true
}

// Topics returns a snapshot of the connection's subscriptions.
func (c *Connection) Topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	topics := make([]string, 0, len(c.topics))
	for topic := range c.topics {
		topics = append(topics, topic)
	}
	return topics
}

// LastActivity returns the time of the most recent inbound message.
func (c *Connection) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

func (c *Connection) subscribed(topic string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.topics[topic]
	return ok
}

// checkAlive reports whether the connection showed life since the previous
// heartbeat cycle and arms the next check.
func (c *Connection) checkAlive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	alive := c.alive
	c.alive = false
	return alive
}

func (c *Connection) send(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.wire.WriteJSON(v)
}

func (c *Connection) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.wire.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
}

func (c *Connection) close() {
	if err := c.wire.Close(); err != nil {
		logrus.Debugf("Error closing connection %s: %v", c.ID, err)
	}
}

// ConnectionInfo is the admin-facing snapshot of one connection.
type ConnectionInfo struct {
	ID              string    `json:"id"`
	Transport       string    `json:"transport"`
	TenantID        string    `json:"tenant_id"`
	UserID          string    `json:"user_id,omitempty"`
	RemoteAddr      string    `json:"remote_addr"`
	UserAgent       string    `json:"user_agent,omitempty"`
	ConnectTime     time.Time `json:"connect_time"`
	LastActivity    time.Time `json:"last_activity"`
	DurationSeconds int       `json:"duration_seconds"`
	Topics          []string  `json:"subscribed_topics"`
}

// Hub owns every live connection across both transports and exposes the one
// broadcast primitive the rest of the system uses.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*Connection

	heartbeatInterval time.Duration
	stop              chan struct{}
	stopOnce          sync.Once
}

// NewHub creates a connection hub. Call Start to begin heartbeats.
func NewHub(heartbeatInterval time.Duration) *Hub {
	return &Hub{
		conns:             make(map[string]*Connection),
		heartbeatInterval: heartbeatInterval,
		stop:              make(chan struct{}),
	}
}

// Add registers a connection with the hub.
func (h *Hub) Add(conn *Connection) {
	h.mu.Lock()
	h.conns[conn.ID] = conn
	total := len(h.conns)
	h.mu.Unlock()

	logrus.Infof("Client connected: %s via %s (%s). Total clients: %d",
		conn.ID, conn.Transport, conn.RemoteAddr, total)
}

// Remove drops a connection from the registry.
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	_, ok := h.conns[id]
	delete(h.conns, id)
	total := len(h.conns)
	h.mu.Unlock()

	if ok {
		logrus.Infof("Client disconnected: %s. Total remaining: %d", id, total)
	}
}

// Count returns the number of registered connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast delivers a message to every connection subscribed to topic, or to
// every connection when topic is empty. Dead connections are pruned along the
// way; Broadcast itself never fails. Returns the delivery count.
func (h *Hub) Broadcast(topic string, message interface{}) int {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.conns))
	for _, conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	count := 0
	for _, conn := range conns {
		if topic != "" && !conn.subscribed(topic) {
			continue
		}

		if err := conn.send(message); err != nil {
			logrus.Warnf("Dropping dead connection %s: %v", conn.ID, err)
			conn.close()
			h.Remove(conn.ID)
			continue
		}
		count++
	}

	logrus.Debugf("Broadcast delivered to %d clients (topic %q)", count, topic)
	return count
}

// Start launches the heartbeat loop.
func (h *Hub) Start() {
	go h.heartbeatLoop()
}

// Stop terminates the heartbeat loop and closes every connection.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })

	h.mu.Lock()
	for id, conn := range h.conns {
		conn.close()
		delete(h.conns, id)
	}
	h.mu.Unlock()
}

// heartbeatLoop periodically proves connections are alive. A connection that
// produced no activity and no pong for a full interval is considered dead on
// the next tick, which tolerates slow networks without false positives.
func (h *Hub) heartbeatLoop() {
	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			h.runHeartbeat()
		}
	}
}

func (h *Hub) runHeartbeat() {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.conns))
	for _, conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	heartbeat := map[string]interface{}{
		"type":      "heartbeat",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	sent := 0
	for _, conn := range conns {
		if !conn.checkAlive() {
			logrus.Infof("Connection %s missed heartbeat window, closing", conn.ID)
			conn.close()
			h.Remove(conn.ID)
			continue
		}

		if err := conn.ping(); err != nil {
			logrus.Debugf("Ping to %s failed: %v", conn.ID, err)
		}
		if err := conn.send(heartbeat); err != nil {
			conn.close()
			h.Remove(conn.ID)
			continue
		}
		sent++
	}

	logrus.Debugf("Sent heartbeat to %d active clients", sent)
}

// ConnectionStats returns a snapshot of every live connection.
func (h *Hub) ConnectionStats() []ConnectionInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := make([]ConnectionInfo, 0, len(h.conns))
	for _, conn := range h.conns {
		stats = append(stats, ConnectionInfo{
			ID:              conn.ID,
			Transport:       conn.Transport,
			TenantID:        conn.TenantID,
			UserID:          conn.UserID,
			RemoteAddr:      conn.RemoteAddr,
			UserAgent:       conn.UserAgent,
			ConnectTime:     conn.ConnectTime,
			LastActivity:    conn.LastActivity(),
			DurationSeconds: int(time.Since(conn.ConnectTime).Seconds()),
			Topics:          conn.Topics(),
		})
	}
	return stats
}

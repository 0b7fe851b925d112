package realtime

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWire is an in-memory wire for hub tests. When failing is set, every
// write behaves like a dead socket.
type fakeWire struct {
	mu       sync.Mutex
	failing  bool
	written  []interface{}
	closed   bool
}

func (f *fakeWire) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("broken pipe")
	}
	f.written = append(f.written, v)
	return nil
}

func (f *fakeWire) WriteControl(messageType int, data []byte, deadline time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("broken pipe")
	}
	return nil
}

func (f *fakeWire) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeWire) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.written)
}

func addFakeConnection(h *Hub, id string, w wire) *Connection {
	conn := newConnection(id, TransportRaw, w)
	conn.TenantID = "default"
	h.Add(conn)
	return conn
}

func TestBroadcastReachesAllConnections(t *testing.T) {
	hub := NewHub(4 * time.Minute)
	w1, w2 := &fakeWire{}, &fakeWire{}
	addFakeConnection(hub, "a", w1)
	addFakeConnection(hub, "b", w2)

	delivered := hub.Broadcast("", map[string]string{"type": "test"})

	assert.Equal(t, 2, delivered)
	assert.Equal(t, 1, w1.writeCount())
	assert.Equal(t, 1, w2.writeCount())
}

func TestBroadcastFiltersByTopic(t *testing.T) {
	hub := NewHub(4 * time.Minute)
	subscribed, other := &fakeWire{}, &fakeWire{}
	conn := addFakeConnection(hub, "a", subscribed)
	addFakeConnection(hub, "b", other)

	conn.Subscribe("keyword_alerts")

	delivered := hub.Broadcast("keyword_alerts", map[string]string{"type": "test"})

	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, subscribed.writeCount())
	assert.Equal(t, 0, other.writeCount())
}

func TestBroadcastPrunesDeadConnections(t *testing.T) {
	hub := NewHub(4 * time.Minute)
	alive, dead := &fakeWire{}, &fakeWire{failing: true}
	addFakeConnection(hub, "alive", alive)
	addFakeConnection(hub, "dead", dead)

	delivered := hub.Broadcast("", map[string]string{"type": "test"})

	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, hub.Count())
	assert.True(t, dead.closed)

	// A second broadcast only sees the surviving connection
	delivered = hub.Broadcast("", map[string]string{"type": "again"})
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 2, alive.writeCount())
}

func TestUnsubscribeStopsTopicDelivery(t *testing.T) {
	hub := NewHub(4 * time.Minute)
	w := &fakeWire{}
	conn := addFakeConnection(hub, "a", w)

	conn.Subscribe("sentiment")
	require.Equal(t, 1, hub.Broadcast("sentiment", "one"))

	conn.Unsubscribe("sentiment")
	assert.Equal(t, 0, hub.Broadcast("sentiment", "two"))
	assert.Equal(t, 1, w.writeCount())
}

func TestHeartbeatPrunesSilentConnections(t *testing.T) {
	hub := NewHub(4 * time.Minute)
	w := &fakeWire{}
	addFakeConnection(hub, "quiet", w)

	// First cycle: the connection is still within its grace window, so it
	// gets a heartbeat and its liveness flag is armed
	hub.runHeartbeat()
	assert.Equal(t, 1, hub.Count())
	assert.Equal(t, 1, w.writeCount())

	// No activity before the second cycle: pruned
	hub.runHeartbeat()
	assert.Equal(t, 0, hub.Count())
	assert.True(t, w.closed)
}

func TestHeartbeatKeepsActiveConnections(t *testing.T) {
	hub := NewHub(4 * time.Minute)
	w := &fakeWire{}
	conn := addFakeConnection(hub, "busy", w)

	hub.runHeartbeat()
	conn.Touch() // inbound traffic between cycles
	hub.runHeartbeat()

	assert.Equal(t, 1, hub.Count())
}

func TestConnectionStats(t *testing.T) {
	hub := NewHub(4 * time.Minute)
	conn := addFakeConnection(hub, "a", &fakeWire{})
	conn.UserID = "u-17"
	conn.Subscribe("keyword_alerts")

	stats := hub.ConnectionStats()

	require.Len(t, stats, 1)
	assert.Equal(t, "a", stats[0].ID)
	assert.Equal(t, TransportRaw, stats[0].Transport)
	assert.Equal(t, "default", stats[0].TenantID)
	assert.Equal(t, "u-17", stats[0].UserID)
	assert.Equal(t, []string{"keyword_alerts"}, stats[0].Topics)
}

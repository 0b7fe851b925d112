package realtime

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ConnectFunc runs when a raw-socket client lands on a registered path.
type ConnectFunc func(conn *Connection, r *http.Request)

type rawRoute struct {
	prefix    string
	onConnect ConnectFunc
}

// RawMux accepts raw websocket connections and routes them by request path
// prefix. Unrouted paths get a default handler that reports the miss and
// echoes messages, so probing clients still get a response.
type RawMux struct {
	hub *Hub

	mu     sync.RWMutex
	routes []rawRoute
}

// NewRawMux creates a path-routed raw websocket multiplexer backed by hub.
func NewRawMux(hub *Hub) *RawMux {
	return &RawMux{hub: hub}
}

// RegisterHandler associates a path prefix with a connect callback. The first
// matching prefix wins, in registration order; re-registering a prefix
// replaces the previous handler.
func (m *RawMux) RegisterHandler(prefix string, onConnect ConnectFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.routes {
		if m.routes[i].prefix == prefix {
			logrus.Warnf("WebSocket handler for path %s is being replaced", prefix)
			m.routes[i].onConnect = onConnect
			return
		}
	}

	m.routes = append(m.routes, rawRoute{prefix: prefix, onConnect: onConnect})
	logrus.Infof("Registered WebSocket handler for path: %s", prefix)
}

func (m *RawMux) findRoute(path string) (ConnectFunc, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, route := range m.routes {
		if strings.HasPrefix(path, route.prefix) {
			return route.onConnect, true
		}
	}
	return nil, false
}

// ServeHTTP upgrades the request and hands the connection to the matching
// path handler.
func (m *RawMux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Errorf("WebSocket upgrade failed for %s: %v", r.URL.Path, err)
		return
	}

	conn := newConnection(uuid.NewString(), TransportRaw, ws)
	conn.TenantID = extractTenantID(r)
	conn.UserID = extractUserID(r)
	conn.RemoteAddr = remoteAddr(r)
	conn.UserAgent = r.UserAgent()

	m.hub.Add(conn)
	logrus.Infof("WebSocket connection on path %s from %s (tenant %s)",
		r.URL.Path, conn.RemoteAddr, conn.TenantID)

	onConnect, matched := m.findRoute(r.URL.Path)
	if matched {
		if err := conn.send(map[string]interface{}{
			"type":      "welcome",
			"clientId":  conn.ID,
			"message":   "Connected to Media Pulse WebSocket server",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}); err != nil {
			m.hub.Remove(conn.ID)
			ws.Close()
			return
		}

		onConnect(conn, r)
		m.hub.readPump(conn, ws, false)
		return
	}

	logrus.Warnf("No handler registered for WebSocket path: %s", r.URL.Path)
	if err := conn.send(map[string]interface{}{
		"type":      "error",
		"message":   fmt.Sprintf("No handler registered for path: %s", r.URL.Path),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		m.hub.Remove(conn.ID)
		ws.Close()
		return
	}

	m.hub.readPump(conn, ws, true)
}

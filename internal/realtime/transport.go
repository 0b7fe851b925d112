package realtime

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect from the dashboard origin; auth is handled
	// upstream of this core.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientMessage is the inbound protocol shared by both transports.
type clientMessage struct {
	Type      string `json:"type"`
	Topic     string `json:"topic,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// extractTenantID reads the tenant identifier from the handshake. It tags the
// connection for filtering but never restricts broadcast scope by itself.
func extractTenantID(r *http.Request) string {
	if tenant := r.Header.Get("X-Tenant-ID"); tenant != "" {
		return tenant
	}
	if tenant := r.URL.Query().Get("tenant"); tenant != "" {
		return tenant
	}
	return "default"
}

// extractUserID reads an optional user identifier from the handshake.
func extractUserID(r *http.Request) string {
	if user := r.Header.Get("X-User-ID"); user != "" {
		return user
	}
	return r.URL.Query().Get("user")
}

func remoteAddr(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	return r.RemoteAddr
}

// readPump drains inbound messages for a connection until it closes, handling
// the shared subscribe/unsubscribe/ping protocol. When echo is set, anything
// else is echoed back (the default-handler behavior for unrouted paths).
func (h *Hub) readPump(conn *Connection, ws *websocket.Conn, echo bool) {
	defer func() {
		h.Remove(conn.ID)
		ws.Close()
	}()

	ws.SetPongHandler(func(string) error {
		conn.Touch()
		return nil
	})

	for {
		var msg clientMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.Debugf("Read error on connection %s: %v", conn.ID, err)
			}
			return
		}

		conn.Touch()

		switch msg.Type {
		case "subscribe":
			if msg.Topic == "" {
				continue
			}
			logrus.Infof("Client %s subscribing to %s", conn.ID, msg.Topic)
			conn.Subscribe(msg.Topic)
			if err := conn.send(map[string]interface{}{
				"type":  "subscribed",
				"topic": msg.Topic,
			}); err != nil {
				return
			}

		case "unsubscribe":
			if msg.Topic == "" {
				continue
			}
			logrus.Infof("Client %s unsubscribing from %s", conn.ID, msg.Topic)
			conn.Unsubscribe(msg.Topic)

		case "ping":
			if err := conn.send(map[string]interface{}{
				"type":      "pong",
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			}); err != nil {
				return
			}

		default:
			if echo {
				if err := conn.send(map[string]interface{}{
					"type":      "echo",
					"original":  msg,
					"timestamp": time.Now().UTC().Format(time.RFC3339),
					"note":      "No specific handler for this path",
				}); err != nil {
					return
				}
				continue
			}
			logrus.Debugf("Unhandled message type %q from client %s", msg.Type, conn.ID)
		}
	}
}

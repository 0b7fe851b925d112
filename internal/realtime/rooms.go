package realtime

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RoomServer is the room/event-based transport: a single endpoint where
// clients join topics and receive only the broadcasts they subscribed to.
type RoomServer struct {
	hub *Hub
}

// NewRoomServer creates the room transport endpoint backed by hub.
func NewRoomServer(hub *Hub) *RoomServer {
	return &RoomServer{hub: hub}
}

// ServeHTTP upgrades the request into a room-transport connection.
func (s *RoomServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Errorf("Room transport upgrade failed: %v", err)
		return
	}

	conn := newConnection(uuid.NewString(), TransportRoom, ws)
	conn.TenantID = extractTenantID(r)
	conn.UserID = extractUserID(r)
	conn.RemoteAddr = remoteAddr(r)
	conn.UserAgent = r.UserAgent()

	s.hub.Add(conn)

	if err := conn.send(map[string]interface{}{
		"type":        "connection_info",
		"clientId":    conn.ID,
		"message":     "Connected to Media Pulse realtime server",
		"server_time": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		s.hub.Remove(conn.ID)
		ws.Close()
		return
	}

	s.hub.readPump(conn, ws, false)
}

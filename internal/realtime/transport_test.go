package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame struct {
	Type    string `json:"type"`
	Topic   string `json:"topic"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}

func wsURL(server *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + path
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestRawMuxRegisteredPath(t *testing.T) {
	hub := NewHub(4 * time.Minute)
	mux := NewRawMux(hub)

	connected := make(chan string, 1)
	mux.RegisterHandler("/ws", func(conn *Connection, r *http.Request) {
		connected <- conn.ID
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := dial(t, wsURL(server, "/ws/dashboard"))
	defer client.Close()

	welcome := readFrame(t, client)
	assert.Equal(t, "welcome", welcome.Type)

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("connect callback never fired")
	}

	// Shared protocol: subscribe then ping
	require.NoError(t, client.WriteJSON(map[string]string{"type": "subscribe", "topic": "keyword_alerts"}))
	assert.Equal(t, "subscribed", readFrame(t, client).Type)

	require.NoError(t, client.WriteJSON(map[string]string{"type": "ping"}))
	assert.Equal(t, "pong", readFrame(t, client).Type)
}

func TestRawMuxUnmatchedPathEchoes(t *testing.T) {
	hub := NewHub(4 * time.Minute)
	mux := NewRawMux(hub)
	mux.RegisterHandler("/ws", func(conn *Connection, r *http.Request) {})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := dial(t, wsURL(server, "/nowhere"))
	defer client.Close()

	errFrame := readFrame(t, client)
	assert.Equal(t, "error", errFrame.Type)
	assert.Contains(t, errFrame.Message, "/nowhere")

	require.NoError(t, client.WriteJSON(map[string]string{"type": "hello"}))
	assert.Equal(t, "echo", readFrame(t, client).Type)
}

func TestRawMuxTenantExtraction(t *testing.T) {
	hub := NewHub(4 * time.Minute)
	mux := NewRawMux(hub)
	mux.RegisterHandler("/ws", func(conn *Connection, r *http.Request) {})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := dial(t, wsURL(server, "/ws?tenant=press-office"))
	defer client.Close()
	readFrame(t, client) // welcome

	stats := hub.ConnectionStats()
	require.Len(t, stats, 1)
	assert.Equal(t, "press-office", stats[0].TenantID)
}

func TestRoomServerSubscribeAndBroadcast(t *testing.T) {
	hub := NewHub(4 * time.Minute)
	server := httptest.NewServer(NewRoomServer(hub))
	defer server.Close()

	client := dial(t, wsURL(server, "/rt"))
	defer client.Close()

	info := readFrame(t, client)
	assert.Equal(t, "connection_info", info.Type)

	require.NoError(t, client.WriteJSON(map[string]string{"type": "subscribe", "topic": "sentiment"}))
	assert.Equal(t, "subscribed", readFrame(t, client).Type)

	delivered := hub.Broadcast("sentiment", &BatchMessage{
		Type:      "sentiment_update_batch",
		Count:     2,
		Timestamp: time.Now(),
	})
	require.Equal(t, 1, delivered)

	batch := readFrame(t, client)
	assert.Equal(t, "sentiment_update_batch", batch.Type)
	assert.Equal(t, 2, batch.Count)

	// Connections on other topics are skipped
	assert.Equal(t, 0, hub.Broadcast("press_releases", "nothing"))
}

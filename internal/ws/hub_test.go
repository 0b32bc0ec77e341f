package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialTestHub(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d clients, got %d", want, hub.ClientCount())
}

func TestHubBroadcastsToObservers(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	first := dialTestHub(t, server)
	defer first.Close()
	second := dialTestHub(t, server)
	defer second.Close()
	waitForClients(t, hub, 2)

	hub.Publish("status_update", map[string]any{"order_id": 7, "status": "confirmed"})

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if event.Type != "status_update" {
			t.Fatalf("unexpected event type: %s", event.Type)
		}
	}
}

func TestHubRemovesDisconnectedObserver(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	conn := dialTestHub(t, server)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)

	// 无观察端时广播不应阻塞或崩溃
	hub.Publish("new_order", map[string]any{"order_id": 1})
}

func TestHubPublishWithUnmarshalableDataDoesNotPanic(t *testing.T) {
	hub := NewHub()
	hub.Publish("status_update", map[string]any{"bad": make(chan int)})
	if hub.ClientCount() != 0 {
		t.Fatalf("unexpected clients: %d", hub.ClientCount())
	}
}

package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Chandru0712/SelfieBooth/internal/booth"
)

func hubServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", hub.HandleWS)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func dialHub(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for hub.ClientCount() != want {
		select {
		case <-deadline:
			t.Fatalf("client count never reached %d (at %d)", want, hub.ClientCount())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestHubBroadcastReachesClient(t *testing.T) {
	hub := NewHub()
	ts := hubServer(t, hub)
	conn := dialHub(t, ts)
	waitForClients(t, hub, 1)

	hub.Publish(booth.Event{Type: "countdown", Remaining: 3})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev booth.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if ev.Type != "countdown" || ev.Remaining != 3 {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	hub := NewHub()
	ts := hubServer(t, hub)
	first := dialHub(t, ts)
	second := dialHub(t, ts)
	waitForClients(t, hub, 2)

	hub.Publish(booth.Event{Type: "shutter"})

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var ev booth.Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if ev.Type != "shutter" {
			t.Errorf("unexpected event: %+v", ev)
		}
	}
}

func TestHubLogSink(t *testing.T) {
	hub := NewHub()
	ts := hubServer(t, hub)
	conn := dialHub(t, ts)
	waitForClients(t, hub, 1)

	if _, err := hub.Write([]byte("[booth] camera ready\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var msg map[string]string
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg["type"] != "log" || msg["line"] != "[booth] camera ready" {
		t.Errorf("unexpected log event: %v", msg)
	}
}

func TestHubDropsClosedClients(t *testing.T) {
	hub := NewHub()
	ts := hubServer(t, hub)
	conn := dialHub(t, ts)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)

	// Broadcasting to nobody must not panic.
	hub.Publish(booth.Event{Type: "review"})
}

package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/mch-billing/terminal/internal/enum"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, topic string) *Client {
	return &Client{
		hub:   hub,
		topic: topic,
		send:  make(chan []byte, 256),
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func TestHubRegistration(t *testing.T) {
	hub := startHub(t)
	client := mockClient(hub, enum.TopicBill)

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if !hub.rooms[enum.TopicBill][client] {
		t.Fatal("client not registered in bill room")
	}
}

func TestHubCleanupEmptyRoom(t *testing.T) {
	hub := startHub(t)
	client1 := mockClient(hub, enum.TopicCatalog)
	client2 := mockClient(hub, enum.TopicCatalog)

	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)
	if n := hub.Subscribers(enum.TopicCatalog); n != 2 {
		t.Fatalf("expected 2 clients, got %d", n)
	}

	hub.unregister <- client1
	time.Sleep(10 * time.Millisecond)
	if n := hub.Subscribers(enum.TopicCatalog); n != 1 {
		t.Fatalf("expected 1 client after first unregister, got %d", n)
	}

	hub.unregister <- client2
	// Unregistering twice must not close the channel again.
	hub.unregister <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if hub.rooms[enum.TopicCatalog] != nil {
		t.Fatal("room should be deleted when last client unregisters")
	}
}

func TestPublishToTopic(t *testing.T) {
	hub := startHub(t)
	bill := mockClient(hub, enum.TopicBill)
	catalog := mockClient(hub, enum.TopicCatalog)
	hub.register <- bill
	hub.register <- catalog
	time.Sleep(10 * time.Millisecond)

	if err := hub.Publish(enum.TopicBill, enum.EventBillChanged, map[string]string{"total": "300.00"}); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-bill.send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal message: %v", err)
		}
		if received.Type != enum.EventBillChanged {
			t.Errorf("expected type %q, got %q", enum.EventBillChanged, received.Type)
		}
		if string(received.Payload) != `{"total":"300.00"}` {
			t.Errorf("unexpected payload %s", received.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("bill subscriber did not receive message")
	}

	select {
	case <-catalog.send:
		t.Fatal("catalog subscriber should not receive bill events")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublish_UnencodablePayload(t *testing.T) {
	hub := startHub(t)
	if err := hub.Publish(enum.TopicBill, enum.EventBillChanged, make(chan int)); err == nil {
		t.Fatal("expected encode error")
	}
}

func TestBroadcastToMultipleClients(t *testing.T) {
	hub := startHub(t)
	clients := []*Client{
		mockClient(hub, enum.TopicSettings),
		mockClient(hub, enum.TopicSettings),
		mockClient(hub, enum.TopicSettings),
	}
	for _, c := range clients {
		hub.register <- c
	}
	time.Sleep(10 * time.Millisecond)

	hub.Broadcast(enum.TopicSettings, Event{Type: enum.EventSettingsChanged, Payload: json.RawMessage(`{}`)})

	for i, c := range clients {
		select {
		case <-c.send:
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("client%d did not receive message", i+1)
		}
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	client := mockClient(hub, enum.TopicBill)
	hub.register <- client
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if _, ok := <-client.send; ok {
		t.Error("client channel should be closed on shutdown")
	}
}

func TestServeWS(t *testing.T) {
	hub := startHub(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(hub, strings.TrimPrefix(r.URL.Path, "/ws/"), w, r)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + enum.TopicBill
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for hub.Subscribers(enum.TopicBill) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Publish(enum.TopicBill, enum.EventBillCommitted, map[string]int{"lines": 2})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var received Event
	if err := json.Unmarshal(msg, &received); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if received.Type != enum.EventBillCommitted {
		t.Errorf("got type %q", received.Type)
	}
}

func TestServeWS_UnknownTopic(t *testing.T) {
	hub := startHub(t)
	req := httptest.NewRequest(http.MethodGet, "/ws/orders", nil)
	rr := httptest.NewRecorder()
	ServeWS(hub, "orders", rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

func stoppedHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hub.Run(ctx)
	return hub
}

func TestStoppedHubDoesNotBlock(t *testing.T) {
	hub := stoppedHub(t)
	client := mockClient(hub, enum.TopicBill)

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		if hub.subscribe(client) {
			t.Error("subscribe should fail once the hub has stopped")
		}
		hub.unsubscribe(client)
		// More than the broadcast buffer holds.
		for i := 0; i < 300; i++ {
			hub.Publish(enum.TopicBill, enum.EventBillChanged, i)
		}
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("hub calls blocked after shutdown")
	}
}

func TestServeWS_AfterShutdown(t *testing.T) {
	hub := stoppedHub(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(hub, enum.TopicBill, w, r)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("expected going-away close, got %v", err)
	}
}

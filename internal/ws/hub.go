package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mch-billing/terminal/internal/enum"
)

// Topics clients may subscribe to.
var Topics = []string{enum.TopicCatalog, enum.TopicBill, enum.TopicSettings}

// ValidTopic reports whether topic is one the hub serves.
func ValidTopic(topic string) bool {
	return slices.Contains(Topics, topic)
}

// Event is the message pushed to subscribers after a state change.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type topicEvent struct {
	Topic string
	Event Event
}

// Hub fans state-change events out to the clients subscribed to each topic.
type Hub struct {
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *topicEvent
	done       chan struct{} // closed when Run returns

	log zerolog.Logger
	mu  sync.RWMutex
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *topicEvent, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run is the hub's main loop; it returns when ctx is cancelled, closing
// every client's send channel. Run must be called at most once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for topic, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
				delete(h.rooms, topic)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.topic] == nil {
				h.rooms[client.topic] = make(map[*Client]bool)
			}
			h.rooms[client.topic][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.drop(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				h.log.Error().Err(err).Str("type", event.Event.Type).Msg("encode ws event")
				continue
			}
			h.mu.Lock()
			for client := range h.rooms[event.Topic] {
				select {
				case client.send <- message:
				default:
					// Slow subscriber; it reconnects and re-reads state.
					h.drop(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop must be called with h.mu held.
func (h *Hub) drop(client *Client) {
	clients, ok := h.rooms[client.topic]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.topic)
	}
}

// subscribe hands client to the run loop. It reports false once the hub
// has stopped.
func (h *Hub) subscribe(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unsubscribe(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues an event for every subscriber of topic. Events sent
// after the hub has stopped are dropped.
func (h *Hub) Broadcast(topic string, event Event) {
	select {
	case h.broadcast <- &topicEvent{Topic: topic, Event: event}:
	case <-h.done:
	}
}

// Publish encodes payload and broadcasts it as an event of eventType.
func (h *Hub) Publish(topic, eventType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	h.Broadcast(topic, Event{Type: eventType, Payload: raw})
	return nil
}

// Subscribers returns the number of clients on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[topic])
}

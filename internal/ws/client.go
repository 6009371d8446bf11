package ws

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The terminal UI is served from a loopback origin.
		return true
	},
}

// Client is one websocket subscription to a single topic.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	topic string
	send  chan []byte
}

// ReadPump only watches for disconnects; subscribers never send commands.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unsubscribe(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn().Err(err).Str("topic", c.topic).Msg("websocket read")
			}
			return
		}
	}
}

// WritePump forwards hub messages to the connection and keeps it alive
// with pings. Queued messages are coalesced into one frame, newline separated.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			for n := len(c.send); n > 0; n-- {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS upgrades the request and subscribes the connection to topic.
// Endpoint: WS /ws/{topic}
func ServeWS(hub *Hub, topic string, w http.ResponseWriter, r *http.Request) {
	if !ValidTopic(topic) {
		http.Error(w, "unknown topic", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.Warn().Err(err).Msg("websocket upgrade")
		return
	}

	client := &Client{
		hub:   hub,
		conn:  conn,
		topic: topic,
		send:  make(chan []byte, 256),
	}
	if !hub.subscribe(client) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

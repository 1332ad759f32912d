package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024

	sendBuffer = 64
)

// Message types pushed to and read from clients.
const (
	MessageBoard     = "board"
	MessageStatus    = "status"
	MessageDashboard = "dashboard"
	MessageError     = "error"
	MessagePing      = "ping"
	MessagePong      = "pong"
)

// WebSocketMessage is the envelope for every message in either direction.
type WebSocketMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewMessage encodes data into an envelope of type kind.
func NewMessage(kind string, data any) (WebSocketMessage, error) {
	if data == nil {
		return WebSocketMessage{Type: kind}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return WebSocketMessage{}, err
	}
	return WebSocketMessage{Type: kind, Data: raw}, nil
}

// Client is one connected browser tab.
type Client struct {
	ID    string
	Owner string
	Hub   *Hub
	Conn  *websocket.Conn
	Send  chan []byte

	// OnMessage handles inbound messages other than ping.
	OnMessage func(*Client, WebSocketMessage)
	// OnClose runs once the read pump has stopped.
	OnClose func()
}

// NewClient wraps conn for owner.
func NewClient(hub *Hub, conn *websocket.Conn, owner string) *Client {
	return &Client{
		ID:    uuid.NewString(),
		Owner: owner,
		Hub:   hub,
		Conn:  conn,
		Send:  make(chan []byte, sendBuffer),
	}
}

// ReadPump reads messages until the connection fails, then unregisters the client.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
		if c.OnClose != nil {
			c.OnClose()
		}
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg WebSocketMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Error unmarshalling WebSocket message: %v", err)
			continue
		}

		if msg.Type == MessagePing {
			pong, _ := NewMessage(MessagePong, map[string]string{"timestamp": time.Now().Format(time.RFC3339)})
			c.Hub.SendTo(c, pong)
			continue
		}

		log.Printf("Received %s from client %s (%s)", msg.Type, c.ID, c.Owner)
		if c.OnMessage != nil {
			c.OnMessage(c, msg)
		}
	}
}

// WritePump writes queued messages and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// One JSON document per frame.
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type delivery struct {
	client  *Client
	owner   string
	payload []byte
}

// Hub tracks connected clients by owner. All client bookkeeping happens on
// the Run goroutine; Send channels are only written and closed there.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	outbound   chan delivery
	count      chan chan int
	done       chan struct{}
}

// NewHub creates a new hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		outbound:   make(chan delivery),
		count:      make(chan chan int),
		done:       make(chan struct{}),
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// SendTo queues msg for a single client.
func (h *Hub) SendTo(client *Client, msg WebSocketMessage) {
	h.deliver(delivery{client: client}, msg)
}

// Notify queues msg for every client of owner.
func (h *Hub) Notify(owner string, msg WebSocketMessage) {
	h.deliver(delivery{owner: owner}, msg)
}

func (h *Hub) deliver(d delivery, msg WebSocketMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshalling WebSocket message: %v", err)
		return
	}
	d.payload = payload
	select {
	case h.outbound <- d:
	case <-h.done:
	}
}

// Connected returns the number of registered clients.
func (h *Hub) Connected() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

// Run serves the hub until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
			log.Printf("Client connected: %s (%s)", client.ID, client.Owner)
		case client := <-h.unregister:
			if h.clients[client] {
				h.drop(client)
				log.Printf("Client disconnected: %s (%s)", client.ID, client.Owner)
			}
		case reply := <-h.count:
			reply <- len(h.clients)
		case d := <-h.outbound:
			if d.client != nil {
				if h.clients[d.client] {
					h.push(d.client, d.payload)
				}
				continue
			}
			for client := range h.clients {
				if client.Owner == d.owner {
					h.push(client, d.payload)
				}
			}
		}
	}
}

func (h *Hub) push(client *Client, payload []byte) {
	select {
	case client.Send <- payload:
	default:
		log.Printf("Client send buffer full, removing client: %s", client.ID)
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.Send)
}

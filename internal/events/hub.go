package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"contentflow/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	sendBuffer     = 64
)

// Publisher accepts events for fan-out. Implementations must not block.
type Publisher interface {
	Publish(Event)
}

// ConnectionObserver is told when subscribers come and go (metrics).
type ConnectionObserver interface {
	ClientConnected()
	ClientDisconnected()
}

// SubscriptionMessage narrows or widens a client's item filter.
type SubscriptionMessage struct {
	Action  string  `json:"action"` // "subscribe" or "unsubscribe"
	ItemIDs []int64 `json:"item_ids"`
}

// Hub maintains the set of connected clients and broadcasts events to them.
type Hub struct {
	logger   *slog.Logger
	observer ConnectionObserver
	upgrader websocket.Upgrader

	clients    map[*client]struct{}
	broadcast  chan Event
	register   chan *client
	unregister chan *client
	done       chan struct{}
	mu         sync.RWMutex
}

type client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	control chan []byte

	mu    sync.Mutex
	items map[int64]struct{}
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithObserver reports connection counts to obs.
func WithObserver(obs ConnectionObserver) HubOption {
	return func(h *Hub) {
		h.observer = obs
	}
}

// NewHub creates a hub. Call Run to start delivering events.
func NewHub(logger *slog.Logger, opts ...HubOption) *Hub {
	h := &Hub{
		logger: logging.NewComponentLogger(logger, "events"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The API token middleware guards the route; browsers served from
			// other origins (the share page) are expected.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan Event, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run delivers events until ctx ends, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				h.drop(c)
			}
			h.mu.Unlock()
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()
			if h.observer != nil {
				h.observer.ClientConnected()
			}
			h.logger.Debug("event client connected", logging.Int("client_count", count))
		case c := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[c]
			if ok {
				h.drop(c)
			}
			count := len(h.clients)
			h.mu.Unlock()
			if ok {
				h.logger.Debug("event client disconnected", logging.Int("client_count", count))
			}
		case evt := <-h.broadcast:
			h.deliver(evt)
		}
	}
}

// drop must be called with h.mu held.
func (h *Hub) drop(c *client) {
	delete(h.clients, c)
	close(c.send)
	if h.observer != nil {
		h.observer.ClientDisconnected()
	}
}

// Publish queues an event for delivery. When the hub is saturated the
// event is dropped and logged.
func (h *Hub) Publish(evt Event) {
	if h == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	select {
	case h.broadcast <- evt:
	default:
		h.logger.Warn("event broadcast queue full; dropping event",
			logging.String(logging.FieldEventType, "event_dropped"),
			logging.String("type", evt.Type),
			logging.Int64(logging.FieldItemID, evt.ItemID),
		)
	}
}

func (h *Hub) deliver(evt Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("failed to marshal event", logging.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.wants(evt) {
			continue
		}
		select {
		case c.send <- payload:
		default:
			h.logger.Warn("event client too slow; disconnecting",
				logging.String(logging.FieldEventType, "event_client_dropped"),
			)
			h.drop(c)
		}
	}
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", logging.Error(err))
		return
	}
	c := &client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		control: make(chan []byte, 8),
	}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// wants reports whether the client's item filter admits evt. Events not
// tied to an item always pass.
func (c *client) wants(evt Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) == 0 || evt.ItemID == 0 {
		return true
	}
	_, ok := c.items[evt.ItemID]
	return ok
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("event client read failed", logging.Error(err))
			}
			return
		}
		var sub SubscriptionMessage
		if err := json.Unmarshal(message, &sub); err != nil {
			c.hub.logger.Debug("invalid subscription message", logging.Error(err))
			continue
		}
		c.handleSubscription(sub)
	}
}

func (c *client) handleSubscription(sub SubscriptionMessage) {
	c.mu.Lock()
	switch sub.Action {
	case "subscribe":
		if c.items == nil {
			c.items = make(map[int64]struct{}, len(sub.ItemIDs))
		}
		for _, id := range sub.ItemIDs {
			c.items[id] = struct{}{}
		}
	case "unsubscribe":
		if len(sub.ItemIDs) == 0 {
			c.items = nil
		}
		for _, id := range sub.ItemIDs {
			delete(c.items, id)
		}
	default:
		c.mu.Unlock()
		return
	}
	ids := make([]int64, 0, len(c.items))
	for id := range c.items {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	ack, err := json.Marshal(map[string]any{
		"type":     "subscription_confirmed",
		"item_ids": ids,
	})
	if err != nil {
		return
	}
	select {
	case c.control <- ack:
	default:
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case message := <-c.control:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

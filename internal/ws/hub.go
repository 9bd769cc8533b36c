package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"cartsync/internal/middleware"
	guestcartservice "cartsync/internal/service/guestcart"
	"cartsync/pkg/lib/logger/sl"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 16
)

// client owns one websocket connection. Writes go through the buffered
// send channel so publishers never block on a peer's socket.
type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) shutdown() {
	c.once.Do(func() {
		c.conn.Close()
		close(c.send)
	})
}

func (c *client) writePump() {
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			c.conn.Close()
			return
		}
	}
}

// Hub fans guest-cart change events out to the websocket connections of
// the guest session that mutated, so open tabs can refresh cart badges.
type Hub struct {
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[string]map[*client]struct{}
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		conns: make(map[string]map[*client]struct{}),
	}
}

// Handle upgrades an authenticated guest request and keeps the
// connection registered until the peer goes away.
func (h *Hub) Handle(w http.ResponseWriter, r *http.Request) {
	const op = "ws.Hub.Handle"
	log := h.log.With("op", op)

	guestId, ok := middleware.Subject(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("Failed to upgrade connection", sl.Err(err))
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	h.register(guestId, c)
	defer h.unregister(guestId, c)

	go c.writePump()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Publish implements the guest cart subscription; wire it up with
// Service.Subscribe(hub.Publish). It runs inside the mutation path, so
// it must never block: a peer that stops draining its buffer is dropped
// instead of stalling cart writes for everyone else.
func (h *Hub) Publish(change guestcartservice.Change) {
	const op = "ws.Hub.Publish"

	data, err := json.Marshal(change)
	if err != nil {
		h.log.With("op", op).Error("Failed to marshal change", sl.Err(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.conns[change.GuestId] {
		select {
		case c.send <- data:
		default:
			h.log.With("op", op).Warn("Dropping slow websocket peer",
				slog.String("guest_id", change.GuestId))
			delete(h.conns[change.GuestId], c)
			c.shutdown()
		}
	}
	if len(h.conns[change.GuestId]) == 0 {
		delete(h.conns, change.GuestId)
	}
}

func (h *Hub) register(guestId string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conns[guestId] == nil {
		h.conns[guestId] = make(map[*client]struct{})
	}
	h.conns[guestId][c] = struct{}{}
}

func (h *Hub) unregister(guestId string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.conns[guestId], c)
	if len(h.conns[guestId]) == 0 {
		delete(h.conns, guestId)
	}
	c.shutdown()
}

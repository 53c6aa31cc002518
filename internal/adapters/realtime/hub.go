package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/costeo/internal/domain"
)

const (
	EventSaleRecorded = "sale_recorded"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

type client struct {
	org  uuid.UUID
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

type envelope struct {
	org  uuid.UUID
	data []byte
}

// Hub fans events out to the websocket clients of each organization.
type Hub struct {
	clients    map[uuid.UUID]map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan envelope
	done       chan struct{}
	upgrader   websocket.Upgrader

	mu    sync.RWMutex
	count map[uuid.UUID]int
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan envelope, 64),
		done:       make(chan struct{}),
		count:      make(map[uuid.UUID]int),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Run serves the hub until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			set, ok := h.clients[c.org]
			if !ok {
				set = make(map[*client]struct{})
				h.clients[c.org] = set
			}
			set[c] = struct{}{}
			h.setCount(c.org, len(set))

		case c := <-h.unregister:
			h.drop(c)

		case msg := <-h.broadcast:
			for c := range h.clients[msg.org] {
				select {
				case c.send <- msg.data:
				default:
					log.Warn().Str("org", c.org.String()).Msg("websocket client too slow, dropped")
					h.drop(c)
				}
			}

		case <-ctx.Done():
			for _, set := range h.clients {
				for c := range set {
					h.drop(c)
				}
			}
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	set, ok := h.clients[c.org]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.org)
	}
	h.setCount(c.org, len(set))
}

func (h *Hub) setCount(org uuid.UUID, n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n == 0 {
		delete(h.count, org)
		return
	}
	h.count[org] = n
}

// Clients reports how many connections the organization has open.
func (h *Hub) Clients(org uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count[org]
}

func (h *Hub) Publish(org uuid.UUID, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("type", ev.Type).Msg("encode websocket event")
		return
	}
	select {
	case h.broadcast <- envelope{org: org, data: data}:
	default:
		log.Warn().Str("type", ev.Type).Msg("websocket broadcast queue full, event dropped")
	}
}

// SaleRecorded publishes the sale to its organization.
func (h *Hub) SaleRecorded(ctx context.Context, s *domain.Sale) {
	org, ok := domain.OrganizationFrom(ctx)
	if !ok {
		org = s.OrganizationID
	}
	h.Publish(org, Event{Type: EventSaleRecorded, Timestamp: s.DateTime, Data: s})
}

// ServeWS upgrades the request and subscribes the connection to org.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, org uuid.UUID) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade")
		return
	}
	c := &client{org: org, conn: conn, send: make(chan []byte, sendBuffer), hub: h}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

// readPump only handles control frames; clients do not send events.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
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
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

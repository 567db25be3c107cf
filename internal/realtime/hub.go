// Package realtime pushes rental events to connected staff dashboards over
// websockets.
package realtime

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"dress-rental/internal/events"
	"dress-rental/internal/metrics"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	broadcastQueue = 64
)

// Hub fans event envelopes out to every connected client. It implements
// events.Publisher; a slow client is dropped rather than blocking the hub.
type Hub struct {
	upgrader websocket.Upgrader

	clients    map[*websocket.Conn]bool
	clientsMux sync.Mutex
	broadcast  chan events.Envelope
	done       chan struct{}
	closeOnce  sync.Once
}

func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan events.Envelope, broadcastQueue),
		done:      make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// Run delivers queued envelopes until ctx is cancelled or Close is called
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.Close()
			return
		case <-h.done:
			return
		case env := <-h.broadcast:
			h.deliver(env)
		}
	}
}

func (h *Hub) deliver(env events.Envelope) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(env); err != nil {
			log.Printf("[Realtime] dropping client %s: %v", conn.RemoteAddr(), err)
			h.removeLocked(conn)
		}
	}
}

// Publish queues env for broadcast. A full queue drops the event.
func (h *Hub) Publish(_ context.Context, env events.Envelope) error {
	select {
	case <-h.done:
		return nil
	default:
	}
	select {
	case h.broadcast <- env:
	default:
		log.Printf("[Realtime] queue full, dropping %s %s", env.EventType, env.EventID)
	}
	return nil
}

// ServeHTTP upgrades the request and keeps the connection registered until
// the client goes away
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Realtime] upgrade failed: %v", err)
		return
	}

	h.clientsMux.Lock()
	h.clients[conn] = true
	h.clientsMux.Unlock()
	metrics.RealtimeClients.Inc()
	log.Printf("[Realtime] client connected from %s", conn.RemoteAddr())

	go h.keepAlive(conn)
	h.readLoop(conn)
}

// readLoop discards client messages; it exists to notice disconnects and pongs
func (h *Hub) readLoop(conn *websocket.Conn) {
	defer h.remove(conn)
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) keepAlive(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for range ticker.C {
		h.clientsMux.Lock()
		if !h.clients[conn] {
			h.clientsMux.Unlock()
			return
		}
		err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
		h.clientsMux.Unlock()
		if err != nil {
			h.remove(conn)
			return
		}
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	h.removeLocked(conn)
}

func (h *Hub) removeLocked(conn *websocket.Conn) {
	if !h.clients[conn] {
		return
	}
	delete(h.clients, conn)
	conn.Close()
	metrics.RealtimeClients.Dec()
}

// Clients reports how many dashboards are connected
func (h *Hub) Clients() int {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	return len(h.clients)
}

// Close disconnects every client and stops Run
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
		h.clientsMux.Lock()
		defer h.clientsMux.Unlock()
		for conn := range h.clients {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			h.removeLocked(conn)
		}
	})
}

package web

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Message is the envelope pushed to websocket clients.
type Message struct {
	Type string          `json:"type"` // "status" or "minute"
	Data json.RawMessage `json:"data"`
}

// Hub fans out live updates to websocket clients.
type Hub struct {
	log      zerolog.Logger
	upgrader websocket.Upgrader
	greeting func() Message

	mu      sync.RWMutex
	clients map[*websocket.Conn]*sync.Mutex // per-connection write lock
	closed  bool
}

// NewHub creates a Hub. greeting, if non-nil, produces the first message
// sent to each new client.
func NewHub(log zerolog.Logger, greeting func() Message) *Hub {
	return &Hub{
		log:      log.With().Str("component", "ws").Logger(),
		greeting: greeting,
		clients:  make(map[*websocket.Conn]*sync.Mutex),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// ServeHTTP upgrades the request and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("upgrade failed")
		return
	}

	writeMu := &sync.Mutex{}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[conn] = writeMu
	count := len(h.clients)
	h.mu.Unlock()
	h.log.Debug().Str("remote", r.RemoteAddr).Int("clients", count).Msg("client connected")

	if h.greeting != nil {
		if err := h.write(conn, writeMu, h.greeting()); err != nil {
			h.remove(conn)
			return
		}
	}
	go h.readLoop(conn, writeMu)
}

// readLoop discards client messages and keeps the connection alive with
// pings until it fails.
func (h *Hub) readLoop(conn *websocket.Conn, writeMu *sync.Mutex) {
	defer h.remove(conn)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				writeMu.Lock()
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				err := conn.WriteMessage(websocket.PingMessage, nil)
				writeMu.Unlock()
				if err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) write(conn *websocket.Conn, writeMu *sync.Mutex, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	count := len(h.clients)
	h.mu.Unlock()
	if ok {
		conn.Close()
		h.log.Debug().Int("clients", count).Msg("client disconnected")
	}
}

// Broadcast sends a message to every client. Clients that fail to accept
// it are dropped.
func (h *Hub) Broadcast(kind string, data []byte) {
	msg := Message{Type: kind, Data: data}

	// Copy the client list so slow writes don't hold the lock.
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	locks := make([]*sync.Mutex, 0, len(h.clients))
	for c, mu := range h.clients {
		conns = append(conns, c)
		locks = append(locks, mu)
	}
	h.mu.RUnlock()

	for i, c := range conns {
		if err := h.write(c, locks[i], msg); err != nil {
			h.log.Debug().Err(err).Msg("broadcast failed, dropping client")
			h.remove(c)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects all clients and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	conns := h.clients
	h.clients = make(map[*websocket.Conn]*sync.Mutex)
	h.mu.Unlock()

	for c, mu := range conns {
		mu.Lock()
		c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"),
			time.Now().Add(writeWait))
		mu.Unlock()
		c.Close()
	}
}

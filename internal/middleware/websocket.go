package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"sysdash/internal/utils"
)

const wsWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: isSameOrigin,
}

// Hub fans snapshots out to every connected websocket client. Clients only
// receive; anything they send is discarded.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	count      atomic.Int64
	logger     *utils.Logger
}

func NewHub(logger *utils.Logger) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 1),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for conn := range h.clients {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(time.Second))
				conn.Close()
				delete(h.clients, conn)
			}
			h.count.Store(0)
			h.mutex.Unlock()
			return

		case conn := <-h.register:
			h.mutex.Lock()
			h.clients[conn] = true
			h.count.Store(int64(len(h.clients)))
			h.mutex.Unlock()
			h.logf("WebSocket client connected from %s", conn.RemoteAddr())

		case conn := <-h.unregister:
			if h.remove(conn) {
				h.logf("WebSocket client disconnected")
			}

		case message := <-h.broadcast:
			h.send(message)
		}
	}
}

// send writes message to a copy of the client set so a slow client never
// holds the lock; clients that fail the write are dropped.
func (h *Hub) send(message []byte) {
	h.mutex.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mutex.RUnlock()

	for _, conn := range conns {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logf("WebSocket write error: %v", err)
			h.remove(conn)
		}
	}
}

func (h *Hub) remove(conn *websocket.Conn) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[conn]; !ok {
		return false
	}
	delete(h.clients, conn)
	h.count.Store(int64(len(h.clients)))
	conn.Close()
	return true
}

// Broadcast queues message for every client. If the previous message has not
// been sent yet it is replaced, so a slow hub never blocks the caller.
func (h *Hub) Broadcast(message []byte) {
	for {
		select {
		case h.broadcast <- message:
			return
		default:
		}
		select {
		case <-h.broadcast:
		default:
		}
	}
}

// BroadcastJSON encodes v and broadcasts it.
func (h *Hub) BroadcastJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode websocket message: %w", err)
	}
	h.Broadcast(data)
	return nil
}

// GetClientCount never takes the client lock, so collector callbacks can
// call it while a broadcast is in flight.
func (h *Hub) GetClientCount() int {
	return int(h.count.Load())
}

// HandleWebSocket upgrades the request and keeps the connection registered
// until the client goes away. When current returns a payload it is sent
// first, so a new client does not wait a full cycle for data.
func (h *Hub) HandleWebSocket(current func() ([]byte, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logf("WebSocket upgrade error: %v", err)
			return
		}

		if current != nil {
			if payload, ok := current(); ok {
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					conn.Close()
					return
				}
			}
		}

		// Registration goes through the hub goroutine, which is the only
		// writer once the client is known.
		select {
		case h.register <- conn:
		case <-h.done:
			conn.Close()
			return
		}
		defer func() {
			select {
			case h.unregister <- conn:
			case <-h.done:
			}
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
					h.logf("WebSocket error: %v", err)
				}
				break
			}
		}
	}
}

func (h *Hub) logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if h.logger != nil {
		h.logger.Write(msg)
		return
	}
	log.Println(msg)
}

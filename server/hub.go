package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// writeWait bounds each push so a stalled client cannot hold up a cycle.
const writeWait = 5 * time.Second

// Hub keeps the connected websocket clients and pushes every reading to them.
type Hub struct {
	upgrader  websocket.Upgrader
	logger    *zap.Logger
	writeWait time.Duration

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:    logger,
		writeWait: writeWait,
		clients:   make(map[*websocket.Conn]bool),
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) handle(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("client connected", zap.Int("clients", total))

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		total := len(h.clients)
		h.mu.Unlock()
		h.logger.Info("client disconnected", zap.Int("clients", total))
	}()

	// Clients never send anything meaningful; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast writes v as JSON to every client, dropping those that fail.
func (h *Hub) Broadcast(v any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if err := client.SetWriteDeadline(time.Now().Add(h.writeWait)); err != nil {
			client.Close()
			delete(h.clients, client)
			continue
		}
		if err := client.WriteJSON(v); err != nil {
			h.logger.Warn("websocket write failed", zap.Error(err))
			client.Close()
			delete(h.clients, client)
		}
	}
}

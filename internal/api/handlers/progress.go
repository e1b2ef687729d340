package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/joonho/earnquant/internal/contracts"
	"github.com/joonho/earnquant/pkg/logger"
)

const progressWriteWait = 5 * time.Second

var progressUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ProgressHub fans NAV points out to websocket subscribers. Slow or
// dead connections are dropped rather than allowed to stall a run.
type ProgressHub struct {
	logger *logger.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

// NewProgressHub creates a hub with no subscribers
func NewProgressHub(log *logger.Logger) *ProgressHub {
	return &ProgressHub{
		logger: log,
		conns:  make(map[*websocket.Conn]bool),
	}
}

// Serve upgrades an HTTP request to a websocket subscription
func (h *ProgressHub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := progressUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.conns[conn] = true
	count := len(h.conns)
	h.mu.Unlock()

	h.logger.WithField("subscribers", count).Debug("Progress subscriber connected")

	// Drain incoming frames so close handshakes are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.remove(conn)
				return
			}
		}
	}()
}

// Broadcast sends one NAV point to every subscriber
func (h *ProgressHub) Broadcast(point contracts.NAVPoint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		conn.SetWriteDeadline(time.Now().Add(progressWriteWait))
		if err := conn.WriteJSON(point); err != nil {
			conn.Close()
			delete(h.conns, conn)
		}
	}
}

// Subscribers returns the current subscriber count
func (h *ProgressHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *ProgressHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	if h.conns[conn] {
		delete(h.conns, conn)
		conn.Close()
	}
	h.mu.Unlock()
}

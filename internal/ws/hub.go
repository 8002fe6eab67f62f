// Package ws implements the realtime fan-out to connected observers:
// a mutex-guarded connection registry with serialize-once broadcasting
// and lazy pruning of dead connections.
package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const defaultWriteTimeout = 5 * time.Second

// Conn is the slice of *websocket.Conn the hub needs; tests substitute
// fakes.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Hub keeps the set of live observer connections. Register, Unregister
// and Broadcast all serialize on one mutex, so membership is never
// observed mid-mutation and every broadcast sees a consistent snapshot
// of the registry.
type Hub struct {
	log          *slog.Logger
	writeTimeout time.Duration

	mu    sync.Mutex
	conns map[Conn]struct{}
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		log:          logger,
		writeTimeout: defaultWriteTimeout,
		conns:        make(map[Conn]struct{}),
	}
}

// Register adds a connection to the registry; re-registering is a no-op.
func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
}

// Unregister removes a connection; unknown or already-removed connections
// are ignored.
func (h *Hub) Unregister(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Broadcast serializes the event once and writes it to every registered
// connection. A connection that fails its write (or exceeds the write
// deadline) is closed and dropped from the registry after the sweep;
// partial delivery is accepted and never reported to the caller.
func (h *Hub) Broadcast(event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error("broadcast marshal failed", "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var stale []Conn
	for c := range h.conns {
		_ = c.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			stale = append(stale, c)
		}
	}
	for _, c := range stale {
		_ = c.Close()
		delete(h.conns, c)
	}
	if len(stale) > 0 {
		h.log.Info("pruned dead observers", "count", len(stale))
	}
}

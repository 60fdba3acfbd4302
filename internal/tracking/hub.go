// Package tracking pushes ride events to connected clients over
// WebSocket. Delivery is best-effort: a subscriber that is not
// connected simply misses the event.
package tracking

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"ridehail/internal/events"
	"ridehail/internal/observability"
	"ridehail/pkg/auth"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// safeConn wraps a websocket.Conn with a write mutex.
// gorilla/websocket allows one concurrent writer; this enforces that.
type safeConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *safeConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

func (c *safeConn) readMessage() (int, []byte, error) {
	return c.ws.ReadMessage()
}

func (c *safeConn) close() { c.ws.Close() }

// Hub manages WebSocket connections keyed by user ID. A user may hold
// several sessions (phone and web); every session gets each event.
// Hub implements events.Bus.
type Hub struct {
	mu    sync.RWMutex
	conns map[string][]*safeConn
	log   *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{conns: make(map[string][]*safeConn), log: log}
}

// Routes returns a chi.Router for the /ws mount point. The connection
// is subscribed under the authenticated caller's user ID.
func (h *Hub) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireAuth)
	r.Get("/", h.HandleWS)
	return r
}

// HandleWS upgrades the connection and subscribes it until the client
// disconnects.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetClaims(r.Context()).UserID

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "user_id", userID, "error", err)
		return
	}

	conn := &safeConn{ws: ws}
	h.add(userID, conn)
	h.log.Info("ws client connected", "user_id", userID)

	// Block until the client disconnects.
	for {
		if _, _, err := conn.readMessage(); err != nil {
			break
		}
	}

	h.remove(userID, conn)
	conn.close()
	h.log.Info("ws client disconnected", "user_id", userID)
}

// Publish sends the envelope to every session of targetID. Failed
// writes are logged and skipped; nothing is retried or queued.
func (h *Hub) Publish(targetID string, e events.Envelope) {
	h.mu.RLock()
	conns := append([]*safeConn(nil), h.conns[targetID]...)
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.writeJSON(e); err != nil {
			h.log.Warn("ws write failed", "target_id", targetID, "type", e.Type, "error", err)
		}
	}
}

// Sessions reports how many sessions targetID currently holds.
func (h *Hub) Sessions(targetID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[targetID])
}

func (h *Hub) add(userID string, conn *safeConn) {
	h.mu.Lock()
	h.conns[userID] = append(h.conns[userID], conn)
	h.mu.Unlock()
	observability.WSSessions.Inc()
}

func (h *Hub) remove(userID string, conn *safeConn) {
	h.mu.Lock()
	conns := h.conns[userID]
	for i, c := range conns {
		if c == conn {
			h.conns[userID] = append(conns[:i], conns[i+1:]...)
			observability.WSSessions.Dec()
			break
		}
	}
	if len(h.conns[userID]) == 0 {
		delete(h.conns, userID)
	}
	h.mu.Unlock()
}

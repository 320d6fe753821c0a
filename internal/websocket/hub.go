package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"slidecraft-backend/internal/middleware"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// SnapshotFunc returns the message sent to a connection right after it
// opens, or false when the session has nothing to show yet.
type SnapshotFunc func(sessionID string) (interface{}, bool)

// conn serializes writes; gorilla connections allow one concurrent writer.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Hub fans state updates out to every open tab of a session.
type Hub struct {
	mu          sync.RWMutex
	connections map[string][]*conn
	snapshot    SnapshotFunc
	log         *zap.SugaredLogger
}

func NewHub(snapshot SnapshotFunc, log *zap.SugaredLogger) *Hub {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Hub{
		connections: make(map[string][]*conn),
		snapshot:    snapshot,
		log:         log,
	}
}

// HandleWebSocket expects the session middleware to have run.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())
	if sessionID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	// the upgrade response is written on the hijacked connection, so a
	// freshly issued session cookie has to be passed along explicitly
	var header http.Header
	if cookies := w.Header().Values("Set-Cookie"); len(cookies) > 0 {
		header = http.Header{"Set-Cookie": cookies}
	}

	ws, err := upgrader.Upgrade(w, r, header)
	if err != nil {
		h.log.Warnw("WebSocket upgrade failed", "error", err)
		return
	}

	c := &conn{ws: ws}
	h.registerConnection(sessionID, c)

	if h.snapshot != nil {
		if msg, ok := h.snapshot(sessionID); ok {
			if data, err := json.Marshal(msg); err == nil {
				c.write(data)
			}
		}
	}

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(sessionID, c)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (h *Hub) registerConnection(sessionID string, c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[sessionID] = append(h.connections[sessionID], c)
	h.log.Debugw("WebSocket connected", "session_id", sessionID, "total", len(h.connections[sessionID]))
}

func (h *Hub) unregisterConnection(sessionID string, c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.ws.Close()

	conns := h.connections[sessionID]
	for i, existing := range conns {
		if existing == c {
			h.connections[sessionID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.connections[sessionID]) == 0 {
		delete(h.connections, sessionID)
	}

	h.log.Debugw("WebSocket disconnected", "session_id", sessionID)
}

func (h *Hub) broadcast(sessionID string, data []byte) {
	h.mu.RLock()
	conns := append([]*conn(nil), h.connections[sessionID]...)
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.write(data); err != nil {
			h.log.Debugw("WebSocket write failed", "session_id", sessionID, "error", err)
		}
	}
}

// SendToSession sends a message to every connection of a session
func (h *Hub) SendToSession(sessionID string, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Errorw("Failed to encode WebSocket message", "error", err)
		return
	}
	h.broadcast(sessionID, data)
}

func (h *Hub) Connections(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[sessionID])
}

// Close drops every open connection.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, conns := range h.connections {
		for _, c := range conns {
			c.ws.Close()
		}
		delete(h.connections, id)
	}
}

package dashboard

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Notification tells an open dashboard to re-fetch its section.
type Notification struct {
	Type string `json:"type"`
	Tab  string `json:"tab"`
}

type hubConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *hubConn) write(fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return fn()
}

// Hub tracks the websocket connections of each session.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu    sync.Mutex
	conns map[string]map[*hubConn]struct{}
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
		conns:  make(map[string]map[*hubConn]struct{}),
	}
}

// ServeWS upgrades the request and blocks until the browser disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	conn := &hubConn{ws: ws}
	h.register(sessionID, conn)
	defer h.unregister(sessionID, conn)

	done := make(chan struct{})
	defer close(done)
	go h.ping(conn, done)

	ws.SetReadLimit(512)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) ping(conn *hubConn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			err := conn.write(func() error {
				return conn.ws.WriteMessage(websocket.PingMessage, nil)
			})
			if err != nil {
				return
			}
		}
	}
}

func (h *Hub) register(sessionID string, conn *hubConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[sessionID] == nil {
		h.conns[sessionID] = make(map[*hubConn]struct{})
	}
	h.conns[sessionID][conn] = struct{}{}
}

func (h *Hub) unregister(sessionID string, conn *hubConn) {
	h.mu.Lock()
	if set, ok := h.conns[sessionID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.conns, sessionID)
		}
	}
	h.mu.Unlock()
	conn.ws.Close()
}

func (h *Hub) snapshot(sessionID string) []*hubConn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*hubConn, 0, len(h.conns[sessionID]))
	for c := range h.conns[sessionID] {
		out = append(out, c)
	}
	return out
}

// Count returns the open connections of a session.
func (h *Hub) Count(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns[sessionID])
}

// Notify sends n to every connection of the session and returns how many
// received it. Connections that fail are dropped.
func (h *Hub) Notify(sessionID string, n Notification) int {
	sent := 0
	for _, conn := range h.snapshot(sessionID) {
		err := conn.write(func() error { return conn.ws.WriteJSON(n) })
		if err != nil {
			h.logger.Debug("Dropping websocket connection", zap.String("session_id", sessionID), zap.Error(err))
			h.unregister(sessionID, conn)
			continue
		}
		sent++
	}
	return sent
}

// CloseSession disconnects every browser of a session.
func (h *Hub) CloseSession(sessionID string) {
	for _, conn := range h.snapshot(sessionID) {
		conn.write(func() error {
			return conn.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))
		})
		h.unregister(sessionID, conn)
	}
}

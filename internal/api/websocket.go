package api

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FocuswithJustin/Bolder/internal/logging"
)

const (
	// pongWait is how long a session may stay silent before it is dropped.
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = 54 * time.Second
	// writeWait bounds a single websocket write.
	writeWait = 10 * time.Second
	// sendBuffer is the number of outgoing messages queued per session.
	sendBuffer = 256
)

// Hub tracks open sessions.
type Hub struct {
	sessions   map[*Session]bool
	register   chan *Session
	unregister chan *Session
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates a new session hub.
func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[*Session]bool),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		done:       make(chan struct{}),
	}
}

// Run handles registration until ctx is done, then cancels every session.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case s := <-h.register:
			h.mu.Lock()
			h.sessions[s] = true
			n := len(h.sessions)
			h.mu.Unlock()
			logging.SessionEvent(s.ctx, "session_opened", n, "remote_addr", s.remote)

		case s := <-h.unregister:
			h.mu.Lock()
			delete(h.sessions, s)
			n := len(h.sessions)
			h.mu.Unlock()
			logging.SessionEvent(s.ctx, "session_closed", n)

		case <-ctx.Done():
			h.mu.Lock()
			for s := range h.sessions {
				s.closeWith(websocket.CloseGoingAway, "Server shutting down")
				delete(h.sessions, s)
			}
			h.mu.Unlock()
			return
		}
	}
}

// add registers s, reporting false once the hub has stopped.
func (h *Hub) add(s *Session) bool {
	select {
	case h.register <- s:
		return true
	case <-h.done:
		return false
	}
}

// remove unregisters s. It is a no-op once the hub has stopped.
func (h *Hub) remove(s *Session) {
	select {
	case h.unregister <- s:
	case <-h.done:
	}
}

// Count returns the number of open sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Sessions describes the open sessions, oldest first.
func (h *Hub) Sessions() []SessionInfo {
	h.mu.RLock()
	infos := make([]SessionInfo, 0, len(h.sessions))
	for s := range h.sessions {
		infos = append(infos, s.Info())
	}
	h.mu.RUnlock()
	sort.Slice(infos, func(i, j int) bool { return infos[i].CreatedAt < infos[j].CreatedAt })
	return infos
}

// handleSession upgrades the connection and starts a live session.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if authError := ValidateAuthForWebSocket(r, s.cfg.Auth); authError != "" {
		logging.SecurityEvent("unauthorized_request", "session",
			"reason", authError,
			"ip_address", getClientIP(r))
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", authError)
		return
	}
	if limit := s.cfg.WebSocket.MaxSessions; limit > 0 && s.hub.Count() >= limit {
		respondError(w, http.StatusServiceUnavailable, "TOO_MANY_SESSIONS", "Session limit reached")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written an error response.
		logging.WarnContext(r.Context(), "websocket_upgrade_failed", "error", err.Error())
		return
	}
	conn.SetReadLimit(s.cfg.WebSocket.MaxMessageSize)

	sess := newSession(s.ctx, conn, s.sessionConfig(), getClientIP(r))
	if !s.hub.add(sess) {
		sess.cancel()
		conn.Close()
		return
	}

	inbox := make(chan clientMessage, 16)
	go sess.writePump()
	go sess.loop(inbox)
	go func() {
		sess.readPump(inbox)
		s.hub.remove(sess)
	}()
}

// readPump decodes client messages into inbox until the connection fails,
// the client exceeds its message rate or the session is cancelled. The
// write pump closes the connection once the session ends.
func (sess *Session) readPump(inbox chan<- clientMessage) {
	defer sess.cancel()

	sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	sess.conn.SetPongHandler(func(string) error {
		sess.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logging.WarnContext(sess.ctx, "websocket_unexpected_close", "error", err.Error())
			}
			return
		}
		msg := decodeClientMessage(data)

		if !sess.limiter.allow() {
			logging.SecurityEvent("websocket_rate_limited", "session", "session_id", sess.id)
			sess.closeWith(websocket.ClosePolicyViolation, "Rate limit exceeded")
			return
		}

		select {
		case inbox <- msg:
		case <-sess.ctx.Done():
			return
		}
	}
}

// writePump writes queued messages and keeps the connection alive with
// pings. It is the only goroutine that writes to the connection.
func (sess *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sess.conn.Close()
	}()

	for {
		select {
		case message := <-sess.send:
			sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sess.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				sess.cancel()
				return
			}

		case <-ticker.C:
			sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sess.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				sess.cancel()
				return
			}

		case <-sess.ctx.Done():
			sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			for n := len(sess.send); n > 0; n-- {
				if err := sess.conn.WriteMessage(websocket.TextMessage, <-sess.send); err != nil {
					return
				}
			}
			code, text := sess.closeReason()
			sess.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, text))
			return
		}
	}
}

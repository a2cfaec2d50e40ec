// Package realtime keeps connected clients in sync with server-side changes. Sessions are
// tracked by a Hub and grouped into named rooms; events go to every session or to one room.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/pkg/logger"
	"github.com/jwalitptl/practice-api/pkg/metrics"
)

const sessionBuffer = 256

// Session is one live client connection.
type Session struct {
	ID     string
	UserID uuid.UUID
	Send   chan []byte
	rooms  map[string]struct{}
}

func NewSession(userID uuid.UUID) *Session {
	return &Session{
		ID:     uuid.New().String(),
		UserID: userID,
		Send:   make(chan []byte, sessionBuffer),
		rooms:  make(map[string]struct{}),
	}
}

// Hub tracks sessions and room membership. It is safe for concurrent use.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[*Session]struct{}
	sessions map[*Session]struct{}

	metrics *metrics.Metrics
	logger  *logger.Logger
	now     func() time.Time
}

func NewHub(m *metrics.Metrics, log *logger.Logger) *Hub {
	return &Hub{
		rooms:    make(map[string]map[*Session]struct{}),
		sessions: make(map[*Session]struct{}),
		metrics:  m,
		logger:   log.With("realtime"),
		now:      time.Now,
	}
}

func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[s]; ok {
		return
	}
	h.sessions[s] = struct{}{}
	h.metrics.ConnectedSessions.Inc()
}

// Unregister removes the session from every room it joined and closes its Send channel.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[s]; !ok {
		return
	}
	for room := range s.rooms {
		h.removeFromRoom(s, room)
	}
	delete(h.sessions, s)
	close(s.Send)
	h.metrics.ConnectedSessions.Dec()
}

// Join is idempotent.
func (h *Hub) Join(s *Session, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[s]; !ok {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Session]struct{})
	}
	h.rooms[room][s] = struct{}{}
	s.rooms[room] = struct{}{}
}

func (h *Hub) Leave(s *Session, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromRoom(s, room)
}

func (h *Hub) removeFromRoom(s *Session, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, s)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(s.rooms, room)
}

// InRoom reports whether the session is currently a member of room.
func (h *Hub) InRoom(s *Session, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := s.rooms[room]
	return ok
}

func (h *Hub) BroadcastAll(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.sessions {
		h.deliver(s, data)
	}
}

// BroadcastRoom sends to every member of room except skip, which may be nil.
func (h *Hub) BroadcastRoom(room string, data []byte, skip *Session) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.rooms[room] {
		if s == skip {
			continue
		}
		h.deliver(s, data)
	}
}

// deliver never blocks; a full buffer drops the frame for that session only.
func (h *Hub) deliver(s *Session, data []byte) {
	select {
	case s.Send <- data:
	default:
		h.metrics.FanoutDropped.Inc()
		h.logger.Debug("session buffer full, event dropped", "session_id", s.ID)
	}
}

// Publish implements Publisher against the local sessions.
func (h *Hub) Publish(_ context.Context, event string, payload interface{}, scope Scope) error {
	data, err := h.encode(event, payload, scope)
	if err != nil {
		return err
	}

	h.metrics.FanoutEvents.WithLabelValues(scope.String()).Inc()
	if scope.IsGlobal() {
		h.BroadcastAll(data)
	} else {
		h.BroadcastRoom(scope.RoomName(), data, nil)
	}
	return nil
}

func (h *Hub) encode(event string, payload interface{}, scope Scope) ([]byte, error) {
	var raw json.RawMessage
	switch p := payload.(type) {
	case nil:
	case json.RawMessage:
		raw = p
	case []byte:
		raw = p
	default:
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}

	return json.Marshal(Event{
		Type:      event,
		Room:      scope.RoomName(),
		Timestamp: h.now().UTC(),
		Data:      raw,
	})
}

func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) RoomCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

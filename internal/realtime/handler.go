package realtime

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/jwalitptl/practice-api/internal/middleware"
	"github.com/jwalitptl/practice-api/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// ClientMessage is an inbound frame from a connected client.
type ClientMessage struct {
	Action string          `json:"action"`
	Room   string          `json:"room"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

func NewHandler(hub *Hub, allowedOrigins []string, log *logger.Logger) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: log.With("realtime_handler"),
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/ws", h.Connect)
}

// Connect upgrades the request and joins the session to its user room.
func (h *Handler) Connect(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err.Error())
		return
	}

	session := NewSession(userID)
	h.hub.Register(session)
	h.hub.Join(session, UserRoom(userID))
	h.logger.Debug("session connected", "session_id", session.ID, "user_id", userID.String())

	go h.writePump(session, conn)
	go h.readPump(session, conn)
}

func (h *Handler) readPump(s *Session, conn *websocket.Conn) {
	defer func() {
		h.hub.Unregister(s)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		h.process(s, msg)
	}
}

func (h *Handler) process(s *Session, msg ClientMessage) {
	if msg.Room == "" {
		return
	}
	switch msg.Action {
	case "join":
		if !canJoin(s, msg.Room) {
			h.logger.Warn("refused room join", "session_id", s.ID, "user_id", s.UserID.String(), "room", msg.Room)
			return
		}
		h.hub.Join(s, msg.Room)
	case "leave":
		h.hub.Leave(s, msg.Room)
	case "typing":
		if !h.hub.InRoom(s, msg.Room) {
			return
		}
		data, err := h.hub.encode(EventTyping, map[string]interface{}{
			"user_id": s.UserID,
			"data":    msg.Data,
		}, Room(msg.Room))
		if err != nil {
			return
		}
		h.hub.BroadcastRoom(msg.Room, data, s)
	}
}

// canJoin keeps private user rooms to their owner. Other rooms are open to any session.
func canJoin(s *Session, room string) bool {
	if strings.HasPrefix(room, userRoomPrefix) {
		return room == UserRoom(s.UserID)
	}
	return true
}

func (h *Handler) writePump(s *Session, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

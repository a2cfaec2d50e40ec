package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/practice-api/pkg/logger"
	"github.com/jwalitptl/practice-api/pkg/metrics"
)

func newTestHub() *Hub {
	return NewHub(metrics.NewNop(), logger.Nop())
}

func registered(h *Hub) *Session {
	s := NewSession(uuid.New())
	h.Register(s)
	return s
}

func drain(s *Session) []Event {
	var events []Event
	for {
		select {
		case raw, ok := <-s.Send:
			if !ok {
				return events
			}
			var e Event
			if err := json.Unmarshal(raw, &e); err == nil {
				events = append(events, e)
			}
		default:
			return events
		}
	}
}

func TestHub_RoomScopedPublishReachesOnlyMembers(t *testing.T) {
	hub := newTestHub()
	member := registered(hub)
	outsider := registered(hub)
	hub.Join(member, "patient:42")

	err := hub.Publish(context.Background(), EventPatientGoalUpdated, map[string]int{"index": 1}, Room("patient:42"))
	require.NoError(t, err)

	got := drain(member)
	require.Len(t, got, 1)
	assert.Equal(t, EventPatientGoalUpdated, got[0].Type)
	assert.Equal(t, "patient:42", got[0].Room)
	assert.JSONEq(t, `{"index":1}`, string(got[0].Data))
	assert.Empty(t, drain(outsider))
}

func TestHub_GlobalPublishReachesEverySession(t *testing.T) {
	hub := newTestHub()
	a, b := registered(hub), registered(hub)
	hub.Join(a, "room-a")

	require.NoError(t, hub.Publish(context.Background(), EventAppointmentStatusChanged, nil, Global()))

	assert.Len(t, drain(a), 1)
	assert.Len(t, drain(b), 1)
}

func TestHub_JoinIsIdempotent(t *testing.T) {
	hub := newTestHub()
	s := registered(hub)

	hub.Join(s, "user:1")
	hub.Join(s, "user:1")
	assert.Equal(t, 1, hub.RoomCount("user:1"))

	require.NoError(t, hub.Publish(context.Background(), EventNotificationNew, nil, Room("user:1")))
	assert.Len(t, drain(s), 1)
}

func TestHub_LeaveStopsDelivery(t *testing.T) {
	hub := newTestHub()
	s := registered(hub)
	hub.Join(s, "room")
	hub.Leave(s, "room")

	require.NoError(t, hub.Publish(context.Background(), EventNotificationNew, nil, Room("room")))
	assert.Empty(t, drain(s))
	assert.Equal(t, 0, hub.RoomCount("room"))
}

func TestHub_UnregisterLeavesAllRooms(t *testing.T) {
	hub := newTestHub()
	s := registered(hub)
	hub.Join(s, "a")
	hub.Join(s, "b")

	hub.Unregister(s)
	hub.Unregister(s)

	assert.Equal(t, 0, hub.SessionCount())
	assert.Equal(t, 0, hub.RoomCount("a"))
	assert.Equal(t, 0, hub.RoomCount("b"))
	_, open := <-s.Send
	assert.False(t, open)
}

func TestHub_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	hub := newTestHub()
	slow := registered(hub)
	fast := registered(hub)

	for i := 0; i < sessionBuffer; i++ {
		slow.Send <- []byte("{}")
	}

	require.NoError(t, hub.Publish(context.Background(), EventAuditLogCreated, nil, Global()))
	assert.Len(t, slow.Send, sessionBuffer)
	assert.Len(t, drain(fast), 1)
}

func TestHub_JoinRequiresRegistration(t *testing.T) {
	hub := newTestHub()
	s := NewSession(uuid.New())

	hub.Join(s, "room")
	assert.Equal(t, 0, hub.RoomCount("room"))
}

func TestHandler_TypingRebroadcastSkipsSender(t *testing.T) {
	hub := newTestHub()
	h := NewHandler(hub, nil, logger.Nop())
	sender, peer, stranger := registered(hub), registered(hub), registered(hub)
	hub.Join(sender, "chat")
	hub.Join(peer, "chat")

	h.process(sender, ClientMessage{Action: "typing", Room: "chat"})

	assert.Empty(t, drain(sender))
	got := drain(peer)
	require.Len(t, got, 1)
	assert.Equal(t, EventTyping, got[0].Type)
	assert.Empty(t, drain(stranger))
}

func TestHandler_JoinAndLeaveMessages(t *testing.T) {
	hub := newTestHub()
	h := NewHandler(hub, nil, logger.Nop())
	s := registered(hub)

	h.process(s, ClientMessage{Action: "join", Room: "patient:7"})
	assert.True(t, hub.InRoom(s, "patient:7"))

	h.process(s, ClientMessage{Action: "leave", Room: "patient:7"})
	assert.False(t, hub.InRoom(s, "patient:7"))
}

func TestHandler_JoinRefusesAnotherUsersRoom(t *testing.T) {
	hub := newTestHub()
	h := NewHandler(hub, nil, logger.Nop())
	owner, intruder := registered(hub), registered(hub)
	hub.Join(owner, UserRoom(owner.UserID))

	h.process(intruder, ClientMessage{Action: "join", Room: UserRoom(owner.UserID)})
	assert.False(t, hub.InRoom(intruder, UserRoom(owner.UserID)))

	err := hub.Publish(context.Background(), EventNotificationNew, map[string]string{"title": "Patient Update"}, Room(UserRoom(owner.UserID)))
	require.NoError(t, err)
	assert.Empty(t, drain(intruder))
	require.Len(t, drain(owner), 1)

	h.process(intruder, ClientMessage{Action: "typing", Room: UserRoom(owner.UserID)})
	assert.Empty(t, drain(owner))
}

func TestHandler_JoinOwnUserRoom(t *testing.T) {
	hub := newTestHub()
	h := NewHandler(hub, nil, logger.Nop())
	s := registered(hub)

	h.process(s, ClientMessage{Action: "join", Room: UserRoom(s.UserID)})
	assert.True(t, hub.InRoom(s, UserRoom(s.UserID)))
}

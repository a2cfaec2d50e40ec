package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventAppointmentStatusChanged = "appointment:status_changed"
	EventPatientDischarged        = "patient:discharged"
	EventPatientGoalUpdated       = "patient:goal_updated"
	EventDischargeRequestCreated  = "discharge_request:created"
	EventDischargeRequestReviewed = "discharge_request:reviewed"
	EventNotificationNew          = "notification:new"
	EventNotificationRead         = "notification:read"
	EventNotificationDeleted      = "notification:deleted"
	EventAuditLogCreated          = "audit_log:created"
	EventTyping                   = "typing"
)

// Event is the frame written to every recipient session.
type Event struct {
	Type      string          `json:"type"`
	Room      string          `json:"room,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Scope selects the recipients of an event: every session, or the members of one room.
type Scope struct {
	room string
}

func Global() Scope { return Scope{} }

func Room(name string) Scope { return Scope{room: name} }

func (s Scope) IsGlobal() bool { return s.room == "" }

func (s Scope) RoomName() string { return s.room }

func (s Scope) String() string {
	if s.IsGlobal() {
		return "global"
	}
	return "room"
}

const userRoomPrefix = "user:"

// UserRoom is the private room every authenticated session joins on connect. Only the owning
// user's sessions may be members.
func UserRoom(userID uuid.UUID) string {
	return userRoomPrefix + userID.String()
}

// Publisher is the handle components use to emit live events. Delivery is at-most-once;
// a failed or dropped delivery is never retried.
type Publisher interface {
	Publish(ctx context.Context, event string, payload interface{}, scope Scope) error
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}, Scope) error { return nil }

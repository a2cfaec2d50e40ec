package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	AuditActionStatusChange     = "status_change"
	AuditActionDischarge        = "discharge"
	AuditActionGoalUpdate       = "goal_update"
	AuditActionDischargeRequest = "discharge_request"
	AuditActionDischargeReview  = "discharge_review"

	AuditResourceAppointment = "appointment"
	AuditResourcePatient     = "patient"
)

// AuditEntry is append-only. Automatic is set for mutations made by the sweep or the
// discharge engine without a human actor.
type AuditEntry struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	UserID       *uuid.UUID `json:"user_id,omitempty" db:"user_id"`
	Action       string     `json:"action" db:"action"`
	ResourceType string     `json:"resource_type" db:"resource_type"`
	ResourceID   uuid.UUID  `json:"resource_id" db:"resource_id"`
	Details      JSONMap    `json:"details" db:"details"`
	Automatic    bool       `json:"automatic" db:"automatic"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

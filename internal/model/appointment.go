package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusOverdue   AppointmentStatus = "overdue"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusNoShow    AppointmentStatus = "no-show"
)

// AppointmentStatuses lists every status in a stable order.
var AppointmentStatuses = []AppointmentStatus{
	AppointmentStatusScheduled,
	AppointmentStatusOverdue,
	AppointmentStatusCompleted,
	AppointmentStatusCancelled,
	AppointmentStatusNoShow,
}

func (s AppointmentStatus) Valid() bool {
	for _, known := range AppointmentStatuses {
		if s == known {
			return true
		}
	}
	return false
}

type Appointment struct {
	Base
	PatientID       uuid.UUID         `db:"patient_id" json:"patient_id"`
	ClinicianID     uuid.UUID         `db:"clinician_id" json:"clinician_id"`
	AppointmentDate time.Time         `db:"appointment_date" json:"appointment_date"`
	Duration        int               `db:"duration" json:"duration"` // minutes
	Type            string            `db:"type" json:"type"`
	Status          AppointmentStatus `db:"status" json:"status"`
	Notes           string            `db:"notes" json:"notes,omitempty"`
}

type UpdateAppointmentStatusRequest struct {
	Status AppointmentStatus `json:"status" binding:"required,oneof=scheduled overdue completed cancelled no-show"`
	Reason string            `json:"reason" binding:"max=500"`
}

// StatusRecommendation is the read-only preview of what the sweep would do.
type StatusRecommendation struct {
	AppointmentID     uuid.UUID         `json:"appointment_id"`
	CurrentStatus     AppointmentStatus `json:"current_status"`
	RecommendedStatus AppointmentStatus `json:"recommended_status"`
	Reason            string            `json:"reason"`
}

type AppointmentFilters struct {
	PatientID   uuid.UUID
	ClinicianID uuid.UUID
	Statuses    []AppointmentStatus
	// From is inclusive and Before exclusive; zero values leave that side open.
	From        time.Time
	Before      time.Time
}

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TreatmentRecord is the session evidence the discharge engine reads. Records are never
// mutated by the core.
type TreatmentRecord struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	ClinicianID uuid.UUID `db:"clinician_id" json:"clinician_id"`
	SessionDate time.Time `db:"session_date" json:"session_date"`
	SessionType string    `db:"session_type" json:"session_type"`
	Notes       string    `db:"notes" json:"notes"`
	Progress    string    `db:"progress" json:"progress"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Completed reports whether the record documents a full session.
func (r TreatmentRecord) Completed() bool {
	return strings.TrimSpace(r.SessionType) != "" &&
		strings.TrimSpace(r.Notes) != "" &&
		strings.TrimSpace(r.Progress) != ""
}

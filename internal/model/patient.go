package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

type PatientStatus string

const (
	PatientStatusActive     PatientStatus = "active"
	PatientStatusInactive   PatientStatus = "inactive"
	PatientStatusDischarged PatientStatus = "discharged"
)

// Archived patients are never evaluated for discharge.
func (s PatientStatus) Archived() bool {
	return s == PatientStatusInactive || s == PatientStatusDischarged
}

// DefaultTargetSessions applies when a patient's criteria leave the target unset.
const DefaultTargetSessions = 12

type Patient struct {
	Base
	Name                string            `db:"name" json:"name"`
	Email               string            `db:"email" json:"email"`
	Status              PatientStatus     `db:"status" json:"status"`
	AssignedClinicianID *uuid.UUID        `db:"assigned_clinician_id" json:"assigned_clinician_id,omitempty"`
	DischargeCriteria   DischargeCriteria `db:"discharge_criteria" json:"discharge_criteria"`
	TreatmentGoals      TreatmentGoals    `db:"treatment_goals" json:"treatment_goals"`
	DischargeRequests   DischargeRequests `db:"discharge_requests" json:"discharge_requests"`
}

type DischargeCriteria struct {
	TargetSessions  int        `json:"target_sessions"`
	TargetDate      *time.Time `json:"target_date,omitempty"`
	AutoDischarge   bool       `json:"auto_discharge"`
	DischargeReason string     `json:"discharge_reason,omitempty"`
	DischargeDate   *time.Time `json:"discharge_date,omitempty"`
}

// EffectiveTargetSessions returns the configured target or the default of 12.
func (c DischargeCriteria) EffectiveTargetSessions() int {
	if c.TargetSessions <= 0 {
		return DefaultTargetSessions
	}
	return c.TargetSessions
}

func (c DischargeCriteria) Value() (driver.Value, error) { return jsonValue(c) }
func (c *DischargeCriteria) Scan(src interface{}) error   { return jsonScan(src, c) }

type GoalStatus string

const (
	GoalStatusNotStarted GoalStatus = "not_started"
	GoalStatusInProgress GoalStatus = "in_progress"
	GoalStatusAchieved   GoalStatus = "achieved"
)

func (s GoalStatus) Valid() bool {
	switch s {
	case GoalStatusNotStarted, GoalStatusInProgress, GoalStatusAchieved:
		return true
	}
	return false
}

type TreatmentGoal struct {
	Description  string     `json:"description"`
	Status       GoalStatus `json:"status"`
	AchievedDate *time.Time `json:"achieved_date,omitempty"`
	Notes        string     `json:"notes,omitempty"`
}

type TreatmentGoals []TreatmentGoal

func (g TreatmentGoals) Value() (driver.Value, error) {
	if g == nil {
		g = TreatmentGoals{}
	}
	return jsonValue(g)
}
func (g *TreatmentGoals) Scan(src interface{}) error { return jsonScan(src, g) }

// GoalUpdate carries the mutable fields of one goal. Nil fields are left untouched.
type GoalUpdate struct {
	Status       *GoalStatus `json:"status" binding:"omitempty,oneof=not_started in_progress achieved"`
	AchievedDate *time.Time  `json:"achieved_date"`
	Notes        *string     `json:"notes" binding:"omitempty,max=2000"`
}

type DischargeRequestStatus string

const (
	DischargeRequestPending  DischargeRequestStatus = "pending"
	DischargeRequestApproved DischargeRequestStatus = "approved"
	DischargeRequestDenied   DischargeRequestStatus = "denied"
)

type DischargeRequest struct {
	ID          uuid.UUID              `json:"id"`
	RequestedBy uuid.UUID              `json:"requested_by"`
	RequestedAt time.Time              `json:"requested_at"`
	Reason      string                 `json:"reason"`
	Status      DischargeRequestStatus `json:"status"`
	ReviewedBy  *uuid.UUID             `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time             `json:"reviewed_at,omitempty"`
	ReviewNotes string                 `json:"review_notes,omitempty"`
}

type DischargeRequests []DischargeRequest

func (r DischargeRequests) Value() (driver.Value, error) {
	if r == nil {
		r = DischargeRequests{}
	}
	return jsonValue(r)
}
func (r *DischargeRequests) Scan(src interface{}) error { return jsonScan(src, r) }

type CreateDischargeRequest struct {
	Reason string `json:"reason" binding:"required,max=2000"`
}

type ReviewDischargeRequest struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes" binding:"max=2000"`
}

type ManualDischargeRequest struct {
	Reason string `json:"reason" binding:"required,max=2000"`
}

// Eligibility is the outcome of a discharge-eligibility evaluation.
type Eligibility struct {
	ShouldDischarge bool     `json:"should_discharge"`
	Reason          string   `json:"reason"`
	Criteria        []string `json:"criteria"`
}

// DischargeResult is returned by an automatic discharge attempt.
type DischargeResult struct {
	Success  bool     `json:"success"`
	Reason   string   `json:"reason"`
	Criteria []string `json:"criteria"`
}

type GoalUpdateResult struct {
	Success              bool          `json:"success"`
	ShouldCheckDischarge bool          `json:"should_check_discharge"`
	Goal                 TreatmentGoal `json:"goal"`
}

type CompletionBreakdown struct {
	Manual                int `json:"manual"`
	Automatic             int `json:"automatic"`
	Active                int `json:"active"`
	EligibleNotDischarged int `json:"eligible_not_discharged"`
}

type CompletionRate struct {
	Rate            float64             `json:"rate"`
	DischargedCount int                 `json:"discharged_count"`
	TotalCount      int                 `json:"total_count"`
	Breakdown       CompletionBreakdown `json:"breakdown"`
}

type PatientFilters struct {
	Status PatientStatus
}

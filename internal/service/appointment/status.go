package appointment

import (
	"time"

	"github.com/jwalitptl/practice-api/internal/model"
)

// NoShowAfter is how long past its start an appointment stays overdue before it is a no-show.
const NoShowAfter = 24 * time.Hour

const (
	ReasonNoShow  = "automatically marked as no-show (appointment date passed)"
	ReasonOverdue = "appointment is overdue (date has passed)"
)

var transitions = map[model.AppointmentStatus][]model.AppointmentStatus{
	model.AppointmentStatusScheduled: {
		model.AppointmentStatusCompleted,
		model.AppointmentStatusCancelled,
		model.AppointmentStatusOverdue,
		model.AppointmentStatusNoShow,
	},
	model.AppointmentStatusOverdue: {
		model.AppointmentStatusCompleted,
		model.AppointmentStatusCancelled,
		model.AppointmentStatusNoShow,
	},
	model.AppointmentStatusCompleted: {},
	model.AppointmentStatusCancelled: {},
	model.AppointmentStatusNoShow: {
		model.AppointmentStatusCompleted,
		model.AppointmentStatusCancelled,
	},
}

// IsValidStatusTransition gates every status change, manual or automatic.
func IsValidStatusTransition(from, to model.AppointmentStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s model.AppointmentStatus) bool {
	return len(transitions[s]) == 0
}

// Classify returns the status the sweep would assign at now. Appointments that are terminal
// or still in the future keep their status and an empty reason.
func Classify(a *model.Appointment, now time.Time) (model.AppointmentStatus, string) {
	if IsTerminal(a.Status) || !a.AppointmentDate.Before(now) {
		return a.Status, ""
	}
	if now.Sub(a.AppointmentDate) > NoShowAfter {
		return model.AppointmentStatusNoShow, ReasonNoShow
	}
	return model.AppointmentStatusOverdue, ReasonOverdue
}

// Recommend is the read-only preview of Classify.
func Recommend(a *model.Appointment, now time.Time) *model.StatusRecommendation {
	status, reason := Classify(a, now)
	if status == a.Status {
		reason = "no change recommended"
	}
	return &model.StatusRecommendation{
		AppointmentID:     a.ID,
		CurrentStatus:     a.Status,
		RecommendedStatus: status,
		Reason:            reason,
	}
}

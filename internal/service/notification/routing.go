package notification

import (
	"strconv"
	"strings"
	"time"

	"github.com/jwalitptl/practice-api/internal/model"
)

// ShouldSendEmail applies a user's preferences to one notification. now must already be in the
// clinic time zone. Quiet hours only ever suppress email, never the in-app record.
func ShouldSendEmail(prefs *model.NotificationPreferences, kind model.NotificationType, now time.Time) bool {
	if prefs == nil || !prefs.EmailNotifications {
		return false
	}

	switch kind {
	case model.NotificationAppointmentReminder:
		if !prefs.AppointmentReminders {
			return false
		}
	case model.NotificationPatientUpdate:
		if !prefs.PatientUpdates {
			return false
		}
	case model.NotificationSystemAlert:
		if !prefs.SystemAlerts {
			return false
		}
	}

	return !InQuietHours(prefs.QuietHours, now)
}

// InQuietHours reports whether now falls inside the window, end minute included. A window whose
// start is after its end wraps midnight. A disabled or malformed window never matches.
func InQuietHours(q model.QuietHours, now time.Time) bool {
	if !q.Enabled {
		return false
	}
	start, ok := minuteOfDay(q.Start)
	if !ok {
		return false
	}
	end, ok := minuteOfDay(q.End)
	if !ok {
		return false
	}

	current := now.Hour()*60 + now.Minute()
	if start <= end {
		return start <= current && current <= end
	}
	return current >= start || current <= end
}

func minuteOfDay(hhmm string) (int, bool) {
	h, m, found := strings.Cut(hhmm, ":")
	if !found {
		return 0, false
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}

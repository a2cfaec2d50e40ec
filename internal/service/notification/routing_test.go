package notification

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/practice-api/internal/model"
)

func at(hhmm string) time.Time {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		panic(err)
	}
	return time.Date(2026, 3, 10, t.Hour(), t.Minute(), 0, 0, time.UTC)
}

func TestInQuietHours(t *testing.T) {
	overnight := model.QuietHours{Enabled: true, Start: "22:00", End: "08:00"}
	early := model.QuietHours{Enabled: true, Start: "01:00", End: "02:00"}

	cases := []struct {
		name   string
		window model.QuietHours
		now    string
		want   bool
	}{
		{"overnight late evening", overnight, "23:30", true},
		{"overnight morning after", overnight, "09:00", false},
		{"overnight at start", overnight, "22:00", true},
		{"overnight at end minute", overnight, "08:00", true},
		{"overnight after midnight", overnight, "03:15", true},
		{"overnight afternoon", overnight, "14:00", false},
		{"same day inside", early, "01:30", true},
		{"same day outside", early, "03:00", false},
		{"same day end minute", early, "02:00", true},
		{"disabled", model.QuietHours{Enabled: false, Start: "00:00", End: "23:59"}, "12:00", false},
		{"malformed", model.QuietHours{Enabled: true, Start: "25:00", End: "08:00"}, "23:00", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, InQuietHours(tc.window, at(tc.now)))
		})
	}
}

func TestShouldSendEmail(t *testing.T) {
	prefs := func(master, category, quiet bool) *model.NotificationPreferences {
		p := model.DefaultNotificationPreferences(uuid.New())
		p.EmailNotifications = master
		p.AppointmentReminders = category
		p.QuietHours = model.QuietHours{Enabled: quiet, Start: "22:00", End: "08:00"}
		return p
	}
	night := at("23:30")

	assert.False(t, ShouldSendEmail(prefs(true, false, false), model.NotificationAppointmentReminder, night))
	assert.False(t, ShouldSendEmail(prefs(false, true, false), model.NotificationAppointmentReminder, night))
	assert.False(t, ShouldSendEmail(prefs(true, true, true), model.NotificationAppointmentReminder, night))
	assert.True(t, ShouldSendEmail(prefs(true, true, false), model.NotificationAppointmentReminder, night))
	assert.True(t, ShouldSendEmail(prefs(true, true, true), model.NotificationAppointmentReminder, at("12:00")))
	assert.False(t, ShouldSendEmail(nil, model.NotificationGeneral, night))
}

func TestShouldSendEmail_CategorySwitches(t *testing.T) {
	p := model.DefaultNotificationPreferences(uuid.New())
	p.PatientUpdates = false
	p.SystemAlerts = false
	now := at("12:00")

	assert.False(t, ShouldSendEmail(p, model.NotificationPatientUpdate, now))
	assert.False(t, ShouldSendEmail(p, model.NotificationSystemAlert, now))
	assert.True(t, ShouldSendEmail(p, model.NotificationAppointmentReminder, now))

	// Types without their own switch follow the master switch only.
	assert.True(t, ShouldSendEmail(p, model.NotificationTreatmentCompletion, now))
	p.EmailNotifications = false
	assert.False(t, ShouldSendEmail(p, model.NotificationTreatmentCompletion, now))
}

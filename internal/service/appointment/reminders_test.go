package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/practice-api/internal/model"
)

func TestSendDueReminders_UsesClinicianTiming(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	window := 5 * time.Minute

	// Default timing is one hour ahead.
	due := f.add(t, model.AppointmentStatusScheduled, f.now.Add(time.Hour-2*time.Minute))
	f.add(t, model.AppointmentStatusScheduled, f.now.Add(3*time.Hour))
	f.add(t, model.AppointmentStatusCancelled, f.now.Add(time.Hour-time.Minute))

	dayAhead := f.add(t, model.AppointmentStatusScheduled, f.now.Add(24*time.Hour-time.Minute))
	f.notifier.prefs = map[uuid.UUID]*model.NotificationPreferences{
		dayAhead.ClinicianID: {ReminderTiming: model.ReminderTiming1Day, AppointmentReminders: true},
	}

	n, err := f.svc.SendDueReminders(ctx, window)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, f.notifier.reminders, 2)
	ids := []uuid.UUID{f.notifier.reminders[0].AppointmentID, f.notifier.reminders[1].AppointmentID}
	assert.ElementsMatch(t, []uuid.UUID{due.ID, dayAhead.ID}, ids)
}

func TestSendDueReminders_NextWindowDoesNotRepeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	window := 5 * time.Minute
	f.add(t, model.AppointmentStatusScheduled, f.now.Add(time.Hour-time.Minute))

	n, err := f.svc.SendDueReminders(ctx, window)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f.now = f.now.Add(window)
	n, err = f.svc.SendDueReminders(ctx, window)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, f.notifier.reminders, 1)
}

func TestSendDueReminders_SkipsDisabledReminders(t *testing.T) {
	f := newFixture(t)
	apt := f.add(t, model.AppointmentStatusScheduled, f.now.Add(30*time.Minute-time.Minute))
	prefs := model.DefaultNotificationPreferences(apt.ClinicianID)
	prefs.ReminderTiming = model.ReminderTiming30Min
	prefs.AppointmentReminders = false
	f.notifier.prefs = map[uuid.UUID]*model.NotificationPreferences{apt.ClinicianID: prefs}

	n, err := f.svc.SendDueReminders(context.Background(), 5*time.Minute)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, f.notifier.reminders)
}

func TestReminderDue(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	since := now.Add(-5 * time.Minute)

	assert.True(t, reminderDue(now.Add(15*time.Minute), model.ReminderTiming15Min, since, now))
	assert.False(t, reminderDue(now.Add(10*time.Minute), model.ReminderTiming15Min, since, now))
	assert.False(t, reminderDue(now.Add(16*time.Minute), model.ReminderTiming15Min, since, now))
	assert.True(t, reminderDue(now.Add(2*time.Hour-time.Minute), model.ReminderTiming2Hours, since, now))
}

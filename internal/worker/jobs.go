package worker

import (
	"context"
	"time"
)

type AppointmentSweeper interface {
	UpdateAppointmentStatuses(ctx context.Context) (int, error)
}

type DischargeSweeper interface {
	SweepActivePatients(ctx context.Context) (int, error)
}

type AppointmentReminder interface {
	SendDueReminders(ctx context.Context, window time.Duration) (int, error)
}

type NotificationCleaner interface {
	CleanupExpiredNotifications(ctx context.Context) (int64, error)
}

// AppointmentSweepJob moves past-due appointments to overdue or no-show.
type AppointmentSweepJob struct {
	svc AppointmentSweeper
}

func NewAppointmentSweepJob(svc AppointmentSweeper) *AppointmentSweepJob {
	return &AppointmentSweepJob{svc: svc}
}

func (j *AppointmentSweepJob) Name() string { return "appointment_sweep" }

func (j *AppointmentSweepJob) Run(ctx context.Context) (int64, error) {
	n, err := j.svc.UpdateAppointmentStatuses(ctx)
	return int64(n), err
}

// DischargeSweepJob attempts automatic discharge for every active patient.
type DischargeSweepJob struct {
	svc DischargeSweeper
}

func NewDischargeSweepJob(svc DischargeSweeper) *DischargeSweepJob {
	return &DischargeSweepJob{svc: svc}
}

func (j *DischargeSweepJob) Name() string { return "discharge_sweep" }

func (j *DischargeSweepJob) Run(ctx context.Context) (int64, error) {
	n, err := j.svc.SweepActivePatients(ctx)
	return int64(n), err
}

// NotificationCleanupJob deletes notifications past their expiry.
type NotificationCleanupJob struct {
	svc NotificationCleaner
}

func NewNotificationCleanupJob(svc NotificationCleaner) *NotificationCleanupJob {
	return &NotificationCleanupJob{svc: svc}
}

func (j *NotificationCleanupJob) Name() string { return "notification_cleanup" }

func (j *NotificationCleanupJob) Run(ctx context.Context) (int64, error) {
	return j.svc.CleanupExpiredNotifications(ctx)
}

// AppointmentReminderJob sends reminders whose lead time fell in the last window. The window
// must match the ticker interval.
type AppointmentReminderJob struct {
	svc    AppointmentReminder
	window time.Duration
}

func NewAppointmentReminderJob(svc AppointmentReminder, window time.Duration) *AppointmentReminderJob {
	return &AppointmentReminderJob{svc: svc, window: window}
}

func (j *AppointmentReminderJob) Name() string { return "appointment_reminders" }

func (j *AppointmentReminderJob) Run(ctx context.Context) (int64, error) {
	n, err := j.svc.SendDueReminders(ctx, j.window)
	return int64(n), err
}

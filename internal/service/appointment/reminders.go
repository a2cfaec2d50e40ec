package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
)

// SendDueReminders notifies clinicians of scheduled appointments whose reminder time, set by
// each clinician's ReminderTiming preference, fell inside the last window. Run it every window
// so each appointment is reminded at most once. Clinicians with appointment reminders switched
// off are skipped.
func (s *Service) SendDueReminders(ctx context.Context, window time.Duration) (int, error) {
	if s.notifier == nil || window <= 0 {
		return 0, nil
	}
	now := s.now()
	since := now.Add(-window)

	upcoming, err := s.repo.List(ctx, &model.AppointmentFilters{
		Statuses: []model.AppointmentStatus{model.AppointmentStatusScheduled},
		From:     now,
		Before:   now.Add(model.MaxReminderLead + window),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to load upcoming appointments: %w", err)
	}

	prefs := make(map[uuid.UUID]*model.NotificationPreferences)
	sent := 0
	for _, apt := range upcoming {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}

		p, ok := prefs[apt.ClinicianID]
		if !ok {
			p, err = s.notifier.GetPreferences(ctx, apt.ClinicianID)
			if err != nil {
				s.logger.Warn("failed to load reminder preferences", "error", err.Error(), "user_id", apt.ClinicianID.String())
				continue
			}
			prefs[apt.ClinicianID] = p
		}
		if !p.AppointmentReminders || !reminderDue(apt.AppointmentDate, p.ReminderTiming, since, now) {
			continue
		}

		data := model.AppointmentData{
			AppointmentID:   apt.ID,
			PatientName:     s.patientName(ctx, apt.PatientID),
			AppointmentDate: apt.AppointmentDate,
			Duration:        apt.Duration,
			Type:            apt.Type,
		}
		if _, err := s.notifier.SendAppointmentReminder(ctx, apt.ClinicianID, data); err != nil {
			s.logger.Warn("failed to send appointment reminder", "error", err.Error(), "appointment_id", apt.ID.String())
			continue
		}
		sent++
	}

	s.logger.Info("appointment reminders sent", "examined", len(upcoming), "sent", sent)
	return sent, nil
}

// reminderDue reports whether the reminder time lies in (since, now].
func reminderDue(at time.Time, timing model.ReminderTiming, since, now time.Time) bool {
	remindAt := at.Add(-timing.Lead())
	return remindAt.After(since) && !remindAt.After(now)
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
)

type preferenceRepository struct {
	db *sqlx.DB
}

func NewPreferenceRepository(db *sqlx.DB) repository.PreferenceRepository {
	return &preferenceRepository{db: db}
}

func (r *preferenceRepository) Get(ctx context.Context, userID uuid.UUID) (*model.NotificationPreferences, error) {
	query := `
		SELECT user_id, email_notifications, appointment_reminders, patient_updates,
			system_alerts, reminder_timing, quiet_hours, updated_at
		FROM notification_preferences
		WHERE user_id = $1
	`
	var prefs model.NotificationPreferences
	if err := r.db.GetContext(ctx, &prefs, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get notification preferences: %w", mapNotFound(err))
	}
	return &prefs, nil
}

func (r *preferenceRepository) Upsert(ctx context.Context, prefs *model.NotificationPreferences) error {
	query := `
		INSERT INTO notification_preferences (
			user_id, email_notifications, appointment_reminders, patient_updates,
			system_alerts, reminder_timing, quiet_hours, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			email_notifications = EXCLUDED.email_notifications,
			appointment_reminders = EXCLUDED.appointment_reminders,
			patient_updates = EXCLUDED.patient_updates,
			system_alerts = EXCLUDED.system_alerts,
			reminder_timing = EXCLUDED.reminder_timing,
			quiet_hours = EXCLUDED.quiet_hours,
			updated_at = EXCLUDED.updated_at
	`
	prefs.UpdatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, query,
		prefs.UserID,
		prefs.EmailNotifications,
		prefs.AppointmentReminders,
		prefs.PatientUpdates,
		prefs.SystemAlerts,
		prefs.ReminderTiming,
		prefs.QuietHours,
		prefs.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save notification preferences: %w", err)
	}
	return nil
}

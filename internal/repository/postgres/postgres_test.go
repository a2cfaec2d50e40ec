package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
)

func setupMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestAppointmentGet_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAppointmentRepository(db)
	id := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM appointments WHERE id = \$1`).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), id)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentUpdateStatus(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAppointmentRepository(db)
	id := uuid.New()

	mock.ExpectExec(`UPDATE appointments SET status = \$1`).
		WithArgs(model.AppointmentStatusOverdue, sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE appointments SET status = \$1`).
		WithArgs(model.AppointmentStatusOverdue, sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateStatus(context.Background(), id, model.AppointmentStatusOverdue))
	err := repo.UpdateStatus(context.Background(), id, model.AppointmentStatusOverdue)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentList_SweepFilter(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAppointmentRepository(db)
	now := time.Now().UTC()
	id, patientID, clinicianID := uuid.New(), uuid.New(), uuid.New()

	rows := sqlmock.NewRows([]string{"id", "patient_id", "clinician_id", "appointment_date", "duration", "type", "status", "notes", "created_at", "updated_at"}).
		AddRow(id.String(), patientID.String(), clinicianID.String(), now.Add(-2*time.Hour), 50, "therapy", "scheduled", "", now, now)

	mock.ExpectQuery(`SELECT .* FROM appointments WHERE 1=1 AND status = ANY\(\$1\) AND appointment_date < \$2 ORDER BY appointment_date ASC`).
		WithArgs(sqlmock.AnyArg(), now).
		WillReturnRows(rows)

	appointments, err := repo.List(context.Background(), &model.AppointmentFilters{
		Statuses: []model.AppointmentStatus{model.AppointmentStatusScheduled, model.AppointmentStatusOverdue},
		Before:   now,
	})
	require.NoError(t, err)
	require.Len(t, appointments, 1)
	assert.Equal(t, id, appointments[0].ID)
	assert.Equal(t, model.AppointmentStatusScheduled, appointments[0].Status)
	assert.Equal(t, 50, appointments[0].Duration)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentList_ReminderRange(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAppointmentRepository(db)
	from := time.Now().UTC()
	until := from.Add(24 * time.Hour)

	mock.ExpectQuery(`SELECT .* FROM appointments WHERE 1=1 AND status = ANY\(\$1\) AND appointment_date >= \$2 AND appointment_date < \$3 ORDER BY appointment_date ASC`).
		WithArgs(sqlmock.AnyArg(), from, until).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	appointments, err := repo.List(context.Background(), &model.AppointmentFilters{
		Statuses: []model.AppointmentStatus{model.AppointmentStatusScheduled},
		From:     from,
		Before:   until,
	})
	require.NoError(t, err)
	assert.Empty(t, appointments)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPatientGet_DecodesDocumentColumns(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPatientRepository(db)
	id, clinicianID := uuid.New(), uuid.New()
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "name", "email", "status", "assigned_clinician_id", "discharge_criteria", "treatment_goals", "discharge_requests", "created_at", "updated_at"}).
		AddRow(id.String(), "Jane Doe", "jane@example.com", "active", clinicianID.String(),
			[]byte(`{"target_sessions":3,"auto_discharge":false}`),
			[]byte(`[{"description":"sleep","status":"achieved"},{"description":"anxiety","status":"in_progress"}]`),
			[]byte(`[]`), now, now)

	mock.ExpectQuery(`SELECT .* FROM patients WHERE id = \$1`).WithArgs(id).WillReturnRows(rows)

	patient, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.PatientStatusActive, patient.Status)
	require.NotNil(t, patient.AssignedClinicianID)
	assert.Equal(t, clinicianID, *patient.AssignedClinicianID)
	assert.Equal(t, 3, patient.DischargeCriteria.EffectiveTargetSessions())
	require.Len(t, patient.TreatmentGoals, 2)
	assert.Equal(t, model.GoalStatusAchieved, patient.TreatmentGoals[0].Status)
	assert.Empty(t, patient.DischargeRequests)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPatientUpdate_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPatientRepository(db)

	mock.ExpectExec(`UPDATE patients`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &model.Patient{Base: model.Base{ID: uuid.New()}})
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestNotificationList(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewNotificationRepository(db)
	userID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM notifications WHERE user_id = \$1 AND read = false`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery(`SELECT .* FROM notifications WHERE user_id = \$1 AND read = false ORDER BY created_at DESC LIMIT \$2 OFFSET \$3`).
		WithArgs(userID, 5, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "type", "title", "message", "data", "read", "created_at", "expires_at"}).
			AddRow(uuid.New().String(), userID.String(), "system_alert", "System Alert: Backup", "done", []byte(`{"alert_data":{"title":"Backup","severity":"info"}}`), false, now, nil))

	items, total, err := repo.List(context.Background(), userID, &model.NotificationListOptions{UnreadOnly: true, Limit: 5, Offset: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Data.AlertData)
	assert.Equal(t, "Backup", items[0].Data.AlertData.Title)
	assert.Nil(t, items[0].ExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationMarkAsRead_OtherUser(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewNotificationRepository(db)
	id, userID := uuid.New(), uuid.New()

	mock.ExpectExec(`UPDATE notifications SET read = true WHERE id = \$1 AND user_id = \$2`).
		WithArgs(id, userID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkAsRead(context.Background(), id, userID)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestNotificationStats(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewNotificationRepository(db)
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) AS total`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"total", "unread"}).AddRow(4, 1))
	mock.ExpectQuery(`SELECT type, COUNT\(\*\) AS count`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"type", "count"}).
			AddRow("general", 3).
			AddRow("system_alert", 1))
	mock.ExpectCommit()

	stats, err := repo.Stats(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int64(1), stats.Unread)
	assert.Equal(t, int64(3), stats.ByType[model.NotificationGeneral])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationDeleteExpired(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewNotificationRepository(db)
	cutoff := time.Now().UTC()

	mock.ExpectExec(`DELETE FROM notifications WHERE expires_at IS NOT NULL AND expires_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteExpired(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestPreferenceGet_Missing(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPreferenceRepository(db)
	userID := uuid.New()

	mock.ExpectQuery(`FROM notification_preferences`).WithArgs(userID).WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), userID)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestAuditCreate(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAuditRepository(db)

	mock.ExpectExec(`INSERT INTO audit_logs`).WillReturnResult(sqlmock.NewResult(0, 1))

	entry := &model.AuditEntry{
		Action:       model.AuditActionStatusChange,
		ResourceType: model.AuditResourceAppointment,
		ResourceID:   uuid.New(),
		Details:      model.JSONMap{"oldStatus": "scheduled", "newStatus": "overdue"},
		Automatic:    true,
	}
	require.NoError(t, repo.Create(context.Background(), entry))
	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

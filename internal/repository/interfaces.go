package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
)

// ErrNotFound is returned by every repository when the addressed row does not exist.
var ErrNotFound = errors.New("record not found")

// All repository interfaces in one file
type (
	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		// UpdateStatus is a plain write; no compare-and-swap on the previous status.
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error)
	}

	TreatmentRecordRepository interface {
		Create(ctx context.Context, record *model.TreatmentRecord) error
		// ListByPatient returns records newest session first.
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.TreatmentRecord, error)
	}

	NotificationRepository interface {
		Create(ctx context.Context, notification *model.Notification) error
		List(ctx context.Context, userID uuid.UUID, opts *model.NotificationListOptions) ([]*model.Notification, int64, error)
		MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
		MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error)
		Delete(ctx context.Context, id, userID uuid.UUID) error
		CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
		Stats(ctx context.Context, userID uuid.UUID) (*model.NotificationStats, error)
		DeleteExpired(ctx context.Context, before time.Time) (int64, error)
	}

	PreferenceRepository interface {
		Get(ctx context.Context, userID uuid.UUID) (*model.NotificationPreferences, error)
		Upsert(ctx context.Context, prefs *model.NotificationPreferences) error
	}

	UserRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		ListByRoles(ctx context.Context, roles ...model.Role) ([]*model.User, error)
	}

	AuditRepository interface {
		Create(ctx context.Context, entry *model.AuditEntry) error
	}
)

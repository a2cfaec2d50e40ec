package appointment

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/realtime"
	"github.com/jwalitptl/practice-api/internal/repository"
	"github.com/jwalitptl/practice-api/internal/service/audit"
	"github.com/jwalitptl/practice-api/pkg/errors"
	"github.com/jwalitptl/practice-api/pkg/logger"
	"github.com/jwalitptl/practice-api/pkg/metrics"
)

// sweepable are the statuses the sweep loads. No-show is excluded: it only leaves by a
// manual change.
var sweepable = []model.AppointmentStatus{
	model.AppointmentStatusScheduled,
	model.AppointmentStatusOverdue,
}

// Notifier tells clinicians about no-shows and upcoming appointments.
type Notifier interface {
	SendPatientUpdate(ctx context.Context, userID uuid.UUID, data model.PatientData, message string) (*model.Notification, error)
	SendAppointmentReminder(ctx context.Context, userID uuid.UUID, data model.AppointmentData) (*model.Notification, error)
	GetPreferences(ctx context.Context, userID uuid.UUID) (*model.NotificationPreferences, error)
}

type Service struct {
	repo      repository.AppointmentRepository
	patients  repository.PatientRepository
	auditor   *audit.Service
	publisher realtime.Publisher
	notifier  Notifier
	metrics   *metrics.Metrics
	logger    *logger.Logger
	now       func() time.Time
}

func NewService(
	repo repository.AppointmentRepository,
	patients repository.PatientRepository,
	auditor *audit.Service,
	publisher realtime.Publisher,
	notifier Notifier,
	m *metrics.Metrics,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:      repo,
		patients:  patients,
		auditor:   auditor,
		publisher: publisher,
		notifier:  notifier,
		metrics:   m,
		logger:    log.With("appointment"),
		now:       time.Now,
	}
}

// UpdateAppointmentStatuses runs one sweep and returns how many appointments changed.
// A failing appointment is logged and skipped.
func (s *Service) UpdateAppointmentStatuses(ctx context.Context) (int, error) {
	start := s.now()
	s.metrics.SweepRuns.Inc()
	defer func() { s.metrics.SweepDuration.Observe(time.Since(start).Seconds()) }()

	due, err := s.repo.List(ctx, &model.AppointmentFilters{Statuses: sweepable, Before: start})
	if err != nil {
		return 0, fmt.Errorf("failed to load appointments for sweep: %w", err)
	}

	updated := 0
	for _, apt := range due {
		if ctx.Err() != nil {
			return updated, ctx.Err()
		}

		next, reason := Classify(apt, start)
		if next == apt.Status || !IsValidStatusTransition(apt.Status, next) {
			continue
		}

		if err := s.transition(ctx, apt, next, reason, nil); err != nil {
			s.metrics.SweepFailures.Inc()
			s.logger.Error(err, "sweep failed to update appointment", "appointment_id", apt.ID.String())
			continue
		}
		updated++
		s.metrics.SweepTransitions.WithLabelValues(string(next)).Inc()

		if next == model.AppointmentStatusNoShow {
			s.notifyNoShow(ctx, apt)
		}
	}

	s.logger.Info("appointment sweep finished", "examined", len(due), "updated", updated)
	return updated, nil
}

func (s *Service) GetStatusRecommendation(ctx context.Context, id uuid.UUID) (*model.StatusRecommendation, error) {
	apt, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return Recommend(apt, s.now()), nil
}

// UpdateStatus applies a manual status change by actorID.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, next model.AppointmentStatus, actorID uuid.UUID, reason string) (*model.Appointment, error) {
	if !next.Valid() {
		return nil, errors.NewValidation(fmt.Sprintf("unknown appointment status %q", next), nil)
	}

	apt, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !IsValidStatusTransition(apt.Status, next) {
		return nil, errors.NewValidation(fmt.Sprintf("cannot change appointment status from %s to %s", apt.Status, next), nil)
	}

	if err := s.transition(ctx, apt, next, reason, &actorID); err != nil {
		return nil, errors.NewInternal(err)
	}
	return apt, nil
}

// transition writes, audits and publishes one status change. actorID nil marks it automatic.
func (s *Service) transition(ctx context.Context, apt *model.Appointment, next model.AppointmentStatus, reason string, actorID *uuid.UUID) error {
	prev := apt.Status
	if err := s.repo.UpdateStatus(ctx, apt.ID, next); err != nil {
		return err
	}
	apt.Status = next
	apt.UpdatedAt = s.now()
	automatic := actorID == nil

	err := s.auditor.Log(ctx, actorID, model.AuditActionStatusChange, model.AuditResourceAppointment, apt.ID, &audit.LogOptions{
		Details: map[string]interface{}{
			"oldStatus": prev,
			"newStatus": next,
			"reason":    reason,
		},
		Automatic: automatic,
	})
	if err != nil {
		// The status write already happened; the change stands without its audit entry.
		s.logger.Error(err, "failed to audit status change", "appointment_id", apt.ID.String())
	}

	payload := map[string]interface{}{
		"appointment_id": apt.ID,
		"patient_id":     apt.PatientID,
		"clinician_id":   apt.ClinicianID,
		"old_status":     prev,
		"new_status":     next,
		"reason":         reason,
		"automatic":      automatic,
	}
	if err := s.publisher.Publish(ctx, realtime.EventAppointmentStatusChanged, payload, realtime.Global()); err != nil {
		s.logger.Warn("failed to publish status change", "error", err.Error())
	}
	return nil
}

func (s *Service) notifyNoShow(ctx context.Context, apt *model.Appointment) {
	if s.notifier == nil {
		return
	}
	name := s.patientName(ctx, apt.PatientID)

	data := model.PatientData{
		PatientID:   apt.PatientID,
		PatientName: name,
		UpdateType:  "no_show",
		Details:     fmt.Sprintf("Appointment on %s was marked as a no-show", apt.AppointmentDate.UTC().Format(time.RFC1123)),
	}
	if _, err := s.notifier.SendPatientUpdate(ctx, apt.ClinicianID, data, fmt.Sprintf("%s missed their appointment", name)); err != nil {
		s.logger.Warn("failed to notify clinician of no-show", "error", err.Error(), "appointment_id", apt.ID.String())
	}
}

func (s *Service) patientName(ctx context.Context, id uuid.UUID) string {
	if p, err := s.patients.Get(ctx, id); err == nil {
		return p.Name
	}
	return "Patient"
}

func (s *Service) get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NewNotFound("appointment", err)
		}
		return nil, errors.NewInternal(err)
	}
	return apt, nil
}

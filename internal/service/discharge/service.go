package discharge

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
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

// Notifier is the slice of the notification service the discharge engine talks to.
type Notifier interface {
	SendTreatmentCompletion(ctx context.Context, userID, patientID uuid.UUID, patientName, reason string) (*model.Notification, error)
	SendDischargeReminder(ctx context.Context, userID, patientID uuid.UUID, patientName string, criteria []string) (*model.Notification, error)
	SendDischargeRequestSubmitted(ctx context.Context, userID, patientID uuid.UUID, patientName string, req model.DischargeRequest) (*model.Notification, error)
	SendDischargeRequestReviewed(ctx context.Context, userID, patientID uuid.UUID, patientName string, req model.DischargeRequest) (*model.Notification, error)
}

type Service struct {
	patients  repository.PatientRepository
	records   repository.TreatmentRecordRepository
	users     repository.UserRepository
	auditor   *audit.Service
	publisher realtime.Publisher
	notifier  Notifier
	metrics   *metrics.Metrics
	logger    *logger.Logger
	now       func() time.Time
}

func NewService(
	patients repository.PatientRepository,
	records repository.TreatmentRecordRepository,
	users repository.UserRepository,
	auditor *audit.Service,
	publisher realtime.Publisher,
	notifier Notifier,
	m *metrics.Metrics,
	log *logger.Logger,
) *Service {
	return &Service{
		patients:  patients,
		records:   records,
		users:     users,
		auditor:   auditor,
		publisher: publisher,
		notifier:  notifier,
		metrics:   m,
		logger:    log.With("discharge"),
		now:       time.Now,
	}
}

// CheckForAutoDischarge evaluates the patient without changing anything.
func (s *Service) CheckForAutoDischarge(ctx context.Context, patientID uuid.UUID) (*model.Eligibility, error) {
	patient, err := s.getPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return s.evaluate(ctx, patient)
}

func (s *Service) evaluate(ctx context.Context, patient *model.Patient) (*model.Eligibility, error) {
	var records []*model.TreatmentRecord
	if !patient.Status.Archived() {
		var err error
		records, err = s.records.ListByPatient(ctx, patient.ID)
		if err != nil {
			return nil, errors.NewInternal(fmt.Errorf("failed to load treatment records: %w", err))
		}
	}

	result := Evaluate(patient, records, s.now())
	outcome := "not_eligible"
	switch {
	case patient.Status.Archived():
		outcome = "archived"
	case result.ShouldDischarge:
		outcome = "eligible"
	}
	s.metrics.DischargeEvaluations.WithLabelValues(outcome).Inc()
	return result, nil
}

// AutoDischargePatient discharges the patient when the criteria hold. There is no
// compare-and-swap: two concurrent callers may both discharge the same patient.
func (s *Service) AutoDischargePatient(ctx context.Context, patientID uuid.UUID) (*model.DischargeResult, error) {
	patient, err := s.getPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	check, err := s.evaluate(ctx, patient)
	if err != nil {
		return nil, err
	}
	if !check.ShouldDischarge {
		return &model.DischargeResult{Success: false, Reason: ReasonNotMet, Criteria: check.Criteria}, nil
	}

	if err := s.discharge(ctx, patient, check.Reason, nil, check.Criteria); err != nil {
		return nil, err
	}

	if patient.AssignedClinicianID != nil {
		if _, err := s.notifier.SendTreatmentCompletion(ctx, *patient.AssignedClinicianID, patient.ID, patient.Name, check.Reason); err != nil {
			s.logger.Warn("failed to notify clinician of discharge", "error", err.Error(), "patient_id", patient.ID.String())
		}
	}

	return &model.DischargeResult{Success: true, Reason: check.Reason, Criteria: check.Criteria}, nil
}

// ManualDischarge discharges a patient on a staff decision, regardless of the criteria.
func (s *Service) ManualDischarge(ctx context.Context, patientID, actorID uuid.UUID, reason string) (*model.Patient, error) {
	patient, err := s.getPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if patient.Status == model.PatientStatusDischarged {
		return nil, errors.NewValidation("patient is already discharged", nil)
	}
	if err := s.discharge(ctx, patient, reason, &actorID, nil); err != nil {
		return nil, err
	}
	return patient, nil
}

// discharge writes the terminal state. actorID nil marks an automatic discharge.
func (s *Service) discharge(ctx context.Context, patient *model.Patient, reason string, actorID *uuid.UUID, criteria []string) error {
	now := s.now()
	automatic := actorID == nil

	patient.Status = model.PatientStatusDischarged
	patient.DischargeCriteria.AutoDischarge = automatic
	patient.DischargeCriteria.DischargeReason = reason
	patient.DischargeCriteria.DischargeDate = &now
	if err := s.patients.Update(ctx, patient); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to discharge patient: %w", err))
	}

	mode := "manual"
	if automatic {
		mode = "automatic"
	}
	s.metrics.Discharges.WithLabelValues(mode).Inc()
	s.logger.Info("patient discharged", "patient_id", patient.ID.String(), "mode", mode)

	details := map[string]interface{}{"reason": reason, "mode": mode}
	if criteria != nil {
		details["criteria"] = criteria
	}
	s.audit(ctx, actorID, model.AuditActionDischarge, patient.ID, details, automatic)

	s.publish(ctx, realtime.EventPatientDischarged, map[string]interface{}{
		"patient_id":     patient.ID,
		"reason":         reason,
		"auto_discharge": automatic,
		"discharge_date": now,
	})
	return nil
}

// CalculateTreatmentCompletionRate scans every patient and re-evaluates the active ones. It is
// meant for reports and periodic jobs.
func (s *Service) CalculateTreatmentCompletionRate(ctx context.Context) (*model.CompletionRate, error) {
	patients, err := s.patients.List(ctx, nil)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to list patients: %w", err))
	}

	rate := &model.CompletionRate{TotalCount: len(patients)}
	for _, p := range patients {
		switch p.Status {
		case model.PatientStatusDischarged:
			rate.DischargedCount++
			if p.DischargeCriteria.AutoDischarge {
				rate.Breakdown.Automatic++
			} else {
				rate.Breakdown.Manual++
			}
		case model.PatientStatusActive:
			rate.Breakdown.Active++
			check, err := s.evaluate(ctx, p)
			if err != nil {
				return nil, err
			}
			if check.ShouldDischarge {
				rate.Breakdown.EligibleNotDischarged++
			}
		}
	}

	if rate.TotalCount > 0 {
		rate.Rate = math.Round(float64(rate.DischargedCount)/float64(rate.TotalCount)*10000) / 100
	}
	return rate, nil
}

// SweepActivePatients runs AutoDischargePatient over every active patient and returns how many
// were discharged. A failing patient is logged and skipped.
func (s *Service) SweepActivePatients(ctx context.Context) (int, error) {
	patients, err := s.patients.List(ctx, &model.PatientFilters{Status: model.PatientStatusActive})
	if err != nil {
		return 0, fmt.Errorf("failed to list active patients: %w", err)
	}

	discharged := 0
	for _, p := range patients {
		if ctx.Err() != nil {
			return discharged, ctx.Err()
		}
		result, err := s.AutoDischargePatient(ctx, p.ID)
		if err != nil {
			s.logger.Error(err, "discharge sweep failed for patient", "patient_id", p.ID.String())
			continue
		}
		if result.Success {
			discharged++
		}
	}

	s.logger.Info("discharge sweep finished", "examined", len(patients), "discharged", discharged)
	return discharged, nil
}

// UpdateTreatmentGoal changes one goal. It never evaluates discharge itself; callers cascade when
// ShouldCheckDischarge is set.
func (s *Service) UpdateTreatmentGoal(ctx context.Context, patientID uuid.UUID, goalIndex int, update model.GoalUpdate, actorID uuid.UUID) (*model.GoalUpdateResult, error) {
	if update.Status != nil && !update.Status.Valid() {
		return nil, errors.NewValidation(fmt.Sprintf("unknown goal status %q", *update.Status), nil)
	}

	patient, err := s.getPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if goalIndex < 0 || goalIndex >= len(patient.TreatmentGoals) {
		return nil, errors.NewNotFound("treatment goal", fmt.Errorf("goal index %d out of range", goalIndex))
	}

	goal := &patient.TreatmentGoals[goalIndex]
	previous := goal.Status
	if update.Status != nil {
		goal.Status = *update.Status
	}
	if update.AchievedDate != nil {
		goal.AchievedDate = update.AchievedDate
	} else if goal.Status == model.GoalStatusAchieved && previous != model.GoalStatusAchieved {
		now := s.now()
		goal.AchievedDate = &now
	}
	if update.Notes != nil {
		goal.Notes = *update.Notes
	}

	if err := s.patients.Update(ctx, patient); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to update treatment goal: %w", err))
	}

	s.audit(ctx, &actorID, model.AuditActionGoalUpdate, patient.ID, map[string]interface{}{
		"goalIndex": goalIndex,
		"oldStatus": previous,
		"newStatus": goal.Status,
	}, false)
	s.publish(ctx, realtime.EventPatientGoalUpdated, map[string]interface{}{
		"patient_id": patient.ID,
		"goal_index": goalIndex,
		"goal":       goal,
	})

	return &model.GoalUpdateResult{
		Success:              true,
		ShouldCheckDischarge: update.Status != nil && *update.Status == model.GoalStatusAchieved,
		Goal:                 *goal,
	}, nil
}

// RemindIfEligible evaluates the patient and, when eligible, asks the assigned clinician to
// review a discharge.
func (s *Service) RemindIfEligible(ctx context.Context, patientID uuid.UUID) (*model.Eligibility, error) {
	patient, err := s.getPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	check, err := s.evaluate(ctx, patient)
	if err != nil {
		return nil, err
	}
	if check.ShouldDischarge && patient.AssignedClinicianID != nil {
		if _, err := s.notifier.SendDischargeReminder(ctx, *patient.AssignedClinicianID, patient.ID, patient.Name, check.Criteria); err != nil {
			s.logger.Warn("failed to send discharge reminder", "error", err.Error(), "patient_id", patient.ID.String())
		}
	}
	return check, nil
}

func (s *Service) getPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	patient, err := s.patients.Get(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NewNotFound("patient", err)
		}
		return nil, errors.NewInternal(err)
	}
	return patient, nil
}

func (s *Service) audit(ctx context.Context, actorID *uuid.UUID, action string, patientID uuid.UUID, details map[string]interface{}, automatic bool) {
	err := s.auditor.Log(ctx, actorID, action, model.AuditResourcePatient, patientID, &audit.LogOptions{
		Details:   details,
		Automatic: automatic,
	})
	if err != nil {
		s.logger.Error(err, "failed to audit patient change", "patient_id", patientID.String(), "action", action)
	}
}

func (s *Service) publish(ctx context.Context, event string, payload interface{}) {
	if err := s.publisher.Publish(ctx, event, payload, realtime.Global()); err != nil {
		s.logger.Warn("failed to publish patient event", "error", err.Error(), "event", event)
	}
}

package discharge

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/realtime"
	"github.com/jwalitptl/practice-api/pkg/errors"
)

// reviewers receive a notification for every new discharge request.
var reviewers = []model.Role{model.RoleAdmin, model.RoleSupervisor}

// RequestDischarge files a pending discharge request on the patient.
func (s *Service) RequestDischarge(ctx context.Context, patientID, requestedBy uuid.UUID, reason string) (*model.DischargeRequest, error) {
	patient, err := s.getPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if patient.Status.Archived() {
		return nil, errors.NewValidation("cannot request discharge for an archived patient", nil)
	}
	for _, r := range patient.DischargeRequests {
		if r.Status == model.DischargeRequestPending {
			return nil, errors.NewValidation("patient already has a pending discharge request", nil)
		}
	}

	req := model.DischargeRequest{
		ID:          uuid.New(),
		RequestedBy: requestedBy,
		RequestedAt: s.now(),
		Reason:      reason,
		Status:      model.DischargeRequestPending,
	}
	patient.DischargeRequests = append(patient.DischargeRequests, req)
	if err := s.patients.Update(ctx, patient); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to save discharge request: %w", err))
	}

	s.audit(ctx, &requestedBy, model.AuditActionDischargeRequest, patient.ID, map[string]interface{}{
		"requestId": req.ID,
		"reason":    reason,
	}, false)
	s.publish(ctx, realtime.EventDischargeRequestCreated, map[string]interface{}{
		"patient_id": patient.ID,
		"request":    req,
	})

	staff, err := s.users.ListByRoles(ctx, reviewers...)
	if err != nil {
		s.logger.Error(err, "failed to load discharge reviewers", "patient_id", patient.ID.String())
		return &req, nil
	}
	for _, u := range staff {
		if _, err := s.notifier.SendDischargeRequestSubmitted(ctx, u.ID, patient.ID, patient.Name, req); err != nil {
			s.logger.Warn("failed to notify reviewer", "error", err.Error(), "user_id", u.ID.String())
		}
	}
	return &req, nil
}

// ReviewDischargeRequest approves or denies a pending request. Approval discharges the patient.
func (s *Service) ReviewDischargeRequest(ctx context.Context, patientID, requestID, reviewerID uuid.UUID, approve bool, notes string) (*model.DischargeRequest, error) {
	patient, err := s.getPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range patient.DischargeRequests {
		if patient.DischargeRequests[i].ID == requestID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, errors.NewNotFound("discharge request", fmt.Errorf("request %s not found", requestID))
	}
	req := &patient.DischargeRequests[idx]
	if req.Status != model.DischargeRequestPending {
		return nil, errors.NewValidation(fmt.Sprintf("discharge request was already %s", req.Status), nil)
	}

	// Checked before the request is touched so a refused approval leaves it pending for a denial.
	if approve && patient.Status == model.PatientStatusDischarged {
		return nil, errors.NewValidation("patient is already discharged", nil)
	}

	now := s.now()
	req.Status = model.DischargeRequestDenied
	if approve {
		req.Status = model.DischargeRequestApproved
	}
	req.ReviewedBy = &reviewerID
	req.ReviewedAt = &now
	req.ReviewNotes = notes
	reviewed := *req

	if approve {
		// discharge persists the request change with the patient.
		if err := s.discharge(ctx, patient, reviewed.Reason, &reviewerID, nil); err != nil {
			return nil, err
		}
	} else if err := s.patients.Update(ctx, patient); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to save discharge review: %w", err))
	}

	s.audit(ctx, &reviewerID, model.AuditActionDischargeReview, patient.ID, map[string]interface{}{
		"requestId": reviewed.ID,
		"status":    reviewed.Status,
		"notes":     notes,
	}, false)
	s.publish(ctx, realtime.EventDischargeRequestReviewed, map[string]interface{}{
		"patient_id": patient.ID,
		"request":    reviewed,
	})

	if _, err := s.notifier.SendDischargeRequestReviewed(ctx, reviewed.RequestedBy, patient.ID, patient.Name, reviewed); err != nil {
		s.logger.Warn("failed to notify requester", "error", err.Error(), "user_id", reviewed.RequestedBy.String())
	}
	return &reviewed, nil
}

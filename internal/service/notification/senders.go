package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/email"
	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/pkg/errors"
)

const (
	dateLayout  = "Monday, January 2, 2006"
	clockLayout = "3:04 PM"
)

func (s *Service) SendAppointmentReminder(ctx context.Context, userID uuid.UUID, data model.AppointmentData) (*model.Notification, error) {
	at := data.AppointmentDate.In(s.config.Location)
	return s.CreateNotification(ctx, CreateParams{
		UserID:  userID,
		Type:    model.NotificationAppointmentReminder,
		Title:   "Appointment Reminder",
		Message: fmt.Sprintf("You have an appointment with %s on %s at %s", data.PatientName, at.Format(dateLayout), at.Format(clockLayout)),
		Data:    model.NotificationData{AppointmentData: &data},
	})
}

func (s *Service) SendPatientUpdate(ctx context.Context, userID uuid.UUID, data model.PatientData, message string) (*model.Notification, error) {
	return s.CreateNotification(ctx, CreateParams{
		UserID:  userID,
		Type:    model.NotificationPatientUpdate,
		Title:   fmt.Sprintf("Patient Update: %s", data.PatientName),
		Message: message,
		Data:    model.NotificationData{PatientData: &data},
	})
}

func (s *Service) SendSystemAlert(ctx context.Context, userID uuid.UUID, data model.AlertData) (*model.Notification, error) {
	if data.Severity == "" {
		data.Severity = model.AlertSeverityInfo
	}
	return s.CreateNotification(ctx, CreateParams{
		UserID:  userID,
		Type:    model.NotificationSystemAlert,
		Title:   fmt.Sprintf("System Alert: %s", data.Title),
		Message: data.Description,
		Data:    model.NotificationData{AlertData: &data},
	})
}

func (s *Service) SendTreatmentCompletion(ctx context.Context, userID, patientID uuid.UUID, patientName, reason string) (*model.Notification, error) {
	return s.CreateNotification(ctx, CreateParams{
		UserID:  userID,
		Type:    model.NotificationTreatmentCompletion,
		Title:   "Treatment Completed",
		Message: fmt.Sprintf("%s has been discharged: %s", patientName, reason),
		Data: model.NotificationData{Extra: map[string]interface{}{
			"patient_id":   patientID,
			"patient_name": patientName,
			"reason":       reason,
		}},
	})
}

func (s *Service) SendDischargeReminder(ctx context.Context, userID, patientID uuid.UUID, patientName string, criteria []string) (*model.Notification, error) {
	return s.CreateNotification(ctx, CreateParams{
		UserID:  userID,
		Type:    model.NotificationDischargeReminder,
		Title:   "Discharge Review Recommended",
		Message: fmt.Sprintf("%s meets discharge criteria: %s", patientName, strings.Join(criteria, "; ")),
		Data: model.NotificationData{Extra: map[string]interface{}{
			"patient_id":   patientID,
			"patient_name": patientName,
			"criteria":     criteria,
		}},
	})
}

func (s *Service) SendInquiryNotification(ctx context.Context, userID uuid.UUID, inquiry model.InquiryData) (*model.Notification, error) {
	return s.CreateNotification(ctx, CreateParams{
		UserID:  userID,
		Type:    model.NotificationInquiryReceived,
		Title:   fmt.Sprintf("New Inquiry from %s", inquiry.Name),
		Message: inquiry.Message,
		Data: model.NotificationData{Extra: map[string]interface{}{
			"inquiry_id": inquiry.InquiryID,
			"name":       inquiry.Name,
			"email":      inquiry.Email,
			"phone":      inquiry.Phone,
		}},
	})
}

// SendStaffInvitation emails an invitee directly. There is no in-app record because the invitee
// has no account yet.
func (s *Service) SendStaffInvitation(ctx context.Context, invite model.StaffInvitation) error {
	if strings.TrimSpace(invite.Email) == "" {
		return errors.NewValidation("invitation email is required", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.EmailTimeout)
	defer cancel()

	err := s.email.Send(ctx, model.NotificationStaffInvitation, email.Recipient{Email: invite.Email, Name: invite.Name}, email.Content{
		Title: "Staff Invitation",
		Data:  &invite,
	})
	result := emailSent
	if err != nil {
		result = emailFailed
	}
	s.metrics.EmailDeliveries.WithLabelValues(string(model.NotificationStaffInvitation), result).Inc()
	if err != nil {
		return errors.NewDependency("email", err)
	}
	return nil
}

func (s *Service) SendDischargeRequestSubmitted(ctx context.Context, userID, patientID uuid.UUID, patientName string, req model.DischargeRequest) (*model.Notification, error) {
	return s.CreateNotification(ctx, CreateParams{
		UserID:  userID,
		Type:    model.NotificationDischargeRequestSubmitted,
		Title:   "Discharge Request Submitted",
		Message: fmt.Sprintf("A discharge request for %s is awaiting review: %s", patientName, req.Reason),
		Data: model.NotificationData{Extra: map[string]interface{}{
			"patient_id":   patientID,
			"patient_name": patientName,
			"request_id":   req.ID,
			"requested_by": req.RequestedBy,
		}},
	})
}

func (s *Service) SendDischargeRequestReviewed(ctx context.Context, userID, patientID uuid.UUID, patientName string, req model.DischargeRequest) (*model.Notification, error) {
	verdict := "denied"
	if req.Status == model.DischargeRequestApproved {
		verdict = "approved"
	}
	message := fmt.Sprintf("Your discharge request for %s was %s", patientName, verdict)
	if req.ReviewNotes != "" {
		message += ": " + req.ReviewNotes
	}

	return s.CreateNotification(ctx, CreateParams{
		UserID:  userID,
		Type:    model.NotificationDischargeRequestReviewed,
		Title:   fmt.Sprintf("Discharge Request %s", strings.ToUpper(verdict[:1])+verdict[1:]),
		Message: message,
		Data: model.NotificationData{Extra: map[string]interface{}{
			"patient_id":   patientID,
			"patient_name": patientName,
			"request_id":   req.ID,
			"status":       req.Status,
		}},
	})
}

package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationAppointmentReminder       NotificationType = "appointment_reminder"
	NotificationPatientUpdate             NotificationType = "patient_update"
	NotificationSystemAlert               NotificationType = "system_alert"
	NotificationTreatmentCompletion       NotificationType = "treatment_completion"
	NotificationDischargeReminder         NotificationType = "discharge_reminder"
	NotificationInquiryReceived           NotificationType = "inquiry_received"
	NotificationStaffInvitation           NotificationType = "staff_invitation"
	NotificationDischargeRequestSubmitted NotificationType = "discharge_request_submitted"
	NotificationDischargeRequestReviewed  NotificationType = "discharge_request_reviewed"
	NotificationGeneral                   NotificationType = "general"
)

var notificationTypes = map[NotificationType]struct{}{
	NotificationAppointmentReminder:       {},
	NotificationPatientUpdate:             {},
	NotificationSystemAlert:               {},
	NotificationTreatmentCompletion:       {},
	NotificationDischargeReminder:         {},
	NotificationInquiryReceived:           {},
	NotificationStaffInvitation:           {},
	NotificationDischargeRequestSubmitted: {},
	NotificationDischargeRequestReviewed:  {},
	NotificationGeneral:                   {},
}

func (t NotificationType) Valid() bool {
	_, ok := notificationTypes[t]
	return ok
}

type Notification struct {
	ID        uuid.UUID        `db:"id" json:"id"`
	UserID    uuid.UUID        `db:"user_id" json:"user_id"`
	Type      NotificationType `db:"type" json:"type"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	Data      NotificationData `db:"data" json:"data"`
	Read      bool             `db:"read" json:"read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	ExpiresAt *time.Time       `db:"expires_at" json:"expires_at,omitempty"`
}

// NotificationData is the typed payload. Appointment reminders, patient updates and system
// alerts need their matching sub-object for the email step.
type NotificationData struct {
	AppointmentData *AppointmentData       `json:"appointment_data,omitempty"`
	PatientData     *PatientData           `json:"patient_data,omitempty"`
	AlertData       *AlertData             `json:"alert_data,omitempty"`
	Extra           map[string]interface{} `json:"extra,omitempty"`
}

func (d NotificationData) Value() (driver.Value, error) { return jsonValue(d) }
func (d *NotificationData) Scan(src interface{}) error   { return jsonScan(src, d) }

type AppointmentData struct {
	AppointmentID   uuid.UUID `json:"appointment_id"`
	PatientName     string    `json:"patient_name"`
	ClinicianName   string    `json:"clinician_name,omitempty"`
	AppointmentDate time.Time `json:"appointment_date"`
	Duration        int       `json:"duration,omitempty"`
	Type            string    `json:"type,omitempty"`
}

type PatientData struct {
	PatientID   uuid.UUID `json:"patient_id"`
	PatientName string    `json:"patient_name"`
	UpdateType  string    `json:"update_type"`
	Details     string    `json:"details,omitempty"`
}

type AlertSeverity string

const (
	AlertSeverityInfo     AlertSeverity = "info"
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityCritical AlertSeverity = "critical"
)

type AlertData struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Severity    AlertSeverity `json:"severity"`
	ActionURL   string        `json:"action_url,omitempty"`
}

type InquiryData struct {
	InquiryID uuid.UUID `json:"inquiry_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Message   string    `json:"message"`
}

type StaffInvitation struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	InviteLink string `json:"invite_link"`
	InvitedBy  string `json:"invited_by,omitempty"`
	ClinicName string `json:"clinic_name,omitempty"`
}

type NotificationListOptions struct {
	UnreadOnly bool             `form:"unread_only"`
	Limit      int              `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset     int              `form:"offset" binding:"omitempty,min=0"`
	Type       NotificationType `form:"type"`
}

type NotificationStats struct {
	Total  int64                      `json:"total"`
	Unread int64                      `json:"unread"`
	ByType map[NotificationType]int64 `json:"by_type"`
}

type ReminderTiming string

const (
	ReminderTiming15Min  ReminderTiming = "15min"
	ReminderTiming30Min  ReminderTiming = "30min"
	ReminderTiming1Hour  ReminderTiming = "1hour"
	ReminderTiming2Hours ReminderTiming = "2hours"
	ReminderTiming1Day   ReminderTiming = "1day"
)

var reminderLeads = map[ReminderTiming]time.Duration{
	ReminderTiming15Min:  15 * time.Minute,
	ReminderTiming30Min:  30 * time.Minute,
	ReminderTiming1Hour:  time.Hour,
	ReminderTiming2Hours: 2 * time.Hour,
	ReminderTiming1Day:   24 * time.Hour,
}

// MaxReminderLead is the longest lead any timing asks for.
const MaxReminderLead = 24 * time.Hour

// Lead is how long before an appointment the reminder goes out. Unknown timings fall back to
// one hour, the default preference.
func (t ReminderTiming) Lead() time.Duration {
	if d, ok := reminderLeads[t]; ok {
		return d
	}
	return time.Hour
}

// QuietHours is a daily window, HH:MM in the clinic time zone. Start after End wraps midnight.
type QuietHours struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start" binding:"required,hhmm" validate:"required,hhmm"`
	End     string `json:"end" binding:"required,hhmm" validate:"required,hhmm"`
}

func (q QuietHours) Value() (driver.Value, error) { return jsonValue(q) }
func (q *QuietHours) Scan(src interface{}) error   { return jsonScan(src, q) }

type UpdatePreferencesRequest struct {
	EmailNotifications   *bool           `json:"email_notifications"`
	AppointmentReminders *bool           `json:"appointment_reminders"`
	PatientUpdates       *bool           `json:"patient_updates"`
	SystemAlerts         *bool           `json:"system_alerts"`
	ReminderTiming       *ReminderTiming `json:"reminder_timing" binding:"omitempty,oneof=15min 30min 1hour 2hours 1day"`
	QuietHours           *QuietHours     `json:"quiet_hours"`
}

type NotificationPreferences struct {
	UserID               uuid.UUID      `db:"user_id" json:"user_id"`
	EmailNotifications   bool           `db:"email_notifications" json:"email_notifications"`
	AppointmentReminders bool           `db:"appointment_reminders" json:"appointment_reminders"`
	PatientUpdates       bool           `db:"patient_updates" json:"patient_updates"`
	SystemAlerts         bool           `db:"system_alerts" json:"system_alerts"`
	ReminderTiming       ReminderTiming `db:"reminder_timing" json:"reminder_timing" binding:"required,oneof=15min 30min 1hour 2hours 1day" validate:"required,oneof=15min 30min 1hour 2hours 1day"`
	QuietHours           QuietHours     `db:"quiet_hours" json:"quiet_hours" binding:"required" validate:"required"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updated_at"`
}

// DefaultNotificationPreferences is what a user gets before saving any preferences.
func DefaultNotificationPreferences(userID uuid.UUID) *NotificationPreferences {
	return &NotificationPreferences{
		UserID:               userID,
		EmailNotifications:   true,
		AppointmentReminders: true,
		PatientUpdates:       true,
		SystemAlerts:         true,
		ReminderTiming:       ReminderTiming1Hour,
		QuietHours: QuietHours{
			Enabled: false,
			Start:   "22:00",
			End:     "08:00",
		},
	}
}

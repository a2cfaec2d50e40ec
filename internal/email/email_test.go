package email

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/pkg/logger"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewRegistry("Riverside Counseling", time.UTC)
	require.NoError(t, err)
	return reg
}

func TestRender_AppointmentReminder(t *testing.T) {
	reg := newRegistry(t)
	when := time.Date(2026, 3, 9, 14, 30, 0, 0, time.UTC)

	out, err := reg.Render(model.NotificationAppointmentReminder, Recipient{Email: "dr@clinic.test", Name: "Dr. Lee"}, Content{
		Title: "Appointment Reminder",
		Data: &model.AppointmentData{
			AppointmentID:   uuid.New(),
			PatientName:     "Sam Park",
			AppointmentDate: when,
			Duration:        50,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Appointment reminder: Sam Park", out.Subject)
	assert.Contains(t, out.Text, "Hello Dr. Lee")
	assert.Contains(t, out.Text, "Monday, March 9, 2026 at 2:30 PM")
	assert.Contains(t, out.Text, "Duration: 50 minutes")
	assert.Contains(t, out.HTML, "<strong>Sam Park</strong>")
}

func TestRender_SystemAlertSubject(t *testing.T) {
	out, err := newRegistry(t).Render(model.NotificationSystemAlert, Recipient{Email: "a@b.c"}, Content{
		Data: &model.AlertData{Title: "Backup failed", Description: "Nightly backup failed", Severity: model.AlertSeverityCritical},
	})
	require.NoError(t, err)
	assert.Equal(t, "[CRITICAL] Backup failed", out.Subject)
	assert.Contains(t, out.Text, "Hello there")
}

func TestRender_FallsBackToGeneric(t *testing.T) {
	out, err := newRegistry(t).Render(model.NotificationTreatmentCompletion, Recipient{Email: "a@b.c", Name: "Kim"}, Content{
		Title:   "Treatment Completed",
		Message: "Sam <Park> has been discharged",
	})
	require.NoError(t, err)
	assert.Equal(t, "Treatment Completed", out.Subject)
	assert.Contains(t, out.Text, "Sam <Park> has been discharged")
	assert.Contains(t, out.HTML, "Sam &lt;Park&gt; has been discharged")
	assert.Contains(t, out.Text, "Riverside Counseling")
}

type fakeDialer struct {
	err   error
	delay time.Duration
	sent  []*gomail.Message
}

func (f *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func newSMTP(t *testing.T, d *fakeDialer) *SMTPService {
	svc := NewSMTPService(SMTPConfig{FromAddress: "noreply@clinic.test", FromName: "Clinic"}, newRegistry(t), logger.Nop())
	svc.dialer = d
	return svc
}

func TestSMTPService_Send(t *testing.T) {
	d := &fakeDialer{}
	svc := newSMTP(t, d)

	err := svc.Send(context.Background(), model.NotificationGeneral, Recipient{Email: "kim@clinic.test"}, Content{Title: "Hi", Message: "There"})
	require.NoError(t, err)
	require.Len(t, d.sent, 1)
	assert.Equal(t, []string{"Hi"}, d.sent[0].GetHeader("Subject"))
	assert.Equal(t, []string{"kim@clinic.test"}, d.sent[0].GetHeader("To"))
}

func TestSMTPService_RequiresRecipient(t *testing.T) {
	svc := newSMTP(t, &fakeDialer{})
	err := svc.Send(context.Background(), model.NotificationGeneral, Recipient{}, Content{})
	assert.ErrorIs(t, err, ErrNoRecipient)
}

func TestSMTPService_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	d := &fakeDialer{err: errors.New("connection refused")}
	svc := newSMTP(t, d)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := svc.Send(ctx, model.NotificationGeneral, Recipient{Email: "x@y.z"}, Content{Title: "t"})
		assert.Error(t, err)
	}

	err := svc.Send(ctx, model.NotificationGeneral, Recipient{Email: "x@y.z"}, Content{Title: "t"})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestSMTPService_HonoursContextDeadline(t *testing.T) {
	svc := newSMTP(t, &fakeDialer{delay: 200 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := svc.Send(ctx, model.NotificationGeneral, Recipient{Email: "x@y.z"}, Content{Title: "t"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNopService(t *testing.T) {
	svc := NewNopService(logger.Nop())
	assert.NoError(t, svc.Send(context.Background(), model.NotificationGeneral, Recipient{Email: "x@y.z"}, Content{}))
	assert.ErrorIs(t, svc.Send(context.Background(), model.NotificationGeneral, Recipient{}, Content{}), ErrNoRecipient)
}

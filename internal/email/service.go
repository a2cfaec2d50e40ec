// Package email renders notification emails and hands them to an SMTP relay.
package email

import (
	"context"
	"errors"

	"github.com/jwalitptl/practice-api/internal/model"
)

var ErrNoRecipient = errors.New("email: recipient address is empty")

type Recipient struct {
	Email string
	Name  string
}

// Content is what a template renders. Data holds the typed payload for the kind, for
// example *model.AppointmentData for appointment reminders.
type Content struct {
	Title   string
	Message string
	Data    interface{}
}

type Service interface {
	Send(ctx context.Context, kind model.NotificationType, to Recipient, content Content) error
}

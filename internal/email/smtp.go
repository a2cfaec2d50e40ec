package email

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/pkg/circuitbreaker"
	"github.com/jwalitptl/practice-api/pkg/logger"
)

type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPService delivers rendered templates through an SMTP relay guarded by a circuit breaker.
type SMTPService struct {
	config   SMTPConfig
	dialer   dialer
	registry *Registry
	cb       *circuitbreaker.CircuitBreaker
	logger   *logger.Logger
}

func NewSMTPService(config SMTPConfig, registry *Registry, log *logger.Logger) *SMTPService {
	l := log.With("email")
	return &SMTPService{
		config:   config,
		dialer:   gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
		registry: registry,
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "smtp",
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		}),
		logger: l,
	}
}

// Send renders and delivers one email. gomail has no context support, so the dial runs in
// a goroutine and Send returns when ctx expires even if the relay is still talking.
func (s *SMTPService) Send(ctx context.Context, kind model.NotificationType, to Recipient, content Content) error {
	if to.Email == "" {
		return ErrNoRecipient
	}

	rendered, err := s.registry.Render(kind, to, content)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.config.FromAddress, s.config.FromName)
	if to.Name != "" {
		m.SetAddressHeader("To", to.Email, to.Name)
	} else {
		m.SetHeader("To", to.Email)
	}
	m.SetHeader("Subject", rendered.Subject)
	m.SetBody("text/plain", rendered.Text)
	m.AddAlternative("text/html", rendered.HTML)

	return s.cb.Execute(func() error {
		done := make(chan error, 1)
		go func() { done <- s.dialer.DialAndSend(m) }()

		select {
		case err := <-done:
			if err != nil {
				return fmt.Errorf("smtp send: %w", err)
			}
			s.logger.Debug("email sent", "kind", string(kind))
			return nil
		case <-ctx.Done():
			return fmt.Errorf("smtp send: %w", ctx.Err())
		}
	})
}

// NopService accepts every email without sending it. Used when SMTP is disabled.
type NopService struct {
	logger *logger.Logger
}

func NewNopService(log *logger.Logger) *NopService {
	return &NopService{logger: log.With("email")}
}

func (s *NopService) Send(_ context.Context, kind model.NotificationType, to Recipient, _ Content) error {
	if to.Email == "" {
		return ErrNoRecipient
	}
	s.logger.Debug("email delivery disabled, skipping", "kind", string(kind))
	return nil
}

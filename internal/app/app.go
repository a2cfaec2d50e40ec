// Package app wires the practice core from configuration. Both the API server and the
// worker build on it so they share one service graph.
package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jwalitptl/practice-api/internal/config"
	"github.com/jwalitptl/practice-api/internal/email"
	"github.com/jwalitptl/practice-api/internal/realtime"
	"github.com/jwalitptl/practice-api/internal/repository"
	"github.com/jwalitptl/practice-api/internal/repository/postgres"
	"github.com/jwalitptl/practice-api/internal/service/appointment"
	"github.com/jwalitptl/practice-api/internal/service/audit"
	"github.com/jwalitptl/practice-api/internal/service/discharge"
	"github.com/jwalitptl/practice-api/internal/service/notification"
	"github.com/jwalitptl/practice-api/pkg/logger"
	"github.com/jwalitptl/practice-api/pkg/messaging"
	"github.com/jwalitptl/practice-api/pkg/messaging/redis"
	"github.com/jwalitptl/practice-api/pkg/metrics"
	"github.com/jwalitptl/practice-api/pkg/validator"
)

type Repositories struct {
	Appointments  repository.AppointmentRepository
	Patients      repository.PatientRepository
	Records       repository.TreatmentRecordRepository
	Notifications repository.NotificationRepository
	Preferences   repository.PreferenceRepository
	Users         repository.UserRepository
	Audit         repository.AuditRepository
}

type App struct {
	Config   *config.Config
	Logger   *logger.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	DB       *sqlx.DB
	Broker   messaging.Broker
	Repos    Repositories

	Auditor       *audit.Service
	Notifications *notification.Service
	Appointments  *appointment.Service
	Discharge     *discharge.Service
}

// New connects to postgres and redis and registers metrics. Services are built separately by
// WireServices because the publisher differs between processes.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, log.Zerolog())
	if err != nil {
		db.Close()
		return nil, err
	}

	return &App{
		Config:   cfg,
		Logger:   log,
		Registry: registry,
		Metrics:  metrics.NewMetrics(registry, cfg.Metrics.Namespace),
		DB:       db,
		Broker:   broker,
		Repos: Repositories{
			Appointments:  postgres.NewAppointmentRepository(db),
			Patients:      postgres.NewPatientRepository(db),
			Records:       postgres.NewTreatmentRecordRepository(db),
			Notifications: postgres.NewNotificationRepository(db),
			Preferences:   postgres.NewPreferenceRepository(db),
			Users:         postgres.NewUserRepository(db),
			Audit:         postgres.NewAuditRepository(db),
		},
	}, nil
}

// WireServices builds the engines on top of the repositories. Every live event goes to
// publisher.
func (a *App) WireServices(publisher realtime.Publisher) error {
	emailSvc, err := a.emailService()
	if err != nil {
		return err
	}

	a.Auditor = audit.NewService(a.Repos.Audit, publisher, a.Logger)
	a.Notifications = notification.NewService(
		a.Repos.Notifications,
		a.Repos.Preferences,
		a.Repos.Users,
		emailSvc,
		publisher,
		validator.New(),
		notification.Config{
			EmailTimeout:  a.Config.Notification.EmailTimeout,
			PreferenceTTL: a.Config.Notification.PreferenceCacheTTL,
			Location:      a.Config.Location(),
		},
		a.Metrics,
		a.Logger,
	)
	a.Appointments = appointment.NewService(
		a.Repos.Appointments,
		a.Repos.Patients,
		a.Auditor,
		publisher,
		a.Notifications,
		a.Metrics,
		a.Logger,
	)
	a.Discharge = discharge.NewService(
		a.Repos.Patients,
		a.Repos.Records,
		a.Repos.Users,
		a.Auditor,
		publisher,
		a.Notifications,
		a.Metrics,
		a.Logger,
	)
	return nil
}

func (a *App) emailService() (email.Service, error) {
	if !a.Config.SMTP.Enabled {
		a.Logger.Warn("smtp disabled, emails will only be logged")
		return email.NewNopService(a.Logger), nil
	}

	templates, err := email.NewRegistry(a.Config.Clinic.Name, a.Config.Location())
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}
	return email.NewSMTPService(email.SMTPConfig{
		Host:        a.Config.SMTP.Host,
		Port:        a.Config.SMTP.Port,
		Username:    a.Config.SMTP.Username,
		Password:    a.Config.SMTP.Password,
		FromAddress: a.Config.SMTP.FromAddress,
		FromName:    a.Config.SMTP.FromName,
	}, templates, a.Logger), nil
}

func (a *App) Close() {
	if err := a.Broker.Close(); err != nil {
		a.Logger.Error(err, "failed to close broker")
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.Error(err, "failed to close database")
	}
}

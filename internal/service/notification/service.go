package notification

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/practice-api/internal/email"
	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/realtime"
	"github.com/jwalitptl/practice-api/internal/repository"
	"github.com/jwalitptl/practice-api/pkg/errors"
	"github.com/jwalitptl/practice-api/pkg/logger"
	"github.com/jwalitptl/practice-api/pkg/metrics"
	"github.com/jwalitptl/practice-api/pkg/validator"
)

const (
	defaultEmailTimeout  = 10 * time.Second
	defaultPreferenceTTL = 5 * time.Minute
)

// email routing outcomes, used as the metrics result label
const (
	emailSent       = "sent"
	emailFailed     = "failed"
	emailSuppressed = "suppressed"
	emailSkipped    = "skipped"
	emailError      = "error"
)

type Config struct {
	EmailTimeout  time.Duration
	PreferenceTTL time.Duration
	// Location is the clinic time zone quiet hours are read in.
	Location *time.Location
}

type Service struct {
	repo      repository.NotificationRepository
	prefs     repository.PreferenceRepository
	users     repository.UserRepository
	email     email.Service
	publisher realtime.Publisher
	validator *validator.Validator
	cache     *cache.Cache
	config    Config
	metrics   *metrics.Metrics
	logger    *logger.Logger
	now       func() time.Time
}

func NewService(
	repo repository.NotificationRepository,
	prefs repository.PreferenceRepository,
	users repository.UserRepository,
	emailSvc email.Service,
	publisher realtime.Publisher,
	v *validator.Validator,
	config Config,
	m *metrics.Metrics,
	log *logger.Logger,
) *Service {
	if config.EmailTimeout <= 0 {
		config.EmailTimeout = defaultEmailTimeout
	}
	if config.PreferenceTTL <= 0 {
		config.PreferenceTTL = defaultPreferenceTTL
	}
	if config.Location == nil {
		config.Location = time.UTC
	}

	return &Service{
		repo:      repo,
		prefs:     prefs,
		users:     users,
		email:     emailSvc,
		publisher: publisher,
		validator: v,
		cache:     cache.New(config.PreferenceTTL, 2*config.PreferenceTTL),
		config:    config,
		metrics:   m,
		logger:    log.With("notification"),
		now:       time.Now,
	}
}

type CreateParams struct {
	UserID    uuid.UUID
	Type      model.NotificationType
	Title     string
	Message   string
	Data      model.NotificationData
	ExpiresAt *time.Time
}

// CreateNotification stores an unread notification, pushes it to the user's room and routes the
// email copy. Once the record is stored the call succeeds whatever happens to the email.
func (s *Service) CreateNotification(ctx context.Context, params CreateParams) (*model.Notification, error) {
	if params.UserID == uuid.Nil {
		return nil, errors.NewValidation("notification recipient is required", nil)
	}
	if !params.Type.Valid() {
		return nil, errors.NewValidation(fmt.Sprintf("unknown notification type %q", params.Type), nil)
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, errors.NewValidation("notification title is required", nil)
	}

	n := &model.Notification{
		ID:        uuid.New(),
		UserID:    params.UserID,
		Type:      params.Type,
		Title:     params.Title,
		Message:   params.Message,
		Data:      params.Data,
		CreatedAt: s.now().UTC(),
		ExpiresAt: params.ExpiresAt,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create notification: %w", err))
	}
	s.metrics.NotificationsCreated.WithLabelValues(string(n.Type)).Inc()

	if err := s.publisher.Publish(ctx, realtime.EventNotificationNew, n, realtime.Room(realtime.UserRoom(n.UserID))); err != nil {
		s.logger.Warn("failed to publish notification", "error", err.Error(), "notification_id", n.ID.String())
	}

	s.routeEmail(ctx, n)
	return n, nil
}

// routeEmail never fails the caller. Every outcome is logged and counted.
func (s *Service) routeEmail(ctx context.Context, n *model.Notification) {
	result := s.deliverEmail(ctx, n)
	s.metrics.EmailDeliveries.WithLabelValues(string(n.Type), result).Inc()
}

func (s *Service) deliverEmail(ctx context.Context, n *model.Notification) string {
	prefs, err := s.GetPreferences(ctx, n.UserID)
	if err != nil {
		s.logger.Error(err, "failed to load notification preferences", "user_id", n.UserID.String())
		return emailError
	}
	if !ShouldSendEmail(prefs, n.Type, s.now().In(s.config.Location)) {
		return emailSuppressed
	}

	payload, ok := emailPayload(n)
	if !ok {
		s.logger.Debug("typed payload missing, email skipped", "notification_id", n.ID.String(), "type", string(n.Type))
		return emailSkipped
	}

	user, err := s.users.Get(ctx, n.UserID)
	if err != nil {
		s.logger.Error(err, "failed to resolve email recipient", "user_id", n.UserID.String())
		return emailError
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.EmailTimeout)
	defer cancel()

	start := time.Now()
	err = s.email.Send(ctx, n.Type, email.Recipient{Email: user.Email, Name: user.Name}, email.Content{
		Title:   n.Title,
		Message: n.Message,
		Data:    payload,
	})
	s.metrics.EmailLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.Warn("email not sent", "error", err.Error(), "notification_id", n.ID.String(), "type", string(n.Type))
		return emailFailed
	}
	return emailSent
}

// emailPayload picks the data a template renders. Typed kinds without their sub-object report
// false so the email is skipped.
func emailPayload(n *model.Notification) (interface{}, bool) {
	switch n.Type {
	case model.NotificationAppointmentReminder:
		return n.Data.AppointmentData, n.Data.AppointmentData != nil
	case model.NotificationPatientUpdate:
		return n.Data.PatientData, n.Data.PatientData != nil
	case model.NotificationSystemAlert:
		return n.Data.AlertData, n.Data.AlertData != nil
	default:
		return n.Data.Extra, true
	}
}

func (s *Service) GetUserNotifications(ctx context.Context, userID uuid.UUID, opts *model.NotificationListOptions) ([]*model.Notification, int64, error) {
	if opts == nil {
		opts = &model.NotificationListOptions{}
	}
	if opts.Type != "" && !opts.Type.Valid() {
		return nil, 0, errors.NewValidation(fmt.Sprintf("unknown notification type %q", opts.Type), nil)
	}
	items, total, err := s.repo.List(ctx, userID, opts)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return items, total, nil
}

func (s *Service) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	if err := s.repo.MarkAsRead(ctx, id, userID); err != nil {
		return mapNotFound(err)
	}
	s.publishUser(ctx, realtime.EventNotificationRead, userID, map[string]interface{}{"notification_id": id})
	return nil
}

func (s *Service) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.repo.MarkAllAsRead(ctx, userID)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	if n > 0 {
		s.publishUser(ctx, realtime.EventNotificationRead, userID, map[string]interface{}{"all": true, "count": n})
	}
	return n, nil
}

func (s *Service) DeleteNotification(ctx context.Context, id, userID uuid.UUID) error {
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return mapNotFound(err)
	}
	s.publishUser(ctx, realtime.EventNotificationDeleted, userID, map[string]interface{}{"notification_id": id})
	return nil
}

func (s *Service) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

func (s *Service) GetNotificationStats(ctx context.Context, userID uuid.UUID) (*model.NotificationStats, error) {
	stats, err := s.repo.Stats(ctx, userID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return stats, nil
}

// CleanupExpiredNotifications deletes notifications whose expiry has passed.
func (s *Service) CleanupExpiredNotifications(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired notifications: %w", err)
	}
	if n > 0 {
		s.logger.Info("expired notifications removed", "count", n)
	}
	return n, nil
}

// GetPreferences returns the stored preferences or the defaults when the user has none.
func (s *Service) GetPreferences(ctx context.Context, userID uuid.UUID) (*model.NotificationPreferences, error) {
	key := userID.String()
	if cached, ok := s.cache.Get(key); ok {
		prefs := cached.(model.NotificationPreferences)
		return &prefs, nil
	}

	prefs, err := s.prefs.Get(ctx, userID)
	switch {
	case stderrors.Is(err, repository.ErrNotFound):
		prefs = model.DefaultNotificationPreferences(userID)
	case err != nil:
		return nil, errors.NewInternal(fmt.Errorf("failed to load preferences: %w", err))
	}

	s.cache.SetDefault(key, *prefs)
	return prefs, nil
}

// UpdatePreferences merges the set fields of req onto the current preferences.
func (s *Service) UpdatePreferences(ctx context.Context, userID uuid.UUID, req *model.UpdatePreferencesRequest) (*model.NotificationPreferences, error) {
	prefs, err := s.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.EmailNotifications != nil {
		prefs.EmailNotifications = *req.EmailNotifications
	}
	if req.AppointmentReminders != nil {
		prefs.AppointmentReminders = *req.AppointmentReminders
	}
	if req.PatientUpdates != nil {
		prefs.PatientUpdates = *req.PatientUpdates
	}
	if req.SystemAlerts != nil {
		prefs.SystemAlerts = *req.SystemAlerts
	}
	if req.ReminderTiming != nil {
		prefs.ReminderTiming = *req.ReminderTiming
	}
	if req.QuietHours != nil {
		prefs.QuietHours = *req.QuietHours
	}

	if err := s.validator.Struct(prefs); err != nil {
		return nil, errors.NewValidation(err.Error(), err)
	}
	if err := s.prefs.Upsert(ctx, prefs); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to save preferences: %w", err))
	}

	s.cache.Delete(userID.String())
	return prefs, nil
}

func (s *Service) publishUser(ctx context.Context, event string, userID uuid.UUID, payload interface{}) {
	if err := s.publisher.Publish(ctx, event, payload, realtime.Room(realtime.UserRoom(userID))); err != nil {
		s.logger.Warn("failed to publish notification event", "error", err.Error(), "event", event)
	}
}

func mapNotFound(err error) error {
	if stderrors.Is(err, repository.ErrNotFound) {
		return errors.NewNotFound("notification", err)
	}
	return errors.NewInternal(err)
}

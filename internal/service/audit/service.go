package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/realtime"
	"github.com/jwalitptl/practice-api/internal/repository"
	"github.com/jwalitptl/practice-api/pkg/logger"
)

type Service struct {
	repo      repository.AuditRepository
	publisher realtime.Publisher
	logger    *logger.Logger
}

func NewService(repo repository.AuditRepository, publisher realtime.Publisher, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    log.With("audit"),
	}
}

type LogOptions struct {
	Details   map[string]interface{}
	Automatic bool
}

// Append writes the entry and announces it to every connected session. A publish failure is
// logged, never returned.
func (s *Service) Append(ctx context.Context, entry *model.AuditEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	if err := s.publisher.Publish(ctx, realtime.EventAuditLogCreated, entry, realtime.Global()); err != nil {
		s.logger.Warn("failed to publish audit event", "error", err.Error(), "audit_id", entry.ID.String())
	}
	return nil
}

// Log is the shorthand used by services. actorID is nil for automatic changes.
func (s *Service) Log(ctx context.Context, actorID *uuid.UUID, action, resourceType string, resourceID uuid.UUID, opts *LogOptions) error {
	entry := &model.AuditEntry{
		UserID:       actorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
	if opts != nil {
		entry.Details = opts.Details
		entry.Automatic = opts.Automatic
	}
	return s.Append(ctx, entry)
}

package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
)

type NotificationRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]model.Notification
}

func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{items: make(map[uuid.UUID]model.Notification)}
}

func (r *NotificationRepository) Create(_ context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	r.items[n.ID] = *n
	return nil
}

func (r *NotificationRepository) List(_ context.Context, userID uuid.UUID, opts *model.NotificationListOptions) ([]*model.Notification, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*model.Notification
	for _, n := range r.items {
		if n.UserID != userID {
			continue
		}
		if opts != nil && opts.UnreadOnly && n.Read {
			continue
		}
		if opts != nil && opts.Type != "" && n.Type != opts.Type {
			continue
		}
		n := n
		matched = append(matched, &n)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	limit, offset := 20, 0
	if opts != nil {
		if opts.Limit > 0 {
			limit = opts.Limit
		}
		offset = opts.Offset
	}
	if offset >= len(matched) {
		return []*model.Notification{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (r *NotificationRepository) MarkAsRead(_ context.Context, id, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok || n.UserID != userID {
		return repository.ErrNotFound
	}
	n.Read = true
	r.items[id] = n
	return nil
}

func (r *NotificationRepository) MarkAllAsRead(_ context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for id, n := range r.items {
		if n.UserID == userID && !n.Read {
			n.Read = true
			r.items[id] = n
			count++
		}
	}
	return count, nil
}

func (r *NotificationRepository) Delete(_ context.Context, id, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok || n.UserID != userID {
		return repository.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *NotificationRepository) CountUnread(_ context.Context, userID uuid.UUID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var count int64
	for _, n := range r.items {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r *NotificationRepository) Stats(_ context.Context, userID uuid.UUID) (*model.NotificationStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := &model.NotificationStats{ByType: make(map[model.NotificationType]int64)}
	for _, n := range r.items {
		if n.UserID != userID {
			continue
		}
		stats.Total++
		if !n.Read {
			stats.Unread++
		}
		stats.ByType[n.Type]++
	}
	return stats, nil
}

func (r *NotificationRepository) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for id, n := range r.items {
		if n.ExpiresAt != nil && n.ExpiresAt.Before(before) {
			delete(r.items, id)
			count++
		}
	}
	return count, nil
}

type PreferenceRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]model.NotificationPreferences
	reads int
}

func NewPreferenceRepository() *PreferenceRepository {
	return &PreferenceRepository{items: make(map[uuid.UUID]model.NotificationPreferences)}
}

func (r *PreferenceRepository) Get(_ context.Context, userID uuid.UUID) (*model.NotificationPreferences, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	p, ok := r.items[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *PreferenceRepository) Upsert(_ context.Context, p *model.NotificationPreferences) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.UpdatedAt = time.Now().UTC()
	r.items[p.UserID] = *p
	return nil
}

// Reads counts Get calls, letting cache behaviour be observed.
func (r *PreferenceRepository) Reads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reads
}

var (
	_ repository.NotificationRepository = (*NotificationRepository)(nil)
	_ repository.PreferenceRepository   = (*PreferenceRepository)(nil)
)

// Package store persists notifications. Stores never check callers; the
// notification service owns every recipient rule.
//
// Error Contract:
//   - ErrNotFound when the notification does not exist
//   - ErrUnavailable (wrapped) when the backend cannot be reached
//   - bulk operations return the number of documents affected, 0 included
package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"taskflow/internal/notification/models"
	id "taskflow/pkg/domain"
	"taskflow/pkg/platform/sentinel"
)

// InMemory keeps notifications in a map for tests and single-process deployments.
type InMemory struct {
	mu            sync.RWMutex
	notifications map[id.NotificationID]*models.Notification
}

func NewInMemory() *InMemory {
	return &InMemory{notifications: make(map[id.NotificationID]*models.Notification)}
}

func newestFirst(a, b *models.Notification) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(b.ID.String(), a.ID.String())
}

func (s *InMemory) Insert(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.notifications[n.ID]; exists {
		return fmt.Errorf("notification %s: %w", n.ID, sentinel.ErrConflict)
	}
	s.notifications[n.ID] = n.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, notificationID id.NotificationID) (*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notifications[notificationID]
	if !ok {
		return nil, fmt.Errorf("notification not found: %w", sentinel.ErrNotFound)
	}
	return n.Clone(), nil
}

func (s *InMemory) ListByRecipient(_ context.Context, recipient id.UserID) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Notification, 0)
	for _, n := range s.notifications {
		if n.Recipient == recipient {
			out = append(out, n.Clone())
		}
	}
	slices.SortFunc(out, newestFirst)
	return out, nil
}

func (s *InMemory) MarkRead(_ context.Context, notificationID id.NotificationID) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[notificationID]
	if !ok {
		return nil, fmt.Errorf("notification not found: %w", sentinel.ErrNotFound)
	}
	n.Read = true
	return n.Clone(), nil
}

func (s *InMemory) MarkAllRead(_ context.Context, recipient id.UserID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.notifications {
		if n.Recipient == recipient && !n.Read {
			n.Read = true
			count++
		}
	}
	return count, nil
}

func (s *InMemory) Delete(_ context.Context, notificationID id.NotificationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notifications[notificationID]; !ok {
		return fmt.Errorf("notification not found: %w", sentinel.ErrNotFound)
	}
	delete(s.notifications, notificationID)
	return nil
}

func (s *InMemory) DeleteRead(_ context.Context, recipient id.UserID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for key, n := range s.notifications {
		if n.Recipient == recipient && n.Read {
			delete(s.notifications, key)
			count++
		}
	}
	return count, nil
}

func (s *InMemory) DeleteByTask(_ context.Context, taskID id.TaskID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for key, n := range s.notifications {
		if n.Task != nil && *n.Task == taskID {
			delete(s.notifications, key)
			count++
		}
	}
	return count, nil
}

func (s *InMemory) CountUnread(_ context.Context, recipient id.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.notifications {
		if n.Recipient == recipient && !n.Read {
			count++
		}
	}
	return count, nil
}

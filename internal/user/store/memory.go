// Package store persists user accounts.
//
// Error Contract:
//   - ErrNotFound when the user does not exist
//   - ErrConflict when the email is already registered
//   - ErrUnavailable (wrapped) when the backend cannot be reached
package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"taskflow/internal/user/models"
	id "taskflow/pkg/domain"
	"taskflow/pkg/platform/sentinel"
)

// InMemory keeps users in maps indexed by id and email.
type InMemory struct {
	mu      sync.RWMutex
	users   map[id.UserID]*models.User
	byEmail map[string]id.UserID
}

func NewInMemory() *InMemory {
	return &InMemory{
		users:   make(map[id.UserID]*models.User),
		byEmail: make(map[string]id.UserID),
	}
}

func (s *InMemory) Insert(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(user.Email)
	if _, exists := s.byEmail[key]; exists {
		return fmt.Errorf("user email: %w", sentinel.ErrConflict)
	}
	if _, exists := s.users[user.ID]; exists {
		return fmt.Errorf("user %s: %w", user.ID, sentinel.ErrConflict)
	}
	s.users[user.ID] = user.Clone()
	s.byEmail[key] = user.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	return user.Clone(), nil
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	return s.users[userID].Clone(), nil
}

// FindByIDs returns the users that exist among ids, in no particular order.
func (s *InMemory) FindByIDs(_ context.Context, ids []id.UserID) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.User, 0, len(ids))
	for _, userID := range ids {
		if user, ok := s.users[userID]; ok {
			out = append(out, user.Clone())
		}
	}
	return out, nil
}

// List returns every user ordered by name, then id.
func (s *InMemory) List(_ context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.User, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user.Clone())
	}
	slices.SortFunc(out, byName)
	return out, nil
}

func (s *InMemory) UpdateName(_ context.Context, userID id.UserID, name string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	user.Name = name
	return user.Clone(), nil
}

func byName(a, b *models.User) int {
	if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
		return c
	}
	return strings.Compare(a.ID.String(), b.ID.String())
}

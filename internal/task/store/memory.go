// Package store persists tasks. Stores know nothing about callers or
// authorization; they return sentinel errors and the service translates them.
//
// Error Contract:
//   - ErrNotFound when the task does not exist
//   - ErrUnavailable (wrapped) when the backend cannot be reached
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"taskflow/internal/task/models"
	"taskflow/internal/task/query"
	id "taskflow/pkg/domain"
	"taskflow/pkg/platform/sentinel"
)

// InMemory keeps tasks in a map for tests and single-process deployments.
type InMemory struct {
	mu    sync.RWMutex
	tasks map[id.TaskID]*models.Task
}

// NewInMemory constructs an empty in-memory task store.
func NewInMemory() *InMemory {
	return &InMemory{tasks: make(map[id.TaskID]*models.Task)}
}

func (s *InMemory) Insert(_ context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[task.ID]; exists {
		return fmt.Errorf("task %s: %w", task.ID, sentinel.ErrConflict)
	}
	s.tasks[task.ID] = task.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, taskID id.TaskID) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task not found: %w", sentinel.ErrNotFound)
	}
	return task.Clone(), nil
}

// Find returns every task matching p, newest first.
func (s *InMemory) Find(_ context.Context, p query.Predicate) ([]*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Task, 0)
	for _, task := range s.tasks {
		if p.Matches(task) {
			out = append(out, task.Clone())
		}
	}
	slices.SortFunc(out, query.NewestFirst)
	return out, nil
}

// Update applies patch to the stored task under the write lock, so concurrent
// patches to different fields both survive and the same field resolves
// last-write-wins.
func (s *InMemory) Update(_ context.Context, taskID id.TaskID, patch models.TaskPatch, now time.Time) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task not found: %w", sentinel.ErrNotFound)
	}
	task.Apply(patch, now)
	return task.Clone(), nil
}

func (s *InMemory) Delete(_ context.Context, taskID id.TaskID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[taskID]; !ok {
		return fmt.Errorf("task not found: %w", sentinel.ErrNotFound)
	}
	delete(s.tasks, taskID)
	return nil
}

// Ping always succeeds; it exists so health checks treat every backend alike.
func (s *InMemory) Ping(context.Context) error { return nil }

package cascade

import (
	"context"
	"slices"
	"strings"
	"sync"

	id "taskflow/pkg/domain"
)

// InMemoryPendingLog keeps pending task ids in a set. It does not survive a
// restart; use a durable backend outside tests and single-process setups.
type InMemoryPendingLog struct {
	mu      sync.Mutex
	pending map[id.TaskID]struct{}
}

func NewInMemoryPendingLog() *InMemoryPendingLog {
	return &InMemoryPendingLog{pending: make(map[id.TaskID]struct{})}
}

func (l *InMemoryPendingLog) Record(_ context.Context, taskID id.TaskID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending[taskID] = struct{}{}
	return nil
}

func (l *InMemoryPendingLog) Remove(_ context.Context, taskID id.TaskID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.pending, taskID)
	return nil
}

func (l *InMemoryPendingLog) List(context.Context) ([]id.TaskID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]id.TaskID, 0, len(l.pending))
	for taskID := range l.pending {
		out = append(out, taskID)
	}
	slices.SortFunc(out, func(a, b id.TaskID) int { return strings.Compare(a.String(), b.String()) })
	return out, nil
}

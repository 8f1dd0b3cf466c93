package cascade

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "taskflow/pkg/domain"
)

// flakyPurger fails the first failures calls, then succeeds.
type flakyPurger struct {
	mu       sync.Mutex
	failures int
	calls    int
	purged   []id.TaskID
}

func (p *flakyPurger) DeleteForTask(_ context.Context, taskID id.TaskID) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= p.failures {
		return 0, errors.New("store unreachable")
	}
	p.purged = append(p.purged, taskID)
	return 2, nil
}

type ReconcilerSuite struct {
	suite.Suite
	ctx     context.Context
	pending *InMemoryPendingLog
}

func TestReconcilerSuite(t *testing.T) {
	suite.Run(t, new(ReconcilerSuite))
}

func (s *ReconcilerSuite) SetupTest() {
	s.ctx = context.Background()
	s.pending = NewInMemoryPendingLog()
}

func (s *ReconcilerSuite) SetupSubTest() {
	s.pending = NewInMemoryPendingLog()
}

func (s *ReconcilerSuite) reconciler(purger NotificationPurger) *Reconciler {
	return New(purger, s.pending, WithRetry(3, time.Millisecond))
}

func (s *ReconcilerSuite) TestPurge() {
	s.Run("succeeds after transient failures", func() {
		purger := &flakyPurger{failures: 2}
		taskID := id.NewTaskID()

		removed, err := s.reconciler(purger).Purge(s.ctx, taskID)
		s.Require().NoError(err)
		s.Equal(2, removed)
		s.Equal(3, purger.calls)

		pending, err := s.pending.List(s.ctx)
		s.Require().NoError(err)
		s.Empty(pending)
	})

	s.Run("records the task when retries are exhausted", func() {
		purger := &flakyPurger{failures: 100}
		taskID := id.NewTaskID()

		_, err := s.reconciler(purger).Purge(s.ctx, taskID)
		s.Require().ErrorIs(err, ErrCleanupPending)
		s.Equal(3, purger.calls)

		pending, err := s.pending.List(s.ctx)
		s.Require().NoError(err)
		s.Equal([]id.TaskID{taskID}, pending)
	})
}

func (s *ReconcilerSuite) TestDrain() {
	s.Run("repairs pending cleanups and clears the log", func() {
		first, second := id.NewTaskID(), id.NewTaskID()
		s.Require().NoError(s.pending.Record(s.ctx, first))
		s.Require().NoError(s.pending.Record(s.ctx, second))
		purger := &flakyPurger{}

		repaired, err := s.reconciler(purger).Drain(s.ctx)
		s.Require().NoError(err)
		s.Equal(2, repaired)
		s.ElementsMatch([]id.TaskID{first, second}, purger.purged)

		pending, err := s.pending.List(s.ctx)
		s.Require().NoError(err)
		s.Empty(pending)
	})

	s.Run("keeps cleanups that still fail", func() {
		taskID := id.NewTaskID()
		s.Require().NoError(s.pending.Record(s.ctx, taskID))

		repaired, err := s.reconciler(&flakyPurger{failures: 100}).Drain(s.ctx)
		s.Require().Error(err)
		s.Zero(repaired)

		pending, err := s.pending.List(s.ctx)
		s.Require().NoError(err)
		s.Equal([]id.TaskID{taskID}, pending)
	})

	s.Run("empty log is a no-op", func() {
		repaired, err := s.reconciler(&flakyPurger{}).Drain(s.ctx)
		s.Require().NoError(err)
		s.Zero(repaired)
	})
}

func (s *ReconcilerSuite) TestSweep() {
	s.Run("tries each capped entry once without backoff", func() {
		for range 15 {
			s.Require().NoError(s.pending.Record(s.ctx, id.NewTaskID()))
		}
		purger := &flakyPurger{failures: 100}

		repaired, err := s.reconciler(purger).Sweep(s.ctx, 10)
		s.Require().Error(err)
		s.Zero(repaired)
		s.Equal(10, purger.calls)

		pending, err := s.pending.List(s.ctx)
		s.Require().NoError(err)
		s.Len(pending, 15)
	})

	s.Run("repairs what it reaches", func() {
		first, second := id.NewTaskID(), id.NewTaskID()
		s.Require().NoError(s.pending.Record(s.ctx, first))
		s.Require().NoError(s.pending.Record(s.ctx, second))
		purger := &flakyPurger{}

		repaired, err := s.reconciler(purger).Sweep(s.ctx, 10)
		s.Require().NoError(err)
		s.Equal(2, repaired)

		pending, err := s.pending.List(s.ctx)
		s.Require().NoError(err)
		s.Empty(pending)
	})

	s.Run("zero limit touches nothing", func() {
		s.Require().NoError(s.pending.Record(s.ctx, id.NewTaskID()))
		purger := &flakyPurger{}

		repaired, err := s.reconciler(purger).Sweep(s.ctx, 0)
		s.Require().NoError(err)
		s.Zero(repaired)
		s.Zero(purger.calls)
	})
}

func (s *ReconcilerSuite) TestRecordIsIdempotent() {
	taskID := id.NewTaskID()
	s.Require().NoError(s.pending.Record(s.ctx, taskID))
	s.Require().NoError(s.pending.Record(s.ctx, taskID))

	pending, err := s.pending.List(s.ctx)
	s.Require().NoError(err)
	s.Len(pending, 1)
}

package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryAttemptTracker keeps attempt timestamps per actor in process memory.
// Suitable for single-instance deployments and tests; distributed deployments
// should use RedisAttemptTracker so all instances see the same history.
type InMemoryAttemptTracker struct {
	mu        sync.Mutex
	attempts  map[uuid.UUID][]time.Time
	retention time.Duration
	now       func() time.Time
}

// NewInMemoryAttemptTracker creates an in-memory tracker
func NewInMemoryAttemptTracker() *InMemoryAttemptTracker {
	return &InMemoryAttemptTracker{
		attempts:  make(map[uuid.UUID][]time.Time),
		retention: time.Hour,
		now:       time.Now,
	}
}

// CountRecent returns how many attempts the actor made within the window
func (t *InMemoryAttemptTracker) CountRecent(_ context.Context, actorID uuid.UUID, window time.Duration) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pruneLocked(actorID)

	cutoff := t.now().Add(-window)
	count := 0
	for _, at := range t.attempts[actorID] {
		if at.After(cutoff) {
			count++
		}
	}
	return count, nil
}

// RecordAttempt appends an attempt for the actor at the current time
func (t *InMemoryAttemptTracker) RecordAttempt(_ context.Context, actorID uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pruneLocked(actorID)
	t.attempts[actorID] = append(t.attempts[actorID], t.now())
	return nil
}

// pruneLocked drops entries older than the retention horizon. Caller holds mu.
func (t *InMemoryAttemptTracker) pruneLocked(actorID uuid.UUID) {
	horizon := t.now().Add(-t.retention)
	kept := t.attempts[actorID][:0]
	for _, at := range t.attempts[actorID] {
		if at.After(horizon) {
			kept = append(kept, at)
		}
	}
	if len(kept) == 0 {
		delete(t.attempts, actorID)
		return
	}
	t.attempts[actorID] = kept
}

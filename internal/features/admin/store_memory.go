package admin

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type attempt struct {
	success bool
	at      time.Time
}

// MemoryAttemptStore is an in-process AttemptStore for tests and local
// development.
type MemoryAttemptStore struct {
	mu       sync.Mutex
	attempts map[string][]attempt
	clock    clockwork.Clock
}

// NewMemoryAttemptStore creates a memory attempt store.
func NewMemoryAttemptStore(clock clockwork.Clock) *MemoryAttemptStore {
	return &MemoryAttemptStore{
		attempts: make(map[string][]attempt),
		clock:    clock,
	}
}

func (s *MemoryAttemptStore) RecentAttempts(_ context.Context, userKey string, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	since := s.clock.Now().Add(-window)
	count := 0
	for _, a := range s.attempts[userKey] {
		if !a.success && !a.at.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryAttemptStore) LogAttempt(_ context.Context, userKey string, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[userKey] = append(s.attempts[userKey], attempt{success: success, at: s.clock.Now()})
	return nil
}

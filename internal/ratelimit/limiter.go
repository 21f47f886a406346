package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Policy describes a fixed-window limit: at most MaxAttempts requests
// per key within each Window.
type Policy struct {
	MaxAttempts int
	Window      time.Duration
}

// Decision is the outcome of a single limit check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter int // seconds until the window resets; only set when denied
}

type entry struct {
	count   int
	resetAt time.Time
}

// Store is a fixed-window counter keyed by an opaque client identifier.
// Windows are anchored to the first request for a key: once a key's
// resetAt passes, the next check starts a fresh window. A denied check
// never mutates the entry, so hammering a full window does not extend it.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	policy  Policy
	now     func() time.Time
}

// NewStore creates a store for the given policy.
func NewStore(policy Policy) *Store {
	return &Store{
		entries: make(map[string]entry),
		policy:  policy,
		now:     time.Now,
	}
}

// Policy returns the store's immutable policy.
func (s *Store) Policy() Policy {
	return s.policy
}

// Check records one attempt for key and reports whether it is allowed.
func (s *Store) Check(key string) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	e, ok := s.entries[key]
	if !ok || !now.Before(e.resetAt) {
		s.entries[key] = entry{count: 1, resetAt: now.Add(s.policy.Window)}
		return Decision{Allowed: true, Remaining: s.policy.MaxAttempts - 1}
	}

	if e.count >= s.policy.MaxAttempts {
		retryAfter := int((e.resetAt.Sub(now) + time.Second - 1) / time.Second)
		return Decision{Allowed: false, Remaining: 0, RetryAfter: retryAfter}
	}

	e.count++
	s.entries[key] = e
	return Decision{Allowed: true, Remaining: s.policy.MaxAttempts - e.count}
}

// Remaining reports how many attempts key has left without recording one.
func (s *Store) Remaining(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !s.now().Before(e.resetAt) {
		return s.policy.MaxAttempts
	}
	remaining := s.policy.MaxAttempts - e.count
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Clear forgives all recorded attempts for key. The auth gate calls this
// after a successful login so prior failures do not count against the
// caller's next window.
func (s *Store) Clear(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Sweep drops every entry whose window has already ended. Correctness
// does not depend on sweeping; it only bounds memory.
func (s *Store) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, e := range s.entries {
		if !now.Before(e.resetAt) {
			delete(s.entries, key)
		}
	}
}

// Len reports the number of tracked keys, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// StartSweeping runs Sweep on every store at the given interval until ctx
// is cancelled.
func StartSweeping(ctx context.Context, interval time.Duration, stores ...*Store) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, s := range stores {
				s.Sweep()
			}
		}
	}
}

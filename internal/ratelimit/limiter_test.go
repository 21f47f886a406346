package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func newTestStore(policy Policy) (*Store, *time.Time) {
	s := NewStore(policy)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestStore_AllowsUpToLimit(t *testing.T) {
	s, _ := newTestStore(Policy{MaxAttempts: 5, Window: 15 * time.Minute})

	for i := 1; i <= 5; i++ {
		d := s.Check("203.0.113.7")
		if !d.Allowed {
			t.Fatalf("attempt %d: expected allowed", i)
		}
		if d.Remaining != 5-i {
			t.Errorf("attempt %d: remaining = %d, want %d", i, d.Remaining, 5-i)
		}
	}

	d := s.Check("203.0.113.7")
	if d.Allowed {
		t.Fatal("6th attempt should be denied")
	}
	if d.Remaining != 0 {
		t.Errorf("denied remaining = %d, want 0", d.Remaining)
	}
	if d.RetryAfter <= 0 {
		t.Errorf("denied RetryAfter = %d, want > 0", d.RetryAfter)
	}
}

func TestStore_DeniedCheckDoesNotExtendWindow(t *testing.T) {
	s, now := newTestStore(Policy{MaxAttempts: 2, Window: time.Minute})

	s.Check("k")
	s.Check("k")

	// Hammer the full window; resetAt must not move.
	*now = now.Add(30 * time.Second)
	d := s.Check("k")
	if d.Allowed {
		t.Fatal("expected denial inside window")
	}
	if d.RetryAfter != 30 {
		t.Errorf("RetryAfter = %d, want 30", d.RetryAfter)
	}

	*now = now.Add(31 * time.Second)
	d = s.Check("k")
	if !d.Allowed {
		t.Fatal("expected fresh window after resetAt")
	}
	if d.Remaining != 1 {
		t.Errorf("fresh window remaining = %d, want 1", d.Remaining)
	}
}

func TestStore_RetryAfterRoundsUp(t *testing.T) {
	s, now := newTestStore(Policy{MaxAttempts: 1, Window: time.Minute})

	s.Check("k")
	*now = now.Add(59*time.Second + 500*time.Millisecond)

	d := s.Check("k")
	if d.Allowed {
		t.Fatal("expected denial")
	}
	if d.RetryAfter != 1 {
		t.Errorf("RetryAfter = %d, want 1 (500ms left rounds up)", d.RetryAfter)
	}
}

func TestStore_ExpiredEntryTreatedAsAbsent(t *testing.T) {
	s, now := newTestStore(Policy{MaxAttempts: 3, Window: time.Minute})

	s.Check("k")
	s.Check("k")
	*now = now.Add(time.Minute)

	d := s.Check("k")
	if !d.Allowed || d.Remaining != 2 {
		t.Errorf("got allowed=%v remaining=%d, want fresh entry (allowed, 2)", d.Allowed, d.Remaining)
	}
}

func TestStore_KeysAreIndependent(t *testing.T) {
	s, _ := newTestStore(Policy{MaxAttempts: 1, Window: time.Minute})

	if d := s.Check("a"); !d.Allowed {
		t.Fatal("first key should be allowed")
	}
	if d := s.Check("a"); d.Allowed {
		t.Fatal("first key should be exhausted")
	}
	if d := s.Check("b"); !d.Allowed {
		t.Fatal("second key should be unaffected")
	}
}

func TestStore_Clear(t *testing.T) {
	s, _ := newTestStore(Policy{MaxAttempts: 2, Window: time.Minute})

	s.Check("k")
	s.Check("k")
	s.Clear("k")

	d := s.Check("k")
	if !d.Allowed {
		t.Fatal("expected allowed after Clear")
	}
	if d.Remaining != 1 {
		t.Errorf("remaining after Clear = %d, want 1 (attempt #1)", d.Remaining)
	}
}

func TestStore_Sweep(t *testing.T) {
	s, now := newTestStore(Policy{MaxAttempts: 5, Window: time.Minute})

	s.Check("old")
	*now = now.Add(30 * time.Second)
	s.Check("live")

	*now = now.Add(31 * time.Second) // "old" expired, "live" not
	s.Sweep()

	if s.Len() != 1 {
		t.Errorf("after sweep Len = %d, want 1", s.Len())
	}
	if got := s.Remaining("live"); got != 4 {
		t.Errorf("live entry lost by sweep: remaining = %d, want 4", got)
	}
}

func TestStore_ConcurrentChecksDoNotLoseUpdates(t *testing.T) {
	s := NewStore(Policy{MaxAttempts: 100, Window: time.Minute})

	var wg sync.WaitGroup
	allowed := make(chan bool, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- s.Check("k").Allowed
		}()
	}
	wg.Wait()
	close(allowed)

	count := 0
	for ok := range allowed {
		if ok {
			count++
		}
	}
	if count != 100 {
		t.Errorf("allowed %d of 200 concurrent checks, want exactly 100", count)
	}
}

func TestStartSweeping_StopsOnCancel(t *testing.T) {
	s := NewStore(Policy{MaxAttempts: 1, Window: time.Nanosecond})
	s.Check("k")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		StartSweeping(ctx, time.Millisecond, s)
		close(done)
	}()

	deadline := time.After(time.Second)
	for s.Len() != 0 {
		select {
		case <-deadline:
			t.Fatal("sweeper never ran")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on cancel")
	}
}

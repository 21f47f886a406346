package session

import (
	"context"
	"testing"
	"time"
)

func newTestStore(ttl time.Duration) (*Store, *time.Time) {
	s := NewStore(ttl)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestStore_IssueProducesUniqueOpaqueTokens(t *testing.T) {
	s, _ := newTestStore(24 * time.Hour)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := s.Issue()
		if err != nil {
			t.Fatalf("Issue() failed: %v", err)
		}
		if len(token) != 64 {
			t.Fatalf("token length = %d, want 64 hex chars (256 bits)", len(token))
		}
		if seen[token] {
			t.Fatal("duplicate token issued")
		}
		seen[token] = true
	}
}

func TestStore_ValidateWithinTTL(t *testing.T) {
	s, now := newTestStore(24 * time.Hour)

	token, err := s.Issue()
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	if !s.Validate(token) {
		t.Error("fresh token should validate")
	}

	*now = now.Add(24*time.Hour - time.Millisecond)
	if !s.Validate(token) {
		t.Error("token 1ms before expiry should validate")
	}

	*now = now.Add(2 * time.Millisecond)
	if s.Validate(token) {
		t.Error("token 1ms past expiry should not validate")
	}
	if s.Len() != 0 {
		t.Error("expired token should be evicted on access")
	}
}

func TestStore_ValidateUnknownToken(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	if s.Validate("deadbeef") {
		t.Error("unknown token should not validate")
	}
}

func TestStore_Sweep(t *testing.T) {
	s, now := newTestStore(time.Hour)

	old, _ := s.Issue()
	*now = now.Add(30 * time.Minute)
	live, _ := s.Issue()

	*now = now.Add(31 * time.Minute) // old expired, live has 59m left
	s.Sweep()

	if s.Len() != 1 {
		t.Errorf("after sweep Len = %d, want 1", s.Len())
	}
	if s.Validate(old) {
		t.Error("swept token should not validate")
	}
	if !s.Validate(live) {
		t.Error("live token should survive sweep")
	}
}

func TestStore_StartSweepingStopsOnCancel(t *testing.T) {
	s := NewStore(time.Nanosecond)
	if _, err := s.Issue(); err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.StartSweeping(ctx, time.Millisecond)
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

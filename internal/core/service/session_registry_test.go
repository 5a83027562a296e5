package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSessionRegistry_CreateValidateInvalidate(t *testing.T) {
	ctx := context.Background()
	reg := NewSessionRegistry(newStubSessionRepo(), time.Hour, zerolog.Nop())

	id, err := reg.Create(ctx, "u1", "10.0.0.1", "curl/8")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	s, err := reg.Validate(ctx, id)
	if err != nil || s == nil {
		t.Fatalf("expected valid session, got %v, %v", s, err)
	}
	if s.UserID != "u1" || s.IPAddress != "10.0.0.1" || s.UserAgent != "curl/8" {
		t.Fatalf("unexpected session: %+v", s)
	}

	if err := reg.Invalidate(ctx, id); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	s, err = reg.Validate(ctx, id)
	if err != nil || s != nil {
		t.Fatalf("expected no session after invalidate, got %v, %v", s, err)
	}
}

func TestSessionRegistry_UnknownAndEmptyIDs(t *testing.T) {
	ctx := context.Background()
	reg := NewSessionRegistry(newStubSessionRepo(), time.Hour, zerolog.Nop())

	for _, id := range []string{"", "missing"} {
		s, err := reg.Validate(ctx, id)
		if err != nil || s != nil {
			t.Fatalf("Validate(%q) = %v, %v", id, s, err)
		}
		if err := reg.Invalidate(ctx, id); err != nil {
			t.Fatalf("Invalidate(%q): %v", id, err)
		}
	}
}

func TestSessionRegistry_LazyExpiry(t *testing.T) {
	ctx := context.Background()
	repo := newStubSessionRepo()
	reg := NewSessionRegistry(repo, time.Hour, zerolog.Nop())
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return start }

	id, err := reg.Create(ctx, "u1", "", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	reg.now = func() time.Time { return start.Add(59 * time.Minute) }
	if s, _ := reg.Validate(ctx, id); s == nil {
		t.Fatalf("expected session to be valid within ttl")
	}

	reg.now = func() time.Time { return start.Add(61 * time.Minute) }
	if s, _ := reg.Validate(ctx, id); s != nil {
		t.Fatalf("expected session to expire after ttl")
	}
	if repo.sessions[id].IsActive {
		t.Fatalf("expected expired session to be deactivated")
	}
}

func TestSessionRegistry_InvalidateAllReturnsOpenSessions(t *testing.T) {
	ctx := context.Background()
	reg := NewSessionRegistry(newStubSessionRepo(), time.Hour, zerolog.Nop())
	exp := time.Now().Add(time.Hour)

	a, _ := reg.Create(ctx, "u1", "", "", WithToken("jti-a", exp))
	b, _ := reg.Create(ctx, "u1", "", "", WithToken("jti-b", exp))
	other, _ := reg.Create(ctx, "u2", "", "")

	open, err := reg.InvalidateAll(ctx, "u1")
	if err != nil {
		t.Fatalf("InvalidateAll: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("expected 2 closed sessions, got %d", len(open))
	}
	tokens := map[string]bool{}
	for _, s := range open {
		tokens[s.TokenID] = true
	}
	if !tokens["jti-a"] || !tokens["jti-b"] {
		t.Fatalf("expected token ids to be returned, got %v", tokens)
	}

	for _, id := range []string{a, b} {
		if s, _ := reg.Validate(ctx, id); s != nil {
			t.Fatalf("expected session %s to be closed", id)
		}
	}
	if s, _ := reg.Validate(ctx, other); s == nil {
		t.Fatalf("expected other user's session to survive")
	}
	if n, _ := reg.ActiveCount(ctx, "u1"); n != 0 {
		t.Fatalf("expected 0 active sessions, got %d", n)
	}
}

func TestSessionRegistry_SweepExpired(t *testing.T) {
	ctx := context.Background()
	reg := NewSessionRegistry(newStubSessionRepo(), time.Hour, zerolog.Nop())
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	reg.now = func() time.Time { return start }
	old, _ := reg.Create(ctx, "u1", "", "")
	reg.now = func() time.Time { return start.Add(50 * time.Minute) }
	fresh, _ := reg.Create(ctx, "u1", "", "")

	reg.now = func() time.Time { return start.Add(90 * time.Minute) }
	n, err := reg.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 swept session, got %d", n)
	}
	if s, _ := reg.Validate(ctx, old); s != nil {
		t.Fatalf("expected old session swept")
	}
	if s, _ := reg.Validate(ctx, fresh); s == nil {
		t.Fatalf("expected fresh session to survive")
	}
}

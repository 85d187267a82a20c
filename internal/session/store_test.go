package session

import (
	"context"
	"testing"
	"time"

	"github.com/dropDatabas3/hellobridge/internal/cache/memory"
)

func TestSession_RoundTrip(t *testing.T) {
	s := New(memory.New(time.Minute), time.Minute)
	ctx := context.Background()

	sid, err := s.Create(ctx, "user-1")
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}
	if sid == "" {
		t.Fatalf("empty session id")
	}

	p, ok := s.Get(ctx, sid)
	if !ok {
		t.Fatalf("session not found")
	}
	if p.UserID != "user-1" {
		t.Fatalf("user: %q", p.UserID)
	}
}

func TestSession_DeleteIsIdempotent(t *testing.T) {
	s := New(memory.New(time.Minute), time.Minute)
	ctx := context.Background()

	sid, _ := s.Create(ctx, "user-1")
	s.Delete(ctx, sid)
	s.Delete(ctx, sid)

	if _, ok := s.Get(ctx, sid); ok {
		t.Fatalf("session should be gone")
	}
}

func TestSession_ExpiredIsGone(t *testing.T) {
	s := New(memory.New(time.Minute), time.Nanosecond)
	ctx := context.Background()

	sid, _ := s.Create(ctx, "user-1")
	time.Sleep(5 * time.Millisecond)

	if _, ok := s.Get(ctx, sid); ok {
		t.Fatalf("expired session should not resolve")
	}
}

func TestSession_UnknownID(t *testing.T) {
	s := New(memory.New(time.Minute), time.Minute)
	if _, ok := s.Get(context.Background(), "nope"); ok {
		t.Fatalf("unknown id should not resolve")
	}
}

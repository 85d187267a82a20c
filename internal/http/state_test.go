package http

import (
	"errors"
	"testing"
	"time"
)

func TestStateSigner_RoundTrip(t *testing.T) {
	s := NewStateSigner("secreto-de-test", 10*time.Minute)

	tok, err := s.SignState(StateClaims{Provider: "google", Challenge: "chal-1", Nonce: "n-1"})
	if err != nil {
		t.Fatalf("SignState err: %v", err)
	}
	got, err := s.ParseState(tok)
	if err != nil {
		t.Fatalf("ParseState err: %v", err)
	}
	if got.Provider != "google" || got.Challenge != "chal-1" || got.Nonce != "n-1" {
		t.Fatalf("claims: %+v", got)
	}
}

func TestStateSigner_PendingRoundTrip(t *testing.T) {
	s := NewStateSigner("secreto-de-test", 10*time.Minute)

	tok, err := s.SignPending(PendingClaims{
		Provider:       "facebook",
		ProviderUserID: "f-1",
		Email:          "ana@ejemplo.com",
		FamilyNameHint: "García",
		Challenge:      "chal-2",
	})
	if err != nil {
		t.Fatalf("SignPending err: %v", err)
	}
	got, err := s.ParsePending(tok)
	if err != nil {
		t.Fatalf("ParsePending err: %v", err)
	}
	if got.ProviderUserID != "f-1" || got.Email != "ana@ejemplo.com" || got.Challenge != "chal-2" {
		t.Fatalf("claims: %+v", got)
	}
}

func TestStateSigner_AudiencesDoNotCross(t *testing.T) {
	s := NewStateSigner("secreto-de-test", 10*time.Minute)

	state, _ := s.SignState(StateClaims{Provider: "google", Nonce: "n"})
	if _, err := s.ParsePending(state); !errors.Is(err, ErrStateInvalid) {
		t.Fatalf("state token accepted as pending: %v", err)
	}

	pending, _ := s.SignPending(PendingClaims{Provider: "google", ProviderUserID: "g"})
	if _, err := s.ParseState(pending); !errors.Is(err, ErrStateInvalid) {
		t.Fatalf("pending token accepted as state: %v", err)
	}
}

func TestStateSigner_WrongSecret(t *testing.T) {
	a := NewStateSigner("secreto-a", 10*time.Minute)
	b := NewStateSigner("secreto-b", 10*time.Minute)

	tok, _ := a.SignState(StateClaims{Provider: "google", Nonce: "n"})
	if _, err := b.ParseState(tok); !errors.Is(err, ErrStateInvalid) {
		t.Fatalf("cross-secret token accepted: %v", err)
	}
}

func TestStateSigner_Expired(t *testing.T) {
	s := &StateSigner{secret: []byte("secreto-de-test"), ttl: -time.Minute}

	tok, _ := s.SignState(StateClaims{Provider: "google", Nonce: "n"})
	if _, err := s.ParseState(tok); !errors.Is(err, ErrStateExpired) {
		t.Fatalf("expected ErrStateExpired, got %v", err)
	}
}

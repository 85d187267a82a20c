package bridge

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/dropDatabas3/hellobridge/internal/cache/memory"
	"github.com/dropDatabas3/hellobridge/internal/hydra"
	"github.com/dropDatabas3/hellobridge/internal/session"
)

// fakeAdmin simula el admin API. Cada challenge se consume una sola vez.
type fakeAdmin struct {
	accepted map[string]bool
	rejected map[string]bool
	failWith *hydra.UpstreamError
}

func newFakeAdmin() *fakeAdmin {
	return &fakeAdmin{accepted: map[string]bool{}, rejected: map[string]bool{}}
}

func (f *fakeAdmin) AcceptLoginRequest(_ context.Context, challenge string, _ hydra.AcceptLoginInput) (*hydra.CompletedRequest, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	if f.accepted[challenge] || f.rejected[challenge] {
		return nil, &hydra.UpstreamError{Status: http.StatusGone, Body: "challenge already used"}
	}
	f.accepted[challenge] = true
	return &hydra.CompletedRequest{RedirectTo: "https://authz.example/redirect?c=" + challenge}, nil
}

func (f *fakeAdmin) RejectLoginRequest(_ context.Context, challenge string, _ hydra.RejectLoginInput) (*hydra.CompletedRequest, error) {
	if f.accepted[challenge] || f.rejected[challenge] {
		return nil, &hydra.UpstreamError{Status: http.StatusGone, Body: "challenge already used"}
	}
	f.rejected[challenge] = true
	return &hydra.CompletedRequest{RedirectTo: "https://authz.example/error"}, nil
}

func newTestFlow(admin AdminAPI) (*Flow, *session.Store) {
	sessions := session.New(memory.New(time.Minute), time.Minute)
	acceptor := NewAcceptor(admin, AcceptorConfig{Remember: true, RememberFor: 86400})
	return NewFlow(acceptor, NewTerminator(sessions)), sessions
}

func TestFlow_CompleteAcceptsAndDestroysSession(t *testing.T) {
	admin := newFakeAdmin()
	flow, sessions := newTestFlow(admin)
	ctx := context.Background()

	sid, err := sessions.Create(ctx, "user-1")
	if err != nil {
		t.Fatalf("session create: %v", err)
	}

	res, err := flow.Complete(ctx, "chal-1", Subject{UserID: "user-1"}, sid)
	if err != nil {
		t.Fatalf("Complete err: %v", err)
	}
	if res.RedirectURL == "" {
		t.Fatalf("expected redirect URL")
	}
	if !admin.accepted["chal-1"] {
		t.Fatalf("challenge not accepted upstream")
	}
	// La sesión local muere después del accept
	if _, ok := sessions.Get(ctx, sid); ok {
		t.Fatalf("local session should be destroyed")
	}
}

func TestFlow_MissingChallengeSkipsAccept(t *testing.T) {
	admin := newFakeAdmin()
	flow, sessions := newTestFlow(admin)
	ctx := context.Background()

	sid, _ := sessions.Create(ctx, "user-1")

	res, err := flow.Complete(ctx, "", Subject{UserID: "user-1"}, sid)
	if err != nil {
		t.Fatalf("Complete err: %v", err)
	}
	if res.RedirectURL != "" {
		t.Fatalf("no redirect expected without challenge")
	}
	if len(admin.accepted) != 0 {
		t.Fatalf("nothing should reach upstream")
	}
	// Sin challenge la sesión sigue viva
	if _, ok := sessions.Get(ctx, sid); !ok {
		t.Fatalf("local session should survive")
	}
}

func TestFlow_DoubleAcceptFails(t *testing.T) {
	admin := newFakeAdmin()
	flow, sessions := newTestFlow(admin)
	ctx := context.Background()

	sid, _ := sessions.Create(ctx, "user-1")
	if _, err := flow.Complete(ctx, "chal-1", Subject{UserID: "user-1"}, sid); err != nil {
		t.Fatalf("first Complete err: %v", err)
	}

	_, err := flow.Complete(ctx, "chal-1", Subject{UserID: "user-1"}, sid)
	if !errors.Is(err, ErrUpstreamRejected) {
		t.Fatalf("expected ErrUpstreamRejected on reuse, got %v", err)
	}
}

func TestFlow_UpstreamRejectionKeepsSession(t *testing.T) {
	admin := newFakeAdmin()
	admin.failWith = &hydra.UpstreamError{Status: http.StatusGone, Body: "expired"}
	flow, sessions := newTestFlow(admin)
	ctx := context.Background()

	sid, _ := sessions.Create(ctx, "user-1")

	_, err := flow.Complete(ctx, "chal-expired", Subject{UserID: "user-1"}, sid)
	if !errors.Is(err, ErrUpstreamRejected) {
		t.Fatalf("expected ErrUpstreamRejected, got %v", err)
	}
	// El fallo upstream no destruye la sesión local
	if _, ok := sessions.Get(ctx, sid); !ok {
		t.Fatalf("session should survive upstream failure")
	}
	// El detalle del upstream viaja en la cadena
	var ue *hydra.UpstreamError
	if !errors.As(err, &ue) || ue.Status != http.StatusGone {
		t.Fatalf("upstream detail lost: %v", err)
	}
}

func TestFlow_EmptySubjectNeverReachesUpstream(t *testing.T) {
	admin := newFakeAdmin()
	flow, _ := newTestFlow(admin)

	_, err := flow.Complete(context.Background(), "chal-1", Subject{}, "")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if len(admin.accepted) != 0 {
		t.Fatalf("challenge must not be spent without subject")
	}
}

func TestFlow_AbortRejectsChallenge(t *testing.T) {
	admin := newFakeAdmin()
	flow, _ := newTestFlow(admin)

	res, err := flow.Abort(context.Background(), "chal-1", "access_denied", "cancelado")
	if err != nil {
		t.Fatalf("Abort err: %v", err)
	}
	if res.RedirectURL == "" {
		t.Fatalf("expected redirect from reject")
	}
	if !admin.rejected["chal-1"] {
		t.Fatalf("challenge not rejected upstream")
	}

	// Abort sin challenge es un no-op
	res, err = flow.Abort(context.Background(), "", "access_denied", "")
	if err != nil || res.RedirectURL != "" {
		t.Fatalf("no-op expected, got res=%+v err=%v", res, err)
	}
}

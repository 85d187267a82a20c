package hydra

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAcceptLoginRequest_OK(t *testing.T) {
	var gotMethod, gotQuery string
	var gotBody AcceptLoginInput

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotQuery = r.URL.Query().Get("login_challenge")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(CompletedRequest{RedirectTo: "https://authz/redirect"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	cr, err := c.AcceptLoginRequest(context.Background(), "chal-1", AcceptLoginInput{
		Subject:     "user-1",
		Remember:    true,
		RememberFor: 86400,
	})
	if err != nil {
		t.Fatalf("accept err: %v", err)
	}
	if cr.RedirectTo != "https://authz/redirect" {
		t.Fatalf("redirect_to: %q", cr.RedirectTo)
	}
	if gotMethod != http.MethodPut {
		t.Fatalf("method: %s", gotMethod)
	}
	if gotQuery != "chal-1" {
		t.Fatalf("login_challenge query: %q", gotQuery)
	}
	if gotBody.Subject != "user-1" || !gotBody.Remember || gotBody.RememberFor != 86400 {
		t.Fatalf("body: %+v", gotBody)
	}
}

func TestAcceptLoginRequest_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
		_, _ = w.Write([]byte(`{"error":"challenge expired"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.AcceptLoginRequest(context.Background(), "chal-old", AcceptLoginInput{Subject: "u"})

	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.Status != http.StatusGone {
		t.Fatalf("status: %d", ue.Status)
	}
}

func TestAcceptLoginRequest_MissingRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(CompletedRequest{})
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.AcceptLoginRequest(context.Background(), "chal-1", AcceptLoginInput{Subject: "u"})

	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError for empty redirect_to, got %v", err)
	}
}

func TestGetLoginRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method: %s", r.Method)
		}
		_, _ = w.Write([]byte(`{"challenge":"chal-1","subject":"","skip":false,"client":{"client_id":"spa"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	lr, err := c.GetLoginRequest(context.Background(), "chal-1")
	if err != nil {
		t.Fatalf("get err: %v", err)
	}
	if lr.Challenge != "chal-1" || lr.Client.ClientID != "spa" {
		t.Fatalf("login request: %+v", lr)
	}
}

func TestRejectLoginRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in RejectLoginInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Error != "access_denied" {
			t.Errorf("reject error: %q", in.Error)
		}
		_ = json.NewEncoder(w).Encode(CompletedRequest{RedirectTo: "https://authz/err"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	cr, err := c.RejectLoginRequest(context.Background(), "chal-1", RejectLoginInput{Error: "access_denied"})
	if err != nil {
		t.Fatalf("reject err: %v", err)
	}
	if cr.RedirectTo == "" {
		t.Fatalf("expected redirect_to")
	}
}

func TestRejectLoginRequest_MissingRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(CompletedRequest{})
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.RejectLoginRequest(context.Background(), "chal-1", RejectLoginInput{Error: "access_denied"})

	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError for empty redirect_to, got %v", err)
	}
}

func TestDo_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not-json`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.GetLoginRequest(context.Background(), "chal-1")

	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError for malformed body, got %v", err)
	}
}
